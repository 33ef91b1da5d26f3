package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/joho/godotenv"
	"github.com/muhammadolammi/jobmatch/internal/config"
	"github.com/muhammadolammi/jobmatch/internal/database"
	"github.com/muhammadolammi/jobmatch/internal/logging"
	"github.com/muhammadolammi/jobmatch/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
)

const agentName = "resume_analyzer"

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadWorker()
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("error creating logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("error opening db", zap.Error(err))
	}
	defer db.Close()

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		logger.Fatal("error running migrations", zap.Error(err))
	}

	awsConfig, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.R2.AccessKey, cfg.R2.SecretKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		logger.Fatal("error creating aws config", zap.Error(err))
	}

	analyzer, err := GetAgent(ctx, cfg.GoogleAPIKey, cfg.AgentModel, agentName)
	if err != nil {
		logger.Fatal("failed to create agent", zap.Error(err))
	}

	inMemoryService := session.InMemoryService()
	r, err := runner.New(runner.Config{
		AppName:        analyzer.Name(),
		Agent:          analyzer,
		SessionService: inMemoryService,
	})
	if err != nil {
		logger.Fatal("failed to create runner", zap.Error(err))
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatal("error connecting to rabbitmq", zap.Error(err))
	}
	defer conn.Close()

	if err := declareUpdateExchange(conn); err != nil {
		logger.Fatal("error declaring update exchange", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           metrics.NewRouter(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("metrics server listening", zap.String("addr", cfg.MetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", zap.Error(err))
		}
	}()

	workerConfig := WorkerConfig{
		DB:                  database.New(db),
		R2:                  &cfg.R2,
		S3:                  newR2Client(awsConfig, cfg.R2.Endpoint()),
		RabbitConn:          conn,
		RABBITMQUrl:         cfg.RabbitMQURL,
		AgentRunner:         r,
		AgentSessionService: inMemoryService,
		AgentName:           analyzer.Name(),
		AgentLimiter:        rate.NewLimiter(rate.Every(cfg.AgentInterval), 1),
		Metrics:             collector,
		Logger:              logger,
	}

	logger.Info("starting consumer pool", zap.Int("workers", cfg.WorkerCount))
	workerConfig.StartConsumerWorkerPool(ctx, cfg.WorkerCount)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics server shutdown", zap.Error(err))
	}
}
