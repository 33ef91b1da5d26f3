// Package config reads process configuration from the environment once at
// startup. Values are treated as immutable afterwards.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type R2 struct {
	AccountID string
	Bucket    string
	AccessKey string
	SecretKey string
}

// Endpoint is the account's S3-compatible API base.
func (r R2) Endpoint() string {
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", r.AccountID)
}

// Worker configures the analysis worker.
type Worker struct {
	DatabaseURL  string
	RabbitMQURL  string
	R2           R2
	GoogleAPIKey string

	AgentModel    string
	AgentInterval time.Duration
	WorkerCount   int
	MetricsAddr   string
	LogLevel      string
}

// Client configures the jobmatch CLI.
type Client struct {
	APIURL          string
	RedisURL        string
	SessionID       string
	RequestInterval time.Duration
	LogLevel        string
}

// LoadWorker fails listing every required variable that is unset.
func LoadWorker() (*Worker, error) {
	cfg := &Worker{}
	var missing []string
	required := func(key string) string {
		v := os.Getenv(key)
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg.DatabaseURL = required("DB_URL")
	cfg.RabbitMQURL = required("RABBITMQ_URL")
	cfg.R2.AccountID = required("R2_ACCOUNT_ID")
	cfg.R2.Bucket = required("R2_BUCKET")
	cfg.R2.AccessKey = required("R2_ACCESS_KEY")
	cfg.R2.SecretKey = required("R2_SECRET_KEY")
	cfg.GoogleAPIKey = required("GOOGLE_API_KEY")

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	cfg.AgentModel = getEnvString("AGENT_MODEL", "gemini-2.5-pro")
	cfg.AgentInterval = getEnvDuration("AGENT_RATE", 2*time.Second)
	cfg.WorkerCount = getEnvInt("WORKER_COUNT", 3)
	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 1
	}
	cfg.MetricsAddr = getEnvString("METRICS_ADDR", ":9090")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	return cfg, nil
}

// LoadClient reads the CLI settings. Auth is optional: without REDIS_URL the
// session manager runs disabled and requests go out unauthenticated.
func LoadClient() (*Client, error) {
	cfg := &Client{}

	cfg.APIURL = os.Getenv("JOBMATCH_API_URL")
	if cfg.APIURL == "" {
		return nil, fmt.Errorf("required environment variables are not set: %v", []string{"JOBMATCH_API_URL"})
	}

	cfg.RedisURL = os.Getenv("REDIS_URL")
	cfg.SessionID = getEnvString("JOBMATCH_SESSION_ID", "default")
	cfg.RequestInterval = getEnvDuration("JOBMATCH_RATE", time.Second)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	return cfg, nil
}

// AuthEnabled reports whether an auth provider is configured.
func (c *Client) AuthEnabled() bool {
	return c.RedisURL != ""
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
