package main

import (
	"context"
	"fmt"
	"time"

	"github.com/muhammadolammi/jobmatch/internal/apiclient"
	"github.com/muhammadolammi/jobmatch/internal/authsession"
	"github.com/muhammadolammi/jobmatch/internal/config"
	"github.com/muhammadolammi/jobmatch/internal/logging"
	"github.com/muhammadolammi/jobmatch/internal/sessionstore"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultSettleTimeout = 5 * time.Second

// app holds what every subcommand needs once the environment is loaded.
type app struct {
	settleTimeout time.Duration

	cfg     *config.Client
	logger  *zap.Logger
	store   *sessionstore.RedisProvider
	manager *authsession.Manager
	client  *apiclient.Client
}

func newRootCmd() *cobra.Command {
	a := &app{settleTimeout: defaultSettleTimeout}

	root := &cobra.Command{
		Use:          "jobmatch",
		Short:        "Score resumes against job descriptions",
		SilenceUsage: true,
	}
	root.PersistentFlags().DurationVar(&a.settleTimeout, "auth-timeout", defaultSettleTimeout, "how long to wait for the stored session to load")

	root.AddCommand(
		newAnalyzeCmd(a),
		newHealthCmd(a),
		newSessionCmd(a),
	)
	return root
}

// open loads config, connects the session store when one is configured and
// waits for the session manager to settle. Callers defer close before calling
// open so a partial setup is still released.
func (a *app) open(ctx context.Context) error {
	cfg, err := config.LoadClient()
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := logging.NewConsole(cfg.LogLevel)
	if err != nil {
		return err
	}
	a.logger = logger

	var provider authsession.Provider
	if cfg.AuthEnabled() {
		store, err := sessionstore.NewRedisProvider(cfg.RedisURL, cfg.SessionID, logger)
		if err != nil {
			return fmt.Errorf("connect session store: %w", err)
		}
		a.store = store
		provider = store
	}

	a.manager = authsession.NewManager(provider, logger)
	a.manager.Start(ctx)

	select {
	case <-a.manager.Settled():
	case <-time.After(a.settleTimeout):
		logger.Warn("session still loading, continuing unauthenticated", zap.Duration("waited", a.settleTimeout))
	case <-ctx.Done():
		return ctx.Err()
	}

	a.client = apiclient.New(cfg.APIURL, a.manager,
		apiclient.WithRateLimit(cfg.RequestInterval),
		apiclient.WithLogger(logger),
	)
	return nil
}

func (a *app) close() {
	if a.manager != nil {
		a.manager.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Debug("close session store", zap.Error(err))
		}
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

func newHealthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the backend is up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer a.close()
			if err := a.open(cmd.Context()); err != nil {
				return err
			}

			msg, err := a.client.Health(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %s\n", msg)
			return nil
		},
	}
}
