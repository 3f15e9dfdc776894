package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/moodlemate/moodlemate/api"
	"github.com/moodlemate/moodlemate/internal/config"
	"github.com/moodlemate/moodlemate/internal/log"
	"github.com/moodlemate/moodlemate/internal/observability"
	"github.com/moodlemate/moodlemate/internal/rag"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(parent context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := newLogger()
	logger.Info("starting moodlemate", "version", Version)

	traceShutdown, err := observability.Setup(ctx, observability.Config{
		Endpoint:    cfg.OTLPEndpoint,
		Environment: cfg.Environment,
		ServiceName: cfg.ServiceName,
	}, logger)
	if err != nil {
		return fmt.Errorf("setting up tracing: %w", err)
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		if err := traceShutdown(flushCtx); err != nil {
			logger.Warn("trace flush failed", "error", err)
		}
	}()

	system, cleanup, err := rag.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing pipeline: %w", err)
	}
	defer cleanup()

	// Expiry sweep runs outside the request path for the server's
	// lifetime.
	go runSessionSweeper(ctx, system.Pipeline.Memory(), cfg.CleanupInterval, logger)

	server, err := api.NewServer(api.ServerConfig{
		Addr:     cfg.HTTPAddr,
		Pipeline: system.Pipeline,
		Pool:     system.Pool,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return server.Run(ctx)
}

// runSessionSweeper periodically removes expired conversation
// sessions until ctx is canceled.
func runSessionSweeper(ctx context.Context, memory *rag.Memory, interval time.Duration, logger log.Logger) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := memory.CleanupExpiredSessions(); removed > 0 {
				logger.Debug("session sweep", "removed", removed)
			}
		}
	}
}
