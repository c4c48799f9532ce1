// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SimpleAuth Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/simpleauth/simpleauth/internal/observability"
)

// sweepConfig holds configuration for the sweep command.
type sweepConfig struct {
	interval    time.Duration
	metricsAddr string
}

// NewSweepCmd creates the sweep subcommand.
func NewSweepCmd(_ *rootConfig, deps *Deps) *cobra.Command {
	deps = deps.withDefaults()
	cfg := &sweepConfig{}

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired sessions",
		Long: `Delete expired sessions from the database. Runs once by default;
with --interval it keeps running until interrupted, optionally exposing
metrics and health probes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSweep(cmd, cfg, deps)
		},
	}

	cmd.Flags().DurationVar(&cfg.interval, "interval", 0, "sweep repeatedly at this interval (0 = run once)")
	cmd.Flags().StringVar(&cfg.metricsAddr, "metrics-addr", "", "metrics/health HTTP address (empty = disabled, only used with --interval)")

	return cmd
}

func runSweep(cmd *cobra.Command, cfg *sweepConfig, deps *Deps) error {
	logger := slog.Default()

	var obsServer *observability.Server
	onSweep := func(int64) {}
	if cfg.interval > 0 && cfg.metricsAddr != "" {
		obsServer = observability.NewServer(cfg.metricsAddr, func() bool { return true })
		metrics := obsServer.Metrics()
		onSweep = func(deleted int64) { metrics.RecordSweep(deleted) }
	}

	sweeper, cleanup, err := deps.SweeperFactory(cmd.Context(), cfg.interval, logger, onSweep)
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.interval <= 0 {
		deleted, err := sweeper.SweepOnce(cmd.Context())
		if err != nil {
			return err
		}
		cmd.Printf("Deleted %d expired session(s)\n", deleted)
		return nil
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if obsServer != nil {
		errChan, err := obsServer.Start()
		if err != nil {
			return err
		}
		go monitorServerErrors(ctx, cancel, errChan, "observability")
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if stopErr := obsServer.Stop(shutdownCtx); stopErr != nil {
				logger.Warn("error stopping observability server", "error", stopErr)
			}
		}()
		logger.Info("observability server started", "addr", obsServer.Addr())
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received shutdown signal", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	cmd.Printf("Sweeping every %s\n", cfg.interval)
	sweeper.Run(ctx)

	logger.Info("sweep loop stopped")
	return nil
}

// monitorServerErrors cancels the context when the server reports an
// error, so a failed metrics endpoint shuts the loop down instead of
// leaving it half-alive.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
