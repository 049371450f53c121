// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marionette Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/marionette-rig/marionette/internal/app"
	"github.com/marionette-rig/marionette/internal/logging"
	"github.com/marionette-rig/marionette/internal/observability"
)

// NewRunCmd creates the run subcommand.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the character pipeline",
		Long: `Run the character pipeline: select the configured character, load
its definition, model and animation clips, and start its idle animation.
Runs until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configFile, cmd.Flags(), nil)
			if err != nil {
				return err
			}
			return runPipeline(cmd.Context(), cmd, cfg)
		},
	}

	registerRunFlags(cmd.Flags())
	return cmd
}

// runPipeline runs the pipeline until a signal arrives, ctx is cancelled, or
// the observability server fails.
func runPipeline(ctx context.Context, cmd *cobra.Command, cfg *runConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logOpts, err := cfg.Logging()
	if err != nil {
		return err
	}
	logging.SetDefault(logOpts)

	appCfg, err := cfg.App()
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	pipeline, err := app.New(appCfg, os.DirFS(cfg.Assets.Root), registry)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var obsServer *observability.Server
	if cfg.Metrics.Addr != "" {
		obsServer = observability.NewServer(cfg.Metrics.Addr, registry, pipeline.Ready,
			func() any { return pipeline.Snapshot() })
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return fmt.Errorf("failed to start observability server: %w", err)
		}
		// Monitor observability server errors - cancel context on error
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received shutdown signal", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	cmd.Println("Pipeline started")
	slog.Info("pipeline configured",
		"assets_root", cfg.Assets.Root,
		"select", cfg.Select,
		"characters", len(cfg.Characters))

	runErr := pipeline.Run(ctx)

	slog.Info("shutting down...")
	if obsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := obsServer.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping observability server", "error", err)
		}
	}

	if runErr != nil {
		return fmt.Errorf("pipeline error: %w", runErr)
	}
	slog.Info("shutdown complete")
	return nil
}

// monitorServerErrors monitors a server's error channel and cancels the context on error.
// It exits when either an error is received, the channel is closed, or the context is cancelled.
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
