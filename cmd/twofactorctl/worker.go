package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/background"
	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/ops"
	"github.com/spf13/cobra"
)

func newCleanupManager(a *app) *background.CleanupManager {
	return background.NewCleanupManager(a.devices, a.audit, a.metrics, a.cfg.Cleanup.AttemptRetention, a.logger, a.cfg.Cleanup.Interval)
}

func newWorkerCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the cleanup loop and serve /health and /metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger := newLogger(opts.cfg.Server.LogLevel)
			a, err := newApp(ctx, opts.cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			server := &http.Server{
				Addr: ":" + opts.cfg.Server.Port,
				Handler: ops.NewRouter(ops.Config{
					Env:               opts.cfg.Server.Env,
					RequestsPerMinute: opts.cfg.Server.OpsRequestsPerMinute,
				}, a.checks, a.registry, logger),
				ReadTimeout:  opts.cfg.Server.ReadTimeout,
				WriteTimeout: opts.cfg.Server.WriteTimeout,
				IdleTimeout:  opts.cfg.Server.IdleTimeout,
			}

			cleanup := newCleanupManager(a)
			go cleanup.Start(ctx)

			serverErr := make(chan error, 1)
			go func() {
				logger.Info("starting ops server", slog.String("addr", server.Addr))
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
				close(serverErr)
			}()

			select {
			case <-ctx.Done():
				logger.Info("shutdown signal received")
			case err := <-serverErr:
				if err != nil {
					cleanup.Stop()
					return fmt.Errorf("ops server: %w", err)
				}
			}

			cleanup.Stop()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("ops server shutdown: %w", err)
			}

			logger.Info("worker stopped gracefully")
			return nil
		},
	}
}

func newCleanupCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete expired device sessions and old attempts once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts.cfg, newLogger(opts.cfg.Server.LogLevel))
			if err != nil {
				return err
			}
			defer a.Close()

			result := newCleanupManager(a).RunOnce(cmd.Context())
			return opts.print(cmd.OutOrStdout(), result, func(w io.Writer) {
				fmt.Fprintf(w, "device sessions deleted: %d\n", result.SessionsDeleted)
				fmt.Fprintf(w, "auth attempts deleted:   %d\n", result.AttemptsDeleted)
			})
		},
	}
}
