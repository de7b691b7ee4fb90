package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Matcry12/careervr/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (default)",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	api.SetLogger(a.logger)
	a.logger.Info("starting careervr", slog.String("version", version), slog.String("build_time", buildTime))

	a.prepare(ctx)

	handler := api.SetupRoutes(a.cfg, version, buildTime, api.Deps{
		Backend:  a.backend,
		Gate:     a.gate,
		Repos:    a.repos,
		Migrator: a.migrator,
	})
	server := &http.Server{
		Addr:         a.cfg.Addr,
		Handler:      handler,
		ReadTimeout:  a.cfg.APITimeout,
		WriteTimeout: a.cfg.APITimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server starting", slog.String("addr", a.cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	a.logger.Info("shutting down server")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	a.logger.Info("server exited")
	return nil
}

// prepare brings stored posts to the current shape and seeds the job catalog.
// Both are skipped on a read-only deployment.
func (a *app) prepare(ctx context.Context) {
	if !a.gate.WritesAllowed() {
		a.logger.Warn("writes disabled, skipping startup migration and catalog seed", slog.String("mode", a.gate.Mode()))
		return
	}
	opCtx, cancel := context.WithTimeout(ctx, a.cfg.Storage.OperationTimeout)
	defer cancel()

	if _, res := a.migrator.NormalizeSchema(opCtx); !res.OK {
		a.logger.Error("startup migration failed", slog.String("reason", res.Reason))
	}
	if res := a.repos.Jobs.SeedDefaults(opCtx); !res.OK {
		a.logger.Error("seeding job catalog failed", slog.String("reason", res.Reason))
	} else if res.Reason != "catalog_present" {
		a.logger.Info("seeded default job catalog", slog.Int("count", res.Affected))
	}
}
