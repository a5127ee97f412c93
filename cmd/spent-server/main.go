// Package main runs the spent JSON API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"spent/internal/cache"
	"spent/internal/cli"
	"spent/internal/config"
	apphttp "spent/internal/http"
	applog "spent/internal/log"
	"spent/internal/metrics"
)

const (
	shutdownTimeout = 30 * time.Second
	cleanupInterval = time.Minute
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.Fatal(cli.SetupLogger("info", applog.ComponentApp, os.Stdout), "Configuration validation failed", err)
	}
	logger := cli.SetupLogger(cfg.LogLevel, applog.ComponentApp, os.Stdout)

	if err := run(cfg, logger); err != nil {
		logger.LogError(context.Background(), "Server stopped with error", err, applog.OpShutdown, nil)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(cfg *config.Config, logger *applog.Logger) error {
	ctx, cancel := cli.SignalContext(context.Background(), logger)
	defer cancel()

	m := metrics.Default()
	app, err := cli.NewApp(ctx, cfg, logger, m)
	if err != nil {
		return fmt.Errorf("initialize ledger: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.LogError(context.Background(), "Failed to close backend", err, applog.OpShutdown, nil)
		}
	}()

	srv := apphttp.NewServer(":"+cfg.Port, app.Service, apphttp.Options{
		Logger:   logger.WithComponent(applog.ComponentHTTP),
		Metrics:  m,
		Gatherer: prometheus.DefaultGatherer,
		Health:   app.Backend.Health,
	})
	janitor := cache.NewJanitor(srv.Limiter(), app.Accounts)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting spent server",
			"port", cfg.Port,
			"backend", cfg.Backend,
			"amqp_enabled", app.Backend.Publisher != nil,
			"export_enabled", app.Backend.Reports != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return janitor.Run(gctx, cleanupInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
