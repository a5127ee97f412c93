// Package main consumes ledger events from AMQP and records them in the
// audit sheet.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"spent/internal/amqp"
	"spent/internal/cache"
	"spent/internal/cli"
	"spent/internal/config"
	applog "spent/internal/log"
	"spent/internal/metrics"
	"spent/internal/sheets"
	gsheet "spent/internal/sheets/google"
	"spent/internal/worker"
)

const (
	summaryInterval = 15 * time.Minute
	cleanupInterval = 5 * time.Minute
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.Fatal(cli.SetupLogger("info", applog.ComponentAudit, os.Stdout), "Configuration validation failed", err)
	}
	logger := cli.SetupLogger(cfg.LogLevel, applog.ComponentAudit, os.Stdout)

	if err := run(cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.LogError(context.Background(), "Audit worker stopped with error", err, applog.OpShutdown, nil)
		os.Exit(1)
	}
	logger.Info("Audit worker stopped")
}

func run(cfg *config.Config, logger *applog.Logger) error {
	if !cfg.AMQPEnabled() {
		return errors.New("AMQP_URL is required for the audit worker")
	}

	ctx, cancel := cli.SignalContext(context.Background(), logger)
	defer cancel()

	var writer sheets.AuditWriter
	if cfg.SheetsEnabled() {
		sc, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, cfg.GoogleAuditSheetName)
		if err != nil {
			return fmt.Errorf("initialize Google Sheets client: %w", err)
		}
		writer = sc
		logger.Info("Recording ledger events to Google Sheets", "sheet", cfg.GoogleAuditSheetName)
	} else {
		logger.Info("Google Sheets disabled, ledger events are only logged")
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("initialize AMQP client: %w", err)
	}
	defer client.Close()

	w := worker.NewAuditWorker(writer, metrics.Default())
	janitor := cache.NewJanitor(w)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return client.ConsumeLedgerEvents(gctx, w.HandleLedgerEvent)
	})
	g.Go(func() error {
		return janitor.Run(gctx, cleanupInterval)
	})
	g.Go(func() error {
		ticker := time.NewTicker(summaryInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				w.LogSummary(context.Background())
				return nil
			case <-ticker.C:
				w.LogSummary(gctx)
			}
		}
	})
	if cfg.AuditMetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.AuditMetricsAddr,
			Handler:           promhttp.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("Serving audit metrics", "addr", cfg.AuditMetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			return srv.Shutdown(shutdownCtx)
		})
	}
	return g.Wait()
}
