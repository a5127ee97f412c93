package cli

import (
	"context"
	"errors"
	"fmt"

	"spent/internal/accounts"
	"spent/internal/backend"
	"spent/internal/classifier"
	"spent/internal/config"
	"spent/internal/ledger"
	applog "spent/internal/log"
	"spent/internal/metrics"
	"spent/internal/services"
)

// App holds the wired engine for one process.
type App struct {
	Config   *config.Config
	Logger   *applog.Logger
	Metrics  *metrics.Metrics
	Backend  *backend.BackendResult
	Store    *ledger.Store
	Accounts *accounts.CachedDirectory
	Service  *services.InsightsService
}

// NewApp opens the backend and ledger, seeds the classifier and builds the
// insights service. A nil m disables metrics.
func NewApp(ctx context.Context, cfg *config.Config, logger *applog.Logger, m *metrics.Metrics) (*App, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger.WithComponent(applog.ComponentStorage).Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}

	store, err := ledger.Open(ctx, res.Persister)
	if err != nil {
		return nil, errors.Join(err, res.Cleanup())
	}
	if m != nil {
		store.SetFlushObserver(m.ObserveFlush)
	}

	keywords, err := loadKeywords(cfg.KeywordsFile)
	if err != nil {
		return nil, errors.Join(err, res.Cleanup())
	}
	samples := store.TrainingSamples()
	cls := classifier.New(keywords, samples)
	logger.WithComponent(applog.ComponentClassifier).Info("Classifier ready",
		"samples", len(samples),
		"fitted", cls.Fitted())

	dir := accounts.NewCachedDirectory(accounts.NewFileDirectory(cfg.UsersFile), cfg.AccountsCacheTTL)

	opts := []services.Option{}
	if res.Publisher != nil {
		opts = append(opts, services.WithPublisher(res.Publisher))
	}
	if res.Reports != nil {
		opts = append(opts, services.WithReportWriter(res.Reports))
	}
	if m != nil {
		opts = append(opts, services.WithMetrics(m))
	}

	return &App{
		Config:   cfg,
		Logger:   logger,
		Metrics:  m,
		Backend:  res,
		Store:    store,
		Accounts: dir,
		Service:  services.NewInsightsService(store, cls, dir, opts...),
	}, nil
}

// Close releases the backend. The ledger flushes on every mutation so there
// is nothing left to save.
func (a *App) Close() error {
	if a.Backend == nil || a.Backend.Cleanup == nil {
		return nil
	}
	return a.Backend.Cleanup()
}

// loadKeywords returns nil, selecting the built-in table, when path is empty.
func loadKeywords(path string) (classifier.Keywords, error) {
	if path == "" {
		return nil, nil
	}
	kw, err := classifier.LoadKeywordsFile(path)
	if err != nil {
		return nil, fmt.Errorf("load keywords: %w", err)
	}
	return kw, nil
}
