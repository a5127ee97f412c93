package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"spent/internal/amqp"
	gsheet "spent/internal/sheets/google"
	"spent/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend opens the persister and any optional integrations. An
// unreachable broker is logged and skipped; a Sheets failure is returned
// since export was asked for explicitly.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	res, err := f.createPersister(config)
	if err != nil {
		return nil, err
	}
	closers := []func() error{res.Persister.Close}

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without ledger events", "error", err)
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			res.Publisher = client
			closers = append(closers, client.Close)
		}
	}

	if config.GoogleSpreadsheetID != "" {
		cli, err := gsheet.New(ctx, config.GoogleSpreadsheetID, config.GoogleSheetName, config.GoogleAuditSheetName)
		if err != nil {
			closeAll(closers)
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		f.logger.Info("Initialized Google Sheets export", "sheet", config.GoogleSheetName)
		res.Reports = cli
		res.Audit = cli
	}

	res.Cleanup = func() error { return closeAll(closers) }
	return res, nil
}

func (f *DefaultFactory) createPersister(config Config) (*BackendResult, error) {
	switch config.Type {
	case FileBackend:
		fs, err := storage.NewFileStore(config.DataFile)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize file store: %w", err)
		}
		f.logger.Info("Initialized file backend", "path", config.DataFile)
		return &BackendResult{Persister: fs, Health: fs}, nil
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return &BackendResult{Persister: repo, Health: repo}, nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// closeAll closes in reverse order and joins the errors.
func closeAll(closers []func() error) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
