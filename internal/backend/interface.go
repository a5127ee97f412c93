package backend

import (
	"context"

	"spent/internal/services"
	"spent/internal/sheets"
	"spent/internal/storage"
)

// HealthChecker is implemented by persisters that can verify connectivity.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult bundles what a process needs to run the ledger. Publisher,
// Reports and Audit are nil when their integration is not configured.
type BackendResult struct {
	Persister storage.Persister
	Health    HealthChecker
	Publisher services.EventPublisher
	Reports   sheets.ReportWriter
	Audit     sheets.AuditWriter
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// File specific
	DataFile string

	// SQLite specific
	SQLiteDBPath string

	// Ledger events, skipped when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets, skipped when GoogleSpreadsheetID is empty
	GoogleSpreadsheetID  string
	GoogleSheetName      string
	GoogleAuditSheetName string
}

// BackendType represents the type of backend
type BackendType string

const (
	FileBackend   BackendType = "file"
	SQLiteBackend BackendType = "sqlite"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case FileBackend, SQLiteBackend:
		return true
	default:
		return false
	}
}
