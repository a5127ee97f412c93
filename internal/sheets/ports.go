package sheets

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"spent/internal/core"
)

// MonthReport is one scope's category totals for a month.
type MonthReport struct {
	Month  core.Month
	User   string
	Totals core.CategoryTotals
}

// AuditEntry is one ledger event as recorded in the audit trail.
type AuditEntry struct {
	ID          string
	Type        string
	User        string
	Month       string
	Description string
	Category    string
	Amount      decimal.Decimal
	Timestamp   time.Time
}

// Ports for outbound adapters.
type (
	ReportWriter interface {
		// AppendReport writes one row per category and returns the row count.
		AppendReport(ctx context.Context, r MonthReport) (rows int, err error)
	}

	// ReportReader returns totals previously exported for a month and user.
	ReportReader interface {
		ReadReport(ctx context.Context, month core.Month, user string) (core.CategoryTotals, error)
	}

	AuditWriter interface {
		AppendAuditEntry(ctx context.Context, e AuditEntry) error
	}
)
