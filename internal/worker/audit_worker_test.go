package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spent/internal/amqp"
	"spent/internal/metrics"
	"spent/internal/sheets"
	"spent/internal/sheets/memory"
)

type failingWriter struct{ calls int }

func (f *failingWriter) AppendAuditEntry(context.Context, sheets.AuditEntry) error {
	f.calls++
	return errors.New("quota exceeded")
}

func TestHandleLedgerEventRecordsOnce(t *testing.T) {
	store := memory.New()
	w := NewAuditWorker(store, metrics.New(prometheus.NewRegistry()))
	ctx := context.Background()

	ev := amqp.NewLedgerEvent(amqp.EventTransactionAdded)
	ev.User = "alice"
	ev.Month = "2024-02"
	ev.Description = "Grocery run"
	ev.Category = "Groceries"
	ev.Amount = decimal.RequireFromString("54.2")

	require.NoError(t, w.HandleLedgerEvent(ctx, ev))
	require.NoError(t, w.HandleLedgerEvent(ctx, ev))

	entries := store.AuditEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, ev.ID, entries[0].ID)
	assert.Equal(t, "transaction.added", entries[0].Type)
	assert.Equal(t, "Grocery run", entries[0].Description)
	assert.True(t, entries[0].Amount.Equal(ev.Amount))
	assert.Equal(t, map[amqp.EventType]int{amqp.EventTransactionAdded: 1}, w.Counts())
}

func TestHandleLedgerEventUsesIncomeSource(t *testing.T) {
	store := memory.New()
	w := NewAuditWorker(store, nil)

	ev := amqp.NewLedgerEvent(amqp.EventIncomeAdded)
	ev.Source = "Salary"
	ev.Amount = decimal.NewFromInt(-3000)
	require.NoError(t, w.HandleLedgerEvent(context.Background(), ev))

	require.Len(t, store.AuditEntries(), 1)
	assert.Equal(t, "Salary", store.AuditEntries()[0].Description)
}

func TestHandleLedgerEventWriterFailureAllowsRetry(t *testing.T) {
	fw := &failingWriter{}
	w := NewAuditWorker(fw, nil)
	ev := amqp.NewLedgerEvent(amqp.EventCategoryCorrected)

	require.Error(t, w.HandleLedgerEvent(context.Background(), ev))
	require.Error(t, w.HandleLedgerEvent(context.Background(), ev))
	assert.Equal(t, 2, fw.calls, "failed events must not be remembered as seen")
	assert.Empty(t, w.Counts())
}

func TestHandleLedgerEventWithoutWriter(t *testing.T) {
	w := NewAuditWorker(nil, nil)
	for _, typ := range []amqp.EventType{amqp.EventRecurringApplied, amqp.EventRecurringApplied, amqp.EventIncomeAdded} {
		require.NoError(t, w.HandleLedgerEvent(context.Background(), amqp.NewLedgerEvent(typ)))
	}
	assert.Equal(t, map[amqp.EventType]int{
		amqp.EventRecurringApplied: 2,
		amqp.EventIncomeAdded:      1,
	}, w.Counts())
	assert.Equal(t, 0, w.CleanExpired())
	w.LogSummary(context.Background())
}
