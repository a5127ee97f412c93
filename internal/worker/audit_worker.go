package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"spent/internal/amqp"
	"spent/internal/cache"
	"spent/internal/metrics"
	"spent/internal/sheets"
)

const (
	seenCacheSize = 4096
	seenTTL       = time.Hour
)

// AuditWorker records ledger events consumed from AMQP into an audit trail.
// Redelivered events are recognized by id and recorded once.
type AuditWorker struct {
	writer  sheets.AuditWriter
	seen    *cache.LRUCache[struct{}]
	metrics *metrics.Metrics

	mu     sync.Mutex
	counts map[amqp.EventType]int
}

// NewAuditWorker returns a worker writing to w. A nil writer only logs.
func NewAuditWorker(w sheets.AuditWriter, m *metrics.Metrics) *AuditWorker {
	return &AuditWorker{
		writer:  w,
		seen:    cache.NewLRUCache[struct{}](seenCacheSize, seenTTL),
		metrics: m,
		counts:  make(map[amqp.EventType]int),
	}
}

// HandleLedgerEvent matches the amqp consumer handler signature. A returned
// error requeues the delivery.
func (w *AuditWorker) HandleLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	if w.seen.Contains(ev.ID) {
		slog.DebugContext(ctx, "Skipping duplicate ledger event", "id", ev.ID, "type", ev.Type)
		w.observe(ev.Type, "duplicate")
		return nil
	}

	slog.InfoContext(ctx, "Processing ledger event",
		"id", ev.ID,
		"type", ev.Type,
		"user", ev.User,
		"month", ev.Month,
		"category", ev.Category,
		"amount", ev.Amount.String())

	if w.writer != nil {
		if err := w.writer.AppendAuditEntry(ctx, toAuditEntry(ev)); err != nil {
			w.observe(ev.Type, "error")
			return fmt.Errorf("record event %s: %w", ev.ID, err)
		}
	}

	w.seen.Set(ev.ID, struct{}{})
	w.mu.Lock()
	w.counts[ev.Type]++
	w.mu.Unlock()
	w.observe(ev.Type, "ok")
	return nil
}

// Counts returns how many events of each type were recorded.
func (w *AuditWorker) Counts() map[amqp.EventType]int {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[amqp.EventType]int, len(w.counts))
	for k, v := range w.counts {
		out[k] = v
	}
	return out
}

// LogSummary writes one line per event type, sorted by type.
func (w *AuditWorker) LogSummary(ctx context.Context) {
	counts := w.Counts()
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, string(t))
	}
	sort.Strings(types)
	for _, t := range types {
		slog.InfoContext(ctx, "Ledger events recorded", "type", t, "count", counts[amqp.EventType(t)])
	}
	st := w.seen.Stats()
	slog.DebugContext(ctx, "Event id cache", "size", w.seen.Size(), "evictions", st.Evictions)
}

// CleanExpired drops remembered event ids past their ttl; it makes the worker
// a cache.Cleaner.
func (w *AuditWorker) CleanExpired() int {
	return w.seen.CleanExpired()
}

func (w *AuditWorker) observe(t amqp.EventType, result string) {
	if w.metrics == nil {
		return
	}
	w.metrics.EventsConsumed.WithLabelValues(string(t), result).Inc()
}

func toAuditEntry(ev *amqp.LedgerEvent) sheets.AuditEntry {
	desc := ev.Description
	if desc == "" {
		desc = ev.Source
	}
	return sheets.AuditEntry{
		ID:          ev.ID,
		Type:        string(ev.Type),
		User:        ev.User,
		Month:       ev.Month,
		Description: desc,
		Category:    ev.Category,
		Amount:      ev.Amount,
		Timestamp:   ev.Timestamp,
	}
}
