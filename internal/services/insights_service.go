package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"spent/internal/accounts"
	"spent/internal/amqp"
	"spent/internal/classifier"
	"spent/internal/core"
	"spent/internal/ledger"
	"spent/internal/metrics"
	"spent/internal/sheets"
)

var (
	ErrEmptySource     = errors.New("empty income source")
	ErrExportDisabled  = errors.New("report export is not configured")
	ErrAlreadyExported = errors.New("report already exported")
)

// incomeDescription is the log description used for every income entry.
const incomeDescription = core.IncomeCategory

// EventPublisher delivers ledger events to downstream consumers.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error
}

// Correction reports the outcome of CorrectCategory.
type Correction struct {
	Description string
	Category    string
	Updated     int
}

// InsightsService is the entry point used by the CLI and the HTTP API. Views
// returned by As share state and serialize on one mutex.
type InsightsService struct {
	mu          *sync.Mutex
	user        string
	store       *ledger.Store
	classifier  *classifier.Classifier
	accounts    accounts.Directory
	adjuster    *RecurringAdjuster
	aggregation *Aggregation
	publisher   EventPublisher
	reports     sheets.ReportWriter
	metrics     *metrics.Metrics
}

type Option func(*InsightsService)

func WithPublisher(p EventPublisher) Option {
	return func(s *InsightsService) { s.publisher = p }
}

func WithReportWriter(w sheets.ReportWriter) Option {
	return func(s *InsightsService) { s.reports = w }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *InsightsService) { s.metrics = m }
}

func WithFrequencyRules(r FrequencyRules) Option {
	return func(s *InsightsService) {
		s.adjuster.rules = r
		s.aggregation.rules = r
	}
}

func NewInsightsService(store *ledger.Store, cls *classifier.Classifier, dir accounts.Directory, opts ...Option) *InsightsService {
	rules := DefaultFrequencyRules()
	s := &InsightsService{
		mu:          &sync.Mutex{},
		store:       store,
		classifier:  cls,
		accounts:    dir,
		adjuster:    NewRecurringAdjuster(store, dir, rules),
		aggregation: NewAggregation(store, rules),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// As returns a view bound to user; an empty user selects the global scope.
func (s *InsightsService) As(user string) *InsightsService {
	view := *s
	view.user = strings.TrimSpace(user)
	return &view
}

func (s *InsightsService) User() string { return s.user }

func (s *InsightsService) scope() ledger.Scope {
	return ledger.UserScope(s.user)
}

// AddTransaction categorizes and records an expense (or a negative refund).
func (s *InsightsService) AddTransaction(ctx context.Context, month, description, amount string) (core.Transaction, error) {
	m, err := core.ParseMonth(month)
	if err != nil {
		return core.Transaction{}, err
	}
	desc := strings.TrimSpace(description)
	if desc == "" {
		return core.Transaction{}, core.ErrEmptyDescription
	}
	amt, err := core.ParseAmount(amount)
	if err != nil {
		return core.Transaction{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.record(ctx, m, desc, amt)
	if err != nil {
		return core.Transaction{}, err
	}
	s.countTransaction("expense")

	ev := amqp.NewLedgerEvent(amqp.EventTransactionAdded)
	ev.Description = tx.Description
	s.publish(ctx, s.fill(ev, tx))
	return tx, nil
}

// AddIncome records an income entry as a negative transaction described as "income".
func (s *InsightsService) AddIncome(ctx context.Context, month, source, amount string) (core.Transaction, error) {
	m, err := core.ParseMonth(month)
	if err != nil {
		return core.Transaction{}, err
	}
	src := strings.TrimSpace(source)
	if src == "" {
		return core.Transaction{}, ErrEmptySource
	}
	amt, err := core.ParseAmount(amount)
	if err != nil {
		return core.Transaction{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.record(ctx, m, incomeDescription, amt.Neg())
	if err != nil {
		return core.Transaction{}, err
	}
	s.countTransaction("income")

	ev := amqp.NewLedgerEvent(amqp.EventIncomeAdded)
	ev.Source = src
	s.publish(ctx, s.fill(ev, tx))
	return tx, nil
}

// record runs with s.mu held.
func (s *InsightsService) record(ctx context.Context, month core.Month, desc string, amount decimal.Decimal) (core.Transaction, error) {
	tx := core.Transaction{
		Month:       month,
		Description: desc,
		Amount:      amount,
		Category:    s.classifier.Categorize(desc),
	}

	if err := s.store.Record(ctx, ledger.Global, month, tx.Category, amount); err != nil {
		return core.Transaction{}, fmt.Errorf("record global total: %w", err)
	}
	if s.user != "" {
		if err := s.applyRecurring(ctx, month); err != nil {
			return core.Transaction{}, err
		}
		if err := s.store.Record(ctx, s.scope(), month, tx.Category, amount); err != nil {
			return core.Transaction{}, fmt.Errorf("record user total: %w", err)
		}
	}
	if _, err := s.store.AppendTransaction(ctx, tx); err != nil {
		return core.Transaction{}, fmt.Errorf("append transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction recorded",
		"user", s.user,
		"month", month,
		"category", tx.Category,
		"amount", amount.String())
	return tx, nil
}

// CorrectCategory moves every logged transaction with exactly this
// description into category and teaches the classifier the pair.
func (s *InsightsService) CorrectCategory(ctx context.Context, description, category string) (Correction, error) {
	desc := strings.TrimSpace(description)
	cat := strings.TrimSpace(category)
	if desc == "" {
		return Correction{}, core.ErrEmptyDescription
	}
	if cat == "" {
		return Correction{}, core.ErrEmptyCategory
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result := Correction{Description: desc, Category: cat}
	for _, entry := range s.store.FindByDescription(desc) {
		if entry.Category == cat {
			continue
		}
		if err := s.store.Move(ctx, ledger.Global, entry.Month, entry.Category, cat, entry.Amount); err != nil {
			return result, fmt.Errorf("move global total: %w", err)
		}
		if s.user != "" {
			if err := s.store.Move(ctx, s.scope(), entry.Month, entry.Category, cat, entry.Amount); err != nil {
				return result, fmt.Errorf("move user total: %w", err)
			}
		}
		if err := s.store.Recategorize(ctx, entry.Index, cat); err != nil {
			return result, err
		}

		ev := amqp.NewLedgerEvent(amqp.EventCategoryCorrected)
		ev.Description = desc
		ev.PreviousCategory = entry.Category
		s.publish(ctx, s.fill(ev, core.Transaction{Month: entry.Month, Amount: entry.Amount, Category: cat}))
		result.Updated++
	}

	s.classifier.Learn(desc, cat)
	if err := s.store.AddTrainingSample(ctx, classifier.Sample{Description: desc, Category: cat}); err != nil {
		return result, fmt.Errorf("persist training sample: %w", err)
	}

	if s.metrics != nil {
		outcome := "matched"
		if result.Updated == 0 {
			outcome = "unmatched"
		}
		s.metrics.Corrections.WithLabelValues(outcome).Inc()
		s.metrics.Retrains.Inc()
	}
	slog.InfoContext(ctx, "Category corrected",
		"user", s.user,
		"description", desc,
		"category", cat,
		"updated", result.Updated)
	return result, nil
}

func (s *InsightsService) MonthlyReport(ctx context.Context, month string) (core.CategoryTotals, error) {
	m, err := core.ParseMonth(month)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.applyRecurring(ctx, m); err != nil {
		return nil, err
	}
	return s.aggregation.MonthlyReport(s.scope(), m), nil
}

func (s *InsightsService) Compare(ctx context.Context, from, to string) (core.Comparison, error) {
	a, err := core.ParseMonth(from)
	if err != nil {
		return core.Comparison{}, err
	}
	b, err := core.ParseMonth(to)
	if err != nil {
		return core.Comparison{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range []core.Month{a, b} {
		if err := s.applyRecurring(ctx, m); err != nil {
			return core.Comparison{}, err
		}
	}
	return s.aggregation.Compare(s.scope(), a, b), nil
}

func (s *InsightsService) SpendIncomeSplit(ctx context.Context, month string) (core.Split, error) {
	m, err := core.ParseMonth(month)
	if err != nil {
		return core.Split{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.applyRecurring(ctx, m); err != nil {
		return core.Split{}, err
	}

	var rec *accounts.Record
	if s.user != "" && s.accounts != nil {
		r, found, err := s.accounts.Lookup(ctx, s.user)
		if err != nil {
			slog.WarnContext(ctx, "Skipping recurring overlay", "user", s.user, "error", err)
		} else if found {
			rec = &r
		}
	}
	return s.aggregation.SpendIncomeSplit(s.scope(), m, rec), nil
}

// ExportMonth appends the month's report for the active scope to the
// configured report sheet. A month already present in the sheet is skipped
// with ErrAlreadyExported when the writer can read reports back.
func (s *InsightsService) ExportMonth(ctx context.Context, month string) (int, error) {
	if s.reports == nil {
		return 0, ErrExportDisabled
	}
	totals, err := s.MonthlyReport(ctx, month)
	if err != nil {
		return 0, err
	}
	m, _ := core.ParseMonth(month)

	if reader, ok := s.reports.(sheets.ReportReader); ok {
		existing, err := reader.ReadReport(ctx, m, s.user)
		if err != nil {
			return 0, fmt.Errorf("read exported report: %w", err)
		}
		if len(existing) > 0 {
			return 0, fmt.Errorf("%w: %s", ErrAlreadyExported, m)
		}
	}
	return s.reports.AppendReport(ctx, sheets.MonthReport{Month: m, User: s.user, Totals: totals})
}

// applyRecurring runs the adjuster for the active user. Account store
// failures are logged and leave the month unadjusted for a later retry.
func (s *InsightsService) applyRecurring(ctx context.Context, month core.Month) error {
	adj, err := s.adjuster.ApplyIfNeeded(ctx, s.user, month)
	if errors.Is(err, ErrAccountLookup) {
		slog.WarnContext(ctx, "Recurring adjustment deferred", "user", s.user, "month", month, "error", err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("apply recurring adjustment: %w", err)
	}
	if adj == nil {
		return nil
	}
	if s.metrics != nil {
		s.metrics.Adjustments.Inc()
	}
	ev := amqp.NewLedgerEvent(amqp.EventRecurringApplied)
	ev.User = adj.User
	ev.Month = adj.Month.String()
	ev.Amount = adj.Bills.Sub(adj.Income)
	ev.Matched = adj.Posted
	s.publish(ctx, ev)
	return nil
}

func (s *InsightsService) fill(ev *amqp.LedgerEvent, tx core.Transaction) *amqp.LedgerEvent {
	ev.User = s.user
	ev.Month = tx.Month.String()
	ev.Amount = tx.Amount
	ev.Category = tx.Category
	return ev
}

func (s *InsightsService) countTransaction(kind string) {
	if s.metrics != nil {
		s.metrics.Transactions.WithLabelValues(kind).Inc()
	}
}

// publish never fails the caller: the ledger is already updated.
func (s *InsightsService) publish(ctx context.Context, ev *amqp.LedgerEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishLedgerEvent(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event", "id", ev.ID, "type", ev.Type, "error", err)
		if s.metrics != nil {
			s.metrics.PublishErrors.Inc()
		}
	}
}
