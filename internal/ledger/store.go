// Package ledger keeps category totals for the global and per-user scopes,
// the transaction log, classifier training samples and recurring adjustment
// flags. The whole state is flushed through a storage.Persister after every
// mutating call.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"spent/internal/classifier"
	"spent/internal/core"
	"spent/internal/storage"
)

// ErrPersist wraps failures to flush the document.
var ErrPersist = errors.New("persist ledger")

// ErrOutOfRange is returned when a total would leave the finite float64 range.
var ErrOutOfRange = errors.New("total out of range")

// ErrUnknownTransaction is returned for an out of range log index.
var ErrUnknownTransaction = errors.New("unknown transaction")

// Scope selects the global track (empty User) or one user's track.
type Scope struct {
	User string
}

// Global is the scope with no user.
var Global = Scope{}

func UserScope(user string) Scope { return Scope{User: user} }

func (s Scope) IsGlobal() bool { return s.User == "" }

func (s Scope) String() string {
	if s.IsGlobal() {
		return "global"
	}
	return "user:" + s.User
}

// Entry is a transaction together with its position in the log.
type Entry struct {
	Index int
	core.Transaction
}

// FlushObserver is notified after every flush attempt.
type FlushObserver func(err error, seconds float64)

type Store struct {
	mu        sync.Mutex
	persister storage.Persister
	doc       *storage.Document
	observe   FlushObserver
}

// Open loads the document once. A missing document starts empty; a corrupt
// one is returned as an error wrapping storage.ErrCorruptDocument.
func Open(ctx context.Context, p storage.Persister) (*Store, error) {
	doc, err := p.Load(ctx)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		doc = storage.NewDocument()
	case err != nil:
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	return &Store{persister: p, doc: doc}, nil
}

// SetFlushObserver installs a hook used for flush metrics.
func (s *Store) SetFlushObserver(fn FlushObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observe = fn
}

func (s *Store) Close() error {
	return s.persister.Close()
}

// Record adds delta to the (scope, month, category) total, creating it at zero.
func (s *Store) Record(ctx context.Context, scope Scope, month core.Month, category string, delta decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := s.next(scope, month, category, delta)
	if err != nil {
		return err
	}
	s.month(scope, month, true)[category] = next
	return s.flush(ctx)
}

// Move shifts amount from one category to another within a scope.
func (s *Store) Move(ctx context.Context, scope Scope, month core.Month, from, to string, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if from == to {
		totals := s.month(scope, month, true)
		if _, ok := totals[from]; !ok {
			totals[from] = 0
		}
		return s.flush(ctx)
	}
	fromNext, err := s.next(scope, month, from, amount.Neg())
	if err != nil {
		return err
	}
	toNext, err := s.next(scope, month, to, amount)
	if err != nil {
		return err
	}
	totals := s.month(scope, month, true)
	totals[from] = fromNext
	totals[to] = toNext
	return s.flush(ctx)
}

func (s *Store) AppendTransaction(ctx context.Context, tx core.Transaction) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Transactions = append(s.doc.Transactions, storage.TransactionRecord{
		Month:       tx.Month.String(),
		Description: tx.Description,
		Amount:      tx.Amount.InexactFloat64(),
		Category:    tx.Category,
	})
	return len(s.doc.Transactions) - 1, s.flush(ctx)
}

// FindByDescription returns log entries whose description equals desc exactly.
func (s *Store) FindByDescription(desc string) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Entry
	for i, rec := range s.doc.Transactions {
		if rec.Description == desc {
			out = append(out, Entry{Index: i, Transaction: fromRecord(rec)})
		}
	}
	return out
}

// Recategorize sets the category of the log entry at index.
func (s *Store) Recategorize(ctx context.Context, index int, category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.doc.Transactions) {
		return fmt.Errorf("%w: %d", ErrUnknownTransaction, index)
	}
	s.doc.Transactions[index].Category = category
	return s.flush(ctx)
}

func (s *Store) Transactions() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.doc.Transactions))
	for i, rec := range s.doc.Transactions {
		out[i] = Entry{Index: i, Transaction: fromRecord(rec)}
	}
	return out
}

// Totals returns a copy of the month's totals; empty when nothing was recorded.
func (s *Store) Totals(scope Scope, month core.Month) core.CategoryTotals {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := core.CategoryTotals{}
	for cat, v := range s.month(scope, month, false) {
		out[cat] = decimal.NewFromFloat(v)
	}
	return out
}

// Months lists the months with recorded totals for scope, sorted.
func (s *Store) Months(scope Scope) []core.Month {
	s.mu.Lock()
	defer s.mu.Unlock()
	var src map[string]storage.MonthTotals
	if scope.IsGlobal() {
		src = s.doc.MonthlySpend
	} else {
		src = s.doc.UserSpending[scope.User]
	}
	out := make([]core.Month, 0, len(src))
	for m := range src {
		out = append(out, core.Month(m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Users lists every user with per-user totals, sorted.
func (s *Store) Users() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.doc.UserSpending))
	for u := range s.doc.UserSpending {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

func (s *Store) Adjusted(user string, month core.Month) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Adjusted(user, month.String())
}

func (s *Store) MarkAdjusted(ctx context.Context, user string, month core.Month) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.MarkAdjusted(user, month.String())
	return s.flush(ctx)
}

func (s *Store) TrainingSamples() []classifier.Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]classifier.Sample, len(s.doc.TrainingSamples))
	for i, pair := range s.doc.TrainingSamples {
		out[i] = classifier.Sample{Description: pair[0], Category: pair[1]}
	}
	return out
}

func (s *Store) AddTrainingSample(ctx context.Context, sample classifier.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.TrainingSamples = append(s.doc.TrainingSamples, []string{sample.Description, sample.Category})
	return s.flush(ctx)
}

// next computes the stored value for category after adding delta without
// touching the document.
func (s *Store) next(scope Scope, month core.Month, category string, delta decimal.Decimal) (float64, error) {
	current := s.month(scope, month, false)[category]
	v := decimal.NewFromFloat(current).Add(delta).InexactFloat64()
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("%w: %s %s %s", ErrOutOfRange, scope, month, category)
	}
	return v, nil
}

// month returns the stored totals map, allocating it when create is set.
func (s *Store) month(scope Scope, month core.Month, create bool) storage.MonthTotals {
	key := month.String()
	if scope.IsGlobal() {
		totals, ok := s.doc.MonthlySpend[key]
		if !ok && create {
			totals = storage.MonthTotals{}
			s.doc.MonthlySpend[key] = totals
		}
		return totals
	}

	months, ok := s.doc.UserSpending[scope.User]
	if !ok {
		if !create {
			return nil
		}
		months = map[string]storage.MonthTotals{}
		s.doc.UserSpending[scope.User] = months
	}
	totals, ok := months[key]
	if !ok && create {
		totals = storage.MonthTotals{}
		months[key] = totals
	}
	return totals
}

func fromRecord(rec storage.TransactionRecord) core.Transaction {
	return core.Transaction{
		Month:       core.Month(rec.Month),
		Description: rec.Description,
		Amount:      decimal.NewFromFloat(rec.Amount),
		Category:    rec.Category,
	}
}
