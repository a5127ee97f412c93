package memory

import (
	"context"
	"sync"

	"spent/internal/core"
	ports "spent/internal/sheets"
)

// Store keeps exported reports in memory.
type Store struct {
	mu      sync.Mutex
	reports []ports.MonthReport
	audit   []ports.AuditEntry
}

var (
	_ ports.ReportWriter = (*Store)(nil)
	_ ports.ReportReader = (*Store)(nil)
	_ ports.AuditWriter  = (*Store)(nil)
)

func New() *Store {
	return &Store{}
}

func (s *Store) AppendReport(_ context.Context, r ports.MonthReport) (int, error) {
	if err := r.Month.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, ports.MonthReport{Month: r.Month, User: r.User, Totals: r.Totals.Clone()})
	return len(r.Totals), nil
}

// ReadReport sums every stored report for month and user.
func (s *Store) ReadReport(_ context.Context, month core.Month, user string) (core.CategoryTotals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := core.CategoryTotals{}
	for _, r := range s.reports {
		if r.Month != month || r.User != user {
			continue
		}
		for cat, v := range r.Totals {
			out[cat] = out[cat].Add(v)
		}
	}
	return out, nil
}

// Reports returns a copy of everything appended so far.
func (s *Store) Reports() []ports.MonthReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ports.MonthReport(nil), s.reports...)
}

func (s *Store) AppendAuditEntry(_ context.Context, e ports.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, e)
	return nil
}

// AuditEntries returns a copy of the audit trail.
func (s *Store) AuditEntries() []ports.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ports.AuditEntry(nil), s.audit...)
}
