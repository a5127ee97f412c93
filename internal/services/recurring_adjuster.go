package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"spent/internal/accounts"
	"spent/internal/core"
	"spent/internal/ledger"
)

// ErrAccountLookup wraps failures reading the external account store.
var ErrAccountLookup = errors.New("account lookup")

var quarters = decimal.NewFromInt(4)

// Adjustment summarizes what ApplyIfNeeded posted for one user-month.
type Adjustment struct {
	User   string
	Month  core.Month
	Income decimal.Decimal
	Bills  decimal.Decimal
	Posted int
}

// RecurringAdjuster posts a user's onboarding income and bills into their
// per-user totals at most once per month.
type RecurringAdjuster struct {
	store    *ledger.Store
	accounts accounts.Directory
	rules    FrequencyRules
}

func NewRecurringAdjuster(store *ledger.Store, dir accounts.Directory, rules FrequencyRules) *RecurringAdjuster {
	if rules == nil {
		rules = DefaultFrequencyRules()
	}
	return &RecurringAdjuster{store: store, accounts: dir, rules: rules}
}

// ApplyIfNeeded returns the adjustment it made, or nil when user is empty or
// the month was already adjusted.
func (a *RecurringAdjuster) ApplyIfNeeded(ctx context.Context, user string, month core.Month) (*Adjustment, error) {
	if user == "" || a.store.Adjusted(user, month) {
		return nil, nil
	}

	var rec accounts.Record
	if a.accounts != nil {
		r, found, err := a.accounts.Lookup(ctx, user)
		if err != nil {
			return nil, fmt.Errorf("%w %s: %w", ErrAccountLookup, user, err)
		}
		if !found {
			slog.InfoContext(ctx, "No account record for user, marking month adjusted", "user", user, "month", month)
		}
		rec = r
	}

	adj := &Adjustment{User: user, Month: month, Income: decimal.Zero, Bills: decimal.Zero}
	scope := ledger.UserScope(user)

	income := a.monthlyIncome(ctx, user, rec.Onboarding)
	if !income.IsZero() {
		if err := a.store.Record(ctx, scope, month, core.IncomeCategory, income.Neg()); err != nil {
			return nil, err
		}
		adj.Income = income
		adj.Posted++
	}

	for _, bill := range rec.Onboarding.Bills {
		amount := bill.Amount.Decimal()
		if amount.IsZero() {
			continue
		}
		rule, err := a.rules.Lookup(bill.Frequency)
		if err != nil {
			slog.DebugContext(ctx, "Skipping bill", "user", user, "bill", bill.Description, "reason", err)
			continue
		}
		posting := rule.PerMonth(amount)
		if err := a.store.Record(ctx, scope, month, bill.Category(), posting); err != nil {
			return nil, err
		}
		adj.Bills = adj.Bills.Add(posting)
		adj.Posted++
	}

	if err := a.store.MarkAdjusted(ctx, user, month); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Recurring adjustment applied",
		"user", user,
		"month", month,
		"income", adj.Income.String(),
		"bills", adj.Bills.String(),
		"postings", adj.Posted)
	return adj, nil
}

// monthlyIncome applies the pay type policy: monthly posts the full amount,
// annually posts a quarter of it. Unparsable income posts nothing.
func (a *RecurringAdjuster) monthlyIncome(ctx context.Context, user string, o accounts.Onboarding) decimal.Decimal {
	income, err := core.ParseIncome(o.Income())
	if err != nil {
		slog.WarnContext(ctx, "Ignoring unparsable onboarding income", "user", user, "error", err)
		return decimal.Zero
	}
	switch o.Pay() {
	case core.PayMonthly:
		return income
	case core.PayAnnually:
		return income.Div(quarters)
	default:
		return decimal.Zero
	}
}
