package services

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"spent/internal/accounts"
	"spent/internal/core"
	"spent/internal/ledger"
)

const noCategoriesSummary = "No categories found to compare."

// Aggregation serves reports and comparisons from the ledger.
type Aggregation struct {
	store *ledger.Store
	rules FrequencyRules
}

func NewAggregation(store *ledger.Store, rules FrequencyRules) *Aggregation {
	if rules == nil {
		rules = DefaultFrequencyRules()
	}
	return &Aggregation{store: store, rules: rules}
}

func (a *Aggregation) MonthlyReport(scope ledger.Scope, month core.Month) core.CategoryTotals {
	return a.store.Totals(scope, month)
}

// Compare diffs every category present in either month, largest absolute
// change first. Equal changes keep alphabetical order.
func (a *Aggregation) Compare(scope ledger.Scope, from, to core.Month) core.Comparison {
	return compareTotals(from, to, a.store.Totals(scope, from), a.store.Totals(scope, to))
}

func compareTotals(from, to core.Month, a, b core.CategoryTotals) core.Comparison {
	union := core.CategoryTotals{}
	for cat := range a {
		union[cat] = decimal.Zero
	}
	for cat := range b {
		union[cat] = decimal.Zero
	}

	changes := make([]core.CategoryChange, 0, len(union))
	for _, cat := range union.Categories() {
		va, vb := a[cat], b[cat]
		changes = append(changes, core.CategoryChange{
			Category: cat,
			From:     va,
			To:       vb,
			Change:   vb.Sub(va),
		})
	}
	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].Change.Abs().GreaterThan(changes[j].Change.Abs())
	})

	cmp := core.Comparison{From: from, To: to, Changes: changes, Summary: noCategoriesSummary}
	if top, ok := cmp.Top(); ok {
		cmp.Summary = summarize(top, from, to)
	}
	return cmp
}

func summarize(top core.CategoryChange, from, to core.Month) string {
	if top.Change.Sign() >= 0 {
		return fmt.Sprintf("You spent %s more on %s in %s vs %s.", core.FormatAmount(top.Change), top.Category, to, from)
	}
	return fmt.Sprintf("You spent %s less on %s in %s vs %s.", core.FormatAmount(top.Change.Abs()), top.Category, to, from)
}

// SpendIncomeSplit separates positive non-income categories from income and
// overlays the user's recurring subscriptions and income when rec is given.
func (a *Aggregation) SpendIncomeSplit(scope ledger.Scope, month core.Month, rec *accounts.Record) core.Split {
	split := splitTotals(month, a.store.Totals(scope, month))
	if rec != nil {
		a.overlay(&split, *rec)
	}
	return split
}

func splitTotals(month core.Month, totals core.CategoryTotals) core.Split {
	split := core.Split{
		Month:       month,
		Spend:       core.CategoryTotals{},
		TotalSpent:  decimal.Zero,
		TotalIncome: decimal.Zero,
	}
	for cat, amount := range totals {
		income := core.IsIncomeCategory(cat)
		if amount.IsPositive() && !income {
			split.Spend[cat] = amount
			split.TotalSpent = split.TotalSpent.Add(amount)
		}
		if amount.IsNegative() || income {
			split.TotalIncome = split.TotalIncome.Add(amount.Abs())
		}
	}
	return split
}

func (a *Aggregation) overlay(split *core.Split, rec accounts.Record) {
	for _, sub := range rec.Recurring {
		amount := sub.Amount.Decimal()
		if amount.IsZero() {
			continue
		}
		rule, err := a.rules.Lookup(sub.Frequency)
		if err != nil {
			continue
		}
		posting := rule.PerMonth(amount)
		cat := sub.CategoryOrMisc()
		split.Spend[cat] = split.Spend[cat].Add(posting)
		split.TotalSpent = split.TotalSpent.Add(posting)
	}
	for _, inc := range rec.RecurringIncome {
		amount := inc.Amount.Decimal()
		if amount.IsZero() {
			continue
		}
		rule, err := a.rules.Lookup(inc.Frequency)
		if err != nil {
			continue
		}
		split.TotalIncome = split.TotalIncome.Add(rule.PerMonth(amount).Abs())
	}
}
