package core

import "github.com/shopspring/decimal"

// CategoryChange is one row of a month-to-month comparison.
type CategoryChange struct {
	Category string
	From     decimal.Decimal
	To       decimal.Decimal
	Change   decimal.Decimal
}

// Comparison lists per-category changes sorted by descending absolute change.
type Comparison struct {
	From    Month
	To      Month
	Changes []CategoryChange
	Summary string
}

// Top returns the category with the largest absolute change.
func (c Comparison) Top() (CategoryChange, bool) {
	if len(c.Changes) == 0 {
		return CategoryChange{}, false
	}
	return c.Changes[0], true
}

// Split partitions a month into spending per category and income.
type Split struct {
	Month       Month
	Spend       CategoryTotals
	TotalSpent  decimal.Decimal
	TotalIncome decimal.Decimal
}
