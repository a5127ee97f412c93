package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Monthly  Frequency = "monthly"
	Weekly   Frequency = "weekly"
	Annually Frequency = "annually"
)

const (
	PayMonthly  PayType = "monthly"
	PayAnnually PayType = "annually"
)

const (
	// IncomeCategory collects income postings in every scope.
	IncomeCategory = "income"
	// MiscCategory is returned when no other category applies.
	MiscCategory = "Misc"
)

const monthLayout = "2006-01"

type (
	Frequency string

	PayType string

	// Month is a calendar year-month key in YYYY-MM form.
	Month string

	Transaction struct {
		Month       Month
		Description string
		Amount      decimal.Decimal
		Category    string
	}

	// CategoryTotals maps a category label to its accumulated signed amount.
	CategoryTotals map[string]decimal.Decimal
)

var (
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
)

// ParseError reports user input that could not be parsed. It wraps one of
// the sentinel errors above so callers can match with errors.Is.
type ParseError struct {
	Field string
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Field, e.Input, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseMonth accepts YYYY-MM or a full YYYY-MM-DD date and returns the month key.
func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(monthLayout, s); err == nil {
		return Month(t.Format(monthLayout)), nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return Month(t.Format(monthLayout)), nil
	}
	return "", &ParseError{Field: "month", Input: s, Err: ErrInvalidMonth}
}

func (m Month) String() string { return string(m) }

func (m Month) Validate() error {
	if _, err := time.Parse(monthLayout, string(m)); err != nil {
		return ErrInvalidMonth
	}
	return nil
}

// Normalize lower-cases and trims a frequency so "Weekly " matches Weekly.
func (f Frequency) Normalize() Frequency {
	return Frequency(strings.ToLower(strings.TrimSpace(string(f))))
}

func (p PayType) Normalize() PayType {
	return PayType(strings.ToLower(strings.TrimSpace(string(p))))
}

// IsIncomeCategory reports whether category is the income bucket, ignoring case.
func IsIncomeCategory(category string) bool {
	return strings.EqualFold(category, IncomeCategory)
}

func (t Transaction) Validate() error {
	if err := t.Month.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

// Clone returns an independent copy; a nil receiver yields an empty map.
func (c CategoryTotals) Clone() CategoryTotals {
	out := make(CategoryTotals, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Sum adds every category amount.
func (c CategoryTotals) Sum() decimal.Decimal {
	total := decimal.Zero
	for _, v := range c {
		total = total.Add(v)
	}
	return total
}

// Categories returns the keys sorted alphabetically.
func (c CategoryTotals) Categories() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
