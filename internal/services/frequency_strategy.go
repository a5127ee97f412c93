// Package services provides business logic and orchestration services.
//
// This file maps recurring frequencies to the amount they contribute to one
// calendar month. Weekly items count as four weeks; annual items are not
// registered and therefore never posted automatically.
package services

import (
	"fmt"

	"github.com/shopspring/decimal"

	"spent/internal/core"
)

// MonthlyPosting converts a recurring amount into its contribution to one month.
type MonthlyPosting interface {
	PerMonth(amount decimal.Decimal) decimal.Decimal
}

// MonthlyRule posts the amount once.
type MonthlyRule struct{}

func (MonthlyRule) PerMonth(amount decimal.Decimal) decimal.Decimal { return amount }

// WeeklyRule posts a fixed four weeks per month.
type WeeklyRule struct{}

var weeksPerMonth = decimal.NewFromInt(4)

func (WeeklyRule) PerMonth(amount decimal.Decimal) decimal.Decimal { return amount.Mul(weeksPerMonth) }

// FrequencyRules is a registry from normalized frequency to posting rule.
type FrequencyRules map[core.Frequency]MonthlyPosting

func DefaultFrequencyRules() FrequencyRules {
	return FrequencyRules{
		core.Monthly: MonthlyRule{},
		core.Weekly:  WeeklyRule{},
	}
}

// Lookup normalizes f before matching; unknown frequencies return an error.
func (r FrequencyRules) Lookup(f core.Frequency) (MonthlyPosting, error) {
	rule, ok := r[f.Normalize()]
	if !ok {
		return nil, fmt.Errorf("unsupported frequency: %q", f)
	}
	return rule, nil
}

// Register adds or replaces the rule for a frequency.
func (r FrequencyRules) Register(f core.Frequency, rule MonthlyPosting) {
	r[f.Normalize()] = rule
}
