// Package core provides the ledger domain types and amount parsing.
//
// Amounts are shopspring decimals in memory. Parsing accepts both dot
// (12.34) and comma (12,34) decimal separators. Magnitudes above MaxAmount
// are rejected so totals always fit a finite float64.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAmount bounds the absolute value of any parsed amount.
var MaxAmount = decimal.New(1, 12)

// ParseAmount converts a user-entered amount to a signed decimal.
//
// Examples:
//
//	ParseAmount("54.20") -> 54.2, nil
//	ParseAmount("12,5")  -> 12.5, nil
//	ParseAmount("-30")   -> -30, nil
//	ParseAmount("abc")   -> 0, *ParseError
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := parseDecimal(s)
	if err != nil {
		return decimal.Zero, &ParseError{Field: "amount", Input: s, Err: ErrInvalidAmount}
	}
	return d, nil
}

// ParseIncome converts an income magnitude such as "15k" or "3200.50".
// A trailing k (either case) multiplies the numeric prefix by 1000.
func ParseIncome(s string) (decimal.Decimal, error) {
	trimmed := strings.ToLower(strings.TrimSpace(s))
	multiplier := decimal.NewFromInt(1)
	if strings.HasSuffix(trimmed, "k") {
		trimmed = strings.TrimSuffix(trimmed, "k")
		multiplier = decimal.NewFromInt(1000)
	}
	d, err := parseDecimal(trimmed)
	if err != nil {
		return decimal.Zero, &ParseError{Field: "income", Input: s, Err: ErrInvalidAmount}
	}
	d = d.Mul(multiplier)
	if !InRange(d) {
		return decimal.Zero, &ParseError{Field: "income", Input: s, Err: ErrInvalidAmount}
	}
	return d, nil
}

// InRange reports whether d is within MaxAmount of zero.
func InRange(d decimal.Decimal) bool {
	return d.Abs().LessThanOrEqual(MaxAmount)
}

func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	if !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if !InRange(d) {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatAmount renders an amount with two decimals for summaries and exports.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
