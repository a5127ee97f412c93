package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseMonth(t *testing.T) {
	cases := []struct {
		in  string
		out Month
		ok  bool
	}{
		{"2024-01", "2024-01", true},
		{"2024-12", "2024-12", true},
		{"2024-02-17", "2024-02", true},
		{" 2024-03 ", "2024-03", true},
		{"2024-13", "", false},
		{"24-01", "", false},
		{"January", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseMonth(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if !errors.Is(err, ErrInvalidMonth) {
			t.Fatalf("%q expected ErrInvalidMonth, got %v", tc.in, err)
		}
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{Month: "2024-01", Description: "Grocery run", Amount: decimal.NewFromFloat(54.2), Category: "Groceries"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Transaction{
		{Month: "2024", Description: "a", Category: "c"},
		{Month: "2024-01", Description: " ", Category: "c"},
		{Month: "2024-01", Description: "a", Category: ""},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestCategoryTotals(t *testing.T) {
	totals := CategoryTotals{
		"Dining":    decimal.NewFromInt(10),
		"Groceries": decimal.NewFromFloat(5.5),
		"income":    decimal.NewFromInt(-100),
	}
	if got := totals.Sum(); !got.Equal(decimal.NewFromFloat(-84.5)) {
		t.Fatalf("expected -84.5, got %s", got)
	}
	clone := totals.Clone()
	clone["Dining"] = decimal.Zero
	if !totals["Dining"].Equal(decimal.NewFromInt(10)) {
		t.Fatalf("clone shares storage with original")
	}
	cats := totals.Categories()
	if len(cats) != 3 || cats[0] != "Dining" || cats[2] != "income" {
		t.Fatalf("unexpected order %v", cats)
	}
	if !IsIncomeCategory("Income") || IsIncomeCategory("Incomes") {
		t.Fatalf("income category match is wrong")
	}
}
