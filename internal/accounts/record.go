// Package accounts reads onboarding and recurring data from the external
// account store. The store is owned by the onboarding flow; nothing here
// writes to it.
package accounts

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"spent/internal/core"
)

// Value holds an amount as written by the onboarding flow, which stores
// either JSON numbers or numeric strings.
type Value string

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*v = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Value(s)
	case json.Valid(data) && (data[0] == '-' || (data[0] >= '0' && data[0] <= '9')):
		*v = Value(data)
	default:
		// Booleans, objects and arrays are not amounts.
		*v = ""
	}
	return nil
}

// Decimal parses the value; anything unparsable or beyond core.MaxAmount is zero.
func (v Value) Decimal() decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(string(v)))
	if err != nil || !core.InRange(d) {
		return decimal.Zero
	}
	return d
}

type (
	Bill struct {
		Description string         `json:"description"`
		Frequency   core.Frequency `json:"frequency"`
		Amount      Value          `json:"amount"`
	}

	Onboarding struct {
		PayType       core.PayType `json:"pay_type"`
		MonthlyIncome *Value       `json:"monthly_income"`
		Bills         []Bill       `json:"bills"`
	}

	RecurringExpense struct {
		Category  string         `json:"category"`
		Frequency core.Frequency `json:"frequency"`
		Amount    Value          `json:"amount"`
	}

	RecurringIncome struct {
		Source    string         `json:"source"`
		Frequency core.Frequency `json:"frequency"`
		Amount    Value          `json:"amount"`
	}

	// Record is one user's entry in the account store.
	Record struct {
		Onboarding      Onboarding         `json:"onboarding"`
		Recurring       []RecurringExpense `json:"recurring"`
		RecurringIncome []RecurringIncome  `json:"recurring_income"`
	}
)

// Pay returns the normalized pay type, monthly when unset.
func (o Onboarding) Pay() core.PayType {
	if p := o.PayType.Normalize(); p != "" {
		return p
	}
	return core.PayMonthly
}

// Income returns the raw income magnitude, "0" when unset.
func (o Onboarding) Income() string {
	if o.MonthlyIncome == nil {
		return "0"
	}
	return string(*o.MonthlyIncome)
}

// Category is the bill description, Misc when blank.
func (b Bill) Category() string {
	if strings.TrimSpace(b.Description) == "" {
		return core.MiscCategory
	}
	return b.Description
}

func (r RecurringExpense) CategoryOrMisc() string {
	if strings.TrimSpace(r.Category) == "" {
		return core.MiscCategory
	}
	return r.Category
}

// decodeRecord tolerates legacy entries that are not objects (older accounts
// stored only a password hash string) by returning an empty record.
func decodeRecord(raw json.RawMessage) Record {
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}
	}
	return rec
}
