package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"
)

// DocumentVersion is written into _meta on every save.
const DocumentVersion = 1

// legacyAdjustedKey is the boolean marker older documents kept inside a
// user's month totals.
const legacyAdjustedKey = "__adjusted__"

var (
	// ErrNotFound is returned by Load when no document has been saved yet.
	ErrNotFound = errors.New("document not found")
	// ErrCorruptDocument is returned when a stored document fails to decode.
	ErrCorruptDocument = errors.New("corrupt document")
)

type (
	// MonthTotals maps category to amount for one month.
	MonthTotals map[string]float64

	TransactionRecord struct {
		Month       string  `json:"date_ym"`
		Description string  `json:"desc"`
		Amount      float64 `json:"amount"`
		Category    string  `json:"category"`
	}

	Meta struct {
		Storage   string    `json:"storage"`
		Version   int       `json:"version"`
		Timestamp time.Time `json:"timestamp"`
	}

	// Document is the whole persisted ledger state.
	Document struct {
		TrainingSamples [][]string                        `json:"training_samples"`
		MonthlySpend    map[string]MonthTotals            `json:"monthly_spend"`
		UserSpending    map[string]map[string]MonthTotals `json:"user_spending"`
		Transactions    []TransactionRecord               `json:"transactions"`
		AdjustedMonths  map[string][]string               `json:"adjusted_months"`
		Meta            *Meta                             `json:"_meta,omitempty"`
	}
)

type rawDocument struct {
	TrainingSamples [][]string                                       `json:"training_samples"`
	MonthlySpend    map[string]map[string]json.RawMessage            `json:"monthly_spend"`
	UserSpending    map[string]map[string]map[string]json.RawMessage `json:"user_spending"`
	Transactions    []TransactionRecord                              `json:"transactions"`
	AdjustedMonths  map[string][]string                              `json:"adjusted_months"`
	Meta            *Meta                                            `json:"_meta"`
}

// NewDocument returns an empty document with every collection allocated.
func NewDocument() *Document {
	return &Document{
		TrainingSamples: [][]string{},
		MonthlySpend:    map[string]MonthTotals{},
		UserSpending:    map[string]map[string]MonthTotals{},
		Transactions:    []TransactionRecord{},
		AdjustedMonths:  map[string][]string{},
	}
}

// DecodeDocument parses a stored document. Legacy __adjusted__ markers are
// moved out of the totals into AdjustedMonths. Any decode failure wraps
// ErrCorruptDocument.
func DecodeDocument(data []byte) (*Document, error) {
	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptDocument, err)
	}

	doc := NewDocument()
	for i, s := range raw.TrainingSamples {
		if len(s) != 2 {
			return nil, fmt.Errorf("%w: training sample %d has %d fields", ErrCorruptDocument, i, len(s))
		}
		doc.TrainingSamples = append(doc.TrainingSamples, []string{s[0], s[1]})
	}

	for month, cats := range raw.MonthlySpend {
		totals, _, err := decodeTotals(cats)
		if err != nil {
			return nil, fmt.Errorf("%w: monthly_spend %s: %v", ErrCorruptDocument, month, err)
		}
		doc.MonthlySpend[month] = totals
	}

	for user, months := range raw.UserSpending {
		doc.UserSpending[user] = make(map[string]MonthTotals, len(months))
		for month, cats := range months {
			totals, adjusted, err := decodeTotals(cats)
			if err != nil {
				return nil, fmt.Errorf("%w: user_spending %s %s: %v", ErrCorruptDocument, user, month, err)
			}
			doc.UserSpending[user][month] = totals
			if adjusted {
				doc.MarkAdjusted(user, month)
			}
		}
	}

	if raw.Transactions != nil {
		doc.Transactions = raw.Transactions
	}
	for user, months := range raw.AdjustedMonths {
		for _, m := range months {
			doc.MarkAdjusted(user, m)
		}
	}
	doc.Meta = raw.Meta
	return doc, nil
}

func decodeTotals(cats map[string]json.RawMessage) (MonthTotals, bool, error) {
	totals := make(MonthTotals, len(cats))
	adjusted := false
	for cat, value := range cats {
		if cat == legacyAdjustedKey {
			var flag bool
			if err := json.Unmarshal(value, &flag); err != nil {
				return nil, false, fmt.Errorf("marker: %v", err)
			}
			adjusted = flag
			continue
		}
		var amount float64
		if err := json.Unmarshal(value, &amount); err != nil {
			return nil, false, fmt.Errorf("category %s: %v", cat, err)
		}
		totals[cat] = amount
	}
	return totals, adjusted, nil
}

// Encode serializes the document, stamping _meta with storage and time.
func (d *Document) Encode(storage string) ([]byte, error) {
	out := *d
	out.normalize()
	out.Meta = &Meta{Storage: storage, Version: DocumentVersion, Timestamp: time.Now().UTC()}
	return json.Marshal(&out)
}

// Adjusted reports whether the recurring adjustment ran for user and month.
func (d *Document) Adjusted(user, month string) bool {
	for _, m := range d.AdjustedMonths[user] {
		if m == month {
			return true
		}
	}
	return false
}

func (d *Document) MarkAdjusted(user, month string) {
	if d.Adjusted(user, month) {
		return
	}
	if d.AdjustedMonths == nil {
		d.AdjustedMonths = map[string][]string{}
	}
	months := append(d.AdjustedMonths[user], month)
	sort.Strings(months)
	d.AdjustedMonths[user] = months
}

func (d *Document) normalize() {
	if d.TrainingSamples == nil {
		d.TrainingSamples = [][]string{}
	}
	if d.MonthlySpend == nil {
		d.MonthlySpend = map[string]MonthTotals{}
	}
	if d.UserSpending == nil {
		d.UserSpending = map[string]map[string]MonthTotals{}
	}
	if d.Transactions == nil {
		d.Transactions = []TransactionRecord{}
	}
	if d.AdjustedMonths == nil {
		d.AdjustedMonths = map[string][]string{}
	}
}
