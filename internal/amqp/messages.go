package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventTransactionAdded  EventType = "transaction.added"
	EventIncomeAdded       EventType = "income.added"
	EventCategoryCorrected EventType = "category.corrected"
	EventRecurringApplied  EventType = "recurring.applied"
)

// LedgerEvent describes one ledger mutation for downstream consumers.
type LedgerEvent struct {
	ID               string          `json:"id"`
	Type             EventType       `json:"type"`
	User             string          `json:"user,omitempty"`
	Month            string          `json:"month,omitempty"`
	Description      string          `json:"description,omitempty"`
	Source           string          `json:"source,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
	Category         string          `json:"category,omitempty"`
	PreviousCategory string          `json:"previous_category,omitempty"`
	Matched          int             `json:"matched,omitempty"`
	Timestamp        time.Time       `json:"timestamp"`
}

// NewLedgerEvent stamps a fresh event with a random id and the current time.
func NewLedgerEvent(t EventType) *LedgerEvent {
	return &LedgerEvent{
		ID:        uuid.NewString(),
		Type:      t,
		Timestamp: time.Now().UTC(),
	}
}

func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes an event and checks it carries an id and type.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var ev LedgerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(ev.ID); err != nil {
		return nil, errors.New("event id is not a uuid")
	}
	if ev.Type == "" {
		return nil, errors.New("event type is empty")
	}
	return &ev, nil
}
