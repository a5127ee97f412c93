package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"spent/internal/accounts"
	"spent/internal/amqp"
	"spent/internal/classifier"
	"spent/internal/ledger"
	"spent/internal/storage"
)

func newTestStore(t *testing.T) *ledger.Store {
	t.Helper()
	fs, err := storage.NewFileStore(filepath.Join(t.TempDir(), "spent_ml_data.json"))
	require.NoError(t, err)
	store, err := ledger.Open(context.Background(), fs)
	require.NoError(t, err)
	return store
}

func newTestService(t *testing.T, dir accounts.Directory, opts ...Option) (*InsightsService, *ledger.Store) {
	t.Helper()
	store := newTestStore(t)
	cls := classifier.New(nil, store.TrainingSamples())
	return NewInsightsService(store, cls, dir, opts...), store
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func requireDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, got.Equal(dec(want)), "want %s, got %s", want, got)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.LedgerEvent
	err    error
}

func (p *recordingPublisher) PublishLedgerEvent(_ context.Context, ev *amqp.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []amqp.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]amqp.EventType, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

type brokenDirectory struct{}

func (brokenDirectory) Lookup(context.Context, string) (accounts.Record, bool, error) {
	return accounts.Record{}, false, errors.New("users.json is malformed")
}

func value(s string) accounts.Value { return accounts.Value(s) }

func valuePtr(s string) *accounts.Value {
	v := accounts.Value(s)
	return &v
}
