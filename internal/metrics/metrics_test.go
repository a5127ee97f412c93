package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		total := 0.0
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
		return total
	}
	return 0
}

func TestObserveFlush(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveFlush(nil, 0.01)
	m.ObserveFlush(errors.New("disk full"), 0.02)

	assert.Equal(t, 1.0, counterValue(t, reg, "spent_store_flush_errors_total"))

	families, err := reg.Gather()
	require.NoError(t, err)
	var samples uint64
	for _, mf := range families {
		if mf.GetName() == "spent_store_flush_duration_seconds" {
			samples = mf.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	assert.Equal(t, uint64(2), samples)
}

func TestCountersAreIndependentPerRegistry(t *testing.T) {
	regA, regB := prometheus.NewRegistry(), prometheus.NewRegistry()
	a, b := New(regA), New(regB)

	a.Transactions.WithLabelValues("expense").Inc()
	a.Transactions.WithLabelValues("income").Inc()
	b.Retrains.Inc()

	assert.Equal(t, 2.0, counterValue(t, regA, "spent_ledger_transactions_total"))
	assert.Equal(t, 0.0, counterValue(t, regB, "spent_ledger_transactions_total"))
	assert.Equal(t, 1.0, counterValue(t, regB, "spent_classifier_retrains_total"))
}

func TestDefaultIsSingleton(t *testing.T) {
	assert.Same(t, Default(), Default())
}
