// Package metrics provides Prometheus instrumentation for the ledger engine.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "spent"

type Metrics struct {
	// Transactions counts recorded transactions. Labels: kind (expense, income)
	Transactions *prometheus.CounterVec
	// Corrections counts category corrections. Labels: result (matched, unmatched)
	Corrections *prometheus.CounterVec
	// Retrains counts classifier refits.
	Retrains prometheus.Counter
	// Adjustments counts recurring adjustments applied to a user-month.
	Adjustments prometheus.Counter
	// StoreFlushDuration tracks document flush latency.
	StoreFlushDuration prometheus.Histogram
	// StoreFlushErrors counts failed flushes.
	StoreFlushErrors prometheus.Counter
	// PublishErrors counts events that could not be published.
	PublishErrors prometheus.Counter
	// EventsConsumed counts ledger events seen by the audit worker. Labels: type, result
	EventsConsumed *prometheus.CounterVec
	// HTTPRequests counts API requests. Labels: route, code
	HTTPRequests *prometheus.CounterVec
	// HTTPDuration tracks API latency. Labels: route
	HTTPDuration *prometheus.HistogramVec
	// RateLimited counts requests rejected by the rate limiter.
	RateLimited prometheus.Counter
	// SuspiciousRequests counts requests flagged by the detector.
	SuspiciousRequests prometheus.Counter
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// Default registers the metrics with the global registry exactly once.
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = New(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// New registers a fresh metric set with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Transactions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "transactions_total",
			Help:      "Total number of recorded transactions",
		}, []string{"kind"}),
		Corrections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "corrections_total",
			Help:      "Total number of category corrections",
		}, []string{"result"}),
		Retrains: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "retrains_total",
			Help:      "Total number of full classifier refits",
		}),
		Adjustments: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "recurring",
			Name:      "adjustments_total",
			Help:      "Total number of user-months receiving recurring adjustments",
		}),
		StoreFlushDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "flush_duration_seconds",
			Help:      "Duration of full document flushes in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		StoreFlushErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "flush_errors_total",
			Help:      "Total number of failed document flushes",
		}),
		PublishErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "publish_errors_total",
			Help:      "Total number of ledger events that failed to publish",
		}),
		EventsConsumed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "consumed_total",
			Help:      "Total number of ledger events handled by the audit worker",
		}, []string{"type", "result"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of API requests",
		}, []string{"route", "code"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of API requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		RateLimited: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Total number of requests rejected by the rate limiter",
		}),
		SuspiciousRequests: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "suspicious_requests_total",
			Help:      "Total number of requests flagged as suspicious",
		}),
	}
}

// ObserveFlush records one flush attempt; it matches ledger.FlushObserver.
func (m *Metrics) ObserveFlush(err error, seconds float64) {
	m.StoreFlushDuration.Observe(seconds)
	if err != nil {
		m.StoreFlushErrors.Inc()
	}
}
