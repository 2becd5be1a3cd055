// Package observability holds the Prometheus metrics for the record store.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pulsetrack"

// Persistence and hydration outcomes
const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultSkipped = "skipped"
	ResultStale   = "stale"
)

// Metrics counts store activity. A nil *Metrics records nothing.
type Metrics struct {
	Mutations         *prometheus.CounterVec
	PersistOps        *prometheus.CounterVec
	Hydrations        *prometheus.CounterVec
	HydrationDuration prometheus.Histogram
}

// NewMetrics registers the store metrics with reg. Pass a fresh
// prometheus.NewRegistry() in tests to avoid global collisions.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Mutations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "mutations_total",
			Help:      "Local store mutations by operation",
		}, []string{"op"}),
		PersistOps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "persist_total",
			Help:      "Background persistence tasks by operation and result",
		}, []string{"op", "result"}),
		Hydrations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "hydrations_total",
			Help:      "Hydration attempts by result",
		}, []string{"result"}),
		HydrationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "hydration_duration_seconds",
			Help:      "Time to fetch and apply a full snapshot",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}

// RecordMutation counts a local mutation.
func (m *Metrics) RecordMutation(op string) {
	if m == nil {
		return
	}
	m.Mutations.WithLabelValues(op).Inc()
}

// RecordPersist counts a finished persistence task.
func (m *Metrics) RecordPersist(op, result string) {
	if m == nil {
		return
	}
	m.PersistOps.WithLabelValues(op, result).Inc()
}

// RecordHydration counts a hydration and, when it applied, its duration.
func (m *Metrics) RecordHydration(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Hydrations.WithLabelValues(result).Inc()
	if result == ResultOK {
		m.HydrationDuration.Observe(elapsed.Seconds())
	}
}
