package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordMutation("add_class")
	m.RecordPersist("add_class", ResultOK)
	m.RecordPersist("add_class", ResultError)
	m.RecordPersist("add_class", ResultError)
	m.RecordHydration(ResultOK, 20*time.Millisecond)
	m.RecordHydration(ResultStale, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Mutations.WithLabelValues("add_class")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.PersistOps.WithLabelValues("add_class", ResultError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Hydrations.WithLabelValues(ResultStale)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.HydrationDuration))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordMutation("x")
		m.RecordPersist("x", ResultOK)
		m.RecordHydration(ResultOK, time.Second)
	})
}
