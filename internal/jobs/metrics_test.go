package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	require.NoError(t, m.Track("po:export").End(nil))
	err := m.Track("po:export").End(errors.New("boom"))
	require.EqualError(t, err, "boom")

	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("po:export", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("po:export", "failure")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("po:export")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.AddSettled()
	require.NoError(t, m.Track("noop").End(nil))
}

func TestAddSettled(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.AddSettled()
	m.AddSettled()
	require.Equal(t, 2.0, testutil.ToFloat64(m.settled))
}
