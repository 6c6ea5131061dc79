package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestNoopCollector(t *testing.T) {
	collector := Noop()
	require.NotNil(t, collector)
	collector.IncConnectAttempt("raw")
	collector.ObserveConnect("raw", OutcomeSuccess, time.Millisecond)
	collector.IncConnectionEvent("closed")
}

func TestPrometheusCollectorRegistersAndReuses(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewPrometheusCollector(reg)
	require.NoError(t, err)
	require.NotNil(t, collector)

	collector.IncConnectAttempt("raw")
	collector.ObserveConnect("raw", OutcomeFailure, 5*time.Millisecond)

	again, err := NewPrometheusCollector(reg)
	require.NoError(t, err)
	require.Same(t, collector.attempts, again.attempts)
	require.Same(t, collector.connects, again.connects)

	again.IncConnectAttempt("raw")
	again.IncConnectionEvent("disconnected")

	families := gather(t, reg)
	requireCounterValue(t, families["natsconn_connect_attempts_total"], 2)
	requireCounterValue(t, families["natsconn_connection_events_total"], 1)

	hist := families["natsconn_connect_duration_seconds"]
	require.NotNil(t, hist)
	require.Len(t, hist.Metric, 1)
	require.Equal(t, uint64(1), hist.Metric[0].GetHistogram().GetSampleCount())
}

func TestNilPrometheusCollectorIsSafe(t *testing.T) {
	var collector *PrometheusCollector
	collector.IncConnectAttempt("raw")
	collector.ObserveConnect("raw", OutcomeSuccess, time.Second)
	collector.IncConnectionEvent("closed")
}

func gather(t *testing.T, reg *prometheus.Registry) map[string]*dto.MetricFamily {
	t.Helper()
	metrics, err := reg.Gather()
	require.NoError(t, err)
	out := make(map[string]*dto.MetricFamily, len(metrics))
	for _, mf := range metrics {
		out[mf.GetName()] = mf
	}
	return out
}

func requireCounterValue(t *testing.T, mf *dto.MetricFamily, value float64) {
	t.Helper()
	require.NotNil(t, mf)
	require.Len(t, mf.Metric, 1)
	require.NotNil(t, mf.Metric[0].Counter)
	require.Equal(t, value, mf.Metric[0].Counter.GetValue())
}
