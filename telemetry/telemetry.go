package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for ObserveConnect.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Collector captures connection events emitted by the establisher and the connections.
//
// Hooks run inline with connection callbacks, so implementations must be cheap and
// safe for concurrent use.
type Collector interface {
	IncConnectAttempt(variant string)
	ObserveConnect(variant, outcome string, took time.Duration)
	IncConnectionEvent(event string)
}

type noopCollector struct{}

// Noop returns a collector that discards all metrics.
func Noop() Collector {
	return noopCollector{}
}

func (noopCollector) IncConnectAttempt(string)                    {}
func (noopCollector) ObserveConnect(string, string, time.Duration) {}
func (noopCollector) IncConnectionEvent(string)                   {}

// PrometheusCollector exposes connection metrics via Prometheus.
type PrometheusCollector struct {
	attempts *prometheus.CounterVec
	connects *prometheus.HistogramVec
	events   *prometheus.CounterVec
}

// NewPrometheusCollector registers the metrics with reg, reusing collectors that
// were registered by an earlier call against the same registerer.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	attempts, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "natsconn_connect_attempts_total",
		Help: "Number of connection establishment attempts per connection variant.",
	}, []string{"variant"}))
	if err != nil {
		return nil, err
	}
	connects, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "natsconn_connect_duration_seconds",
		Help:    "Time spent in the connect handshake per variant and outcome.",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
	}, []string{"variant", "outcome"}))
	if err != nil {
		return nil, err
	}
	events, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "natsconn_connection_events_total",
		Help: "Lifecycle events reported by established connections.",
	}, []string{"event"}))
	if err != nil {
		return nil, err
	}
	return &PrometheusCollector{attempts: attempts, connects: connects, events: events}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, collector C) (C, error) {
	if err := reg.Register(collector); err != nil {
		already, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return collector, err
		}
		existing, ok := already.ExistingCollector.(C)
		if !ok {
			return collector, err
		}
		return existing, nil
	}
	return collector, nil
}

// IncConnectAttempt counts an establishment attempt.
func (p *PrometheusCollector) IncConnectAttempt(variant string) {
	if p == nil || p.attempts == nil {
		return
	}
	p.attempts.WithLabelValues(variant).Inc()
}

// ObserveConnect records how long a handshake took and how it ended.
func (p *PrometheusCollector) ObserveConnect(variant, outcome string, took time.Duration) {
	if p == nil || p.connects == nil {
		return
	}
	p.connects.WithLabelValues(variant, outcome).Observe(took.Seconds())
}

// IncConnectionEvent counts disconnects, reconnects, closes and async errors.
func (p *PrometheusCollector) IncConnectionEvent(event string) {
	if p == nil || p.events == nil {
		return
	}
	p.events.WithLabelValues(event).Inc()
}
