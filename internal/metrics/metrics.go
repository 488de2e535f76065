// Package metrics provides Prometheus instrumentation for alert cycles.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "scoracle_alerts"

// Metrics holds the collectors for one process.
type Metrics struct {
	registry *prometheus.Registry

	cycles          *prometheus.CounterVec
	cycleDuration   prometheus.Histogram
	eventsFound     *prometheus.CounterVec
	eventsFiltered  *prometheus.CounterVec
	sourceErrors    *prometheus.CounterVec
	notifications   *prometheus.CounterVec
	providerLatency prometheus.Histogram
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	auto := promauto.With(reg)

	return &Metrics{
		registry: reg,
		cycles: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Cycles by outcome (ok, partial, panic, skipped).",
		}, []string{"outcome"}),
		cycleDuration: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Wall-clock duration of a cycle.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		}),
		eventsFound: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_discovered_total",
			Help:      "Alert events produced by the classifier, by type.",
		}, []string{"type"}),
		eventsFiltered: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_filtered_total",
			Help:      "Alert events rejected by the spam filter, by reason.",
		}, []string{"reason"}),
		sourceErrors: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_errors_total",
			Help:      "Failed upstream fetches.",
		}, []string{"source", "name"}),
		notifications: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Push provider calls by result (sent, failed).",
		}, []string{"result"}),
		providerLatency: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_seconds",
			Help:      "Push provider request latency.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// Registry exposes the registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) CycleFinished(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(outcome).Inc()
	if outcome != "skipped" {
		m.cycleDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) EventDiscovered(eventType string) {
	if m == nil {
		return
	}
	m.eventsFound.WithLabelValues(eventType).Inc()
}

func (m *Metrics) EventFiltered(reason string) {
	if m == nil {
		return
	}
	m.eventsFiltered.WithLabelValues(reason).Inc()
}

func (m *Metrics) SourceError(source, name string) {
	if m == nil {
		return
	}
	m.sourceErrors.WithLabelValues(source, name).Inc()
}

func (m *Metrics) NotificationSent(ok bool, latency time.Duration) {
	if m == nil {
		return
	}
	result := "sent"
	if !ok {
		result = "failed"
	}
	m.notifications.WithLabelValues(result).Inc()
	m.providerLatency.Observe(latency.Seconds())
}
