// Package metrics holds the Prometheus collectors of the tutor service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the service collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	llmRequests       *prometheus.CounterVec
	llmDuration       *prometheus.HistogramVec
	sends             *prometheus.CounterVec
	artifactFallbacks *prometheus.CounterVec
	activeSessions    prometheus.Gauge
	droppedEvents     prometheus.Counter
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		llmRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tutor_llm_requests_total",
			Help: "AI gateway calls by operation and outcome.",
		}, []string{"op", "outcome"}),
		llmDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tutor_llm_request_duration_seconds",
			Help:    "AI gateway call latency.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 9),
		}, []string{"op"}),
		sends: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tutor_session_sends_total",
			Help: "Session sends by outcome.",
		}, []string{"outcome"}),
		artifactFallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tutor_artifact_fallbacks_total",
			Help: "Artifact generations answered with fallback content.",
		}, []string{"kind"}),
		activeSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "tutor_active_sessions",
			Help: "Session managers currently held in memory.",
		}),
		droppedEvents: f.NewCounter(prometheus.CounterOpts{
			Name: "tutor_change_events_dropped_total",
			Help: "Change notifications dropped because a subscriber was slow.",
		}),
	}
}

// ObserveLLM records one gateway call.
func (m *Metrics) ObserveLLM(op, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.llmRequests.WithLabelValues(op, outcome).Inc()
	m.llmDuration.WithLabelValues(op).Observe(d.Seconds())
}

// Send records the outcome of a session send.
func (m *Metrics) Send(outcome string) {
	if m == nil {
		return
	}
	m.sends.WithLabelValues(outcome).Inc()
}

// ArtifactFallback records a fallback artifact being served.
func (m *Metrics) ArtifactFallback(kind string) {
	if m == nil {
		return
	}
	m.artifactFallbacks.WithLabelValues(kind).Inc()
}

// SetActiveSessions sets the session gauge.
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}

// DroppedEvent records a dropped change notification.
func (m *Metrics) DroppedEvent() {
	if m == nil {
		return
	}
	m.droppedEvents.Inc()
}
