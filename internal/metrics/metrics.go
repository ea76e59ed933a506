// Package metrics exposes triage outcomes as Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics implements triage.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	// Processed notes by outcome
	Outcomes *prometheus.CounterVec

	// Proposer rounds spent per processed note
	Iterations prometheus.Histogram

	// Notes still queued after the last step
	InboxDepth prometheus.Gauge
}

// New creates a Metrics instance registered on its own registry, so tests
// and long-lived servers never collide on the default one.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		Outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sift_triage_outcomes_total",
			Help: "Total processed inbox notes by outcome",
		}, []string{"outcome"}), // saved, exhausted, aborted, save_failed, dequeue_failed, gone

		Iterations: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "sift_triage_iterations",
			Help:    "Proposer rounds used per processed inbox note",
			Buckets: []float64{1, 2, 3, 5, 8},
		}),

		InboxDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sift_inbox_depth",
			Help: "Number of notes waiting in the inbox",
		}),
	}
}

// ObserveOutcome records one processed note.
func (m *Metrics) ObserveOutcome(outcome string, iterations int) {
	if m == nil {
		return
	}
	m.Outcomes.WithLabelValues(outcome).Inc()
	if iterations > 0 {
		m.Iterations.Observe(float64(iterations))
	}
}

// SetInboxDepth records the current queue length.
func (m *Metrics) SetInboxDepth(n int) {
	if m != nil {
		m.InboxDepth.Set(float64(n))
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collectors in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
