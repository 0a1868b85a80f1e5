// Package telemetry exposes harness metrics and tracing.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "harness"

// Metrics holds the harness counters. A nil *Metrics is valid and records
// nothing, so components can be used without telemetry.
type Metrics struct {
	registry *prometheus.Registry

	SessionsCreated   *prometheus.CounterVec
	SessionFailures   *prometheus.CounterVec
	SessionsClosed    *prometheus.CounterVec
	CleanupFailures   prometheus.Counter
	ActiveSessions    prometheus.Gauge
	GridFallbacks     prometheus.Counter
	EvidenceEntries   *prometheus.CounterVec
	CaptureFailures   *prometheus.CounterVec
	EvidenceFiles     prometheus.Counter
	ScenarioOutcomes  *prometheus.CounterVec
	ScenarioDurations *prometheus.HistogramVec
}

// NewMetrics creates the harness metrics on a dedicated registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		SessionsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "session",
				Name:      "created_total",
				Help:      "Total number of automation sessions created",
			},
			[]string{"engine", "target"},
		),
		SessionFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "session",
				Name:      "creation_failures_total",
				Help:      "Total number of automation sessions that could not be created",
			},
			[]string{"engine", "target"},
		),
		SessionsClosed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "session",
				Name:      "closed_total",
				Help:      "Total number of automation sessions closed",
			},
			[]string{"engine", "target"},
		),
		CleanupFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "session",
				Name:      "cleanup_failures_total",
				Help:      "Total number of session shutdowns that reported an error",
			},
		),
		ActiveSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "session",
				Name:      "active",
				Help:      "Number of currently active automation sessions",
			},
		),
		GridFallbacks: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "session",
				Name:      "grid_fallbacks_total",
				Help:      "Grid sessions requested without credentials that fell back to a local browser",
			},
		),
		EvidenceEntries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "evidence",
				Name:      "entries_total",
				Help:      "Total number of evidence entries recorded",
			},
			[]string{"kind"},
		),
		CaptureFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "evidence",
				Name:      "capture_failures_total",
				Help:      "Evidence forwards, attachments and file writes that failed",
			},
			[]string{"operation"},
		),
		EvidenceFiles: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "evidence",
				Name:      "files_written_total",
				Help:      "Total number of scenario evidence files persisted",
			},
		),
		ScenarioOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "scenario",
				Name:      "outcomes_total",
				Help:      "Scenario verdicts by outcome",
			},
			[]string{"outcome"},
		),
		ScenarioDurations: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "scenario",
				Name:      "duration_seconds",
				Help:      "Scenario wall-clock duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~4m
			},
			[]string{"outcome"},
		),
	}
}

// Registry returns the registry backing these metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the metrics in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// SessionCreated records a successful session creation.
func (m *Metrics) SessionCreated(engine, target string) {
	if m == nil {
		return
	}
	m.SessionsCreated.WithLabelValues(engine, target).Inc()
	m.ActiveSessions.Inc()
}

// SessionCreationFailed records a failed session creation.
func (m *Metrics) SessionCreationFailed(engine, target string) {
	if m == nil {
		return
	}
	m.SessionFailures.WithLabelValues(engine, target).Inc()
}

// SessionClosed records a session shutdown; failed reports a cleanup error.
func (m *Metrics) SessionClosed(engine, target string, failed bool) {
	if m == nil {
		return
	}
	m.SessionsClosed.WithLabelValues(engine, target).Inc()
	m.ActiveSessions.Dec()
	if failed {
		m.CleanupFailures.Inc()
	}
}

// GridFallback records a grid request served by a local browser.
func (m *Metrics) GridFallback() {
	if m == nil {
		return
	}
	m.GridFallbacks.Inc()
}

// EntryRecorded records one evidence entry of the given kind.
func (m *Metrics) EntryRecorded(kind string) {
	if m == nil {
		return
	}
	m.EvidenceEntries.WithLabelValues(kind).Inc()
}

// CaptureFailed records a non-fatal evidence failure for an operation.
func (m *Metrics) CaptureFailed(operation string) {
	if m == nil {
		return
	}
	m.CaptureFailures.WithLabelValues(operation).Inc()
}

// EvidenceFileWritten records a persisted evidence file.
func (m *Metrics) EvidenceFileWritten() {
	if m == nil {
		return
	}
	m.EvidenceFiles.Inc()
}

// ScenarioFinished records a scenario verdict and its duration in seconds.
func (m *Metrics) ScenarioFinished(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.ScenarioOutcomes.WithLabelValues(outcome).Inc()
	m.ScenarioDurations.WithLabelValues(outcome).Observe(seconds)
}
