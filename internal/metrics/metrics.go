// Package metrics exposes Prometheus counters for workflow activity.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "premik"

// Metrics holds all engine metrics and the registry they live in.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	Transitions       *prometheus.CounterVec
	TransitionsFailed *prometheus.CounterVec
	TokensRedeemed    *prometheus.CounterVec

	SweepRuns     prometheus.Counter
	SweepMarked   prometheus.Counter
	SweepFailures prometheus.Counter
}

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{registry: registry}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "status"},
	)
	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"method"},
	)
	m.Transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Workflow transitions applied, by entity and action",
		},
		[]string{"entity", "action"},
	)
	m.TransitionsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_failed_total",
			Help:      "Workflow operations rejected, by entity, action and error kind",
		},
		[]string{"entity", "action", "kind"},
	)
	m.TokensRedeemed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handoff_tokens_redeemed_total",
			Help:      "Handoff tokens consumed, by entity and phase",
		},
		[]string{"entity", "phase"},
	)
	m.SweepRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "overdue_sweep_runs_total",
		Help:      "Overdue sweeps executed",
	})
	m.SweepMarked = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "overdue_loans_marked_total",
		Help:      "Loans moved to OVERDUE by the sweep",
	})
	m.SweepFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "overdue_sweep_failures_total",
		Help:      "Loans the sweep failed to mark",
	})

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.Transitions,
		m.TransitionsFailed,
		m.TokensRedeemed,
		m.SweepRuns,
		m.SweepMarked,
		m.SweepFailures,
	)

	return m
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordHTTPRequest records a served HTTP request.
func (m *Metrics) RecordHTTPRequest(method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordTransition counts an applied workflow transition.
func (m *Metrics) RecordTransition(entity, action string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(entity, action).Inc()
}

// RecordFailure counts a rejected workflow operation.
func (m *Metrics) RecordFailure(entity, action, kind string) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "INTERNAL"
	}
	m.TransitionsFailed.WithLabelValues(entity, action, kind).Inc()
}

// RecordRedeem counts a consumed handoff token.
func (m *Metrics) RecordRedeem(entity, phase string) {
	if m == nil {
		return
	}
	m.TokensRedeemed.WithLabelValues(entity, phase).Inc()
}

// RecordSweep records one overdue sweep run.
func (m *Metrics) RecordSweep(marked, failed int) {
	if m == nil {
		return
	}
	m.SweepRuns.Inc()
	m.SweepMarked.Add(float64(marked))
	m.SweepFailures.Add(float64(failed))
}
