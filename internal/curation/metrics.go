package curation

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the curation workflow's prometheus instruments. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	sessionsStarted prometheus.Counter
	outcomes        *prometheus.CounterVec
	fetchAttempts   *prometheus.CounterVec
	decisions       *prometheus.CounterVec
	decisionLatency prometheus.Histogram
	staleDecisions  prometheus.Counter
}

// NewMetrics registers the instruments on reg. A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "curator_sessions_started_total",
			Help: "Curation sessions presented to the operator.",
		}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "curator_session_outcomes_total",
			Help: "Terminal session outcomes.",
		}, []string{"outcome"}),
		fetchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "curator_fetch_attempts_total",
			Help: "Content source calls by result (accepted, duplicate, error).",
		}, []string{"result"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "curator_decisions_total",
			Help: "Resolved operator decisions by kind and channel.",
		}, []string{"kind", "via"}),
		decisionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "curator_decision_latency_seconds",
			Help:    "Time between presenting a batch and resolving a decision.",
			Buckets: []float64{5, 30, 60, 300, 900, 1800, 3600},
		}),
		staleDecisions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "curator_stale_decisions_total",
			Help: "Decisions dropped because their session was superseded or stopped.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.sessionsStarted, m.outcomes, m.fetchAttempts, m.decisions, m.decisionLatency, m.staleDecisions)
	}
	return m
}

func (m *Metrics) sessionStarted() {
	if m == nil {
		return
	}
	m.sessionsStarted.Inc()
}

func (m *Metrics) outcome(o Outcome) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(string(o)).Inc()
}

func (m *Metrics) fetchAttempt(result string) {
	if m == nil {
		return
	}
	m.fetchAttempts.WithLabelValues(result).Inc()
}

func (m *Metrics) decision(d Decision, since time.Time) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(d.Kind.String(), d.Via).Inc()
	m.decisionLatency.Observe(time.Since(since).Seconds())
}

func (m *Metrics) staleDecision() {
	if m == nil {
		return
	}
	m.staleDecisions.Inc()
}
