package curation

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
	metrics:
		for _, m := range f.GetMetric() {
			for _, lp := range m.GetLabel() {
				if v, ok := labels[lp.GetName()]; ok && v != lp.GetValue() {
					continue metrics
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestMetricsRecordSessionLifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := newHarness(t, abcSource(), false, Settings{})
	h.m.Metrics = NewMetrics(reg)
	h.m.fetcher.Metrics = h.m.Metrics

	s, err := h.m.StartSession(context.Background(), operator, "")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	h.reply(t, "approve 1")
	waitDone(t, s)

	if v := counterValue(t, reg, "curator_sessions_started_total", nil); v != 1 {
		t.Fatalf("sessions started = %v", v)
	}
	if v := counterValue(t, reg, "curator_fetch_attempts_total", map[string]string{"result": "accepted"}); v != 3 {
		t.Fatalf("accepted fetches = %v", v)
	}
	if v := counterValue(t, reg, "curator_decisions_total", map[string]string{"kind": "approve", "via": "reply"}); v != 1 {
		t.Fatalf("approve decisions = %v", v)
	}
	eventually(t, func() bool {
		return counterValue(t, reg, "curator_session_outcomes_total", map[string]string{"outcome": "published"}) == 1
	}, "published outcome not counted")
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.sessionStarted()
	m.outcome(OutcomeExpired)
	m.fetchAttempt("error")
	m.staleDecision()
}
