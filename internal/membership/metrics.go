package membership

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type engineMetrics struct {
	outcomes *prometheus.CounterVec
}

func newEngineMetrics(promRegistry prometheus.Registerer) *engineMetrics {
	m := &engineMetrics{}
	if promRegistry == nil {
		return m
	}
	m.outcomes = promauto.With(promRegistry).NewCounterVec(prometheus.CounterOpts{
		Name: "gymnexus_membership_create_outcomes_total",
		Help: "membership creation requests by outcome",
	}, []string{"outcome"})
	return m
}

func (m *engineMetrics) observe(o Outcome) {
	if m != nil && m.outcomes != nil {
		m.outcomes.WithLabelValues(o.label()).Inc()
	}
}
