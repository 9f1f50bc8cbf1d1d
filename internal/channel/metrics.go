package channel

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type channelMetrics struct {
	published *prometheus.CounterVec
	consumed  *prometheus.CounterVec
	committed *prometheus.CounterVec
}

func newChannelMetrics(promRegistry prometheus.Registerer, backend string) *channelMetrics {
	m := &channelMetrics{}
	if promRegistry == nil {
		return m
	}
	promautoFactory := promauto.With(promRegistry)
	labels := prometheus.Labels{"backend": backend}
	m.published = promautoFactory.NewCounterVec(prometheus.CounterOpts{
		Name:        "gymnexus_channel_published_total",
		Help:        "messages published by topic",
		ConstLabels: labels,
	}, []string{"topic"})
	m.consumed = promautoFactory.NewCounterVec(prometheus.CounterOpts{
		Name:        "gymnexus_channel_consumed_total",
		Help:        "messages handed to consumers by topic",
		ConstLabels: labels,
	}, []string{"topic"})
	m.committed = promautoFactory.NewCounterVec(prometheus.CounterOpts{
		Name:        "gymnexus_channel_committed_total",
		Help:        "deliveries committed by topic",
		ConstLabels: labels,
	}, []string{"topic"})
	return m
}

func (m *channelMetrics) incPublished(topic string) {
	if m != nil && m.published != nil {
		m.published.WithLabelValues(topic).Inc()
	}
}

func (m *channelMetrics) incConsumed(topic string) {
	if m != nil && m.consumed != nil {
		m.consumed.WithLabelValues(topic).Inc()
	}
}

func (m *channelMetrics) incCommitted(topic string) {
	if m != nil && m.committed != nil {
		m.committed.WithLabelValues(topic).Inc()
	}
}
