package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// OutboxMetrics tracks publisher throughput and failures.
type OutboxMetrics struct {
	published *prometheus.CounterVec
	failed    *prometheus.CounterVec
	pending   prometheus.Gauge
}

// NewOutboxMetrics registers the outbox publisher metrics on the provided registerer.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_published_total",
		Help: "Outbox events published to the broker.",
	}, []string{"event_type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_publish_failures_total",
		Help: "Outbox publish attempts that failed.",
	}, []string{"event_type"})
	pending := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "outbox_pending",
		Help: "Unpublished outbox rows observed on the last poll.",
	})
	reg.MustRegister(published, failed, pending)
	return &OutboxMetrics{
		published: published,
		failed:    failed,
		pending:   pending,
	}
}

// IncPublished increments the published counter for the event type.
func (o *OutboxMetrics) IncPublished(eventType string) {
	if o == nil || o.published == nil {
		return
	}
	o.published.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncFailed increments the failure counter for the event type.
func (o *OutboxMetrics) IncFailed(eventType string) {
	if o == nil || o.failed == nil {
		return
	}
	o.failed.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// SetPending records the size of the unpublished backlog.
func (o *OutboxMetrics) SetPending(count int) {
	if o == nil || o.pending == nil {
		return
	}
	o.pending.Set(float64(count))
}
