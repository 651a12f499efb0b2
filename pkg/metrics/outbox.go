package metrics

import "github.com/prometheus/client_golang/prometheus"

// OutboxMetrics covers both ends of the outbox: notification writes and publishing.
type OutboxMetrics struct {
	notifyFailures *prometheus.CounterVec
	published      *prometheus.CounterVec
	publishFailed  *prometheus.CounterVec
	deadLettered   *prometheus.CounterVec
}

// NewOutboxMetrics registers the outbox metrics on the provided registerer.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	notifyFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_notify_failures_total",
		Help:      "Notifications that could not be written after a committed operation.",
	}, []string{"event_type"})
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_published_total",
		Help:      "Outbox rows published to Pub/Sub.",
	}, []string{"event_type"})
	publishFailed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_publish_failures_total",
		Help:      "Retryable publish failures.",
	}, []string{"event_type"})
	deadLettered := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_dead_lettered_total",
		Help:      "Outbox rows moved to the DLQ, by reason.",
	}, []string{"reason"})
	reg.MustRegister(notifyFailures, published, publishFailed, deadLettered)
	return &OutboxMetrics{
		notifyFailures: notifyFailures,
		published:      published,
		publishFailed:  publishFailed,
		deadLettered:   deadLettered,
	}
}

func (m *OutboxMetrics) IncNotifyFailure(eventType string) {
	if m == nil || m.notifyFailures == nil {
		return
	}
	m.notifyFailures.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (m *OutboxMetrics) IncPublished(eventType string) {
	if m == nil || m.published == nil {
		return
	}
	m.published.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (m *OutboxMetrics) IncPublishFailure(eventType string) {
	if m == nil || m.publishFailed == nil {
		return
	}
	m.publishFailed.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (m *OutboxMetrics) IncDeadLettered(reason string) {
	if m == nil || m.deadLettered == nil {
		return
	}
	m.deadLettered.WithLabelValues(normalizeLabel(reason)).Inc()
}
