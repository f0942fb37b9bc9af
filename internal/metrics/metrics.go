package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/taskgrid/notification-service/internal/domain"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	NotificationsDelivered *prometheus.CounterVec
	NotificationsFailed    *prometheus.CounterVec
	PollCycleDuration      *prometheus.HistogramVec
	PoisonMessages         *prometheus.CounterVec
	QueueDepth             *prometheus.GaugeVec
	LiveConnections        prometheus.Gauge
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		NotificationsDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_delivered_total",
			Help: "Total notifications delivered, per channel.",
		}, []string{"channel"}),

		NotificationsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_failed_total",
			Help: "Total per-channel delivery failures (best-effort, not retried).",
		}, []string{"channel"}),

		PollCycleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "poll_cycle_seconds",
			Help:    "Duration of one delay-queue poll cycle, per queue.",
			Buckets: prometheus.DefBuckets,
		}, []string{"queue"}),

		PoisonMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "poison_messages_total",
			Help: "Queue entries discarded because they could not be parsed or dispatched.",
		}, []string{"queue"}),

		QueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "queue_depth",
			Help: "Current number of scheduled entries, per delay queue.",
		}, []string{"queue"}),

		LiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "live_connections",
			Help: "Currently registered push connections.",
		}),
	}

	reg.MustRegister(
		m.NotificationsDelivered,
		m.NotificationsFailed,
		m.PollCycleDuration,
		m.PoisonMessages,
		m.QueueDepth,
		m.LiveConnections,
	)

	return m
}

// DeliveryHooks returns the metric callbacks expected by the dispatcher.
// Centralises the prometheus observation calls so the notifier stays
// import-free.
func (m *Metrics) DeliveryHooks() (
	onDelivered func(domain.Channel),
	onFailed func(domain.Channel),
) {
	onDelivered = func(ch domain.Channel) {
		m.NotificationsDelivered.WithLabelValues(string(ch)).Inc()
	}
	onFailed = func(ch domain.Channel) {
		m.NotificationsFailed.WithLabelValues(string(ch)).Inc()
	}
	return
}

// PollHooks returns the metric callbacks expected by the poller.
func (m *Metrics) PollHooks() (
	onCycle func(queue string, elapsed time.Duration),
	onPoison func(queue string),
) {
	onCycle = func(queue string, elapsed time.Duration) {
		m.PollCycleDuration.WithLabelValues(queue).Observe(elapsed.Seconds())
	}
	onPoison = func(queue string) {
		m.PoisonMessages.WithLabelValues(queue).Inc()
	}
	return
}
