package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	opsEnqueued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "drift",
			Name:      "operations_enqueued_total",
			Help:      "Mutation operations enqueued while offline.",
		},
		[]string{"entity", "kind"},
	)

	opsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "drift",
			Name:      "operations_processed_total",
			Help:      "Queued operations confirmed by the server.",
		},
		[]string{"entity", "kind"},
	)

	opsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "drift",
			Name:      "operations_failed_total",
			Help:      "Handler failures during queue drains.",
		},
		[]string{"entity", "kind"},
	)

	opsDeadLettered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "drift",
			Name:      "operations_dead_lettered_total",
			Help:      "Operations set aside after exhausting retries.",
		},
		[]string{"entity", "kind"},
	)

	drains = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "drift",
			Name:      "queue_drains_total",
			Help:      "Completed queue drain passes.",
		},
	)

	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "drift",
			Name:      "queue_depth",
			Help:      "Pending operations in the durable queue.",
		},
	)

	reminderResyncs = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "drift",
			Name:      "reminder_resyncs_total",
			Help:      "Reminder reconciliation runs.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			opsEnqueued,
			opsProcessed,
			opsFailed,
			opsDeadLettered,
			drains,
			queueDepth,
			reminderResyncs,
		)
	})
}

func IncEnqueued(entity, kind string)     { opsEnqueued.WithLabelValues(entity, kind).Inc() }
func IncProcessed(entity, kind string)    { opsProcessed.WithLabelValues(entity, kind).Inc() }
func IncFailed(entity, kind string)       { opsFailed.WithLabelValues(entity, kind).Inc() }
func IncDeadLettered(entity, kind string) { opsDeadLettered.WithLabelValues(entity, kind).Inc() }
func IncDrain()                           { drains.Inc() }
func SetQueueDepth(n int)                 { queueDepth.Set(float64(n)) }
func IncReminderResync()                  { reminderResyncs.Inc() }
