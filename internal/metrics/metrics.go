package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	TasksEnqueuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "routerops_tasks_enqueued_total",
			Help: "Total number of tasks enqueued by operation type.",
		},
		[]string{"type"},
	)

	TasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "routerops_tasks_total",
			Help: "Total number of task executions by type and terminal status.",
		},
		[]string{"type", "status"},
	)

	TaskDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "routerops_task_duration_seconds",
			Help:    "Wall time spent executing a task by type.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
		[]string{"type"},
	)

	MalformedMessagesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "routerops_malformed_messages_total",
			Help: "Total number of undecodable or unroutable queue messages dropped.",
		},
	)

	ProbesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "routerops_probes_total",
			Help: "Total number of monitor probes by resulting profile status.",
		},
		[]string{"status"},
	)

	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "routerops_notifications_total",
			Help: "Total number of notification callback invocations by outcome.",
		},
		[]string{"outcome"},
	)

	QueueBacklog = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "routerops_queue_backlog",
			Help: "Messages waiting on the router task queue.",
		},
	)
)

func MustRegister(reg *prometheus.Registry) {
	reg.MustRegister(
		TasksEnqueuedTotal,
		TasksTotal,
		TaskDurationSeconds,
		MalformedMessagesTotal,
		ProbesTotal,
		NotificationsTotal,
		QueueBacklog,
	)
}

// RecordTaskEnqueued increments the enqueue counter for an operation type.
func RecordTaskEnqueued(taskType string) {
	TasksEnqueuedTotal.WithLabelValues(taskType).Inc()
}

// RecordTaskResult records a terminal task outcome and its duration.
func RecordTaskResult(taskType, status string, elapsed time.Duration) {
	TasksTotal.WithLabelValues(taskType, status).Inc()
	TaskDurationSeconds.WithLabelValues(taskType).Observe(elapsed.Seconds())
}

// RecordMalformedMessage counts a dropped queue message.
func RecordMalformedMessage() {
	MalformedMessagesTotal.Inc()
}

// RecordProbe counts a monitor probe by resulting status.
func RecordProbe(status string) {
	ProbesTotal.WithLabelValues(status).Inc()
}

// RecordNotification counts a notification attempt.
func RecordNotification(ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	NotificationsTotal.WithLabelValues(outcome).Inc()
}

// UpdateQueueBacklog sets the current task queue depth.
func UpdateQueueBacklog(depth float64) {
	QueueBacklog.Set(depth)
}
