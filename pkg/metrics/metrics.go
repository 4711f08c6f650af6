package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "jobrunner"

// Metrics groups the scheduler's collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	JobsPrepared     *prometheus.CounterVec
	JobsCompleted    *prometheus.CounterVec
	JobDuration      *prometheus.HistogramVec
	ActionsPerformed *prometheus.CounterVec
	QueueDue         prometheus.Gauge
	SchedulerPasses  *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		JobsPrepared: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_prepared_total",
			Help:      "Jobs prepared and queued, by schedule type.",
		}, []string{"schedule_type"}),
		JobsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_completed_total",
			Help:      "Jobs that reached a terminal state, by executor and state.",
		}, []string{"executor", "state"}),
		JobDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Wall time of job execution.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}, []string{"executor"}),
		ActionsPerformed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_performed_total",
			Help:      "Post-execution actions, by action and result.",
		}, []string{"action", "result"}),
		QueueDue: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_due_entries",
			Help:      "Queue entries found due on the last scheduler pass.",
		}),
		SchedulerPasses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_passes_total",
			Help:      "Scheduler passes, by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
