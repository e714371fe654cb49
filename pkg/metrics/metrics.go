// Package metrics provides Prometheus instrumentation for rxflow components.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds all metric instances for rxflow components.
type Registry struct {
	// Scheduler Metrics
	TasksSubmitted    *prometheus.CounterVec
	TasksRejected     *prometheus.CounterVec
	TasksCancelled    *prometheus.CounterVec
	TasksCompleted    *prometheus.CounterVec
	TasksFailed       *prometheus.CounterVec
	TaskDuration      *prometheus.HistogramVec
	TaskQueueWait     *prometheus.HistogramVec
	ExecutionContexts *prometheus.GaugeVec
	ActiveTasks       *prometheus.GaugeVec
	QueuedTasks       *prometheus.GaugeVec

	// Pipeline Metrics
	PipelinesStarted  *prometheus.CounterVec
	ItemsEmitted      *prometheus.CounterVec
	ItemsDelivered    *prometheus.CounterVec
	PipelineTerminals *prometheus.CounterVec
}

// DefaultRegistry is the default metrics registry used by rxflow components.
var DefaultRegistry *Registry

func init() {
	DefaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	return newRegistry(reg, DefaultNamespace)
}

func newRegistry(reg prometheus.Registerer, namespace string) *Registry {
	factory := promauto.With(reg)
	schedulerLabels := []string{"scheduler_name"}
	pipelineLabels := []string{"pipeline_name"}

	return &Registry{
		TasksSubmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "scheduler",
				Name:      "tasks_submitted_total",
				Help:      "Total number of tasks accepted by a scheduler",
			},
			schedulerLabels,
		),

		TasksRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "scheduler",
				Name:      "tasks_rejected_total",
				Help:      "Total number of submissions rejected after shutdown",
			},
			schedulerLabels,
		),

		TasksCancelled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "scheduler",
				Name:      "tasks_cancelled_total",
				Help:      "Total number of tasks cancelled before they started",
			},
			schedulerLabels,
		),

		TasksCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "scheduler",
				Name:      "tasks_completed_total",
				Help:      "Total number of tasks completed successfully",
			},
			schedulerLabels,
		),

		TasksFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "scheduler",
				Name:      "tasks_failed_total",
				Help:      "Total number of tasks that returned an error or panicked",
			},
			schedulerLabels,
		),

		TaskDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "scheduler",
				Name:      "task_duration_seconds",
				Help:      "Time spent executing tasks",
				Buckets:   prometheus.DefBuckets,
			},
			schedulerLabels,
		),

		TaskQueueWait: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "scheduler",
				Name:      "task_queue_wait_seconds",
				Help:      "Time between submission and the start of execution",
				Buckets:   prometheus.DefBuckets,
			},
			schedulerLabels,
		),

		ExecutionContexts: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "scheduler",
				Name:      "execution_contexts",
				Help:      "Number of live execution contexts",
			},
			schedulerLabels,
		),

		ActiveTasks: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "scheduler",
				Name:      "active_tasks",
				Help:      "Number of tasks currently executing",
			},
			schedulerLabels,
		),

		QueuedTasks: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "scheduler",
				Name:      "queued_tasks",
				Help:      "Number of tasks waiting for an execution context",
			},
			schedulerLabels,
		),

		PipelinesStarted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "started_total",
				Help:      "Total number of pipelines started",
			},
			pipelineLabels,
		),

		ItemsEmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "items_emitted_total",
				Help:      "Total number of items emitted by producers",
			},
			pipelineLabels,
		),

		ItemsDelivered: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "items_delivered_total",
				Help:      "Total number of items delivered to consumers",
			},
			pipelineLabels,
		),

		PipelineTerminals: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "terminations_total",
				Help:      "Total number of pipelines reaching a terminal state",
			},
			[]string{"pipeline_name", "state"},
		),
	}
}
