// Package metrics provides Prometheus instrumentation for rxflow components.
//
// # Overview
//
// Schedulers and pipelines accept a *Registry through their WithMetrics
// options. A nil Registry disables collection, so New(Config{Enabled: false})
// can be passed straight through.
//
//	reg := metrics.New(metrics.Config{
//		Enabled:  true,
//		Registry: prometheus.NewRegistry(),
//	})
//
//	io := scheduler.NewCached("io", time.Minute, scheduler.WithMetrics(reg))
//	p := pipeline.Build(producer, next, onErr, onDone, pipeline.WithMetrics(reg))
//
// Then expose metrics via HTTP:
//
//	http.Handle("/metrics", promhttp.Handler())
//
// # Available Metrics
//
// ## Scheduler Metrics (label scheduler_name)
//
//   - rxflow_scheduler_tasks_submitted_total
//   - rxflow_scheduler_tasks_rejected_total
//   - rxflow_scheduler_tasks_cancelled_total
//   - rxflow_scheduler_tasks_completed_total
//   - rxflow_scheduler_tasks_failed_total
//   - rxflow_scheduler_task_duration_seconds
//   - rxflow_scheduler_task_queue_wait_seconds
//   - rxflow_scheduler_execution_contexts
//   - rxflow_scheduler_active_tasks
//   - rxflow_scheduler_queued_tasks
//
// ## Pipeline Metrics (label pipeline_name)
//
//   - rxflow_pipeline_started_total
//   - rxflow_pipeline_items_emitted_total
//   - rxflow_pipeline_items_delivered_total
//   - rxflow_pipeline_terminations_total (extra label state)
//
// # Custom Registry
//
// DefaultRegistry registers against prometheus.DefaultRegisterer at init.
// Tests and embedded uses should build their own with NewRegistry or New so
// collectors never collide.
package metrics
