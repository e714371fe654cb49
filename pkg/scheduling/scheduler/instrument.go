package scheduler

import "time"

// Counter and gauge bookkeeping. Every method is safe with metrics disabled.

func (s *scheduler) accepted() {
	s.submitted.Add(1)
	if m := s.opts.metrics; m != nil {
		m.TasksSubmitted.WithLabelValues(s.name).Inc()
	}
}

func (s *scheduler) enqueued() {
	if m := s.opts.metrics; m != nil {
		m.QueuedTasks.WithLabelValues(s.name).Inc()
	}
}

func (s *scheduler) dequeued() {
	if m := s.opts.metrics; m != nil {
		m.QueuedTasks.WithLabelValues(s.name).Dec()
	}
}

func (s *scheduler) started(wait time.Duration) {
	if m := s.opts.metrics; m != nil {
		m.TaskQueueWait.WithLabelValues(s.name).Observe(wait.Seconds())
		m.ActiveTasks.WithLabelValues(s.name).Inc()
	}
}

func (s *scheduler) stopped() {
	if m := s.opts.metrics; m != nil {
		m.ActiveTasks.WithLabelValues(s.name).Dec()
	}
}

func (s *scheduler) finished(d time.Duration, err error) {
	if err != nil {
		s.failed.Add(1)
	} else {
		s.completed.Add(1)
	}
	m := s.opts.metrics
	if m == nil {
		return
	}
	m.TaskDuration.WithLabelValues(s.name).Observe(d.Seconds())
	if err != nil {
		m.TasksFailed.WithLabelValues(s.name).Inc()
	} else {
		m.TasksCompleted.WithLabelValues(s.name).Inc()
	}
}

func (s *scheduler) taskCancelled() {
	s.cancelled.Add(1)
	if m := s.opts.metrics; m != nil {
		m.TasksCancelled.WithLabelValues(s.name).Inc()
	}
}

func (s *scheduler) contextStarted() {
	s.contexts.Add(1)
	s.contextsCreated.Add(1)
	if m := s.opts.metrics; m != nil {
		m.ExecutionContexts.WithLabelValues(s.name).Inc()
	}
}

func (s *scheduler) contextStopped() {
	s.contexts.Add(-1)
	if m := s.opts.metrics; m != nil {
		m.ExecutionContexts.WithLabelValues(s.name).Dec()
	}
}
