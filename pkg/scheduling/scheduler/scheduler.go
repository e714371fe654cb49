package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	rferrors "github.com/vnykmshr/rxflow/pkg/common/errors"
	"github.com/vnykmshr/rxflow/pkg/common/validation"
	"github.com/vnykmshr/rxflow/pkg/logger"
	"github.com/vnykmshr/rxflow/pkg/scheduling/workerpool"
)

// Policy selects how a Scheduler provisions execution contexts.
type Policy int

const (
	// PolicyFixed keeps exactly n long-lived execution contexts.
	PolicyFixed Policy = iota
	// PolicyCached reuses idle contexts and creates new ones on demand.
	PolicyCached
	// PolicySingle keeps one long-lived context; tasks run in submission order.
	PolicySingle
	// PolicyThreadPerTask starts a fresh context for every task.
	PolicyThreadPerTask
)

func (p Policy) String() string {
	switch p {
	case PolicyFixed:
		return "fixed"
	case PolicyCached:
		return "cached"
	case PolicySingle:
		return "single"
	case PolicyThreadPerTask:
		return "thread-per-task"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// Scheduler runs tasks on execution contexts chosen by its policy.
type Scheduler interface {
	// Name identifies the scheduler in logs and metrics.
	Name() string

	// Policy returns the provisioning policy.
	Policy() Policy

	// Submit queues task for asynchronous execution. It never blocks and
	// never runs the task on the calling goroutine, so a task may submit
	// to its own scheduler. After shutdown it fails with ErrSchedulerClosed.
	Submit(task workerpool.Task) (*Handle, error)

	// SubmitAfter is Submit delayed by d. Delayed tasks that are not yet
	// due when the scheduler shuts down are cancelled.
	SubmitAfter(task workerpool.Task, d time.Duration) (*Handle, error)

	// Worker returns a sequential executor layered on this scheduler.
	Worker() Worker

	// Shutdown rejects new submissions and lets submitted tasks finish.
	// The returned channel closes once every execution context has exited.
	Shutdown() <-chan struct{}

	// ShutdownNow is Shutdown that also drops queued tasks and cancels the
	// context of running ones.
	ShutdownNow() <-chan struct{}

	// IsShutdown reports whether either shutdown method was called.
	IsShutdown() bool

	// Stats returns a snapshot of the scheduler's counters.
	Stats() Stats
}

// Stats is a point-in-time snapshot of scheduler activity.
type Stats struct {
	Submitted         int64
	Completed         int64
	Failed            int64
	Rejected          int64
	Cancelled         int64
	ExecutionContexts int64
	ContextsCreated   int64
}

// executor is the policy-specific half of a scheduler.
type executor interface {
	// dispatch hands j to an execution context. Called with the scheduler's
	// read lock held and only while the scheduler is open.
	dispatch(j *job) error
	shutdown() <-chan struct{}
	shutdownNow() <-chan struct{}
}

type job struct {
	task      workerpool.Task
	handle    *Handle
	submitted time.Time
}

// scheduler implements Scheduler on top of an executor.
type scheduler struct {
	name   string
	policy Policy
	opts   options
	log    *logger.Logger
	exec   executor

	seq atomic.Uint64

	mu      sync.RWMutex
	closed  bool
	delayed map[*Handle]*time.Timer

	submitted       atomic.Int64
	completed       atomic.Int64
	failed          atomic.Int64
	rejected        atomic.Int64
	cancelled       atomic.Int64
	contexts        atomic.Int64
	contextsCreated atomic.Int64
}

func newScheduler(name string, policy Policy, opts []Option) *scheduler {
	o := applyOptions(opts)
	return &scheduler{
		name:    name,
		policy:  policy,
		opts:    o,
		log:     o.logger.WithComponent("scheduler." + name),
		delayed: make(map[*Handle]*time.Timer),
	}
}

// contextName is the name of the n-th execution context, starting at 1.
func contextName(scheduler string, n int64) string {
	return fmt.Sprintf("%s-%d", contextPrefix(scheduler), n)
}

func contextPrefix(scheduler string) string {
	return "rxflow-" + scheduler
}

func (s *scheduler) Name() string {
	return s.name
}

func (s *scheduler) Policy() Policy {
	return s.policy
}

func (s *scheduler) Submit(task workerpool.Task) (*Handle, error) {
	if err := validation.ValidateNotNil("scheduler", "task", task); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, s.reject()
	}

	j := s.newJob(task)
	s.enqueued()
	if err := s.exec.dispatch(j); err != nil {
		s.dequeued()
		return nil, s.reject()
	}
	s.accepted()
	return j.handle, nil
}

func (s *scheduler) SubmitAfter(task workerpool.Task, d time.Duration) (*Handle, error) {
	if d <= 0 {
		return s.Submit(task)
	}
	if err := validation.ValidateNotNil("scheduler", "task", task); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, s.reject()
	}

	j := s.newJob(task)
	j.handle.onCancel = func() {
		s.mu.Lock()
		if t, ok := s.delayed[j.handle]; ok {
			t.Stop()
			delete(s.delayed, j.handle)
		}
		s.mu.Unlock()
		s.taskCancelled()
	}
	s.delayed[j.handle] = time.AfterFunc(d, func() { s.fire(j) })
	s.accepted()
	return j.handle, nil
}

// fire dispatches a delayed job once its timer expires.
func (s *scheduler) fire(j *job) {
	s.mu.Lock()
	delete(s.delayed, j.handle)
	s.mu.Unlock()

	if j.handle.Cancelled() {
		return
	}
	if !s.dispatchDelayed(j) {
		j.handle.drop()
	}
}

func (s *scheduler) dispatchDelayed(j *job) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false
	}
	j.submitted = time.Now()
	s.enqueued()
	if err := s.exec.dispatch(j); err != nil {
		s.dequeued()
		return false
	}
	return true
}

func (s *scheduler) Worker() Worker {
	return newWorker(s)
}

func (s *scheduler) Shutdown() <-chan struct{} {
	s.close()
	return s.exec.shutdown()
}

func (s *scheduler) ShutdownNow() <-chan struct{} {
	s.close()
	return s.exec.shutdownNow()
}

func (s *scheduler) IsShutdown() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

func (s *scheduler) Stats() Stats {
	return Stats{
		Submitted:         s.submitted.Load(),
		Completed:         s.completed.Load(),
		Failed:            s.failed.Load(),
		Rejected:          s.rejected.Load(),
		Cancelled:         s.cancelled.Load(),
		ExecutionContexts: s.contexts.Load(),
		ContextsCreated:   s.contextsCreated.Load(),
	}
}

// close marks the scheduler closed and cancels delayed tasks not yet due.
func (s *scheduler) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	pending := make([]*Handle, 0, len(s.delayed))
	for h := range s.delayed {
		pending = append(pending, h)
	}
	s.mu.Unlock()

	for _, h := range pending {
		h.drop()
	}
	s.log.Debug("scheduler shutting down", map[string]interface{}{
		"policy":          s.policy.String(),
		"delayed_dropped": len(pending),
	})
}

func (s *scheduler) newJob(task workerpool.Task) *job {
	return &job{
		task:      task,
		handle:    newHandle(s.seq.Add(1), s.taskCancelled),
		submitted: time.Now(),
	}
}

// run executes j on the current execution context. Every policy funnels
// its tasks through here.
func (s *scheduler) run(ctx context.Context, j *job) {
	s.dequeued()
	if !j.handle.begin() {
		return
	}
	s.started(time.Since(j.submitted))
	defer s.stopped()

	if s.opts.taskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.taskTimeout)
		defer cancel()
	}

	start := time.Now()
	err := workerpool.Execute(ctx, j.task)
	s.finished(time.Since(start), err)
	if err != nil {
		s.log.WithContext(ctx).WithError(err).Warn("task failed", map[string]interface{}{
			"seq": j.handle.Seq(),
		})
	}
	j.handle.finish(err)
}

func (s *scheduler) reject() error {
	s.rejected.Add(1)
	if m := s.opts.metrics; m != nil {
		m.TasksRejected.WithLabelValues(s.name).Inc()
	}
	return fmt.Errorf("cannot submit task to %s: %w", s.name, rferrors.ErrSchedulerClosed)
}
