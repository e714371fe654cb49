package scheduler

import (
	"context"

	"github.com/vnykmshr/rxflow/pkg/common/validation"
	"github.com/vnykmshr/rxflow/pkg/scheduling/workerpool"
)

// NewFixed creates a scheduler with exactly n long-lived execution contexts
// named "rxflow-<name>-1" through "rxflow-<name>-<n>". Busy contexts never
// cause a rejection; excess tasks wait in an unbounded FIFO queue.
// It panics if n is not positive.
func NewFixed(name string, n int, opts ...Option) Scheduler {
	if err := validation.ValidatePositive("scheduler", "n", n); err != nil {
		panic(err.Error())
	}
	return newPooled(name, PolicyFixed, n, opts)
}

// NewSingle creates a scheduler with one long-lived execution context.
// Tasks run strictly in submission order.
func NewSingle(name string, opts ...Option) Scheduler {
	return newPooled(name, PolicySingle, 1, opts)
}

func newPooled(name string, policy Policy, n int, opts []Option) Scheduler {
	s := newScheduler(name, policy, opts)
	s.exec = &poolExecutor{
		s: s,
		pool: workerpool.NewWithConfig(workerpool.Config{
			Name:        contextPrefix(name),
			WorkerCount: n,
			OnWorkerStart: func(int, string) {
				s.contextStarted()
			},
			OnWorkerStop: func(int, string) {
				s.contextStopped()
			},
			OnTaskDropped: func(task workerpool.Task) {
				if jt, ok := task.(jobTask); ok {
					s.dequeued()
					jt.j.handle.drop()
				}
			},
		}),
	}
	return s
}

// poolExecutor runs jobs on a workerpool.
type poolExecutor struct {
	s    *scheduler
	pool workerpool.Pool
}

func (e *poolExecutor) dispatch(j *job) error {
	return e.pool.Submit(jobTask{s: e.s, j: j})
}

func (e *poolExecutor) shutdown() <-chan struct{} {
	return e.pool.Shutdown()
}

func (e *poolExecutor) shutdownNow() <-chan struct{} {
	return e.pool.ShutdownNow()
}

// jobTask adapts a job to workerpool.Task.
type jobTask struct {
	s *scheduler
	j *job
}

func (t jobTask) Execute(ctx context.Context) error {
	t.s.run(ctx, t.j)
	return nil
}
