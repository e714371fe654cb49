package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	rferrors "github.com/vnykmshr/rxflow/pkg/common/errors"
	"github.com/vnykmshr/rxflow/pkg/common/validation"
	"github.com/vnykmshr/rxflow/pkg/scheduling/taskqueue"
	"github.com/vnykmshr/rxflow/pkg/scheduling/workerpool"
)

// Worker is a sequential executor obtained from a Scheduler. Tasks scheduled
// on one Worker run one at a time in schedule order. Consecutive tasks may
// run on different execution contexts of the parent scheduler, but never
// concurrently and never out of order.
type Worker interface {
	// Schedule queues task behind every task scheduled before it.
	Schedule(task workerpool.Task) (*Handle, error)

	// Dispose cancels pending tasks and rejects further ones. A task already
	// running finishes normally.
	Dispose()
}

type workerItem struct {
	task   workerpool.Task
	handle *Handle
}

type worker struct {
	s     *scheduler
	queue *taskqueue.Queue[workerItem]

	mu       sync.Mutex
	running  bool
	disposed bool
}

func newWorker(s *scheduler) *worker {
	return &worker{
		s:     s,
		queue: taskqueue.New[workerItem](),
	}
}

func (w *worker) Schedule(task workerpool.Task) (*Handle, error) {
	if err := validation.ValidateNotNil("worker", "task", task); err != nil {
		return nil, err
	}

	w.mu.Lock()
	if w.disposed {
		w.mu.Unlock()
		return nil, fmt.Errorf("worker on %s disposed: %w", w.s.name, rferrors.ErrSchedulerClosed)
	}
	h := newHandle(0, nil)
	seq, err := w.queue.Enqueue(workerItem{task: task, handle: h})
	if err != nil {
		w.mu.Unlock()
		return nil, fmt.Errorf("worker on %s: %w", w.s.name, rferrors.ErrSchedulerClosed)
	}
	h.seq = seq
	start := !w.running
	w.running = true
	w.mu.Unlock()

	if start {
		if err := w.submitStep(); err != nil {
			w.dispose(errDropped)
			return nil, err
		}
	}
	return h, nil
}

// submitStep hands the next step to the parent scheduler. If a forced
// shutdown later drops that step, the worker disposes itself so pending
// tasks are cancelled instead of waiting forever.
func (w *worker) submitStep() error {
	h, err := w.s.Submit(workerpool.TaskFunc(w.step))
	if err != nil {
		return err
	}
	h.OnCancel(w.stepDropped)
	return nil
}

func (w *worker) stepDropped(cause error) {
	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
	w.dispose(cause)
}

// step runs one pending task, then hands the rest back to the parent
// scheduler as a fresh submission. When the parent no longer accepts work
// the remaining tasks run here, unless the shutdown was forced: then they
// are cancelled.
func (w *worker) step(ctx context.Context) error {
	for {
		w.mu.Lock()
		item, ok := w.queue.TryDequeue()
		if !ok {
			w.running = false
			w.mu.Unlock()
			return nil
		}
		w.mu.Unlock()

		w.execute(ctx, item.Value)

		w.mu.Lock()
		if w.queue.Len() == 0 {
			w.running = false
			w.mu.Unlock()
			return nil
		}
		w.mu.Unlock()

		if err := w.submitStep(); err == nil {
			return nil
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			w.mu.Lock()
			w.running = false
			w.mu.Unlock()
			w.dispose(errDropped)
			return nil
		}
	}
}

func (w *worker) execute(ctx context.Context, item workerItem) {
	if !item.handle.begin() {
		return
	}
	err := workerpool.Execute(ctx, item.task)
	if err != nil {
		w.s.log.WithContext(ctx).WithError(err).Warn("worker task failed", map[string]interface{}{
			"seq": item.handle.Seq(),
		})
	}
	item.handle.finish(err)
}

func (w *worker) Dispose() {
	w.dispose(rferrors.ErrTaskCancelled)
}

// dispose cancels pending tasks with cause and rejects further ones.
func (w *worker) dispose(cause error) {
	w.mu.Lock()
	if w.disposed {
		w.mu.Unlock()
		return
	}
	w.disposed = true
	pending := w.queue.Drain()
	w.queue.Close()
	w.mu.Unlock()

	for _, item := range pending {
		item.Value.handle.cancel(cause)
	}
}
