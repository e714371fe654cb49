package workerpool

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	rxcontext "github.com/vnykmshr/rxflow/pkg/common/context"
	rferrors "github.com/vnykmshr/rxflow/pkg/common/errors"
	"github.com/vnykmshr/rxflow/pkg/common/validation"
)

// Submit adds a task to the pool for execution. The task runs with a
// context that ends when ShutdownNow is called or TaskTimeout elapses.
func (p *workerPool) Submit(task Task) error {
	if err := validation.ValidateNotNil("workerpool", "task", task); err != nil {
		return err
	}

	// The read lock orders submissions before shutdown closes the queue.
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.isShutdown {
		return fmt.Errorf("cannot submit task to %s: %w", p.config.Name, rferrors.ErrSchedulerClosed)
	}

	if _, err := p.taskQueue.Enqueue(task); err != nil {
		return fmt.Errorf("cannot submit task to %s: %w", p.config.Name, rferrors.ErrSchedulerClosed)
	}
	atomic.AddInt64(&p.totalSubmitted, 1)
	return nil
}

// Shutdown initiates a graceful shutdown of the pool.
func (p *workerPool) Shutdown() <-chan struct{} {
	p.shutdownOnce.Do(func() {
		p.mu.Lock()
		p.isShutdown = true
		p.mu.Unlock()

		// Workers drain what is queued, then see ErrQueueClosed and exit.
		p.taskQueue.Close()
	})

	return p.stopped
}

// ShutdownNow drops queued tasks and cancels the context of running ones.
func (p *workerPool) ShutdownNow() <-chan struct{} {
	p.Shutdown()

	for _, item := range p.taskQueue.Drain() {
		if p.config.OnTaskDropped != nil {
			p.config.OnTaskDropped(item.Value)
		}
	}
	p.cancelBase()

	return p.stopped
}

// Size returns the number of workers in the pool.
func (p *workerPool) Size() int {
	return p.config.WorkerCount
}

// QueueSize returns the current number of queued tasks waiting for execution.
func (p *workerPool) QueueSize() int {
	return p.taskQueue.Len()
}

// run is the main loop for a worker.
func (w *worker) run() {
	defer w.pool.workerWg.Done()

	if w.pool.config.OnWorkerStart != nil {
		w.pool.config.OnWorkerStart(w.id, w.name)
	}
	if w.pool.config.OnWorkerStop != nil {
		defer w.pool.config.OnWorkerStop(w.id, w.name)
	}

	for {
		item, err := w.pool.taskQueue.Dequeue(context.Background())
		if err != nil {
			// Task queue closed and drained, shutdown
			return
		}
		w.executeTask(item.Seq, item.Value)
	}
}

// executeTask executes a single task with the provided context.
func (w *worker) executeTask(seq uint64, task Task) {
	atomic.AddInt32(&w.pool.activeWorkers, 1)
	defer atomic.AddInt32(&w.pool.activeWorkers, -1)

	ctx, cancel := context.WithCancel(w.pool.baseCtx)
	defer cancel()

	// Apply TaskTimeout if configured
	if w.pool.config.TaskTimeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, w.pool.config.TaskTimeout)
		defer cancelTimeout()
	}

	ctx = rxcontext.WithExecutionContext(ctx, w.name)

	start := time.Now()
	err := Execute(ctx, task)
	if errors.Is(err, rferrors.ErrTaskPanicked) && w.pool.config.PanicHandler != nil {
		w.pool.config.PanicHandler(task, err)
	}
	atomic.AddInt64(&w.pool.totalCompleted, 1)

	if w.pool.config.OnTaskComplete != nil {
		w.pool.config.OnTaskComplete(w.id, Result{
			Task:     task,
			Seq:      seq,
			Error:    err,
			Duration: time.Since(start),
			WorkerID: w.id,
			Worker:   w.name,
		})
	}
}

// Execute runs task on the calling goroutine, converting a panic into an
// error wrapping ErrTaskPanicked. Every execution context in rxflow runs
// tasks through it so a failing task never takes its context down.
func Execute(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v\nStack trace:\n%s", rferrors.ErrTaskPanicked, r, debug.Stack())
		}
	}()
	return task.Execute(ctx)
}
