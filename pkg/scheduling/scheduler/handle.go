package scheduler

import (
	"fmt"
	"sync"
	"sync/atomic"

	rferrors "github.com/vnykmshr/rxflow/pkg/common/errors"
)

const (
	statePending int32 = iota
	stateRunning
	stateDone
	stateCancelled
)

// errDropped is the cause recorded for tasks discarded by a shutdown.
var errDropped = fmt.Errorf("%w: dropped by shutdown: %w", rferrors.ErrTaskCancelled, rferrors.ErrSchedulerClosed)

// Handle tracks one submitted task. Cancel is effective only before the
// task starts; a running task is never interrupted through its Handle.
type Handle struct {
	seq      uint64
	state    atomic.Int32
	done     chan struct{}
	err      error
	cause    error
	onCancel func()

	mu    sync.Mutex
	hooks []func(cause error)
	fired bool
}

func newHandle(seq uint64, onCancel func()) *Handle {
	return &Handle{
		seq:      seq,
		done:     make(chan struct{}),
		onCancel: onCancel,
	}
}

// Seq returns the submission order of the task within its scheduler or worker.
func (h *Handle) Seq() uint64 {
	return h.seq
}

// Cancel prevents the task from running if it has not started yet.
// It returns true only for the call that actually cancelled the task.
func (h *Handle) Cancel() bool {
	return h.cancel(rferrors.ErrTaskCancelled)
}

// drop cancels a task that a shutdown discarded before it started. The
// cause wraps both ErrTaskCancelled and ErrSchedulerClosed.
func (h *Handle) drop() bool {
	return h.cancel(errDropped)
}

func (h *Handle) cancel(cause error) bool {
	if !h.state.CompareAndSwap(statePending, stateCancelled) {
		return false
	}
	h.cause = cause
	close(h.done)
	if h.onCancel != nil {
		h.onCancel()
	}

	h.mu.Lock()
	hooks := h.hooks
	h.hooks = nil
	h.fired = true
	h.mu.Unlock()

	for _, fn := range hooks {
		fn(cause)
	}
	return true
}

// OnCancel registers fn to run once if the task is cancelled before it
// starts, with the cancellation cause. If the task is already cancelled, fn
// runs immediately on the caller; once the task has started, fn never runs.
// Hooks run on the goroutine that cancelled the task.
func (h *Handle) OnCancel(fn func(cause error)) {
	h.mu.Lock()
	if h.fired {
		h.mu.Unlock()
		fn(h.cause)
		return
	}
	switch h.state.Load() {
	case statePending, stateCancelled:
		h.hooks = append(h.hooks, fn)
	}
	h.mu.Unlock()
}

// Cancelled reports whether the task was cancelled before it started.
func (h *Handle) Cancelled() bool {
	return h.state.Load() == stateCancelled
}

// Done is closed when the task finished or was cancelled.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Err returns the task's error once Done is closed. A cancelled task
// reports its cause: ErrTaskCancelled, also wrapping ErrSchedulerClosed when
// a shutdown dropped it. A task still pending or running reports nil.
func (h *Handle) Err() error {
	select {
	case <-h.done:
	default:
		return nil
	}
	if h.state.Load() == stateCancelled {
		return h.cause
	}
	return h.err
}

// begin moves the handle to running. It fails when the task was cancelled.
func (h *Handle) begin() bool {
	if !h.state.CompareAndSwap(statePending, stateRunning) {
		return false
	}
	h.mu.Lock()
	h.hooks = nil
	h.mu.Unlock()
	return true
}

func (h *Handle) finish(err error) {
	h.err = err
	h.state.Store(stateDone)
	close(h.done)
}
