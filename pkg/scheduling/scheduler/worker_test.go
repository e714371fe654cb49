package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vnykmshr/rxflow/internal/testutil"
	rferrors "github.com/vnykmshr/rxflow/pkg/common/errors"
	"github.com/vnykmshr/rxflow/pkg/scheduling/workerpool"
)

func TestWorkerPreservesOrderWithoutOverlap(t *testing.T) {
	for _, s := range []Scheduler{NewFixed("fixed", 6), NewCached("cached"), NewThreadPerTask("tpt")} {
		t.Run(s.Policy().String(), func(t *testing.T) {
			defer func() { <-s.Shutdown() }()

			w := s.Worker()
			defer w.Dispose()

			const n = 1000
			var (
				order   testutil.Recorder[int]
				running int32
				overlap atomic.Bool
				last    *Handle
			)
			for i := 0; i < n; i++ {
				i := i
				h, err := w.Schedule(workerpool.TaskFunc(func(context.Context) error {
					if atomic.AddInt32(&running, 1) != 1 {
						overlap.Store(true)
					}
					order.Add(i)
					atomic.AddInt32(&running, -1)
					return nil
				}))
				testutil.AssertNoError(t, err)
				last = h
			}
			waitHandle(t, last)

			testutil.AssertEqual(t, overlap.Load(), false)
			values := order.Values()
			testutil.AssertEqual(t, len(values), n)
			for i, v := range values {
				if v != i {
					t.Fatalf("position %d: got %d", i, v)
				}
			}
		})
	}
}

func TestWorkerHandleSequence(t *testing.T) {
	s := NewSingle("seq")
	defer func() { <-s.Shutdown() }()

	w := s.Worker()
	defer w.Dispose()

	first, err := w.Schedule(noop())
	testutil.AssertNoError(t, err)
	second, err := w.Schedule(noop())
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, first.Seq(), uint64(1))
	testutil.AssertEqual(t, second.Seq(), uint64(2))
	waitHandle(t, second)
}

func TestWorkerDisposeCancelsPending(t *testing.T) {
	s := NewFixed("dispose", 2)
	defer func() { <-s.Shutdown() }()

	w := s.Worker()
	release := make(chan struct{})
	task, started := blocker(release)
	running, err := w.Schedule(task)
	testutil.AssertNoError(t, err)
	testutil.WaitClosed(t, started)

	var ran atomic.Bool
	pending, err := w.Schedule(workerpool.TaskFunc(func(context.Context) error {
		ran.Store(true)
		return nil
	}))
	testutil.AssertNoError(t, err)

	w.Dispose()
	w.Dispose()
	testutil.AssertEqual(t, pending.Cancelled(), true)

	_, err = w.Schedule(noop())
	testutil.AssertErrorIs(t, err, rferrors.ErrSchedulerClosed)

	close(release)
	waitHandle(t, running)
	testutil.AssertNoError(t, running.Err())
	time.Sleep(10 * time.Millisecond)
	testutil.AssertEqual(t, ran.Load(), false)
}

func TestWorkerOnShutdownScheduler(t *testing.T) {
	s := NewSingle("closed")
	<-s.Shutdown()

	w := s.Worker()
	_, err := w.Schedule(noop())
	testutil.AssertErrorIs(t, err, rferrors.ErrSchedulerClosed)

	// The worker disposed itself.
	_, err = w.Schedule(noop())
	testutil.AssertErrorIs(t, err, rferrors.ErrSchedulerClosed)
}

func TestWorkerDrainsAcrossGracefulShutdown(t *testing.T) {
	s := NewFixed("graceful", 2)

	w := s.Worker()
	release := make(chan struct{})
	task, started := blocker(release)
	_, err := w.Schedule(task)
	testutil.AssertNoError(t, err)
	testutil.WaitClosed(t, started)

	var executed int32
	var last *Handle
	for i := 0; i < 10; i++ {
		last, err = w.Schedule(workerpool.TaskFunc(func(context.Context) error {
			atomic.AddInt32(&executed, 1)
			return nil
		}))
		testutil.AssertNoError(t, err)
	}

	done := s.Shutdown()
	close(release)
	testutil.WaitClosed(t, done)
	waitHandle(t, last)
	testutil.AssertEqual(t, atomic.LoadInt32(&executed), int32(10))
}

func TestWorkerStepDroppedByShutdownNow(t *testing.T) {
	s := NewSingle("forced")

	release := make(chan struct{})
	defer close(release)
	task, started := blocker(release)
	_, err := s.Submit(task)
	testutil.AssertNoError(t, err)
	testutil.WaitClosed(t, started)

	w := s.Worker()
	var pending []*Handle
	for i := 0; i < 3; i++ {
		h, err := w.Schedule(noop())
		testutil.AssertNoError(t, err)
		pending = append(pending, h)
	}

	testutil.WaitClosed(t, s.ShutdownNow())
	for _, h := range pending {
		waitHandle(t, h)
		testutil.AssertEqual(t, h.Cancelled(), true)
		testutil.AssertErrorIs(t, h.Err(), rferrors.ErrTaskCancelled)
		testutil.AssertErrorIs(t, h.Err(), rferrors.ErrSchedulerClosed)
	}

	_, err = w.Schedule(noop())
	testutil.AssertErrorIs(t, err, rferrors.ErrSchedulerClosed)
}

func TestWorkerCancelsRestAfterShutdownNow(t *testing.T) {
	s := NewFixed("forced", 1)

	w := s.Worker()
	release := make(chan struct{})
	defer close(release)
	task, started := blocker(release)
	running, err := w.Schedule(task)
	testutil.AssertNoError(t, err)
	testutil.WaitClosed(t, started)

	var ran atomic.Bool
	next, err := w.Schedule(workerpool.TaskFunc(func(context.Context) error {
		ran.Store(true)
		return nil
	}))
	testutil.AssertNoError(t, err)

	testutil.WaitClosed(t, s.ShutdownNow())
	waitHandle(t, running)
	testutil.AssertErrorIs(t, running.Err(), context.Canceled)
	waitHandle(t, next)
	testutil.AssertErrorIs(t, next.Err(), rferrors.ErrSchedulerClosed)
	testutil.AssertEqual(t, ran.Load(), false)

	_, err = w.Schedule(noop())
	testutil.AssertErrorIs(t, err, rferrors.ErrSchedulerClosed)
}

func TestWorkersAreIndependent(t *testing.T) {
	s := NewFixed("independent", 2)
	defer func() { <-s.Shutdown() }()

	release := make(chan struct{})
	blocked := s.Worker()
	defer blocked.Dispose()
	task, started := blocker(release)
	_, err := blocked.Schedule(task)
	testutil.AssertNoError(t, err)
	testutil.WaitClosed(t, started)

	// A second worker on the same scheduler is not held up by the first.
	free := s.Worker()
	defer free.Dispose()
	h, err := free.Schedule(noop())
	testutil.AssertNoError(t, err)
	waitHandle(t, h)

	close(release)
}

func TestWorkerTaskPanicDoesNotStopWorker(t *testing.T) {
	s := NewSingle("panicky")
	defer func() { <-s.Shutdown() }()

	w := s.Worker()
	defer w.Dispose()

	boom, err := w.Schedule(workerpool.TaskFunc(func(context.Context) error {
		panic("boom")
	}))
	testutil.AssertNoError(t, err)
	next, err := w.Schedule(noop())
	testutil.AssertNoError(t, err)

	waitHandle(t, next)
	testutil.AssertErrorIs(t, boom.Err(), rferrors.ErrTaskPanicked)
	testutil.AssertNoError(t, next.Err())
}
