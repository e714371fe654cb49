package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vnykmshr/rxflow/internal/testutil"
	rxcontext "github.com/vnykmshr/rxflow/pkg/common/context"
	rferrors "github.com/vnykmshr/rxflow/pkg/common/errors"
	"github.com/vnykmshr/rxflow/pkg/logger"
	"github.com/vnykmshr/rxflow/pkg/metrics"
	"github.com/vnykmshr/rxflow/pkg/scheduling/workerpool"
)

func noop() workerpool.Task {
	return workerpool.TaskFunc(func(context.Context) error { return nil })
}

// blocker returns a task that blocks until release is closed or its
// context ends, plus a channel closed once it started.
func blocker(release <-chan struct{}) (workerpool.Task, <-chan struct{}) {
	started := make(chan struct{})
	return workerpool.TaskFunc(func(ctx context.Context) error {
		close(started)
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}), started
}

func waitHandle(t *testing.T, h *Handle) {
	t.Helper()
	testutil.WaitClosed(t, h.Done())
}

func TestPolicyString(t *testing.T) {
	tests := []struct {
		policy Policy
		want   string
	}{
		{PolicyFixed, "fixed"},
		{PolicyCached, "cached"},
		{PolicySingle, "single"},
		{PolicyThreadPerTask, "thread-per-task"},
		{Policy(42), "Policy(42)"},
	}
	for _, tt := range tests {
		testutil.AssertEqual(t, tt.policy.String(), tt.want)
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		sched  Scheduler
		policy Policy
	}{
		{"fixed", NewFixed("fixed", 2), PolicyFixed},
		{"cached", NewCached("cached"), PolicyCached},
		{"single", NewSingle("single"), PolicySingle},
		{"thread-per-task", NewThreadPerTask("tpt"), PolicyThreadPerTask},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutil.AssertEqual(t, tt.sched.Policy(), tt.policy)
			testutil.AssertEqual(t, tt.sched.IsShutdown(), false)
			testutil.WaitClosed(t, tt.sched.Shutdown())
			testutil.AssertEqual(t, tt.sched.IsShutdown(), true)
		})
	}
}

func TestNewFixedInvalidSize(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic")
		}
	}()
	NewFixed("bad", 0)
}

func TestSubmitRunsOnNamedContext(t *testing.T) {
	tests := []struct {
		sched  Scheduler
		prefix string
	}{
		{NewFixed("computation", 3), "rxflow-computation-"},
		{NewCached("io"), "rxflow-io-"},
		{NewSingle("single"), "rxflow-single-1"},
		{NewThreadPerTask("new-thread"), "rxflow-new-thread-"},
	}
	for _, tt := range tests {
		t.Run(tt.sched.Policy().String(), func(t *testing.T) {
			defer func() { <-tt.sched.Shutdown() }()

			var name atomic.Value
			h, err := tt.sched.Submit(workerpool.TaskFunc(func(ctx context.Context) error {
				name.Store(rxcontext.ExecutionContext(ctx))
				return nil
			}))
			testutil.AssertNoError(t, err)
			waitHandle(t, h)
			testutil.AssertNoError(t, h.Err())

			got := name.Load().(string)
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("context %q does not start with %q", got, tt.prefix)
			}
		})
	}
}

func TestSubmitNeverRunsInline(t *testing.T) {
	for _, s := range []Scheduler{NewFixed("f", 1), NewCached("c"), NewSingle("s"), NewThreadPerTask("t")} {
		var ran atomic.Bool
		h, err := s.Submit(workerpool.TaskFunc(func(ctx context.Context) error {
			if !rxcontext.OnExecutionContext(ctx) {
				t.Errorf("%s: task ran on the caller", s.Name())
			}
			ran.Store(true)
			return nil
		}))
		testutil.AssertNoError(t, err)
		waitHandle(t, h)
		testutil.AssertEqual(t, ran.Load(), true)
		<-s.Shutdown()
	}
}

func TestFixedBoundsConcurrency(t *testing.T) {
	s := NewFixed("bounded", 3)
	defer func() { <-s.Shutdown() }()

	var running, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		_, err := s.Submit(workerpool.TaskFunc(func(context.Context) error {
			defer wg.Done()
			n := atomic.AddInt32(&running, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&running, -1)
			return nil
		}))
		testutil.AssertNoError(t, err)
	}
	wg.Wait()

	if p := atomic.LoadInt32(&peak); p > 3 {
		t.Fatalf("peak concurrency %d exceeds 3", p)
	}
	testutil.AssertEqual(t, s.Stats().ContextsCreated, int64(3))
}

func TestSingleRunsInSubmissionOrder(t *testing.T) {
	s := NewSingle("ordered")

	var got testutil.Recorder[int]
	for i := 0; i < 500; i++ {
		i := i
		_, err := s.Submit(workerpool.TaskFunc(func(context.Context) error {
			got.Add(i)
			return nil
		}))
		testutil.AssertNoError(t, err)
	}
	<-s.Shutdown()

	values := got.Values()
	testutil.AssertEqual(t, len(values), 500)
	for i, v := range values {
		if v != i {
			t.Fatalf("position %d: got %d", i, v)
		}
	}
}

func TestCachedReusesIdleContext(t *testing.T) {
	s := NewCached("reuse")
	defer func() { <-s.Shutdown() }()

	for i := 0; i < 5; i++ {
		h, err := s.Submit(noop())
		testutil.AssertNoError(t, err)
		waitHandle(t, h)
		// Give the context time to park waiting for more work.
		time.Sleep(10 * time.Millisecond)
	}
	testutil.AssertEqual(t, s.Stats().ContextsCreated, int64(1))
}

func TestCachedGrowsUnderConcurrentLoad(t *testing.T) {
	s := NewCached("grow")

	release := make(chan struct{})
	var started []<-chan struct{}
	for i := 0; i < 5; i++ {
		task, st := blocker(release)
		_, err := s.Submit(task)
		testutil.AssertNoError(t, err)
		started = append(started, st)
	}
	for _, st := range started {
		testutil.WaitClosed(t, st)
	}
	testutil.AssertEqual(t, s.Stats().ExecutionContexts, int64(5))

	close(release)
	<-s.Shutdown()
	testutil.AssertEqual(t, s.Stats().ExecutionContexts, int64(0))
}

func TestCachedDiscardsIdleContexts(t *testing.T) {
	s := NewCached("shrink", WithKeepAlive(20*time.Millisecond))
	defer func() { <-s.Shutdown() }()

	h, err := s.Submit(noop())
	testutil.AssertNoError(t, err)
	waitHandle(t, h)

	testutil.Eventually(t, func() bool {
		return s.Stats().ExecutionContexts == 0
	}, time.Second, 5*time.Millisecond)
}

func TestThreadPerTaskUsesFreshContexts(t *testing.T) {
	s := NewThreadPerTask("fresh")

	var names sync.Map
	var handles []*Handle
	for i := 0; i < 10; i++ {
		h, err := s.Submit(workerpool.TaskFunc(func(ctx context.Context) error {
			names.Store(rxcontext.ExecutionContext(ctx), true)
			return nil
		}))
		testutil.AssertNoError(t, err)
		handles = append(handles, h)
	}
	for _, h := range handles {
		waitHandle(t, h)
	}
	<-s.Shutdown()

	count := 0
	names.Range(func(_, _ interface{}) bool {
		count++
		return true
	})
	testutil.AssertEqual(t, count, 10)
	testutil.AssertEqual(t, s.Stats().ContextsCreated, int64(10))
	testutil.AssertEqual(t, s.Stats().ExecutionContexts, int64(0))
}

func TestSubmitAfterShutdownRejected(t *testing.T) {
	for _, s := range []Scheduler{NewFixed("f", 1), NewCached("c"), NewSingle("s"), NewThreadPerTask("t")} {
		<-s.Shutdown()

		h, err := s.Submit(noop())
		testutil.AssertErrorIs(t, err, rferrors.ErrSchedulerClosed)
		testutil.AssertEqual(t, h == nil, true)

		_, err = s.SubmitAfter(noop(), time.Millisecond)
		testutil.AssertErrorIs(t, err, rferrors.ErrSchedulerClosed)
		testutil.AssertEqual(t, s.Stats().Rejected, int64(2))
	}
}

func TestSubmitNilTask(t *testing.T) {
	s := NewSingle("nil")
	defer func() { <-s.Shutdown() }()

	_, err := s.Submit(nil)
	testutil.AssertErrorIs(t, err, rferrors.ErrInvalidConfiguration)
}

func TestSubmitFromOwnContext(t *testing.T) {
	s := NewSingle("reentrant")
	defer func() { <-s.Shutdown() }()

	inner := make(chan *Handle, 1)
	h, err := s.Submit(workerpool.TaskFunc(func(context.Context) error {
		ih, err := s.Submit(noop())
		inner <- ih
		return err
	}))
	testutil.AssertNoError(t, err)
	waitHandle(t, h)
	testutil.AssertNoError(t, h.Err())
	waitHandle(t, <-inner)
}

func TestHandleCancelBeforeStart(t *testing.T) {
	s := NewSingle("cancel")
	defer func() { <-s.Shutdown() }()

	release := make(chan struct{})
	first, started := blocker(release)
	_, err := s.Submit(first)
	testutil.AssertNoError(t, err)
	testutil.WaitClosed(t, started)

	var ran atomic.Bool
	h, err := s.Submit(workerpool.TaskFunc(func(context.Context) error {
		ran.Store(true)
		return nil
	}))
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, h.Cancel(), true)
	testutil.AssertEqual(t, h.Cancel(), false)
	testutil.AssertEqual(t, h.Cancelled(), true)
	testutil.AssertErrorIs(t, h.Err(), rferrors.ErrTaskCancelled)
	waitHandle(t, h)

	close(release)
	last, err := s.Submit(noop())
	testutil.AssertNoError(t, err)
	waitHandle(t, last)

	testutil.AssertEqual(t, ran.Load(), false)
	testutil.AssertEqual(t, s.Stats().Cancelled, int64(1))
}

func TestHandleCancelAfterStartHasNoEffect(t *testing.T) {
	s := NewFixed("started", 1)
	defer func() { <-s.Shutdown() }()

	release := make(chan struct{})
	task, started := blocker(release)
	h, err := s.Submit(task)
	testutil.AssertNoError(t, err)
	testutil.WaitClosed(t, started)

	testutil.AssertEqual(t, h.Cancel(), false)
	close(release)
	waitHandle(t, h)
	testutil.AssertNoError(t, h.Err())
}

func TestHandleOnCancel(t *testing.T) {
	t.Run("pending", func(t *testing.T) {
		h := newHandle(1, nil)
		var causes testutil.Recorder[error]
		h.OnCancel(causes.Add)
		h.OnCancel(causes.Add)

		testutil.AssertEqual(t, h.drop(), true)
		testutil.AssertEqual(t, h.Cancel(), false)
		testutil.AssertEqual(t, causes.Len(), 2)
		for _, err := range causes.Values() {
			testutil.AssertErrorIs(t, err, rferrors.ErrSchedulerClosed)
		}
		testutil.AssertErrorIs(t, h.Err(), rferrors.ErrTaskCancelled)
	})

	t.Run("already cancelled", func(t *testing.T) {
		h := newHandle(1, nil)
		h.Cancel()
		var got error
		h.OnCancel(func(cause error) { got = cause })
		testutil.AssertErrorIs(t, got, rferrors.ErrTaskCancelled)
	})

	t.Run("started", func(t *testing.T) {
		h := newHandle(1, nil)
		var fired atomic.Bool
		h.OnCancel(func(error) { fired.Store(true) })
		testutil.AssertEqual(t, h.begin(), true)
		h.OnCancel(func(error) { fired.Store(true) })
		testutil.AssertEqual(t, h.Cancel(), false)
		h.finish(nil)
		testutil.AssertEqual(t, fired.Load(), false)
		testutil.AssertNoError(t, h.Err())
	})
}

func TestFailingTaskKeepsContextAlive(t *testing.T) {
	out := testutil.NewMockWriter()
	log := logger.NewWithWriter(out, logger.Config{Level: "warn", NoColor: true})
	s := NewSingle("failing", WithLogger(log))
	defer func() { <-s.Shutdown() }()

	boom, err := s.Submit(workerpool.TaskFunc(func(context.Context) error {
		panic("boom")
	}))
	testutil.AssertNoError(t, err)
	failed, err := s.Submit(workerpool.TaskFunc(func(context.Context) error {
		return errors.New("plain failure")
	}))
	testutil.AssertNoError(t, err)
	ok, err := s.Submit(noop())
	testutil.AssertNoError(t, err)

	waitHandle(t, ok)
	testutil.AssertErrorIs(t, boom.Err(), rferrors.ErrTaskPanicked)
	testutil.AssertError(t, failed.Err())
	testutil.AssertNoError(t, ok.Err())

	stats := s.Stats()
	testutil.AssertEqual(t, stats.Failed, int64(2))
	testutil.AssertEqual(t, stats.Completed, int64(1))
	testutil.AssertEqual(t, stats.ContextsCreated, int64(1))

	if !strings.Contains(out.String(), "task failed") {
		t.Errorf("expected failure to be logged, got %q", out.String())
	}
	if !strings.Contains(out.String(), "rxflow-failing-1") {
		t.Errorf("expected log to name the context, got %q", out.String())
	}
}

func TestTaskTimeout(t *testing.T) {
	s := NewThreadPerTask("timeout", WithTaskTimeout(10*time.Millisecond))
	defer func() { <-s.Shutdown() }()

	h, err := s.Submit(workerpool.TaskFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))
	testutil.AssertNoError(t, err)
	waitHandle(t, h)
	testutil.AssertErrorIs(t, h.Err(), context.DeadlineExceeded)
}

func TestSubmitAfter(t *testing.T) {
	s := NewFixed("delayed", 2)
	defer func() { <-s.Shutdown() }()

	start := time.Now()
	h, err := s.SubmitAfter(noop(), 20*time.Millisecond)
	testutil.AssertNoError(t, err)
	waitHandle(t, h)
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("delayed task ran after %v", elapsed)
	}

	var ran atomic.Bool
	cancelled, err := s.SubmitAfter(workerpool.TaskFunc(func(context.Context) error {
		ran.Store(true)
		return nil
	}), 20*time.Millisecond)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, cancelled.Cancel(), true)
	time.Sleep(40 * time.Millisecond)
	testutil.AssertEqual(t, ran.Load(), false)

	immediate, err := s.SubmitAfter(noop(), 0)
	testutil.AssertNoError(t, err)
	waitHandle(t, immediate)
}

func TestShutdownCancelsDelayedTasks(t *testing.T) {
	s := NewCached("delayed-shutdown")

	h, err := s.SubmitAfter(noop(), time.Hour)
	testutil.AssertNoError(t, err)

	testutil.WaitClosed(t, s.Shutdown())
	testutil.AssertEqual(t, h.Cancelled(), true)
	testutil.AssertEqual(t, s.Stats().Cancelled, int64(1))
}

func TestShutdownDrainsQueuedTasks(t *testing.T) {
	s := NewFixed("drain", 1)

	var executed int32
	for i := 0; i < 20; i++ {
		_, err := s.Submit(workerpool.TaskFunc(func(context.Context) error {
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&executed, 1)
			return nil
		}))
		testutil.AssertNoError(t, err)
	}
	testutil.WaitClosed(t, s.Shutdown())
	testutil.AssertEqual(t, atomic.LoadInt32(&executed), int32(20))
}

func TestShutdownNowDropsQueuedTasks(t *testing.T) {
	s := NewFixed("forced", 1)

	release := make(chan struct{})
	defer close(release)
	task, started := blocker(release)
	running, err := s.Submit(task)
	testutil.AssertNoError(t, err)
	testutil.WaitClosed(t, started)

	var queued []*Handle
	for i := 0; i < 5; i++ {
		h, err := s.Submit(noop())
		testutil.AssertNoError(t, err)
		queued = append(queued, h)
	}

	testutil.WaitClosed(t, s.ShutdownNow())
	testutil.AssertErrorIs(t, running.Err(), context.Canceled)
	for _, h := range queued {
		testutil.AssertEqual(t, h.Cancelled(), true)
		testutil.AssertErrorIs(t, h.Err(), rferrors.ErrSchedulerClosed)
	}
	testutil.AssertEqual(t, s.Stats().Cancelled, int64(5))
}

func TestShutdownNowCancelsSpawnedContexts(t *testing.T) {
	for _, s := range []Scheduler{NewCached("c"), NewThreadPerTask("t")} {
		release := make(chan struct{})
		task, started := blocker(release)
		h, err := s.Submit(task)
		testutil.AssertNoError(t, err)
		testutil.WaitClosed(t, started)

		testutil.WaitClosed(t, s.ShutdownNow())
		testutil.AssertErrorIs(t, h.Err(), context.Canceled)
		close(release)
	}
}

func TestSchedulerMetrics(t *testing.T) {
	m := metrics.NewRegistry(prometheus.NewRegistry())
	s := NewFixed("metered", 2, WithMetrics(m))

	for i := 0; i < 4; i++ {
		_, err := s.Submit(noop())
		testutil.AssertNoError(t, err)
	}
	_, err := s.Submit(workerpool.TaskFunc(func(context.Context) error {
		return errors.New("fail")
	}))
	testutil.AssertNoError(t, err)
	<-s.Shutdown()
	_, _ = s.Submit(noop())

	testutil.AssertEqual(t, promtest.ToFloat64(m.TasksSubmitted.WithLabelValues("metered")), float64(5))
	testutil.AssertEqual(t, promtest.ToFloat64(m.TasksCompleted.WithLabelValues("metered")), float64(4))
	testutil.AssertEqual(t, promtest.ToFloat64(m.TasksFailed.WithLabelValues("metered")), float64(1))
	testutil.AssertEqual(t, promtest.ToFloat64(m.TasksRejected.WithLabelValues("metered")), float64(1))
	testutil.AssertEqual(t, promtest.ToFloat64(m.ExecutionContexts.WithLabelValues("metered")), float64(0))
	testutil.AssertEqual(t, promtest.ToFloat64(m.QueuedTasks.WithLabelValues("metered")), float64(0))
	testutil.AssertEqual(t, promtest.ToFloat64(m.ActiveTasks.WithLabelValues("metered")), float64(0))
}
