package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	rxcontext "github.com/vnykmshr/rxflow/pkg/common/context"
)

// spawner owns goroutine-backed execution contexts that are created on
// demand. It backs the cached and thread-per-task policies.
type spawner struct {
	s       *scheduler
	next    atomic.Int64
	wg      sync.WaitGroup
	baseCtx context.Context
	cancel  context.CancelFunc
	stop    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func newSpawner(s *scheduler) *spawner {
	ctx, cancel := context.WithCancel(context.Background())
	return &spawner{
		s:       s,
		baseCtx: ctx,
		cancel:  cancel,
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// spawn starts a new named execution context running loop.
func (sp *spawner) spawn(loop func(ctx context.Context)) {
	name := contextName(sp.s.name, sp.next.Add(1))
	sp.wg.Add(1)
	sp.s.contextStarted()
	go func() {
		defer sp.wg.Done()
		defer sp.s.contextStopped()
		loop(rxcontext.WithExecutionContext(sp.baseCtx, name))
	}()
}

func (sp *spawner) shutdown() <-chan struct{} {
	sp.once.Do(func() {
		close(sp.stop)
		go func() {
			sp.wg.Wait()
			sp.cancel()
			close(sp.stopped)
		}()
	})
	return sp.stopped
}

// shutdownNow cancels running tasks' contexts. Spawned contexts never hold
// queued work, so there is nothing to drop.
func (sp *spawner) shutdownNow() <-chan struct{} {
	done := sp.shutdown()
	sp.cancel()
	return done
}

// NewCached creates a scheduler that hands each task to an idle execution
// context when one is waiting and starts a new context otherwise. Idle
// contexts are discarded after the keep-alive (WithKeepAlive, default 60s).
//
// The number of contexts is unbounded: sustained concurrent blocking work
// grows it without limit.
func NewCached(name string, opts ...Option) Scheduler {
	s := newScheduler(name, PolicyCached, opts)
	s.exec = &cachedExecutor{
		spawner:   newSpawner(s),
		handoff:   make(chan *job),
		keepAlive: s.opts.keepAlive,
	}
	return s
}

type cachedExecutor struct {
	*spawner
	handoff   chan *job
	keepAlive time.Duration
}

func (e *cachedExecutor) dispatch(j *job) error {
	select {
	case e.handoff <- j:
		return nil
	default:
	}
	e.spawn(func(ctx context.Context) { e.loop(ctx, j) })
	return nil
}

// loop runs first, then waits for handed-off jobs until the context has
// been idle for keepAlive or the scheduler stops.
func (e *cachedExecutor) loop(ctx context.Context, first *job) {
	idle := time.NewTimer(e.keepAlive)
	defer idle.Stop()

	j := first
	for {
		e.s.run(ctx, j)
		idle.Reset(e.keepAlive)

		select {
		case j = <-e.handoff:
		case <-idle.C:
			return
		case <-e.stop:
			return
		}
	}
}

// NewThreadPerTask creates a scheduler that starts a fresh execution
// context for every task and discards it when the task completes.
func NewThreadPerTask(name string, opts ...Option) Scheduler {
	s := newScheduler(name, PolicyThreadPerTask, opts)
	s.exec = &threadPerTaskExecutor{spawner: newSpawner(s)}
	return s
}

type threadPerTaskExecutor struct {
	*spawner
}

func (e *threadPerTaskExecutor) dispatch(j *job) error {
	e.spawn(func(ctx context.Context) { e.s.run(ctx, j) })
	return nil
}
