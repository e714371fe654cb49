package scheduler

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	rferrors "github.com/vnykmshr/rxflow/pkg/common/errors"
)

// Well-known scheduler names.
const (
	NameComputation = "computation"
	NameIO          = "io"
	NameSingle      = "single"
	NameNewThread   = "new-thread"
)

// HostParallelism reports how many tasks the host can run in parallel. The
// computation scheduler is sized by it unless configured explicitly.
var HostParallelism = func() int {
	return runtime.GOMAXPROCS(0)
}

// RegistryConfig sizes the well-known schedulers.
type RegistryConfig struct {
	// ComputationWorkers fixes the computation pool size. Zero means HostParallelism().
	ComputationWorkers int

	// IOKeepAlive is the idle lifetime of io contexts. Zero means DefaultKeepAlive.
	IOKeepAlive time.Duration

	// TaskTimeout bounds every task on every well-known scheduler. Zero means none.
	TaskTimeout time.Duration
}

// Registry maps well-known names to lazily constructed schedulers. Each
// scheduler is built at most once, on first access.
type Registry struct {
	entries map[string]*entry
	used    atomic.Bool
}

type entry struct {
	once  sync.Once
	build func() Scheduler
	sched Scheduler
	built atomic.Bool
}

func (e *entry) get() Scheduler {
	e.once.Do(func() {
		e.sched = e.build()
		e.built.Store(true)
	})
	return e.sched
}

// NewRegistry creates an isolated registry. opts apply to every scheduler it builds.
func NewRegistry(cfg RegistryConfig, opts ...Option) *Registry {
	withTimeout := func(extra ...Option) []Option {
		all := append([]Option{}, opts...)
		all = append(all, WithTaskTimeout(cfg.TaskTimeout))
		return append(all, extra...)
	}

	return &Registry{
		entries: map[string]*entry{
			NameComputation: {build: func() Scheduler {
				n := cfg.ComputationWorkers
				if n <= 0 {
					n = HostParallelism()
				}
				if n < 1 {
					n = 1
				}
				return NewFixed(NameComputation, n, withTimeout()...)
			}},
			NameIO: {build: func() Scheduler {
				return NewCached(NameIO, withTimeout(WithKeepAlive(cfg.IOKeepAlive))...)
			}},
			NameSingle: {build: func() Scheduler {
				return NewSingle(NameSingle, withTimeout()...)
			}},
			NameNewThread: {build: func() Scheduler {
				return NewThreadPerTask(NameNewThread, withTimeout()...)
			}},
		},
	}
}

// Get returns the scheduler registered under name, building it on first use.
func (r *Registry) Get(name string) (Scheduler, error) {
	e, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("scheduler %q: %w", name, rferrors.ErrUnknownScheduler)
	}
	r.used.Store(true)
	return e.get(), nil
}

func (r *Registry) mustGet(name string) Scheduler {
	s, err := r.Get(name)
	if err != nil {
		panic(err)
	}
	return s
}

// Computation returns the fixed pool sized for CPU-bound work.
func (r *Registry) Computation() Scheduler { return r.mustGet(NameComputation) }

// IO returns the cached pool for blocking work.
func (r *Registry) IO() Scheduler { return r.mustGet(NameIO) }

// Single returns the single-context scheduler.
func (r *Registry) Single() Scheduler { return r.mustGet(NameSingle) }

// NewThread returns the thread-per-task scheduler.
func (r *Registry) NewThread() Scheduler { return r.mustGet(NameNewThread) }

// Names lists the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Shutdown gracefully shuts down every scheduler built so far and waits for
// them concurrently. It returns ctx.Err() if ctx ends first.
func (r *Registry) Shutdown(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, name := range r.Names() {
		e := r.entries[name]
		if !e.built.Load() {
			continue
		}
		s := e.sched
		g.Go(func() error {
			select {
			case <-s.Shutdown():
				return nil
			case <-ctx.Done():
				return fmt.Errorf("shutting down %s: %w", s.Name(), ctx.Err())
			}
		})
	}
	return g.Wait()
}

var (
	defaultMu       sync.Mutex
	defaultRegistry = NewRegistry(RegistryConfig{})
)

// Default returns the process-wide registry.
func Default() *Registry {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultRegistry
}

// ConfigureDefault replaces the process-wide registry. It fails with
// ErrRegistryInUse once any scheduler has been requested from it.
func ConfigureDefault(cfg RegistryConfig, opts ...Option) error {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultRegistry.used.Load() {
		return rferrors.ErrRegistryInUse
	}
	defaultRegistry = NewRegistry(cfg, opts...)
	return nil
}

// Get returns a well-known scheduler from the process-wide registry. The
// lookup holds the default lock so ConfigureDefault cannot swap the
// registry between choosing it and marking it used.
func Get(name string) (Scheduler, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultRegistry.Get(name)
}

func mustGetDefault(name string) Scheduler {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultRegistry.mustGet(name)
}

// Computation returns the process-wide computation scheduler.
func Computation() Scheduler { return mustGetDefault(NameComputation) }

// IO returns the process-wide io scheduler.
func IO() Scheduler { return mustGetDefault(NameIO) }

// Single returns the process-wide single scheduler.
func Single() Scheduler { return mustGetDefault(NameSingle) }

// NewThread returns the process-wide new-thread scheduler.
func NewThread() Scheduler { return mustGetDefault(NameNewThread) }
