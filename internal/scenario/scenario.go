// Package scenario runs the demonstration pipelines behind the rxflow CLI:
// five heroes produced and consumed under different scheduler placements.
package scenario

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	rxcontext "github.com/vnykmshr/rxflow/pkg/common/context"
	rferrors "github.com/vnykmshr/rxflow/pkg/common/errors"
	"github.com/vnykmshr/rxflow/pkg/logger"
	"github.com/vnykmshr/rxflow/pkg/metrics"
	"github.com/vnykmshr/rxflow/pkg/scheduling/pipeline"
	"github.com/vnykmshr/rxflow/pkg/scheduling/scheduler"
)

// Scenario names.
const (
	Sync     = "sync"
	Async    = "async"
	Blocking = "blocking"
	Rehome   = "rehome"
)

// Heroes is the list every scenario emits.
var Heroes = []string{"Superman", "Batman", "Aquaman", "Asterix", "Captain America"}

// BlockingDelay is how long the blocking producer sleeps before each emission.
const BlockingDelay = 30 * time.Millisecond

// RehomeWorkers sizes the delivery pool of the rehome scenario.
const RehomeWorkers = 6

// Env carries what a scenario needs from its host.
type Env struct {
	Log      *logger.Logger
	Registry *scheduler.Registry
	Metrics  *metrics.Registry
}

// Report describes one finished scenario run.
type Report struct {
	Scenario string
	State    pipeline.State
	Err      error
	Received []string
	Contexts []string // execution context of each delivery
	Elapsed  time.Duration
	// StartReturned is the time from the start of the run until Start returned.
	StartReturned time.Duration
}

type runner func(ctx context.Context, env Env) (*Report, error)

var scenarios = map[string]runner{
	Sync:     runSync,
	Async:    runAsync,
	Blocking: runBlocking,
	Rehome:   runRehome,
}

// Names lists the known scenarios in sorted order.
func Names() []string {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes the named scenario and waits for its pipeline to terminate.
func Run(ctx context.Context, name string, env Env) (*Report, error) {
	run, ok := scenarios[name]
	if !ok {
		return nil, fmt.Errorf("scenario %q: %w", name, rferrors.ErrInvalidConfiguration)
	}
	if env.Log == nil {
		env.Log = logger.Nop()
	}
	if env.Registry == nil {
		env.Registry = scheduler.Default()
	}
	report, err := run(ctx, env)
	if report != nil {
		report.Scenario = name
	}
	return report, err
}

// Producer emits the heroes, sleeping delay before each one.
func Producer(log *logger.Logger, delay time.Duration) pipeline.Producer[string] {
	return pipeline.ProducerFunc[string](func(ctx context.Context, emit pipeline.Emitter[string]) error {
		for _, hero := range Heroes {
			if delay > 0 {
				t := time.NewTimer(delay)
				select {
				case <-ctx.Done():
					t.Stop()
					return ctx.Err()
				case <-t.C:
				}
			}
			log.Event(ctx, "Emitting: "+hero)
			if err := emit(hero); err != nil {
				return err
			}
		}
		log.Event(ctx, "Completing")
		return nil
	})
}

// collector is the logging consumer shared by all scenarios.
type collector struct {
	log      *logger.Logger
	mu       sync.Mutex
	received []string
	contexts []string
}

func (c *collector) OnNext(ctx context.Context, hero string) error {
	c.log.Event(ctx, "Received "+hero)
	c.mu.Lock()
	c.received = append(c.received, hero)
	c.contexts = append(c.contexts, rxcontext.ExecutionContext(ctx))
	c.mu.Unlock()
	return nil
}

func (c *collector) OnError(ctx context.Context, err error) {
	c.log.Event(ctx, "Error: "+err.Error())
}

func (c *collector) OnComplete(ctx context.Context) {
	c.log.Event(ctx, "Complete")
}

// execute starts p, waits for it and fills in the report.
func execute(ctx context.Context, env Env, p *pipeline.Pipeline[string], c *collector) (*Report, error) {
	ctx = rxcontext.WithExecutionContext(ctx, rxcontext.CallerName)
	begin := time.Now()

	env.Log.Event(ctx, "---------------- Subscribing")
	if err := p.Start(ctx); err != nil {
		return nil, err
	}
	startReturned := time.Since(begin)
	env.Log.Event(ctx, "---------------- Subscribed")

	state, err := p.Wait(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		p.Cancel()
		return nil, ctxErr
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return &Report{
		State:         state,
		Err:           err,
		Received:      append([]string(nil), c.received...),
		Contexts:      append([]string(nil), c.contexts...),
		Elapsed:       time.Since(begin),
		StartReturned: startReturned,
	}, nil
}

func build(env Env, name string, delay time.Duration) (*pipeline.Pipeline[string], *collector) {
	c := &collector{log: env.Log}
	p := pipeline.New[string](Producer(env.Log, delay), c,
		pipeline.WithName(name),
		pipeline.WithLogger(env.Log),
		pipeline.WithMetrics(env.Metrics),
	)
	return p, c
}

// runSync keeps production and delivery on the caller.
func runSync(ctx context.Context, env Env) (*Report, error) {
	p, c := build(env, Sync, 0)
	return execute(ctx, env, p, c)
}

// runAsync produces on a fresh execution context.
func runAsync(ctx context.Context, env Env) (*Report, error) {
	p, c := build(env, Async, 0)
	p.RunProducerOn(env.Registry.NewThread())
	return execute(ctx, env, p, c)
}

// runBlocking is runAsync with a slow producer.
func runBlocking(ctx context.Context, env Env) (*Report, error) {
	p, c := build(env, Blocking, BlockingDelay)
	p.RunProducerOn(env.Registry.NewThread())
	return execute(ctx, env, p, c)
}

// runRehome produces on the caller and delivers on a fixed pool.
func runRehome(ctx context.Context, env Env) (*Report, error) {
	delivery := scheduler.NewFixed(Rehome, RehomeWorkers,
		scheduler.WithLogger(env.Log),
		scheduler.WithMetrics(env.Metrics),
	)
	defer func() { <-delivery.Shutdown() }()

	p, c := build(env, Rehome, 0)
	p.DeliverOn(delivery)
	return execute(ctx, env, p, c)
}
