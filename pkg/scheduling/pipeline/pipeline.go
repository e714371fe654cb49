package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	rferrors "github.com/vnykmshr/rxflow/pkg/common/errors"
	"github.com/vnykmshr/rxflow/pkg/common/validation"
	"github.com/vnykmshr/rxflow/pkg/logger"
	"github.com/vnykmshr/rxflow/pkg/scheduling/scheduler"
	"github.com/vnykmshr/rxflow/pkg/scheduling/workerpool"
)

// Stats holds per-pipeline counters.
type Stats struct {
	Emitted   int64
	Delivered int64
	State     State
}

// Pipeline binds a producer to a consumer, optionally running the producer
// on one scheduler and delivering events on another. It is started once
// and reaches exactly one terminal state.
type Pipeline[T any] struct {
	id       string
	opts     options
	log      *logger.Logger
	producer Producer[T]
	consumer Consumer[T]

	mu         sync.Mutex
	producerOn scheduler.Scheduler
	deliverOn  scheduler.Scheduler
	ctx        context.Context
	cancel     context.CancelFunc
	handle     *scheduler.Handle
	worker     scheduler.Worker

	state     atomic.Int32
	claimed   atomic.Bool
	cancelled atomic.Bool
	err       error
	done      chan struct{}

	emitted   atomic.Int64
	delivered atomic.Int64
}

// New builds a pipeline. Nothing runs until Start.
func New[T any](producer Producer[T], consumer Consumer[T], opts ...Option) *Pipeline[T] {
	o := applyOptions(opts)
	id := uuid.NewString()
	return &Pipeline[T]{
		id:       id,
		opts:     o,
		log:      o.logger.WithComponent("pipeline").With("pipeline_id", id),
		producer: producer,
		consumer: consumer,
		done:     make(chan struct{}),
	}
}

// Build is New with the consumer given as separate callbacks.
func Build[T any](
	producer Producer[T],
	next func(ctx context.Context, value T) error,
	onError func(ctx context.Context, err error),
	onComplete func(ctx context.Context),
	opts ...Option,
) *Pipeline[T] {
	return New[T](producer, Callbacks[T]{Next: next, Error: onError, Complete: onComplete}, opts...)
}

// ID returns the pipeline's unique identifier.
func (p *Pipeline[T]) ID() string {
	return p.id
}

// RunProducerOn makes Start submit the producer to s instead of running it
// on the caller. It has no effect once the pipeline has started.
func (p *Pipeline[T]) RunProducerOn(s scheduler.Scheduler) *Pipeline[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.State() == StateCreated {
		p.producerOn = s
	}
	return p
}

// DeliverOn makes every event reach the consumer through one Worker of s,
// in production order. It has no effect once the pipeline has started.
func (p *Pipeline[T]) DeliverOn(s scheduler.Scheduler) *Pipeline[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.State() == StateCreated {
		p.deliverOn = s
	}
	return p
}

// Start moves the pipeline from Created to Started. With a producer
// scheduler it submits the producer and returns immediately. Without one it
// runs the producer on the caller and returns when the producer is done;
// with inline delivery that includes every event and the terminal callback.
//
// If the producer scheduler rejects the submission, the pipeline errors
// through OnError on the caller and Start returns the same error.
func (p *Pipeline[T]) Start(ctx context.Context) error {
	if err := validation.ValidateNotNil("pipeline", "producer", p.producer); err != nil {
		return err
	}
	if err := validation.ValidateNotNil("pipeline", "consumer", p.consumer); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	p.mu.Lock()
	if !p.state.CompareAndSwap(int32(StateCreated), int32(StateStarted)) {
		p.mu.Unlock()
		if p.cancelled.Load() {
			return fmt.Errorf("pipeline %s: %w", p.id, rferrors.ErrCancelled)
		}
		return fmt.Errorf("pipeline %s: %w", p.id, rferrors.ErrAlreadyStarted)
	}
	if p.cancelled.Load() {
		// Cancel won the race between the CAS and the lock.
		p.mu.Unlock()
		return fmt.Errorf("pipeline %s: %w", p.id, rferrors.ErrCancelled)
	}

	p.ctx, p.cancel = context.WithCancel(ctx)
	if p.deliverOn != nil {
		p.worker = p.deliverOn.Worker()
	}
	p.started()

	producerOn := p.producerOn
	if producerOn == nil {
		p.mu.Unlock()
		p.produce(ctx)
		return nil
	}

	h, err := producerOn.Submit(workerpool.TaskFunc(func(taskCtx context.Context) error {
		p.produce(taskCtx)
		return nil
	}))
	if err != nil {
		p.mu.Unlock()
		err = fmt.Errorf("pipeline %s: starting producer: %w", p.id, err)
		p.terminate(ctx, err)
		return err
	}
	p.handle = h
	p.mu.Unlock()

	// A forced shutdown can drop the producer before it starts.
	h.OnCancel(func(cause error) {
		p.terminate(ctx, fmt.Errorf("pipeline %s: producer not run: %w", p.id, cause))
	})
	return nil
}

// Cancel stops the pipeline if no terminal state has been claimed yet: no
// further events are delivered, the producer's context is cancelled and a
// producer task that has not started is withdrawn. Work already running is
// not interrupted. Cancel returns true only for the call that cancelled.
func (p *Pipeline[T]) Cancel() bool {
	if !p.claimed.CompareAndSwap(false, true) {
		return false
	}
	p.cancelled.Store(true)

	p.mu.Lock()
	cancel, handle, worker := p.cancel, p.handle, p.worker
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if handle != nil {
		handle.Cancel()
	}
	if worker != nil {
		worker.Dispose()
	}

	p.finish(StateCancelled, rferrors.ErrCancelled)
	return true
}

// Done is closed once the pipeline reaches a terminal state.
func (p *Pipeline[T]) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the pipeline terminates or ctx ends.
func (p *Pipeline[T]) Wait(ctx context.Context) (State, error) {
	select {
	case <-p.done:
		return p.State(), p.Err()
	case <-ctx.Done():
		return p.State(), ctx.Err()
	}
}

// State returns the current lifecycle state.
func (p *Pipeline[T]) State() State {
	return State(p.state.Load())
}

// Err returns the terminal error: nil when completed, the delivered error
// when errored, ErrCancelled when cancelled. Before termination it is nil.
func (p *Pipeline[T]) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

// Stats returns a snapshot of the pipeline counters.
func (p *Pipeline[T]) Stats() Stats {
	return Stats{
		Emitted:   p.emitted.Load(),
		Delivered: p.delivered.Load(),
		State:     p.State(),
	}
}

// produce runs the producer on the current execution context, then sends
// the terminal event down the delivery path.
func (p *Pipeline[T]) produce(taskCtx context.Context) {
	ctx, cancel := context.WithCancel(taskCtx)
	defer cancel()
	stop := context.AfterFunc(p.ctx, cancel)
	defer stop()

	err := workerpool.Execute(ctx, workerpool.TaskFunc(func(ctx context.Context) error {
		return p.producer.Produce(ctx, func(v T) error { return p.emit(ctx, v) })
	}))
	if p.claimed.Load() {
		// Cancelled, or a consumer failure already ended the pipeline.
		return
	}
	if err != nil {
		err = fmt.Errorf("%w: %w", rferrors.ErrProducerFailure, err)
	}

	p.deliver(ctx, func(dctx context.Context) {
		p.terminate(dctx, err)
	})
}

func (p *Pipeline[T]) emit(ctx context.Context, v T) error {
	if p.claimed.Load() {
		return p.stoppedErr()
	}
	p.itemEmitted()

	p.deliver(ctx, func(dctx context.Context) {
		p.onNext(dctx, v)
	})

	if p.claimed.Load() {
		return p.stoppedErr()
	}
	return nil
}

// deliver runs fn on the delivery worker, or inline without one. If the
// worker refuses or drops the event, the pipeline fails.
func (p *Pipeline[T]) deliver(ctx context.Context, fn func(ctx context.Context)) {
	if p.worker == nil {
		fn(ctx)
		return
	}
	h, err := p.worker.Schedule(workerpool.TaskFunc(func(dctx context.Context) error {
		fn(dctx)
		return nil
	}))
	if err != nil {
		if !p.cancelled.Load() {
			p.terminate(ctx, fmt.Errorf("pipeline %s: delivering event: %w", p.id, err))
		}
		return
	}
	// Events the worker drops unrun, e.g. on a forced shutdown, fail the
	// pipeline. After Cancel or termination the claim is already taken.
	h.OnCancel(func(cause error) {
		p.terminate(ctx, fmt.Errorf("pipeline %s: event not delivered: %w", p.id, cause))
	})
}

func (p *Pipeline[T]) onNext(ctx context.Context, v T) {
	if p.claimed.Load() {
		return
	}
	err := workerpool.Execute(ctx, workerpool.TaskFunc(func(ctx context.Context) error {
		return p.consumer.OnNext(ctx, v)
	}))
	if err != nil {
		p.terminate(ctx, fmt.Errorf("%w: %w", rferrors.ErrConsumerFailure, err))
		return
	}
	p.itemDelivered()
}

// terminate fires exactly one terminal callback for the first caller that
// claims the terminal state. err == nil means completion.
func (p *Pipeline[T]) terminate(ctx context.Context, err error) {
	if !p.claimed.CompareAndSwap(false, true) {
		return
	}

	state := StateCompleted
	if err != nil {
		state = StateErrored
	}

	cbErr := workerpool.Execute(ctx, workerpool.TaskFunc(func(ctx context.Context) error {
		if err != nil {
			p.consumer.OnError(ctx, err)
		} else {
			p.consumer.OnComplete(ctx)
		}
		return nil
	}))
	if cbErr != nil {
		p.log.WithContext(ctx).WithError(cbErr).Error("terminal callback failed")
	}

	p.mu.Lock()
	cancel, worker := p.cancel, p.worker
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if worker != nil {
		worker.Dispose()
	}

	p.finish(state, err)
}

func (p *Pipeline[T]) finish(state State, err error) {
	p.err = err
	p.state.Store(int32(state))
	p.terminated(state)
	close(p.done)
}

func (p *Pipeline[T]) stoppedErr() error {
	if p.cancelled.Load() {
		return rferrors.ErrCancelled
	}
	return rferrors.ErrTerminated
}

func (p *Pipeline[T]) started() {
	p.log.Debug("pipeline started", map[string]interface{}{
		"async_producer": p.producerOn != nil,
		"async_delivery": p.deliverOn != nil,
	})
	if m := p.opts.metrics; m != nil {
		m.PipelinesStarted.WithLabelValues(p.opts.name).Inc()
	}
}

func (p *Pipeline[T]) itemEmitted() {
	p.emitted.Add(1)
	if m := p.opts.metrics; m != nil {
		m.ItemsEmitted.WithLabelValues(p.opts.name).Inc()
	}
}

func (p *Pipeline[T]) itemDelivered() {
	p.delivered.Add(1)
	if m := p.opts.metrics; m != nil {
		m.ItemsDelivered.WithLabelValues(p.opts.name).Inc()
	}
}

func (p *Pipeline[T]) terminated(state State) {
	p.log.Debug("pipeline terminated", map[string]interface{}{
		"state":     state.String(),
		"emitted":   p.emitted.Load(),
		"delivered": p.delivered.Load(),
	})
	if m := p.opts.metrics; m != nil {
		m.PipelineTerminals.WithLabelValues(p.opts.name, state.String()).Inc()
	}
}
