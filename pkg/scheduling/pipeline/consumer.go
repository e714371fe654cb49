package pipeline

import (
	"context"

	"github.com/vnykmshr/rxflow/pkg/streaming/source"
)

// Emitter hands one value to the pipeline. A non-nil error means the
// pipeline will accept no more values and the producer should return.
type Emitter[T any] func(value T) error

// Producer generates values. Returning nil signals completion; returning an
// error signals failure. Produce must stop when ctx is done.
type Producer[T any] interface {
	Produce(ctx context.Context, emit Emitter[T]) error
}

// ProducerFunc adapts a function to Producer.
type ProducerFunc[T any] func(ctx context.Context, emit Emitter[T]) error

// Produce implements Producer.
func (f ProducerFunc[T]) Produce(ctx context.Context, emit Emitter[T]) error {
	return f(ctx, emit)
}

// Consumer receives a pipeline's events. OnNext is called once per value in
// production order; then exactly one of OnError or OnComplete is called,
// unless the pipeline is cancelled first. An OnNext error is fatal.
type Consumer[T any] interface {
	OnNext(ctx context.Context, value T) error
	OnError(ctx context.Context, err error)
	OnComplete(ctx context.Context)
}

// Callbacks builds a Consumer from functions. Nil fields are no-ops.
type Callbacks[T any] struct {
	Next     func(ctx context.Context, value T) error
	Error    func(ctx context.Context, err error)
	Complete func(ctx context.Context)
}

// OnNext implements Consumer.
func (c Callbacks[T]) OnNext(ctx context.Context, value T) error {
	if c.Next == nil {
		return nil
	}
	return c.Next(ctx, value)
}

// OnError implements Consumer.
func (c Callbacks[T]) OnError(ctx context.Context, err error) {
	if c.Error != nil {
		c.Error(ctx, err)
	}
}

// OnComplete implements Consumer.
func (c Callbacks[T]) OnComplete(ctx context.Context) {
	if c.Complete != nil {
		c.Complete(ctx)
	}
}

// FromSource adapts a pull-based source. The source is closed when
// production ends for any reason.
func FromSource[T any](src source.Source[T]) Producer[T] {
	return ProducerFunc[T](func(ctx context.Context, emit Emitter[T]) (err error) {
		defer func() {
			if cerr := src.Close(); err == nil {
				err = cerr
			}
		}()
		for {
			v, ok, err := src.Next(ctx)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			if err := emit(v); err != nil {
				return err
			}
		}
	})
}

// Just produces values in order, then completes.
func Just[T any](values ...T) Producer[T] {
	return FromSource(source.FromSlice(values))
}
