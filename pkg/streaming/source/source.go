package source

import (
	"context"
	"sync/atomic"
	"time"
)

// Source is a pull-based sequence of values. Next returns ok == false once
// the sequence is exhausted. Close releases any underlying resource.
type Source[T any] interface {
	Next(ctx context.Context) (value T, ok bool, err error)
	Close() error
}

// sliceSource implements Source for slices.
type sliceSource[T any] struct {
	slice []T
	index int64
}

// FromSlice yields the elements of slice in order.
func FromSlice[T any](slice []T) Source[T] {
	return &sliceSource[T]{slice: slice}
}

func (s *sliceSource[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T

	if err := ctx.Err(); err != nil {
		return zero, false, err
	}

	currentIndex := atomic.AddInt64(&s.index, 1) - 1
	if currentIndex >= int64(len(s.slice)) {
		return zero, false, nil
	}
	return s.slice[currentIndex], true, nil
}

func (s *sliceSource[T]) Close() error {
	return nil
}

// channelSource implements Source for channels.
type channelSource[T any] struct {
	ch <-chan T
}

// FromChannel yields values received from ch until it is closed.
func FromChannel[T any](ch <-chan T) Source[T] {
	return &channelSource[T]{ch: ch}
}

func (s *channelSource[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T

	select {
	case value, ok := <-s.ch:
		if !ok {
			return zero, false, nil
		}
		return value, true, nil
	case <-ctx.Done():
		return zero, false, ctx.Err()
	}
}

func (s *channelSource[T]) Close() error {
	return nil
}

// generatorSource implements Source for generator functions.
type generatorSource[T any] struct {
	generator func() T
}

// Generate yields generator() forever. Bound it with Take.
func Generate[T any](generator func() T) Source[T] {
	return &generatorSource[T]{generator: generator}
}

func (s *generatorSource[T]) Next(ctx context.Context) (T, bool, error) {
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, false, err
	}
	return s.generator(), true, nil
}

func (s *generatorSource[T]) Close() error {
	return nil
}

// emptySource implements Source for empty sequences.
type emptySource[T any] struct{}

// Empty yields nothing.
func Empty[T any]() Source[T] {
	return emptySource[T]{}
}

func (emptySource[T]) Next(context.Context) (T, bool, error) {
	var zero T
	return zero, false, nil
}

func (emptySource[T]) Close() error {
	return nil
}

// takeSource stops its inner source after n values.
type takeSource[T any] struct {
	inner Source[T]
	left  int64
}

// Take yields at most n values from src.
func Take[T any](src Source[T], n int) Source[T] {
	return &takeSource[T]{inner: src, left: int64(n)}
}

func (s *takeSource[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	if atomic.AddInt64(&s.left, -1) < 0 {
		return zero, false, nil
	}
	return s.inner.Next(ctx)
}

func (s *takeSource[T]) Close() error {
	return s.inner.Close()
}

// mappingSource implements Source that transforms elements from one type to another.
type mappingSource[From, To any] struct {
	originalSource Source[From]
	mapper         func(From) (To, error)
}

// Map transforms every value of src. A mapper error ends the sequence with that error.
func Map[From, To any](src Source[From], mapper func(From) (To, error)) Source[To] {
	return &mappingSource[From, To]{originalSource: src, mapper: mapper}
}

func (s *mappingSource[From, To]) Next(ctx context.Context) (To, bool, error) {
	var zero To

	value, hasMore, err := s.originalSource.Next(ctx)
	if err != nil {
		return zero, false, err
	}
	if !hasMore {
		return zero, false, nil
	}

	mapped, err := s.mapper(value)
	if err != nil {
		return zero, false, err
	}
	return mapped, true, nil
}

func (s *mappingSource[From, To]) Close() error {
	return s.originalSource.Close()
}

// delayedSource sleeps before every value of its inner source.
type delayedSource[T any] struct {
	inner Source[T]
	delay time.Duration
}

// Delayed waits d before pulling each value from src. It models a producer
// that blocks its execution context between emissions.
func Delayed[T any](src Source[T], d time.Duration) Source[T] {
	return &delayedSource[T]{inner: src, delay: d}
}

func (s *delayedSource[T]) Next(ctx context.Context) (T, bool, error) {
	if err := sleep(ctx, s.delay); err != nil {
		var zero T
		return zero, false, err
	}
	return s.inner.Next(ctx)
}

func (s *delayedSource[T]) Close() error {
	return s.inner.Close()
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
