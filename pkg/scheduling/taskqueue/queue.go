package taskqueue

import (
	"context"
	"sync"
	"time"

	rferrors "github.com/vnykmshr/rxflow/pkg/common/errors"
)

// Item is one queued value together with its enqueue order.
type Item[T any] struct {
	// Seq is the 1-based enqueue sequence number within the queue.
	Seq uint64

	// Value is the queued value.
	Value T

	// Enqueued is when the value was appended.
	Enqueued time.Time
}

// Queue is an unbounded FIFO queue safe for concurrent producers and consumers.
type Queue[T any] struct {
	mu      sync.Mutex
	items   []Item[T]
	nextSeq uint64
	closed  bool

	// notify is closed and replaced whenever an item arrives or the queue
	// closes, waking every blocked Dequeue.
	notify chan struct{}
}

// New creates an empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{
		notify: make(chan struct{}),
	}
}

// Enqueue appends v to the tail and returns its sequence number.
// It never blocks on consumers. After Close it returns ErrQueueClosed.
func (q *Queue[T]) Enqueue(v T) (uint64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return 0, rferrors.ErrQueueClosed
	}

	q.nextSeq++
	q.items = append(q.items, Item[T]{
		Seq:      q.nextSeq,
		Value:    v,
		Enqueued: time.Now(),
	})
	q.wakeLocked()
	return q.nextSeq, nil
}

// Dequeue removes and returns the head of the queue, blocking until an item
// is available. Once the queue is closed, remaining items are still returned;
// ErrQueueClosed is reported only when the queue is closed and empty.
// If ctx is done first, ctx.Err() is returned.
func (q *Queue[T]) Dequeue(ctx context.Context) (Item[T], error) {
	for {
		q.mu.Lock()
		if item, ok := q.popLocked(); ok {
			q.mu.Unlock()
			return item, nil
		}
		if q.closed {
			q.mu.Unlock()
			return Item[T]{}, rferrors.ErrQueueClosed
		}
		wait := q.notify
		q.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return Item[T]{}, ctx.Err()
		}
	}
}

// TryDequeue removes and returns the head of the queue without blocking.
func (q *Queue[T]) TryDequeue() (Item[T], bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.popLocked()
}

// Drain removes and returns every pending item in order.
func (q *Queue[T]) Drain() []Item[T] {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.items
	q.items = nil
	return items
}

// Close stops the queue from accepting new items and wakes blocked consumers.
// It is safe to call more than once.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.wakeLocked()
}

// Len returns the number of pending items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// IsClosed returns true once Close has been called.
func (q *Queue[T]) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

func (q *Queue[T]) popLocked() (Item[T], bool) {
	if len(q.items) == 0 {
		return Item[T]{}, false
	}
	item := q.items[0]
	q.items[0] = Item[T]{}
	q.items = q.items[1:]
	return item, true
}

func (q *Queue[T]) wakeLocked() {
	close(q.notify)
	q.notify = make(chan struct{})
}
