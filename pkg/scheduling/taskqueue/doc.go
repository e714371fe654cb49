/*
Package taskqueue provides the unbounded FIFO queue that scheduler execution
contexts pull work from.

Enqueue never blocks the caller; it only takes an internal lock. Dequeue
blocks the calling worker until an item is available, the queue is closed,
or the worker's context is done:

	q := taskqueue.New[workerpool.Task]()

	seq, err := q.Enqueue(task) // seq is the enqueue order, starting at 1

	item, err := q.Dequeue(ctx)
	if errors.Is(err, rferrors.ErrQueueClosed) {
		return // closed and fully drained
	}
	item.Value.Execute(ctx)

Ordering:

Items leave the queue strictly in enqueue order. With several consumers the
dequeue order is still FIFO, but completion order depends on how long each
consumer takes.

Shutdown:

Close rejects further Enqueue calls with ErrQueueClosed and wakes every
blocked Dequeue. Items enqueued before Close are still handed out; only when
the queue is both closed and empty does Dequeue report ErrQueueClosed.
Drain removes everything pending at once, which forced shutdowns use to drop
work that has not started.
*/
package taskqueue
