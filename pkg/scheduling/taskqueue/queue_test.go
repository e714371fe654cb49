package taskqueue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/vnykmshr/rxflow/internal/testutil"
	rferrors "github.com/vnykmshr/rxflow/pkg/common/errors"
)

func TestFIFOOrder(t *testing.T) {
	q := New[int]()
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	for i := 0; i < 100; i++ {
		seq, err := q.Enqueue(i)
		testutil.AssertNoError(t, err)
		testutil.AssertEqual(t, seq, uint64(i+1))
	}
	testutil.AssertEqual(t, q.Len(), 100)

	for i := 0; i < 100; i++ {
		item, err := q.Dequeue(ctx)
		testutil.AssertNoError(t, err)
		testutil.AssertEqual(t, item.Value, i)
		testutil.AssertEqual(t, item.Seq, uint64(i+1))
	}
	testutil.AssertEqual(t, q.Len(), 0)
}

func TestDequeueBlocksUntilEnqueue(t *testing.T) {
	q := New[string]()
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	got := make(chan string, 1)
	go func() {
		item, err := q.Dequeue(ctx)
		if err == nil {
			got <- item.Value
		}
		close(got)
	}()

	select {
	case <-got:
		t.Fatal("dequeue returned before anything was enqueued")
	case <-time.After(20 * time.Millisecond):
	}

	_, err := q.Enqueue("hello")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, <-got, "hello")
}

func TestCloseWakesBlockedConsumers(t *testing.T) {
	q := New[int]()
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	const consumers = 4
	errs := make(chan error, consumers)
	for i := 0; i < consumers; i++ {
		go func() {
			_, err := q.Dequeue(ctx)
			errs <- err
		}()
	}

	time.Sleep(10 * time.Millisecond)
	q.Close()
	q.Close() // idempotent

	for i := 0; i < consumers; i++ {
		testutil.AssertErrorIs(t, <-errs, rferrors.ErrQueueClosed)
	}
}

func TestCloseKeepsPendingItems(t *testing.T) {
	q := New[int]()
	for i := 0; i < 3; i++ {
		_, _ = q.Enqueue(i)
	}
	q.Close()

	_, err := q.Enqueue(99)
	testutil.AssertErrorIs(t, err, rferrors.ErrQueueClosed)
	testutil.AssertEqual(t, q.IsClosed(), true)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		item, err := q.Dequeue(ctx)
		testutil.AssertNoError(t, err)
		testutil.AssertEqual(t, item.Value, i)
	}
	_, err = q.Dequeue(ctx)
	testutil.AssertErrorIs(t, err, rferrors.ErrQueueClosed)
}

func TestDequeueContextCancel(t *testing.T) {
	q := New[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := q.Dequeue(ctx)
	testutil.AssertErrorIs(t, err, context.DeadlineExceeded)
}

func TestTryDequeueAndDrain(t *testing.T) {
	q := New[int]()

	_, ok := q.TryDequeue()
	testutil.AssertEqual(t, ok, false)

	for i := 0; i < 5; i++ {
		_, _ = q.Enqueue(i)
	}
	item, ok := q.TryDequeue()
	testutil.AssertEqual(t, ok, true)
	testutil.AssertEqual(t, item.Value, 0)

	drained := q.Drain()
	testutil.AssertEqual(t, len(drained), 4)
	testutil.AssertEqual(t, drained[0].Value, 1)
	testutil.AssertEqual(t, drained[3].Value, 4)
	testutil.AssertEqual(t, q.Len(), 0)
}

func TestConcurrentProducersConsumers(t *testing.T) {
	q := New[int]()
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	const producers, perProducer = 8, 250
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				_, _ = q.Enqueue(base*perProducer + i)
			}
		}(p)
	}

	seen := make([]bool, producers*perProducer)
	var mu sync.Mutex
	var consumers sync.WaitGroup
	for c := 0; c < 4; c++ {
		consumers.Add(1)
		go func() {
			defer consumers.Done()
			var last uint64
			for {
				item, err := q.Dequeue(ctx)
				if err != nil {
					return
				}
				if item.Seq <= last {
					t.Errorf("sequence went backwards: %d after %d", item.Seq, last)
				}
				last = item.Seq
				mu.Lock()
				seen[item.Value] = true
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	q.Close()
	consumers.Wait()

	for v, ok := range seen {
		if !ok {
			t.Fatalf("value %d was lost", v)
		}
	}
}
