/*
Package workerpool provides the fixed-size execution engine behind the
fixed(n) and single scheduler policies.

A pool owns WorkerCount long-lived goroutines, its execution contexts. They
all pull from one shared unbounded FIFO queue, so concurrency is bounded
while queueing is not: when every worker is busy a submitted task simply
waits. Being busy is never an error.

Basic usage:

	pool := workerpool.New("rxflow-computation", 4)
	defer func() { <-pool.Shutdown() }()

	task := workerpool.TaskFunc(func(ctx context.Context) error {
		// Do work
		return nil
	})

	if err := pool.Submit(task); err != nil {
		log.Printf("Failed to submit: %v", err)
	}

Execution Contexts:

Worker i is named "<Name>-<i>" (1-based). The name is attached to the
context handed to every task, so code running on the pool can find out
where it runs:

	task := workerpool.TaskFunc(func(ctx context.Context) error {
		fmt.Println(rxcontext.ExecutionContext(ctx)) // rxflow-computation-3
		return nil
	})

Configuration Options:

	pool := workerpool.NewWithConfig(workerpool.Config{
		Name:        "rxflow-io",
		WorkerCount: 8,
		TaskTimeout: 30 * time.Second,
		PanicHandler: func(task workerpool.Task, err error) {
			log.Printf("Task panicked: %v", err)
		},
		OnTaskComplete: func(workerID int, result workerpool.Result) {
			log.Printf("%s completed task %d in %v", result.Worker, result.Seq, result.Duration)
		},
	})

Results are reported only through OnTaskComplete; there is no result
channel to drain.

Error Handling:

A task error or panic never terminates its worker. Panics are recovered at
the task boundary by Execute, which the other scheduler policies reuse, and
surface as errors wrapping errors.ErrTaskPanicked.

Shutdown:

	// Graceful: reject new tasks, run everything already queued
	<-pool.Shutdown()

	// Forced: reject new tasks, drop the queue, cancel running task contexts
	<-pool.ShutdownNow()

Both return the same channel, closed once every worker has exited. Submit
after shutdown fails with errors.ErrSchedulerClosed.

Thread Safety:

All pool operations are safe for concurrent use from multiple goroutines.
Submitting from inside a running task never blocks, so a task may schedule
follow-up work on its own pool.
*/
package workerpool
