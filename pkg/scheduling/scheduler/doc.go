/*
Package scheduler decides which execution context runs a piece of work.

A Scheduler accepts tasks and runs them asynchronously on execution
contexts provisioned by one of four policies:

	fixed(n)         NewFixed        n long-lived contexts, unbounded FIFO queue
	cached           NewCached       reuse an idle context or start a new one
	single           NewSingle       one long-lived context, strict order
	thread-per-task  NewThreadPerTask  a fresh context per task

Execution contexts are goroutines with stable names of the form
"rxflow-<scheduler>-<n>". The name travels on the task's context.Context
(see the common/context package) so log lines can say where they ran.

Basic usage:

	s := scheduler.NewFixed("computation", 4)
	defer func() { <-s.Shutdown() }()

	h, err := s.Submit(workerpool.TaskFunc(func(ctx context.Context) error {
		fmt.Println(rxcontext.ExecutionContext(ctx))
		return nil
	}))
	if err != nil {
		return err // errors.ErrSchedulerClosed after shutdown
	}
	<-h.Done()

Submit never blocks and never runs the task on the caller, so a task may
submit more work to its own scheduler without deadlocking. A Handle can
cancel a task that has not started yet.

Workers:

Worker returns a sequential executor layered on a scheduler. Tasks
scheduled on one Worker run one at a time, in order, even on a multi-context
scheduler. The pipeline package delivers every event of one pipeline
through a single Worker.

	w := s.Worker()
	defer w.Dispose()
	w.Schedule(first)
	w.Schedule(second) // starts only after first returns

Registry:

The well-known schedulers are built lazily, once, on first access:

	scheduler.Computation() // fixed, sized by HostParallelism
	scheduler.IO()          // cached, 60s keep-alive
	scheduler.Single()
	scheduler.NewThread()

	s, err := scheduler.Get("io")

ConfigureDefault resizes them before first use. Tests and tools that want
isolation use NewRegistry and call Registry.Shutdown when done.

Shutdown:

Shutdown rejects new work and lets submitted tasks finish. ShutdownNow also
drops queued tasks and cancels the context of running ones. Delayed tasks
(SubmitAfter) not yet due are cancelled by either. Both return a channel
that closes when every execution context has exited.

Known hazard: the cached policy never bounds its context count. Sustained
concurrent blocking work grows it without limit.
*/
package scheduler
