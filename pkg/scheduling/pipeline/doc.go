/*
Package pipeline connects a producer to a consumer and decides, per
pipeline, which execution contexts run each side.

A Pipeline is built from a Producer and a Consumer, optionally told where
to run, then started exactly once:

	p := pipeline.Build(pipeline.Just("Superman", "Batman"),
		func(ctx context.Context, hero string) error {
			log.Event(ctx, "Received: "+hero)
			return nil
		},
		func(ctx context.Context, err error) { log.Event(ctx, "Failed: "+err.Error()) },
		func(ctx context.Context) { log.Event(ctx, "Complete") },
	)
	p.RunProducerOn(scheduler.NewThread()).DeliverOn(scheduler.Computation())
	if err := p.Start(ctx); err != nil {
		return err
	}
	<-p.Done()

Execution placement:

	RunProducerOn  DeliverOn   producer runs on     consumer runs on
	-              -           caller (Start blocks) caller
	S1             -           a context of S1      the producing context
	-              S2          caller               one Worker of S2
	S1             S2          a context of S1      one Worker of S2

Delivery through a Worker keeps production order even when S2 has many
execution contexts.

Lifecycle:

	Created -> Started -> Completed | Errored | Cancelled

Exactly one terminal state is reached. Completion and failures travel the
same delivery path as items, so OnComplete or OnError runs after every
earlier item. A consumer error or panic is fatal: it is wrapped in
errors.ErrConsumerFailure, delivered to OnError, and no further items are
delivered. A producer error or panic is wrapped in errors.ErrProducerFailure.

Cancel is best-effort. It claims the Cancelled state if nothing else has
terminated the pipeline, cancels the producer's context, withdraws a
producer task that has not started and drops undelivered events. No
terminal callback fires for a cancelled pipeline. Calling Cancel after
termination does nothing.

Once terminated, the Emitter handed to the producer returns
errors.ErrTerminated (errors.ErrCancelled after Cancel) so producers can
stop early.

Liveness:

Done is closed on termination. Wait blocks for it with a context. When the
producer scheduler has been shut down, Start fails, OnError runs on the
caller, and Done is still closed.
*/
package pipeline
