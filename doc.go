/*
Package rxflow provides execution-context placement for producer/consumer
pipelines: named schedulers decide which goroutines run a producer and which
deliver its events.

Scheduling (pkg/scheduling):
  - taskqueue: Unbounded FIFO shared by the execution contexts of a pool
  - workerpool: Fixed set of long-lived execution contexts
  - scheduler: fixed, cached, single and thread-per-task policies, Workers
    and the registry of well-known schedulers
  - pipeline: Producer/consumer lifecycle with exactly one terminal event

Streaming (pkg/streaming):
  - source: Pull-based sources from slices, channels, cron schedules and
    Redis lists, usable as pipeline producers

Example usage:

	import (
		"github.com/vnykmshr/rxflow/pkg/scheduling/pipeline"
		"github.com/vnykmshr/rxflow/pkg/scheduling/scheduler"
	)

	p := pipeline.Build(pipeline.Just("Superman", "Batman"), onNext, onError, onComplete).
		RunProducerOn(scheduler.IO()).
		DeliverOn(scheduler.Computation())
	_ = p.Start(ctx)
	<-p.Done()
*/
package rxflow
