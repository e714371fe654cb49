/*
Package scheduling groups the execution primitives of rxflow.

  - taskqueue: Unbounded FIFO with blocking, context-aware dequeue
  - workerpool: N long-lived execution contexts draining one taskqueue
  - scheduler: Resource pools that own execution contexts, per policy
  - pipeline: Producer/consumer adapter placed on schedulers

Schedulers are resource pools, not priority schedulers: they decide where a
task runs, never which task runs first. Tasks submitted to one Worker run in
submission order without overlap.

Every execution context names itself on the task's context.Context:

	func(ctx context.Context) error {
		log.Event(ctx, "working") // "<elapsed> rxflow-io-2 working"
		return nil
	}

Work running outside any scheduler reports the name "caller".
*/
package scheduling
