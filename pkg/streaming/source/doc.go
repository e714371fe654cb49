/*
Package source provides pull-based value sequences that feed pipelines.

A Source yields values one at a time through Next and reports exhaustion
with ok == false:

	src := source.FromSlice([]string{"Superman", "Batman"})
	for {
		v, ok, err := src.Next(ctx)
		if err != nil || !ok {
			break
		}
		fmt.Println(v)
	}

Available sources:

  - FromSlice, FromChannel, Empty: finite in-memory sequences
  - Generate: an infinite generator, usually bounded with Take
  - Delayed: waits before each value, modelling a blocking producer
  - Cron, FromSchedule: activation times of a cron schedule
  - RedisList: values popped from a Redis list with BLPOP

Map transforms values. pipeline.FromSource turns any Source into a pipeline
producer.

Sources are not safe for concurrent Next calls unless stated otherwise; a
pipeline pulls from its source on one execution context at a time.
*/
package source
