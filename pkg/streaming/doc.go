/*
Package streaming holds pull-based data sources for pipelines.

  - source: Source[T] from slices, channels, generators, cron schedules and
    Redis lists, with Take, Map and Delayed adapters

A source becomes a pipeline producer through pipeline.FromSource:

	src, _ := source.Cron("@every 1s", 5)
	p := pipeline.Build(pipeline.FromSource(src), onTick, onError, onComplete)
*/
package streaming
