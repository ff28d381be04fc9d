// Package pipeline provides composable, pull-based sequence operators with
// cancellation, deterministic disposal and re-iteration.
//
// Pipelines are lazy: no work happens until values are pulled via Next,
// Collect, Drain, ForEach or an aggregation. Each stage pulls from the
// previous stage on demand, so there is no implicit concurrency and no
// speculative work. Every Iter call builds an independent iterator tree.
//
// An Iterator belongs to one consumer. It must be closed; Close disposes the
// inner iterators it owns exactly once, in reverse creation order. Canceling
// the context bound at Iter, or the one passed to Next, ends the iteration
// with a CANCELED or DEADLINE_EXCEEDED error on that and every later Next.
// A callback error is returned once, after which the iterator behaves as
// completed.
//
// # Operators
//
//   - Select, SelectErr, SelectContext, SelectIndexed: transform each value
//   - Where, WhereContext: keep values matching a predicate
//   - SkipWhile, Take, Skip, TakeWhile: positional filtering
//   - DefaultIfEmpty: substitute a single value for an empty sequence
//   - FlatMap, Concat, Chunk, Tap
//   - GroupBy and friends: group by key in first-seen key order
//   - Buffer: opt-in prefetch on a separate goroutine
//   - Logged, Traced, Measured: zerolog, OpenTelemetry spans and metrics
//
// # Terminals
//
// Collect, ToMap, First, Last, ElementAt, Any, All, Count, Min, Max, Sum,
// Average, Aggregate and Fold drive the pipeline and always close the
// iterator. Non-nullable aggregations over an empty sequence fail with an
// EMPTY_SEQUENCE error; the ...Nullable forms return nil instead.
//
// # Usage
//
//	people := pipeline.FromSlice(ps)
//	byDecade := pipeline.GroupBy(people, func(p Person) int { return p.Age / 10 })
//	counts := pipeline.GroupByCount(byDecade)
//	for c, err := range counts.All(ctx) {
//	    if err != nil { ... }
//	    fmt.Println(c.Key, c.Count)
//	}
//
//	avg, err := pipeline.AverageOf(ctx, people, pipeline.Sync(func(p Person) int { return p.Age }))
//
// Constructors panic with an INVALID_ARGUMENT error when given a nil source,
// a nil callback or an invalid size.
package pipeline
