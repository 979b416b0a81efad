// Package stream provides composable, pull-based data pipelines with
// optional per-stage parallelism that preserves input order.
//
// Pipelines are lazy: composing stages performs no work, and nothing is
// pulled from the source until values are consumed via Collect, Drain,
// ForEach, or a raw Iter. Each stage pulls from the previous stage on
// demand, providing natural backpressure without explicit flow control.
// Sources may be unbounded: bound them with Limit, or consume incrementally.
//
// # Stages
//
// Transformations (accept StageOption; run sequentially unless InParallel
// is applied):
//
//   - Map: transform each value
//   - Filter / Exclude: keep or drop values matching a predicate
//   - KeyMap / ValueMap: transform one side of a Pair
//
// A parallel stage runs its user function on a bounded pool
// (executor.KindWorkers, executor.KindConc, or executor.KindSequential) and
// emits results in input order. The stage keeps at most workers*slack items
// in flight; the pool is created on first pull and torn down on exhaustion,
// error, or Close. Failures carry the input index via ItemError and halt
// the stage unless WithSkipFailed is applied.
//
// Plumbing (always sequential, no options):
//
//   - Flatten: expand []T items into their elements
//   - FlatMap: expand each value through an iterator (may be unbounded)
//   - Tap: side-effect without altering the value
//   - Distinct, Limit, Skip, Chunk: the usual stream utilities
//   - Throttle: emit at most one value per interval, dropping the rest
//   - Reduce: accumulate all values into one result
//   - Concat: join pipelines sequentially
//
// Concurrent plumbing:
//
//   - Buffer: decouple producer/consumer with a buffered channel (ordered)
//   - Merge: combine pipelines as values arrive (order NOT preserved)
//   - FanOut: apply several functions to each value concurrently
//
// # Sources
//
// FromSlice, FromMap, FromSeq, and Iterate are re-iterable: every
// evaluation pass restarts them. From (a raw Iterator) and FromChannel are
// single-pass: a second pass yields ErrSourceConsumed.
//
// # Usage
//
//	src := stream.FromSlice([]int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9})
//	squared := stream.Map(src, func(_ context.Context, n int) (int, error) {
//	    return n * n, nil
//	}, stream.InParallel(executor.KindWorkers, 4))
//	even := stream.Filter(squared, func(_ context.Context, n int) (bool, error) {
//	    return n%2 == 0, nil
//	})
//	results, err := stream.Collect(ctx, even)
package stream
