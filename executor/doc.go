// Package executor provides bounded task execution backends behind a single
// Executor interface, plus a Pool wrapper that manages backend lifecycle for
// one evaluation pass.
//
// An Executor accepts fire-and-forget tasks. Submit returns once the task is
// queued (or ran, for the sequential backend); completion is observed through
// whatever side channel the task itself carries. Capacity is bounded: Submit
// blocks once workers and queue are saturated, which is the backpressure
// point for callers that feed work from a pull loop.
//
// # Backends
//
//   - KindSequential: runs each task inline on the submitting goroutine.
//     No extra goroutines, no queue.
//   - KindWorkers: a fixed set of worker goroutines fed from a bounded queue.
//   - KindConc: a sourcegraph/conc pool with the same bounded-queue front.
//
// # Pool
//
// Pool defers backend construction until first use and guarantees the
// backend can be released exactly once, no matter how many paths race to
// release it. A Pool backs a single evaluation pass of a single stage; it is
// never shared or reused.
//
//	p, err := executor.NewPool(executor.Spec{Kind: executor.KindWorkers, Workers: 4, Queue: 4})
//	if err != nil { ... }
//	exec, err := p.Get()
//	...
//	p.Release(true)
package executor
