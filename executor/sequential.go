package executor

import (
	"context"
	"sync/atomic"
)

// sequentialExecutor runs every task inline on the goroutine that submits
// it. It exists so callers can treat serial and concurrent execution
// uniformly.
type sequentialExecutor struct {
	closed    atomic.Bool
	submitted atomic.Uint64
	completed atomic.Uint64
}

func newSequential() *sequentialExecutor {
	return &sequentialExecutor{}
}

func (e *sequentialExecutor) Submit(ctx context.Context, task Task) error {
	if e.closed.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	e.submitted.Add(1)
	task()
	e.completed.Add(1)
	return nil
}

func (e *sequentialExecutor) Shutdown(bool) {
	e.closed.Store(true)
}

func (e *sequentialExecutor) Stats() Stats {
	return Stats{
		Kind:      KindSequential,
		Workers:   1,
		Submitted: e.submitted.Load(),
		Completed: e.completed.Load(),
	}
}
