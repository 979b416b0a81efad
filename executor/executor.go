package executor

import (
	"context"
	"errors"
)

// Common executor errors.
var (
	// ErrClosed is returned by Submit after Shutdown has been called.
	ErrClosed = errors.New("executor is closed")
)

// Kind selects an execution backend.
type Kind string

const (
	// KindSequential runs tasks inline on the submitting goroutine.
	KindSequential Kind = "sequential"
	// KindWorkers runs tasks on a fixed set of worker goroutines.
	KindWorkers Kind = "workers"
	// KindConc runs tasks on a sourcegraph/conc goroutine pool.
	KindConc Kind = "conc"
)

// Valid reports whether k names a known backend.
func (k Kind) Valid() bool {
	switch k {
	case KindSequential, KindWorkers, KindConc:
		return true
	}
	return false
}

// Task is a unit of work. Tasks carry their own result channel; the
// executor only schedules them.
type Task func()

// Executor schedules tasks onto a bounded backend.
type Executor interface {
	// Submit queues task for execution. It blocks while the backend is at
	// capacity and returns ctx.Err() if ctx is done first, or ErrClosed
	// after Shutdown.
	Submit(ctx context.Context, task Task) error
	// Shutdown stops accepting work. Tasks already being executed run to
	// completion; queued tasks may be discarded. With wait true it blocks
	// until all backend goroutines have exited.
	Shutdown(wait bool)
	// Stats returns a snapshot of backend counters.
	Stats() Stats
}

// Stats is a point-in-time snapshot of an executor's counters.
type Stats struct {
	// Kind is the backend kind.
	Kind Kind
	// Workers is the configured number of concurrent task slots.
	Workers int
	// Queue is the configured task buffer beyond Workers.
	Queue int
	// InFlight counts tasks submitted but not yet completed.
	InFlight int64
	// Live counts backend goroutines currently running. It is exact at
	// quiescence: zero once Shutdown(true) has returned.
	Live int64
	// Submitted and Completed are cumulative task counts.
	Submitted uint64
	Completed uint64
}
