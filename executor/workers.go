package executor

import (
	"context"
	"sync"
	"sync/atomic"
)

// workerExecutor runs tasks on a fixed set of worker goroutines fed from a
// bounded queue. Submit blocks only once workers and queue are saturated.
type workerExecutor struct {
	workers int
	tasks   chan Task
	stop    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup

	live      atomic.Int64
	inFlight  atomic.Int64
	submitted atomic.Uint64
	completed atomic.Uint64
}

func newWorkers(workers, queue int) *workerExecutor {
	e := &workerExecutor{
		workers: workers,
		tasks:   make(chan Task, queue),
		stop:    make(chan struct{}),
	}
	e.wg.Add(workers)
	for range workers {
		go e.worker()
	}
	return e
}

func (e *workerExecutor) worker() {
	defer e.wg.Done()
	e.live.Add(1)
	defer e.live.Add(-1)
	for {
		select {
		case <-e.stop:
			return
		case task := <-e.tasks:
			task()
			e.inFlight.Add(-1)
			e.completed.Add(1)
		}
	}
}

func (e *workerExecutor) Submit(ctx context.Context, task Task) error {
	select {
	case <-e.stop:
		return ErrClosed
	default:
	}
	select {
	case e.tasks <- task:
		e.submitted.Add(1)
		e.inFlight.Add(1)
		return nil
	case <-e.stop:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *workerExecutor) Shutdown(wait bool) {
	e.once.Do(func() { close(e.stop) })
	if wait {
		e.wg.Wait()
	}
}

func (e *workerExecutor) Stats() Stats {
	return Stats{
		Kind:      KindWorkers,
		Workers:   e.workers,
		Queue:     cap(e.tasks),
		InFlight:  e.inFlight.Load(),
		Live:      e.live.Load(),
		Submitted: e.submitted.Load(),
		Completed: e.completed.Load(),
	}
}
