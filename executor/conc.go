package executor

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/sourcegraph/conc/pool"
)

// concExecutor runs tasks on a sourcegraph/conc pool capped at a fixed
// goroutine count. A single pump goroutine moves tasks from the bounded
// queue into the pool, so Submit keeps the same non-blocking window as the
// workers backend.
type concExecutor struct {
	workers  int
	tasks    chan Task
	stop     chan struct{}
	pumpDone chan struct{}
	once     sync.Once
	waitOnce sync.Once
	pool     *pool.Pool

	live      atomic.Int64
	inFlight  atomic.Int64
	submitted atomic.Uint64
	completed atomic.Uint64
}

func newConc(workers, queue int) *concExecutor {
	e := &concExecutor{
		workers:  workers,
		tasks:    make(chan Task, queue),
		stop:     make(chan struct{}),
		pumpDone: make(chan struct{}),
		pool:     pool.New().WithMaxGoroutines(workers),
	}
	go e.pump()
	return e
}

func (e *concExecutor) pump() {
	defer close(e.pumpDone)
	e.live.Add(1)
	defer e.live.Add(-1)
	for {
		select {
		case <-e.stop:
			return
		case task := <-e.tasks:
			select {
			case <-e.stop:
				return
			default:
			}
			e.pool.Go(func() {
				e.live.Add(1)
				task()
				e.live.Add(-1)
				e.inFlight.Add(-1)
				e.completed.Add(1)
			})
		}
	}
}

func (e *concExecutor) Submit(ctx context.Context, task Task) error {
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

func (e *concExecutor) Shutdown(wait bool) {
	e.once.Do(func() { close(e.stop) })
	if wait {
		<-e.pumpDone
		e.waitOnce.Do(e.pool.Wait)
		return
	}
	go func() {
		<-e.pumpDone
		e.waitOnce.Do(e.pool.Wait)
	}()
}

func (e *concExecutor) Stats() Stats {
	return Stats{
		Kind:      KindConc,
		Workers:   e.workers,
		Queue:     cap(e.tasks),
		InFlight:  e.inFlight.Load(),
		Live:      e.live.Load(),
		Submitted: e.submitted.Load(),
		Completed: e.completed.Load(),
	}
}
