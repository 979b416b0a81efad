package stream

import (
	"context"
	"sync"

	"github.com/sourcegraph/conc/panics"

	"github.com/skillsenselab/streamkit/executor"
)

// pending is one in-flight item: its position in the stage input and, once
// the task completes, its computed result.
type pending[O any] struct {
	idx  int64
	done chan struct{}
	val  O
	emit bool
	err  error
}

// parallelIter runs a stage's compute function on a bounded pool while
// emitting results in input order. It holds a FIFO of at most capacity
// pending items; the head of the FIFO is always the next item to emit, so
// waiting on it realizes the ordering cursor. Each delivered item frees one
// slot, which pulls one more item upstream. Backpressure is therefore
// structural: the stage never looks more than capacity items ahead of the
// consumer.
//
// Errors are terminal: after a failure (user function, upstream, or
// cancellation) the pool is released and every subsequent Next returns the
// same error. Clean exhaustion also releases the pool and is stable.
type parallelIter[I, O any] struct {
	source  Iterator[I]
	compute func(context.Context, I) (O, bool, error)
	cfg     *stageConfig

	passCtx  context.Context
	cancel   context.CancelFunc
	pool     *executor.Pool
	exec     executor.Executor
	queue    []*pending[O]
	capacity int
	nextIdx  int64

	started  bool
	srcDone  bool
	finished bool
	failErr  error

	closeOnce sync.Once
	closeErr  error
}

func newParallelIter[I, O any](ctx context.Context, source Iterator[I], cfg *stageConfig, compute func(context.Context, I) (O, bool, error)) Iterator[O] {
	capacity := cfg.capacity()
	pool, err := executor.NewPool(executor.Spec{
		Kind:    cfg.kind,
		Workers: cfg.workers,
		Queue:   capacity - cfg.workers,
		Name:    cfg.name,
		Log:     cfg.log,
	})
	if err != nil {
		_ = source.Close()
		return &errIter[O]{err: &ConfigError{Stage: cfg.name, Err: err}}
	}
	passCtx, cancel := context.WithCancel(ctx)
	return &parallelIter[I, O]{
		source:   source,
		compute:  compute,
		cfg:      cfg,
		passCtx:  passCtx,
		cancel:   cancel,
		pool:     pool,
		capacity: capacity,
	}
}

func (it *parallelIter[I, O]) Next(ctx context.Context) (O, bool, error) {
	var zero O
	if it.failErr != nil {
		return zero, false, it.failErr
	}
	if it.finished {
		return zero, false, nil
	}
	if !it.started {
		it.started = true
		exec, err := it.pool.Get()
		if err != nil {
			return zero, false, it.fail(err)
		}
		it.exec = exec
		if err := it.prefill(ctx); err != nil {
			return zero, false, it.fail(err)
		}
	}

	for {
		if len(it.queue) == 0 {
			it.finished = true
			it.teardown()
			return zero, false, nil
		}

		head := it.queue[0]
		select {
		case <-head.done:
		case <-ctx.Done():
			return zero, false, it.fail(ctx.Err())
		}
		it.queue = it.queue[1:]

		if head.err != nil {
			if it.cfg.skipFailed {
				if it.cfg.log != nil {
					it.cfg.log.Debug("item skipped", map[string]interface{}{
						"stage": it.cfg.name,
						"index": head.idx,
						"error": head.err.Error(),
					})
				}
				if err := it.refill(ctx); err != nil {
					return zero, false, it.fail(err)
				}
				continue
			}
			return zero, false, it.fail(&ItemError{Index: head.idx, Stage: it.cfg.name, Err: head.err})
		}

		if err := it.refill(ctx); err != nil {
			return zero, false, it.fail(err)
		}
		if !head.emit {
			continue
		}
		return head.val, true, nil
	}
}

// prefill pulls and submits items until the FIFO is full or the upstream
// is exhausted. Runs once, on the first Next.
func (it *parallelIter[I, O]) prefill(ctx context.Context) error {
	for len(it.queue) < it.capacity && !it.srcDone {
		if err := it.pullOne(ctx); err != nil {
			return err
		}
	}
	return nil
}

// refill tops the FIFO back up by one after a delivery.
func (it *parallelIter[I, O]) refill(ctx context.Context) error {
	if it.srcDone || len(it.queue) >= it.capacity {
		return nil
	}
	return it.pullOne(ctx)
}

func (it *parallelIter[I, O]) pullOne(ctx context.Context) error {
	val, ok, err := it.source.Next(ctx)
	if err != nil {
		return err
	}
	if !ok {
		it.srcDone = true
		return nil
	}

	pen := &pending[O]{idx: it.nextIdx, done: make(chan struct{})}
	it.nextIdx++
	in := val
	task := func() {
		defer close(pen.done)
		pen.val, pen.emit, pen.err = it.runCompute(in)
	}
	if err := it.exec.Submit(ctx, task); err != nil {
		return err
	}
	it.queue = append(it.queue, pen)
	return nil
}

// runCompute invokes the user function with the pass context, converting
// panics into errors so a worker never kills the process.
func (it *parallelIter[I, O]) runCompute(in I) (out O, emit bool, err error) {
	if r := panics.Try(func() { out, emit, err = it.compute(it.passCtx, in) }); r != nil {
		err = r.AsError()
	}
	return out, emit, err
}

func (it *parallelIter[I, O]) fail(err error) error {
	it.failErr = err
	it.teardown()
	return err
}

// teardown cancels the pass and releases the pool. Idempotent; invoked on
// exhaustion, failure, and Close.
func (it *parallelIter[I, O]) teardown() {
	it.cancel()
	it.pool.Release(true)
}

func (it *parallelIter[I, O]) Close() error {
	it.closeOnce.Do(func() {
		it.teardown()
		it.closeErr = it.source.Close()
	})
	return it.closeErr
}
