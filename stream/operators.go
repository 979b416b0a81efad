package stream

import (
	"context"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
)

// Map transforms each value using fn. With InParallel, fn runs on a bounded
// worker pool and results are emitted in input order.
func Map[I, O any](p *Pipeline[I], fn func(context.Context, I) (O, error), opts ...StageOption) *Pipeline[O] {
	cfg := newStageConfig("map", opts)
	if cfg.parallel() {
		return staged(p, cfg, func(ctx context.Context, val I) (O, bool, error) {
			out, err := fn(ctx, val)
			return out, err == nil, err
		})
	}
	return &Pipeline[O]{
		create: func(ctx context.Context) Iterator[O] {
			if cfg.err != nil {
				return &errIter[O]{err: cfg.err}
			}
			return &mapIter[I, O]{source: p.create(ctx), fn: fn, cfg: cfg}
		},
	}
}

// Filter keeps only values that satisfy the predicate. With InParallel, the
// predicate runs on a bounded worker pool; surviving values keep their
// input order.
func Filter[T any](p *Pipeline[T], pred func(context.Context, T) (bool, error), opts ...StageOption) *Pipeline[T] {
	return filtered(p, "filter", false, pred, opts)
}

// Exclude drops values that satisfy the predicate. The complement of
// Filter: for any input, Filter(pred) and Exclude(pred) partition it.
func Exclude[T any](p *Pipeline[T], pred func(context.Context, T) (bool, error), opts ...StageOption) *Pipeline[T] {
	return filtered(p, "exclude", true, pred, opts)
}

func filtered[T any](p *Pipeline[T], op string, invert bool, pred func(context.Context, T) (bool, error), opts []StageOption) *Pipeline[T] {
	cfg := newStageConfig(op, opts)
	if cfg.parallel() {
		return staged(p, cfg, func(ctx context.Context, val T) (T, bool, error) {
			keep, err := pred(ctx, val)
			if err != nil {
				return val, false, err
			}
			return val, keep != invert, nil
		})
	}
	return &Pipeline[T]{
		create: func(ctx context.Context) Iterator[T] {
			if cfg.err != nil {
				return &errIter[T]{err: cfg.err}
			}
			return &filterIter[T]{source: p.create(ctx), pred: pred, invert: invert, cfg: cfg}
		},
	}
}

// staged builds the ordered parallel form of a stage from its compute
// function. compute returns the output value, whether to emit it, and the
// user error, if any.
func staged[I, O any](p *Pipeline[I], cfg *stageConfig, compute func(context.Context, I) (O, bool, error)) *Pipeline[O] {
	return &Pipeline[O]{
		create: func(ctx context.Context) Iterator[O] {
			if cfg.err != nil {
				return &errIter[O]{err: cfg.err}
			}
			return newParallelIter(ctx, p.create(ctx), cfg, compute)
		},
	}
}

// Flatten expands each slice into its elements, preserving order. Compose
// with a parallel Map to compute the slices concurrently; the expansion
// itself is sequential.
func Flatten[T any](p *Pipeline[[]T]) *Pipeline[T] {
	return &Pipeline[T]{
		create: func(ctx context.Context) Iterator[T] {
			return &flattenIter[T]{source: p.create(ctx)}
		},
	}
}

// FlatMap transforms each value into an iterator and flattens the results.
// Inner iterators may be unbounded; they are drained lazily.
func FlatMap[I, O any](p *Pipeline[I], fn func(context.Context, I) (Iterator[O], error)) *Pipeline[O] {
	return &Pipeline[O]{
		create: func(ctx context.Context) Iterator[O] {
			return &flatMapIter[I, O]{source: p.create(ctx), fn: fn}
		},
	}
}

// Tap calls fn as a side-effect for each value, then passes the value
// through unchanged. Use for logging, metrics, or mid-pipeline publishing.
func Tap[T any](p *Pipeline[T], fn func(context.Context, T) error) *Pipeline[T] {
	return &Pipeline[T]{
		create: func(ctx context.Context) Iterator[T] {
			return &tapIter[T]{source: p.create(ctx), fn: fn}
		},
	}
}

// FanOut applies every function to each value concurrently and emits the
// results as one slice per value, in function order. Any function error
// fails the value.
func FanOut[I, O any](p *Pipeline[I], fns ...func(context.Context, I) (O, error)) *Pipeline[[]O] {
	return &Pipeline[[]O]{
		create: func(ctx context.Context) Iterator[[]O] {
			return &fanOutIter[I, O]{source: p.create(ctx), fns: fns}
		},
	}
}

// Distinct drops values that have already been seen. The set of seen values
// is held in memory for the duration of the pass.
func Distinct[T comparable](p *Pipeline[T]) *Pipeline[T] {
	return &Pipeline[T]{
		create: func(ctx context.Context) Iterator[T] {
			return &distinctIter[T]{source: p.create(ctx), seen: make(map[T]struct{})}
		},
	}
}

// Limit passes through at most n values, then reports exhaustion without
// pulling further upstream. The usual way to bound an Iterate pipeline.
func Limit[T any](p *Pipeline[T], n int) *Pipeline[T] {
	return &Pipeline[T]{
		create: func(ctx context.Context) Iterator[T] {
			return &limitIter[T]{source: p.create(ctx), remaining: n}
		},
	}
}

// Skip drops the first n values.
func Skip[T any](p *Pipeline[T], n int) *Pipeline[T] {
	return &Pipeline[T]{
		create: func(ctx context.Context) Iterator[T] {
			return &skipIter[T]{source: p.create(ctx), skip: n}
		},
	}
}

// Throttle emits at most one value per interval and drops the rest.
// Upstream is still pulled for dropped values.
func Throttle[T any](p *Pipeline[T], interval time.Duration) *Pipeline[T] {
	return &Pipeline[T]{
		create: func(ctx context.Context) Iterator[T] {
			return &throttleIter[T]{source: p.create(ctx), interval: interval}
		},
	}
}

// Chunk groups consecutive values into slices of size n. The final chunk
// may be shorter.
func Chunk[T any](p *Pipeline[T], n int) *Pipeline[[]T] {
	if n < 1 {
		n = 1
	}
	return &Pipeline[[]T]{
		create: func(ctx context.Context) Iterator[[]T] {
			return &chunkIter[T]{source: p.create(ctx), size: n}
		},
	}
}

// Reduce accumulates all values into a single result.
// The pipeline yields exactly one value: the final accumulator.
func Reduce[T, R any](p *Pipeline[T], init R, fn func(R, T) R) *Pipeline[R] {
	return &Pipeline[R]{
		create: func(ctx context.Context) Iterator[R] {
			return &reduceIter[T, R]{source: p.create(ctx), acc: init, fn: fn}
		},
	}
}

// Concat joins multiple pipelines sequentially.
// All values from the first pipeline are yielded before the second, etc.
func Concat[T any](pipelines ...*Pipeline[T]) *Pipeline[T] {
	return &Pipeline[T]{
		create: func(ctx context.Context) Iterator[T] {
			iters := make([]Iterator[T], len(pipelines))
			for i, p := range pipelines {
				iters[i] = p.create(ctx)
			}
			return &concatIter[T]{iters: iters}
		},
	}
}

// --- Iterator implementations ---

type mapIter[I, O any] struct {
	source Iterator[I]
	fn     func(context.Context, I) (O, error)
	cfg    *stageConfig
	idx    int64
}

func (it *mapIter[I, O]) Next(ctx context.Context) (O, bool, error) {
	for {
		val, ok, err := it.source.Next(ctx)
		if err != nil || !ok {
			var zero O
			return zero, false, err
		}
		idx := it.idx
		it.idx++
		out, err := it.fn(ctx, val)
		if err != nil {
			if it.cfg.skipFailed {
				continue
			}
			var zero O
			return zero, false, &ItemError{Index: idx, Stage: it.cfg.name, Err: err}
		}
		return out, true, nil
	}
}

func (it *mapIter[I, O]) Close() error { return it.source.Close() }

type filterIter[T any] struct {
	source Iterator[T]
	pred   func(context.Context, T) (bool, error)
	invert bool
	cfg    *stageConfig
	idx    int64
}

func (it *filterIter[T]) Next(ctx context.Context) (T, bool, error) {
	for {
		val, ok, err := it.source.Next(ctx)
		if err != nil || !ok {
			var zero T
			return zero, false, err
		}
		idx := it.idx
		it.idx++
		keep, err := it.pred(ctx, val)
		if err != nil {
			if it.cfg.skipFailed {
				continue
			}
			var zero T
			return zero, false, &ItemError{Index: idx, Stage: it.cfg.name, Err: err}
		}
		if keep != it.invert {
			return val, true, nil
		}
	}
}

func (it *filterIter[T]) Close() error { return it.source.Close() }

type flattenIter[T any] struct {
	source  Iterator[[]T]
	current []T
	pos     int
}

func (it *flattenIter[T]) Next(ctx context.Context) (T, bool, error) {
	for {
		if it.pos < len(it.current) {
			val := it.current[it.pos]
			it.pos++
			return val, true, nil
		}
		chunk, ok, err := it.source.Next(ctx)
		if err != nil || !ok {
			var zero T
			return zero, false, err
		}
		it.current, it.pos = chunk, 0
	}
}

func (it *flattenIter[T]) Close() error { return it.source.Close() }

type flatMapIter[I, O any] struct {
	source  Iterator[I]
	fn      func(context.Context, I) (Iterator[O], error)
	current Iterator[O]
	idx     int64
}

func (it *flatMapIter[I, O]) Next(ctx context.Context) (O, bool, error) {
	for {
		if it.current != nil {
			val, ok, err := it.current.Next(ctx)
			if err != nil {
				var zero O
				return zero, false, err
			}
			if ok {
				return val, true, nil
			}
			_ = it.current.Close()
			it.current = nil
		}
		in, ok, err := it.source.Next(ctx)
		if err != nil || !ok {
			var zero O
			return zero, false, err
		}
		idx := it.idx
		it.idx++
		inner, err := it.fn(ctx, in)
		if err != nil {
			var zero O
			return zero, false, &ItemError{Index: idx, Stage: "flatmap", Err: err}
		}
		it.current = inner
	}
}

func (it *flatMapIter[I, O]) Close() error {
	if it.current != nil {
		_ = it.current.Close()
	}
	return it.source.Close()
}

type tapIter[T any] struct {
	source Iterator[T]
	fn     func(context.Context, T) error
}

func (it *tapIter[T]) Next(ctx context.Context) (T, bool, error) {
	val, ok, err := it.source.Next(ctx)
	if err != nil || !ok {
		return val, ok, err
	}
	if err := it.fn(ctx, val); err != nil {
		var zero T
		return zero, false, err
	}
	return val, true, nil
}

func (it *tapIter[T]) Close() error { return it.source.Close() }

type fanOutIter[I, O any] struct {
	source Iterator[I]
	fns    []func(context.Context, I) (O, error)
	idx    int64
}

func (it *fanOutIter[I, O]) Next(ctx context.Context) ([]O, bool, error) {
	val, ok, err := it.source.Next(ctx)
	if err != nil || !ok {
		return nil, false, err
	}
	idx := it.idx
	it.idx++
	results := make([]O, len(it.fns))
	errs := make([]error, len(it.fns))
	var wg conc.WaitGroup
	for i, fn := range it.fns {
		wg.Go(func() {
			if r := panics.Try(func() { results[i], errs[i] = fn(ctx, val) }); r != nil {
				errs[i] = r.AsError()
			}
		})
	}
	wg.Wait()
	for _, e := range errs {
		if e != nil {
			return nil, false, &ItemError{Index: idx, Stage: "fanout", Err: e}
		}
	}
	return results, true, nil
}

func (it *fanOutIter[I, O]) Close() error { return it.source.Close() }

type distinctIter[T comparable] struct {
	source Iterator[T]
	seen   map[T]struct{}
}

func (it *distinctIter[T]) Next(ctx context.Context) (T, bool, error) {
	for {
		val, ok, err := it.source.Next(ctx)
		if err != nil || !ok {
			return val, false, err
		}
		if _, dup := it.seen[val]; dup {
			continue
		}
		it.seen[val] = struct{}{}
		return val, true, nil
	}
}

func (it *distinctIter[T]) Close() error { return it.source.Close() }

type limitIter[T any] struct {
	source    Iterator[T]
	remaining int
}

func (it *limitIter[T]) Next(ctx context.Context) (T, bool, error) {
	if it.remaining <= 0 {
		var zero T
		return zero, false, nil
	}
	val, ok, err := it.source.Next(ctx)
	if err != nil || !ok {
		var zero T
		return zero, false, err
	}
	it.remaining--
	return val, true, nil
}

func (it *limitIter[T]) Close() error { return it.source.Close() }

type skipIter[T any] struct {
	source Iterator[T]
	skip   int
}

func (it *skipIter[T]) Next(ctx context.Context) (T, bool, error) {
	for it.skip > 0 {
		_, ok, err := it.source.Next(ctx)
		if err != nil || !ok {
			var zero T
			return zero, false, err
		}
		it.skip--
	}
	return it.source.Next(ctx)
}

func (it *skipIter[T]) Close() error { return it.source.Close() }

type throttleIter[T any] struct {
	source   Iterator[T]
	interval time.Duration
	lastEmit time.Time
}

func (it *throttleIter[T]) Next(ctx context.Context) (T, bool, error) {
	for {
		val, ok, err := it.source.Next(ctx)
		if err != nil || !ok {
			return val, false, err
		}
		now := time.Now()
		if it.lastEmit.IsZero() || now.Sub(it.lastEmit) >= it.interval {
			it.lastEmit = now
			return val, true, nil
		}
	}
}

func (it *throttleIter[T]) Close() error { return it.source.Close() }

type chunkIter[T any] struct {
	source Iterator[T]
	size   int
	done   bool
}

func (it *chunkIter[T]) Next(ctx context.Context) ([]T, bool, error) {
	if it.done {
		return nil, false, nil
	}
	chunk := make([]T, 0, it.size)
	for len(chunk) < it.size {
		val, ok, err := it.source.Next(ctx)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			it.done = true
			break
		}
		chunk = append(chunk, val)
	}
	if len(chunk) == 0 {
		return nil, false, nil
	}
	return chunk, true, nil
}

func (it *chunkIter[T]) Close() error { return it.source.Close() }

type reduceIter[T, R any] struct {
	source Iterator[T]
	acc    R
	fn     func(R, T) R
	done   bool
}

func (it *reduceIter[T, R]) Next(ctx context.Context) (R, bool, error) {
	if it.done {
		var zero R
		return zero, false, nil
	}
	for {
		val, ok, err := it.source.Next(ctx)
		if err != nil {
			var zero R
			return zero, false, err
		}
		if !ok {
			it.done = true
			return it.acc, true, nil
		}
		it.acc = it.fn(it.acc, val)
	}
}

func (it *reduceIter[T, R]) Close() error { return it.source.Close() }

type concatIter[T any] struct {
	iters []Iterator[T]
	index int
}

func (it *concatIter[T]) Next(ctx context.Context) (T, bool, error) {
	for it.index < len(it.iters) {
		val, ok, err := it.iters[it.index].Next(ctx)
		if err != nil {
			return val, false, err
		}
		if ok {
			return val, true, nil
		}
		it.index++
	}
	var zero T
	return zero, false, nil
}

func (it *concatIter[T]) Close() error {
	var firstErr error
	for _, iter := range it.iters {
		if err := iter.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
