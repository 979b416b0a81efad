package stream

import (
	"context"
	"iter"
	"sync/atomic"
)

// From creates a pipeline from an existing Iterator. The iterator is a
// single-pass source: iterating the pipeline (or any pipeline derived from
// it) a second time yields ErrSourceConsumed.
func From[T any](it Iterator[T]) *Pipeline[T] {
	var used atomic.Bool
	return &Pipeline[T]{
		create: func(_ context.Context) Iterator[T] {
			if used.Swap(true) {
				return &errIter[T]{err: ErrSourceConsumed}
			}
			return it
		},
	}
}

// FromSlice creates a pipeline from a slice of values. The source is
// re-iterable: every evaluation pass walks the slice from the start.
func FromSlice[T any](items []T) *Pipeline[T] {
	return &Pipeline[T]{
		create: func(_ context.Context) Iterator[T] {
			return &sliceIter[T]{items: items}
		},
	}
}

// FromFunc creates a pipeline from a factory that produces an Iterator.
// The factory is invoked once per evaluation pass; whether the pipeline is
// re-iterable is up to the factory.
func FromFunc[T any](fn func(ctx context.Context) Iterator[T]) *Pipeline[T] {
	return &Pipeline[T]{create: fn}
}

// FromChannel creates a pipeline that drains a channel. The channel is a
// single-pass source: a second iteration yields ErrSourceConsumed. The
// pipeline is exhausted when the channel is closed.
func FromChannel[T any](ch <-chan T) *Pipeline[T] {
	var used atomic.Bool
	return &Pipeline[T]{
		create: func(_ context.Context) Iterator[T] {
			if used.Swap(true) {
				return &errIter[T]{err: ErrSourceConsumed}
			}
			return &chanSourceIter[T]{ch: ch}
		},
	}
}

// FromSeq creates a pipeline from an iter.Seq. The sequence is pulled
// lazily. Re-iteration re-invokes seq, so multi-pass behavior follows the
// sequence's own semantics.
func FromSeq[T any](seq iter.Seq[T]) *Pipeline[T] {
	return &Pipeline[T]{
		create: func(_ context.Context) Iterator[T] {
			next, stop := iter.Pull(seq)
			return &seqIter[T]{next: next, stop: stop}
		},
	}
}

// FromMap creates a pipeline of key/value pairs from a map. Iteration order
// is unspecified, matching Go map iteration. Re-iterable.
func FromMap[K comparable, V any](m map[K]V) *Pipeline[Pair[K, V]] {
	return &Pipeline[Pair[K, V]]{
		create: func(_ context.Context) Iterator[Pair[K, V]] {
			items := make([]Pair[K, V], 0, len(m))
			for k, v := range m {
				items = append(items, Pair[K, V]{Key: k, Val: v})
			}
			return &sliceIter[Pair[K, V]]{items: items}
		},
	}
}

// Iterate creates an unbounded pipeline of seed, next(seed),
// next(next(seed)), and so on. Bound it with Limit before collecting.
// Re-iterable: every pass restarts from seed.
func Iterate[T any](seed T, next func(T) T) *Pipeline[T] {
	return &Pipeline[T]{
		create: func(_ context.Context) Iterator[T] {
			return &iterateIter[T]{cur: seed, next: next}
		},
	}
}

// --- Source iterators ---

type sliceIter[T any] struct {
	items []T
	index int
}

func (it *sliceIter[T]) Next(_ context.Context) (T, bool, error) {
	if it.index >= len(it.items) {
		var zero T
		return zero, false, nil
	}
	val := it.items[it.index]
	it.index++
	return val, true, nil
}

func (it *sliceIter[T]) Close() error { return nil }

type chanSourceIter[T any] struct {
	ch <-chan T
}

func (it *chanSourceIter[T]) Next(ctx context.Context) (T, bool, error) {
	select {
	case val, open := <-it.ch:
		if !open {
			var zero T
			return zero, false, nil
		}
		return val, true, nil
	case <-ctx.Done():
		var zero T
		return zero, false, ctx.Err()
	}
}

func (it *chanSourceIter[T]) Close() error { return nil }

type seqIter[T any] struct {
	next func() (T, bool)
	stop func()
}

func (it *seqIter[T]) Next(_ context.Context) (T, bool, error) {
	val, ok := it.next()
	if !ok {
		var zero T
		return zero, false, nil
	}
	return val, true, nil
}

func (it *seqIter[T]) Close() error {
	it.stop()
	return nil
}

type iterateIter[T any] struct {
	cur  T
	next func(T) T
}

func (it *iterateIter[T]) Next(_ context.Context) (T, bool, error) {
	val := it.cur
	it.cur = it.next(it.cur)
	return val, true, nil
}

func (it *iterateIter[T]) Close() error { return nil }
