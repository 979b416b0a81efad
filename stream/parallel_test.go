package stream

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/skillsenselab/streamkit/executor"
)

func backendKinds() []executor.Kind {
	return []executor.Kind{executor.KindWorkers, executor.KindConc}
}

func TestParallelMap_PreservesOrder(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	for _, kind := range backendKinds() {
		t.Run(string(kind), func(t *testing.T) {
			src := FromSlice(intRange(0, 50))
			jittered := Map(src, func(_ context.Context, n int) (int, error) {
				time.Sleep(time.Duration(rand.Intn(3)) * time.Millisecond)
				return n * n, nil
			}, InParallel(kind, 4))

			got, err := Collect(context.Background(), jittered)
			if err != nil {
				t.Fatal(err)
			}
			want := make([]int, 50)
			for i := range want {
				want[i] = i * i
			}
			if !intSliceEqual(got, want) {
				t.Errorf("got %v, want %v", got, want)
			}
		})
	}
}

func TestParallelMap_ThenFilter(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	src := FromSlice(intRange(0, 10))
	doubled := Map(src, func(_ context.Context, n int) (int, error) {
		time.Sleep(time.Duration(rand.Intn(2)) * time.Millisecond)
		return n * 2, nil
	}, InParallel(executor.KindWorkers, 4))
	kept := Filter(doubled, func(_ context.Context, n int) (bool, error) {
		return n%4 == 0, nil
	})

	got, err := Collect(context.Background(), kept)
	if err != nil {
		t.Fatal(err)
	}
	want := []int{0, 4, 8, 12, 16}
	if !intSliceEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestParallelFilter_PreservesOrder(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	src := FromSlice(intRange(0, 40))
	kept := Filter(src, func(_ context.Context, n int) (bool, error) {
		time.Sleep(time.Duration(rand.Intn(2)) * time.Millisecond)
		return n%3 == 0, nil
	}, InParallel(executor.KindWorkers, 5))

	got, err := Collect(context.Background(), kept)
	if err != nil {
		t.Fatal(err)
	}
	var want []int
	for n := 0; n < 40; n += 3 {
		want = append(want, n)
	}
	if !intSliceEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestParallel_MatchesSequential(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	build := func(opts ...StageOption) *Pipeline[int] {
		src := FromSlice(intRange(0, 60))
		squared := Map(src, func(_ context.Context, n int) (int, error) {
			return n*n - n, nil
		}, opts...)
		kept := Exclude(squared, func(_ context.Context, n int) (bool, error) {
			return n%7 == 0, nil
		}, opts...)
		return Map(kept, func(_ context.Context, n int) (int, error) {
			return n + 1, nil
		}, opts...)
	}

	want, err := Collect(context.Background(), build())
	if err != nil {
		t.Fatal(err)
	}
	for _, kind := range backendKinds() {
		t.Run(string(kind), func(t *testing.T) {
			got, err := Collect(context.Background(), build(InParallel(kind, 4), WithSlack(2)))
			if err != nil {
				t.Fatal(err)
			}
			if !intSliceEqual(got, want) {
				t.Errorf("parallel output diverged: got %v, want %v", got, want)
			}
		})
	}
}

func TestParallelMap_SingleWorkerMatchesSequential(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	src := FromSlice(intRange(0, 20))
	p := Map(src, func(_ context.Context, n int) (int, error) {
		return n * 3, nil
	}, InParallel(executor.KindWorkers, 1))

	got, err := Collect(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	want := make([]int, 20)
	for i := range want {
		want[i] = i * 3
	}
	if !intSliceEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestParallelMap_Lazy(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	var calls atomic.Int64
	src := Iterate(0, func(n int) int { return n + 1 })
	p := Map(src, func(_ context.Context, n int) (int, error) {
		calls.Add(1)
		return n, nil
	}, InParallel(executor.KindWorkers, 2))

	if calls.Load() != 0 {
		t.Fatalf("composition invoked the user function %d times", calls.Load())
	}

	it := p.Iter(context.Background())
	if calls.Load() != 0 {
		t.Fatalf("Iter invoked the user function %d times before first Next", calls.Load())
	}

	if _, ok, err := it.Next(context.Background()); err != nil || !ok {
		t.Fatalf("Next: ok=%v err=%v", ok, err)
	}
	if calls.Load() == 0 {
		t.Error("first Next did not start evaluation")
	}
	if err := it.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestParallelMap_BackpressureBound(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	const workers, slack = 2, 2
	capacity := workers * slack

	var pulled atomic.Int64
	src := Iterate(0, func(n int) int { return n + 1 })
	counted := Map(src, func(_ context.Context, n int) (int, error) {
		pulled.Add(1)
		return n, nil
	})
	p := Map(counted, func(_ context.Context, n int) (int, error) {
		return n * 10, nil
	}, InParallel(executor.KindWorkers, workers), WithSlack(slack))

	it := p.Iter(context.Background())
	defer it.Close()

	for delivered := 1; delivered <= 25; delivered++ {
		val, ok, err := it.Next(context.Background())
		if err != nil || !ok {
			t.Fatalf("Next #%d: ok=%v err=%v", delivered, ok, err)
		}
		if want := (delivered - 1) * 10; val != want {
			t.Fatalf("Next #%d: got %d, want %d", delivered, val, want)
		}
		if n := pulled.Load(); n > int64(delivered+capacity) {
			t.Fatalf("after %d deliveries the stage had pulled %d items, bound is %d",
				delivered, n, delivered+capacity)
		}
	}
}

func TestParallelMap_FailFast(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	boom := errors.New("boom")
	var maxComputed atomic.Int64
	maxComputed.Store(-1)

	const workers, slack = 4, 1
	src := FromSlice(intRange(0, 100))
	p := Map(src, func(_ context.Context, n int) (int, error) {
		for {
			cur := maxComputed.Load()
			if int64(n) <= cur || maxComputed.CompareAndSwap(cur, int64(n)) {
				break
			}
		}
		if n == 5 {
			return 0, boom
		}
		return n * 2, nil
	}, InParallel(executor.KindWorkers, workers), WithSlack(slack))

	got, err := Collect(context.Background(), p)
	if err == nil {
		t.Fatal("expected error")
	}

	var itemErr *ItemError
	if !errors.As(err, &itemErr) {
		t.Fatalf("error %v is not an ItemError", err)
	}
	if itemErr.Index != 5 {
		t.Errorf("failing index = %d, want 5", itemErr.Index)
	}
	if !errors.Is(err, boom) {
		t.Errorf("error %v does not wrap the user error", err)
	}

	want := []int{0, 2, 4, 6, 8}
	if !intSliceEqual(got, want) {
		t.Errorf("delivered %v before the error, want %v", got, want)
	}

	// Lookahead may compute items past the failure, but never more than
	// the stage's in-flight capacity.
	if m := maxComputed.Load(); m > 5+int64(workers*slack) {
		t.Errorf("computed item %d, beyond the failure plus capacity", m)
	}
}

func TestParallelFilter_FailFastAtIndex(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	bad := errors.New("bad predicate")
	src := FromSlice([]string{"a", "b", "c", "d", "e"})
	p := Filter(src, func(_ context.Context, s string) (bool, error) {
		if s == "c" {
			return false, bad
		}
		return true, nil
	}, InParallel(executor.KindWorkers, 2))

	got, err := Collect(context.Background(), p)
	if !errors.Is(err, bad) {
		t.Fatalf("got %v, want the predicate error", err)
	}
	var itemErr *ItemError
	if !errors.As(err, &itemErr) || itemErr.Index != 2 {
		t.Fatalf("error %v does not carry index 2", err)
	}
	if !strSliceEqual(got, []string{"a", "b"}) {
		t.Errorf("delivered %v before the error, want [a b]", got)
	}
}

func TestParallelMap_SkipFailed(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	src := FromSlice(intRange(0, 10))
	p := Map(src, func(_ context.Context, n int) (int, error) {
		if n%3 == 0 {
			return 0, fmt.Errorf("rejecting %d", n)
		}
		return n, nil
	}, InParallel(executor.KindWorkers, 3), WithSkipFailed())

	got, err := Collect(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	want := []int{1, 2, 4, 5, 7, 8}
	if !intSliceEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestParallelMap_RecoversPanic(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	src := FromSlice(intRange(0, 10))
	p := Map(src, func(_ context.Context, n int) (int, error) {
		if n == 3 {
			panic("worker exploded")
		}
		return n, nil
	}, InParallel(executor.KindWorkers, 2))

	got, err := Collect(context.Background(), p)
	if err == nil {
		t.Fatal("expected error from panicking worker")
	}
	var itemErr *ItemError
	if !errors.As(err, &itemErr) || itemErr.Index != 3 {
		t.Fatalf("error %v does not carry index 3", err)
	}
	if !intSliceEqual(got, []int{0, 1, 2}) {
		t.Errorf("delivered %v before the panic, want [0 1 2]", got)
	}
}

func TestParallelMap_PoolReleasedOnExhaustion(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	src := FromSlice(intRange(0, 8))
	p := Map(src, func(_ context.Context, n int) (int, error) {
		return n, nil
	}, InParallel(executor.KindWorkers, 2))

	it := p.Iter(context.Background())
	pi, ok := it.(*parallelIter[int, int])
	if !ok {
		t.Fatalf("expected a parallel iterator, got %T", it)
	}
	for {
		_, more, err := it.Next(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if !more {
			break
		}
	}
	if live := pi.pool.Stats().Live; live != 0 {
		t.Errorf("live=%d after exhaustion, want 0", live)
	}
	if err := it.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestParallelMap_PoolReleasedOnAbandonment(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	src := FromSlice(intRange(0, 1000))
	p := Map(src, func(_ context.Context, n int) (int, error) {
		return n, nil
	}, InParallel(executor.KindConc, 3))

	it := p.Iter(context.Background())
	pi, ok := it.(*parallelIter[int, int])
	if !ok {
		t.Fatalf("expected a parallel iterator, got %T", it)
	}
	for range 2 {
		if _, ok, err := it.Next(context.Background()); err != nil || !ok {
			t.Fatalf("Next: ok=%v err=%v", ok, err)
		}
	}
	if err := it.Close(); err != nil {
		t.Fatal(err)
	}
	if live := pi.pool.Stats().Live; live != 0 {
		t.Errorf("live=%d after Close, want 0", live)
	}
}

func TestParallelMap_PoolReleasedOnError(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	src := FromSlice(intRange(0, 100))
	p := Map(src, func(_ context.Context, n int) (int, error) {
		if n == 4 {
			return 0, errors.New("stop here")
		}
		return n, nil
	}, InParallel(executor.KindWorkers, 2))

	it := p.Iter(context.Background())
	pi := it.(*parallelIter[int, int])
	for {
		_, more, err := it.Next(context.Background())
		if err != nil {
			break
		}
		if !more {
			t.Fatal("exhausted without the expected error")
		}
	}
	if live := pi.pool.Stats().Live; live != 0 {
		t.Errorf("live=%d after error, want 0", live)
	}

	// The error is latched: further Next calls keep reporting it.
	if _, _, err := it.Next(context.Background()); err == nil {
		t.Error("Next after failure returned nil error")
	}
	if err := it.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestParallelMap_ContextCancellation(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	src := FromSlice(intRange(0, 50))
	p := Map(src, func(ctx context.Context, n int) (int, error) {
		select {
		case <-time.After(5 * time.Second):
			return n, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}, InParallel(executor.KindWorkers, 2))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	it := p.Iter(ctx)
	_, _, err := it.Next(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want context.DeadlineExceeded", err)
	}
	if err := it.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestParallelMap_InvalidConfig(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	var calls atomic.Int64
	fn := func(_ context.Context, n int) (int, error) {
		calls.Add(1)
		return n, nil
	}

	cases := []struct {
		name string
		opts []StageOption
	}{
		{"zero workers", []StageOption{InParallel(executor.KindWorkers, 0)}},
		{"negative workers", []StageOption{InParallel(executor.KindWorkers, -2)}},
		{"unknown backend", []StageOption{InParallel(executor.Kind("fibers"), 2)}},
		{"zero slack", []StageOption{InParallel(executor.KindWorkers, 2), WithSlack(0)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := Map(FromSlice(intRange(0, 5)), fn, tc.opts...)
			_, err := Collect(context.Background(), p)
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("got %v, want a ConfigError", err)
			}
			if calls.Load() != 0 {
				t.Errorf("user function ran %d times despite invalid config", calls.Load())
			}
		})
	}
}

func TestParallelMap_ExhaustionIsStable(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	src := FromSlice(intRange(0, 3))
	p := Map(src, func(_ context.Context, n int) (int, error) {
		return n, nil
	}, InParallel(executor.KindWorkers, 2))

	it := p.Iter(context.Background())
	defer it.Close()
	for {
		_, more, err := it.Next(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if !more {
			break
		}
	}
	for range 3 {
		if _, more, err := it.Next(context.Background()); more || err != nil {
			t.Fatalf("exhausted iterator returned more=%v err=%v", more, err)
		}
	}
}

func TestParallelStage_SequentialBackend(t *testing.T) {
	src := FromSlice(intRange(0, 10))
	p := Map(src, func(_ context.Context, n int) (int, error) {
		return n + 100, nil
	}, InParallel(executor.KindSequential, 1))

	got, err := Collect(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	want := make([]int, 10)
	for i := range want {
		want[i] = i + 100
	}
	if !intSliceEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func intRange(lo, hi int) []int {
	out := make([]int, 0, hi-lo)
	for n := lo; n < hi; n++ {
		out = append(out, n)
	}
	return out
}
