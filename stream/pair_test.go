package stream

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/skillsenselab/streamkit/executor"
)

func TestKeyMap(t *testing.T) {
	p := FromSlice([]Pair[string, int]{
		{Key: "alpha", Val: 1},
		{Key: "beta", Val: 2},
	})
	upper := KeyMap(p, func(_ context.Context, k string) (string, error) {
		return strings.ToUpper(k), nil
	})
	got, err := Collect(context.Background(), upper)
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Key != "ALPHA" || got[0].Val != 1 || got[1].Key != "BETA" || got[1].Val != 2 {
		t.Errorf("got %v", got)
	}
}

func TestKeyMap_ChangesKeyType(t *testing.T) {
	p := FromSlice([]Pair[string, string]{
		{Key: "3", Val: "three"},
		{Key: "14", Val: "fourteen"},
	})
	lengths := KeyMap(p, func(_ context.Context, k string) (int, error) {
		return len(k), nil
	})
	got, err := Collect(context.Background(), lengths)
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Key != 1 || got[1].Key != 2 {
		t.Errorf("got %v", got)
	}
}

func TestKeyMap_Parallel(t *testing.T) {
	pairs := make([]Pair[int, string], 20)
	for i := range pairs {
		pairs[i] = Pair[int, string]{Key: i, Val: "v"}
	}
	p := KeyMap(FromSlice(pairs), func(_ context.Context, k int) (int, error) {
		return k * k, nil
	}, InParallel(executor.KindWorkers, 4))

	got, err := Collect(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	for i, pr := range got {
		if pr.Key != i*i {
			t.Fatalf("pair %d: key=%d, want %d", i, pr.Key, i*i)
		}
	}
}

func TestKeyMap_Error(t *testing.T) {
	p := FromSlice([]Pair[string, int]{
		{Key: "ok", Val: 1},
		{Key: "bad", Val: 2},
	})
	failing := KeyMap(p, func(_ context.Context, k string) (string, error) {
		if k == "bad" {
			return "", errors.New("unmappable key")
		}
		return k, nil
	})
	_, err := Collect(context.Background(), failing)
	var itemErr *ItemError
	if !errors.As(err, &itemErr) {
		t.Fatalf("got %v, want ItemError", err)
	}
	if itemErr.Index != 1 || itemErr.Stage != "keymap" {
		t.Errorf("got index=%d stage=%q, want 1/keymap", itemErr.Index, itemErr.Stage)
	}
}

func TestValueMap(t *testing.T) {
	p := FromSlice([]Pair[string, int]{
		{Key: "a", Val: 2},
		{Key: "b", Val: 3},
	})
	squared := ValueMap(p, func(_ context.Context, v int) (int, error) {
		return v * v, nil
	})
	got, err := Collect(context.Background(), squared)
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Val != 4 || got[1].Val != 9 {
		t.Errorf("got %v", got)
	}
	if got[0].Key != "a" || got[1].Key != "b" {
		t.Errorf("keys should be untouched, got %v", got)
	}
}

func TestKeysValues(t *testing.T) {
	p := FromSlice([]Pair[string, int]{
		{Key: "x", Val: 10},
		{Key: "y", Val: 20},
	})
	keys, err := Collect(context.Background(), Keys(p))
	if err != nil {
		t.Fatal(err)
	}
	if !strSliceEqual(keys, []string{"x", "y"}) {
		t.Errorf("keys = %v, want [x y]", keys)
	}

	vals, err := Collect(context.Background(), Values(p))
	if err != nil {
		t.Fatal(err)
	}
	if !intSliceEqual(vals, []int{10, 20}) {
		t.Errorf("values = %v, want [10 20]", vals)
	}
}

func TestFromMap_KeyMapPipeline(t *testing.T) {
	src := FromMap(map[string]int{"one": 1, "two": 2, "three": 3})
	tagged := KeyMap(src, func(_ context.Context, k string) (string, error) {
		return "k:" + k, nil
	})
	sum := Reduce(Values(tagged), 0, func(acc, v int) int { return acc + v })
	got, err := Collect(context.Background(), sum)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != 6 {
		t.Errorf("got %v, want [6]", got)
	}
}
