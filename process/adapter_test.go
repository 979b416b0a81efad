package process_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/skillsenselab/streamkit/executor"
	"github.com/skillsenselab/streamkit/process"
	"github.com/skillsenselab/streamkit/stream"
)

func TestMapperTransformsItem(t *testing.T) {
	fn := process.Mapper(process.MapperConfig{
		Binary: "tr",
		Args:   []string{"a-z", "A-Z"},
	})
	out, err := fn(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "HELLO" {
		t.Fatalf("expected 'HELLO', got %q", out)
	}
}

func TestMapperNonZeroExit(t *testing.T) {
	fn := process.Mapper(process.MapperConfig{
		Binary: "sh",
		Args:   []string{"-c", "cat >/dev/null; echo broken >&2; exit 3"},
	})
	_, err := fn(context.Background(), "anything")
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
	if !strings.Contains(err.Error(), "broken") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
}

func TestMapperCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fn := process.Mapper(process.MapperConfig{
		Binary:   "cat",
		MaxProcs: 1,
	})
	if _, err := fn(ctx, "item"); err == nil {
		t.Fatal("expected error from canceled context")
	}
}

func TestMapperTimeout(t *testing.T) {
	fn := process.Mapper(process.MapperConfig{
		Binary:      "sleep",
		Args:        []string{"10"},
		Timeout:     100 * time.Millisecond,
		GracePeriod: 500 * time.Millisecond,
	})
	if _, err := fn(context.Background(), "item"); err == nil {
		t.Fatal("expected error from timeout")
	}
}

func TestMapperParallelStage(t *testing.T) {
	fn := process.Mapper(process.MapperConfig{
		Binary: "tr",
		Args:   []string{"a-z", "A-Z"},
	})
	p := stream.Map(
		stream.FromSlice([]string{"alpha", "beta", "gamma", "delta"}),
		fn,
		stream.InParallel(executor.KindWorkers, 3),
	)

	got, err := stream.Collect(context.Background(), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"ALPHA", "BETA", "GAMMA", "DELTA"}
	if len(got) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("item %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestMapperMaxProcsStillOrdered(t *testing.T) {
	fn := process.Mapper(process.MapperConfig{
		Binary:   "cat",
		MaxProcs: 1,
	})
	p := stream.Map(
		stream.FromSlice([]string{"one", "two", "three", "four", "five"}),
		fn,
		stream.InParallel(executor.KindConc, 4),
	)

	got, err := stream.Collect(context.Background(), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"one", "two", "three", "four", "five"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("item %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}
