package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// Stage wraps a map-style stage function with a per-item span and metrics.
// The wrapper has the same shape as the original, so it drops into a Map
// stage, parallel or not. A nil Metrics records spans only.
func Stage[I, O any](name string, m *Metrics, fn func(context.Context, I) (O, error)) func(context.Context, I) (O, error) {
	return func(ctx context.Context, in I) (O, error) {
		if m != nil {
			m.RecordItemStart(ctx)
		}
		ctx, span := StartSpan(ctx, "stage."+name)
		start := time.Now()

		out, err := fn(ctx, in)

		status := StatusOK
		if err != nil {
			status = StatusError
			span.RecordError(err)
			if m != nil {
				m.RecordError(ctx, "item", name)
			}
		}
		span.SetAttributes(
			attribute.String(AttrStageName, name),
			attribute.String(AttrStatus, status),
		)
		span.End()
		if m != nil {
			m.RecordItemEnd(ctx, name, status, time.Since(start))
		}
		return out, err
	}
}

// Predicate wraps a filter predicate with a per-item span and metrics.
func Predicate[T any](name string, m *Metrics, pred func(context.Context, T) (bool, error)) func(context.Context, T) (bool, error) {
	wrapped := Stage(name, m, func(ctx context.Context, in T) (bool, error) {
		return pred(ctx, in)
	})
	return wrapped
}
