// Package observability provides OpenTelemetry tracing and metrics integration
// for pipeline runs and individual stages.
//
// Tracing:
//
//	cfg := observability.DefaultTracerConfig("my-pipeline")
//	tp, err := observability.InitTracer(ctx, &cfg)
//	defer tp.Shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, "pipeline.run")
//	defer span.End()
//
// Metrics:
//
//	mcfg := observability.DefaultMeterConfig("my-pipeline")
//	mp, err := observability.InitMeter(ctx, &mcfg)
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewMetrics(observability.Meter("my-pipeline"))
//
// Stage decorators wrap the functions handed to Map and Filter so every item
// gets a span and a duration sample without touching the pipeline engine:
//
//	double := observability.Stage("double", metrics, func(_ context.Context, n int) (int, error) {
//	    return n * 2, nil
//	})
//	p := stream.Map(src, double, stream.InParallel(executor.KindWorkers, 4))
package observability
