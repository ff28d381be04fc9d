// Package observability provides OpenTelemetry tracing and metrics setup and
// the instruments the pipeline engine reports through.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultConfig("etl"))
//	defer tp.Shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, "pipeline.Sum")
//	defer span.End()
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, observability.DefaultConfig("etl"))
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewPipelineMetrics(observability.Meter("etl"))
//	metrics.RecordElements(ctx, "orders", 1)
package observability
