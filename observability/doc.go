// Package observability wires OpenTelemetry tracing and metrics into
// recordbind runs.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, cfg.Observability.TracerConfig())
//	defer tp.Shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanParse)
//	defer span.End()
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, cfg.Observability.MeterConfig())
//	defer mp.Shutdown(ctx)
//
//	m, err := observability.NewConversionMetrics(observability.Meter("recordbind"), "reader")
//	p, err := pipeline.NewOrdered(stage, pipeline.WithMetrics(m))
package observability
