// Package telemetry wires OpenTelemetry tracing and metrics for planner.
//
// Telemetry is off unless observability.enable_telemetry is set. When on,
// spans and metrics are exported over OTLP (gRPC by default, or
// http/protobuf) and installed as the global providers, so packages that
// call otel.Tracer or otel.Meter pick them up without extra plumbing.
//
//	tel, err := telemetry.New(ctx, telemetry.FromObservability(cfg.Observability, version))
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
// An exporter that cannot be built is reported through Warnings instead of
// failing startup.
// Tests use NewTestTelemetry, which records spans and metrics in memory.
package telemetry
