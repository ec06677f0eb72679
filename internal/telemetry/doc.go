// Package telemetry provides OpenTelemetry instrumentation for sprintai.
//
// It builds a TracerProvider and a MeterProvider that export over OTLP
// (gRPC or HTTP/protobuf) and installs them as the global providers, so
// services that call otel.Tracer and otel.Meter pick them up.
//
//	tel, err := telemetry.New(ctx, telemetry.FromSettings(cfg.Telemetry, version), logger)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(ctx)
//
// Telemetry is disabled by default. Failures while building exporters
// degrade the instance instead of failing startup; Health reports it.
//
// Use TestTelemetry in tests to record spans and metrics in memory:
//
//	tt := telemetry.NewTestTelemetry()
//	_, span := tt.Tracer("test").Start(ctx, "chat.send")
//	span.End()
//	tt.AssertSpanExists(t, "chat.send")
package telemetry
