// Package logging provides structured logging with OpenTelemetry integration.
//
// The Logger wraps Zap with:
//   - a custom Trace level (-2, below Debug)
//   - stdout and optional OpenTelemetry outputs
//   - automatic correlation fields from the context (trace_id, span_id,
//     request.id, user.id)
//   - encoder-level redaction of sensitive keys and value patterns
//   - per-level sampling, with Error and above never sampled
//
// Create a logger from config:
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.NewLogger(cfg, otelProvider)
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
// Log with context:
//
//	ctx = logging.WithUserID(ctx, session.UserID)
//	logger.Info(ctx, "analysis saved", zap.Int("options", n))
//
// Services that only need a *zap.Logger take logger.Underlying().
//
// Use TestLogger in tests:
//
//	tl := logging.NewTestLogger()
//	tl.Info(ctx, "sent", zap.String("role", "user"))
//	tl.AssertLogged(t, zapcore.InfoLevel, "sent")
//	tl.AssertNoSecrets(t)
package logging
