// Package logging provides structured logging for planner.
//
// # Overview
//
// The package wraps Zap with:
//   - A Trace level (-2, below Debug)
//   - Dual output (stdout and, optionally, the OpenTelemetry log bridge)
//   - Context field injection (trace_id, request.id, plan.id)
//   - Redaction of secret-bearing fields such as api_key and authorization
//   - Level-aware sampling (errors are never sampled)
//
// # Usage
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.NewLogger(cfg, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithRequestID(ctx, requestID)
//	logger.Info(ctx, "plan generated", zap.Int("tasks", n))
//
// # Testing
//
// TestLogger records entries in memory:
//
//	tl := logging.NewTestLogger()
//	tl.Info(ctx, "attempt failed")
//	tl.AssertLogged(t, zapcore.InfoLevel, "attempt failed")
//
// Logger is safe for concurrent use.
package logging
