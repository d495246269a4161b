// Package logging provides structured logging for the daemon and its
// command-line tools.
//
// # Overview
//
// Logging package wraps Zap with:
//   - Custom Trace level (-2, below Debug)
//   - JSON (or console) output to stdout
//   - Automatic context field injection (trace_id, session.id, request.id)
//   - Defense-in-depth secret redaction
//   - Level-aware sampling (errors never sampled)
//
// # Usage
//
// Create logger from config:
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.NewLogger(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
// Log with context:
//
//	ctx := logging.WithSessionID(ctx, "sess_123")
//	logger.Info(ctx, "indexed conversation", zap.Duration("duration", d))
//
// Output includes automatic correlation:
//
//	{
//	  "ts": "2026-07-29T10:15:30.000Z",
//	  "level": "info",
//	  "msg": "indexed conversation",
//	  "trace_id": "abc123",
//	  "session.id": "sess_123",
//	  "duration": 0.045
//	}
//
// # Secret Redaction
//
// Secrets are redacted at multiple layers:
//  1. Manual field helpers (RedactedString)
//  2. Encoder-level field name filtering
//  3. Encoder-level pattern matching
//
// Use helpers for manual redaction:
//
//	logger.Info(ctx, "auth received",
//	    logging.RedactedString("authorization", authHeader))
//
// # Sampling
//
// Sampling prevents log floods:
//   - Trace, Debug, Info and Warn share one sampler configured from the
//     Info entry of Sampling.Levels (default: first 100 per tick, then 1
//     every 10); the Trace, Debug and Warn entries are not applied
//   - Error+: never sampled
//
// Disable for debugging:
//
//	cfg.Sampling.Enabled = false
//
// # Testing
//
// Use TestLogger for test assertions:
//
//	tl := logging.NewTestLogger()
//	tl.Info(ctx, "test message", zap.String("key", "value"))
//	tl.AssertLogged(t, zapcore.InfoLevel, "test message")
//	tl.AssertField(t, "test message", "key", "value")
//	tl.AssertNoSecrets(t)
//
// # Concurrency Safety
//
// Logger is safe for concurrent use. Child loggers (With, Named) are
// independent and do not affect parent or siblings.
package logging
