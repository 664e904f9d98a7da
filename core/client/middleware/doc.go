// Package middleware provides the built-in middlewares of the completion
// client. Each constructor returns a [client.MiddlewareConfig] ready for
// [client.WithMiddleware].
//
//   - [NewRetryMiddleware] retries transient failures (rate limits, 5xx,
//     network errors, attempt timeouts) with exponential backoff and jitter.
//   - [NewTimeoutMiddleware] bounds a single attempt with context.WithTimeout.
//   - [NewLoggingMiddleware] emits slog entries around every attempt.
//
// Middlewares run outermost-first. The blog workflow wires
//
//	Logging -> Retry -> Timeout -> Provider
//
// so that every attempt gets a fresh deadline and the log shows the final
// outcome of the retried call.
package middleware
