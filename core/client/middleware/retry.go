package middleware

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"net"
	"time"

	"github.com/leofalp/draftly/core/client"
	"github.com/leofalp/draftly/providers/ai"
)

// RetryConfig holds the tuning parameters for the retry middleware.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first failure; 2 means at
	// most 3 attempts and 0 disables retrying. Negative values count as 0.
	MaxRetries int

	// InitialBackoff is the wait before the first retry. Default: 1s.
	InitialBackoff time.Duration

	// MaxBackoff caps the computed backoff. Default: 30s.
	MaxBackoff time.Duration

	// BackoffFactor is the exponential growth multiplier:
	// backoff = min(InitialBackoff * BackoffFactor^retry, MaxBackoff). Default: 2.
	BackoffFactor float64

	// JitterFraction adds up to JitterFraction*backoff of random delay. Default: 0.1.
	JitterFraction float64

	// RetryableFunc reports whether an error deserves another attempt.
	// Default: IsRetryable.
	RetryableFunc func(error) bool

	// Sleep waits between attempts; tests replace it. It must return early
	// with ctx.Err() when ctx is done.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryConfig returns three retries with 1s..30s backoff.
func DefaultRetryConfig() RetryConfig {
	config := RetryConfig{MaxRetries: 3}
	applyRetryDefaults(&config)
	return config
}

// IsRetryable reports whether err is a transient failure: a provider error
// with status 429, 408 or 5xx, a network error, or an attempt deadline.
// Cancellation is never retryable.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if ai.IsTransient(err) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// applyRetryDefaults fills in zero-valued fields in config with sensible defaults.
func applyRetryDefaults(config *RetryConfig) {
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = time.Second
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = 30 * time.Second
	}
	if config.MaxBackoff < config.InitialBackoff {
		config.MaxBackoff = config.InitialBackoff
	}
	if config.BackoffFactor < 1 {
		config.BackoffFactor = 2.0
	}
	if config.JitterFraction <= 0 {
		config.JitterFraction = 0.1
	}
	if config.RetryableFunc == nil {
		config.RetryableFunc = IsRetryable
	}
	if config.Sleep == nil {
		config.Sleep = sleepContext
	}
}

// computeBackoff returns the backoff duration for the given retry (0-indexed).
func computeBackoff(config RetryConfig, retry int) time.Duration {
	base := float64(config.InitialBackoff) * math.Pow(config.BackoffFactor, float64(retry))
	if base > float64(config.MaxBackoff) {
		base = float64(config.MaxBackoff)
	}

	jitter := base * config.JitterFraction * rand.Float64() //nolint:gosec // non-cryptographic jitter is intentional
	return time.Duration(base + jitter)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NewRetryMiddleware retries failed attempts according to config. A failure
// caused by the caller's own context ending is returned immediately. On
// exhaustion the error wraps both ErrRetryExhausted and the last error.
func NewRetryMiddleware(config RetryConfig) client.MiddlewareConfig {
	applyRetryDefaults(&config)

	return client.MiddlewareConfig{
		Send: func(next client.SendFunc) client.SendFunc {
			return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
				var lastErr error

				for attempt := 0; attempt <= config.MaxRetries; attempt++ {
					if attempt > 0 {
						if err := config.Sleep(ctx, computeBackoff(config, attempt-1)); err != nil {
							return nil, fmt.Errorf("retry interrupted: %w", errors.Join(err, lastErr))
						}
					}

					response, err := next(ctx, request)
					if err == nil {
						return response, nil
					}
					lastErr = err

					if ctx.Err() != nil || !config.RetryableFunc(err) {
						return nil, err
					}
				}

				if config.MaxRetries == 0 {
					return nil, lastErr
				}
				return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, config.MaxRetries+1, lastErr)
			}
		},
	}
}
