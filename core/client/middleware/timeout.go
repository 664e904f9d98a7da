package middleware

import (
	"context"
	"time"

	"github.com/leofalp/draftly/core/client"
	"github.com/leofalp/draftly/providers/ai"
)

// NewTimeoutMiddleware bounds every call passing through it with timeout.
// Placed inside the retry middleware it limits each attempt separately. A
// shorter deadline already on the caller's context still wins. A
// non-positive timeout disables the middleware.
func NewTimeoutMiddleware(timeout time.Duration) client.MiddlewareConfig {
	return client.MiddlewareConfig{
		Send: func(next client.SendFunc) client.SendFunc {
			if timeout <= 0 {
				return next
			}
			return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
				ctx, cancel := context.WithTimeout(ctx, timeout)
				defer cancel()

				return next(ctx, request)
			}
		},
	}
}
