package middleware

import (
	"context"
	"errors"
	"fmt"

	"github.com/leofalp/draftly/core/client"
	"github.com/leofalp/draftly/providers/ai"
)

// NewFallbackMiddleware sends a failed request once more with backupModel.
// Requests already addressed to backupModel, cancelled requests and an empty
// backupModel pass through untouched. When the fallback also fails both
// errors are returned joined.
func NewFallbackMiddleware(backupModel string) client.MiddlewareConfig {
	return client.MiddlewareConfig{
		Send: func(next client.SendFunc) client.SendFunc {
			if backupModel == "" {
				return next
			}
			return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
				response, err := next(ctx, request)
				if err == nil || request.Model == backupModel || ctx.Err() != nil || errors.Is(err, context.Canceled) {
					return response, err
				}

				fallback := request
				fallback.Model = backupModel
				response, fallbackErr := next(ctx, fallback)
				if fallbackErr != nil {
					return nil, errors.Join(err, fmt.Errorf("fallback model %s: %w", backupModel, fallbackErr))
				}
				return response, nil
			}
		},
	}
}
