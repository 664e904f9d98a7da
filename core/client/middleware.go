package client

import (
	"context"

	"github.com/leofalp/draftly/providers/ai"
)

// SendFunc sends a chat request to the provider and returns the completed
// response. It is the unit threaded through the middleware chain.
type SendFunc func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error)

// Middleware wraps the next SendFunc in the chain. Middlewares are applied
// outermost-first: the first one in the slice sees the request first.
type Middleware func(next SendFunc) SendFunc

// MiddlewareConfig holds a send middleware. Send is required; a nil Send
// makes [New] fail.
type MiddlewareConfig struct {
	Send Middleware
}

// buildSendChain wraps base with middlewares, middlewares[0] outermost.
func buildSendChain(base SendFunc, middlewares []MiddlewareConfig) SendFunc {
	chain := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		chain = middlewares[i].Send(chain)
	}
	return chain
}
