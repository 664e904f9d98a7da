package ai

import (
	"context"
	"net/http"
)

// Provider is the core interface that every completion provider must satisfy.
// It covers a single synchronous request: authentication, endpoint
// configuration and message dispatch.
type Provider interface {
	// SendMessage sends a chat request to the provider and returns the
	// completed response. Remote failures should be returned as
	// *ProviderError so callers can classify them.
	SendMessage(ctx context.Context, request ChatRequest) (*ChatResponse, error)

	// WithAPIKey sets the API key used for authenticating requests.
	WithAPIKey(apiKey string) Provider

	// WithBaseURL overrides the default base URL for API requests.
	WithBaseURL(baseURL string) Provider

	// WithHttpClient sets the HTTP client used for outbound requests.
	WithHttpClient(httpClient *http.Client) Provider
}
