package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/leofalp/draftly/internal/utils"
	"github.com/leofalp/draftly/providers/ai"
)

const (
	providerName            = "openai"
	defaultBaseURL          = "https://openrouter.ai/api/v1"
	chatCompletionsEndpoint = "/chat/completions"
)

// OpenAIProvider implements ai.Provider for chat completions APIs.
type OpenAIProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewOpenAIProvider creates a provider configured from OPENROUTER_API_KEY and
// OPENROUTER_BASE_URL. Both can be overridden with the With* methods.
func NewOpenAIProvider() *OpenAIProvider {
	baseURL := os.Getenv("OPENROUTER_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &OpenAIProvider{
		apiKey:  os.Getenv("OPENROUTER_API_KEY"),
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

var _ ai.Provider = (*OpenAIProvider)(nil)

// WithAPIKey sets the API key for the provider
func (p *OpenAIProvider) WithAPIKey(apiKey string) ai.Provider {
	p.apiKey = apiKey
	return p
}

// WithBaseURL sets the base URL for the API
func (p *OpenAIProvider) WithBaseURL(baseURL string) ai.Provider {
	p.baseURL = baseURL
	return p
}

// WithHttpClient sets a custom HTTP client
func (p *OpenAIProvider) WithHttpClient(httpClient *http.Client) ai.Provider {
	p.client = httpClient
	return p
}

// SendMessage posts the request to /chat/completions. Non-2xx answers are
// returned as *ai.ProviderError.
func (p *OpenAIProvider) SendMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	if p.apiKey == "" {
		return nil, errors.New("openai: API key is not set")
	}

	_, resp, err := utils.DoPostSync[chatCompletionResponse](ctx, p.client, p.baseURL+chatCompletionsEndpoint, p.apiKey, requestToChatCompletion(request))
	if err != nil {
		var statusErr *utils.StatusError
		if errors.As(err, &statusErr) {
			return nil, &ai.ProviderError{Provider: providerName, StatusCode: statusErr.StatusCode, Body: statusErr.Body}
		}
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: response %q has no choices", resp.ID)
	}

	return chatCompletionToGeneric(*resp), nil
}
