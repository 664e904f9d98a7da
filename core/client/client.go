package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/leofalp/draftly/core/overview"
	"github.com/leofalp/draftly/core/parse"
	"github.com/leofalp/draftly/providers/ai"
	"github.com/leofalp/draftly/providers/observability"
)

const (
	// structuredInstruction is prepended as a system message to structured requests.
	structuredInstruction = "Respond ONLY with valid JSON.\nSchema:\n"

	// finishReasonLength marks a completion cut off at the token limit.
	finishReasonLength = "length"
)

// ErrEmptyResponse is returned when the provider answers with no content.
var ErrEmptyResponse = errors.New("empty completion response")

// ClientOptions configures a Client.
type ClientOptions struct {
	// Middlewares run outermost-first around every provider call.
	Middlewares []MiddlewareConfig

	// Observer, when set, wraps the chain with tracing, metrics and logs.
	Observer observability.Provider

	// DefaultModel is used when a request does not name a model.
	DefaultModel string
}

// WithMiddleware appends middlewares to the chain.
func WithMiddleware(middlewares ...MiddlewareConfig) func(*ClientOptions) {
	return func(o *ClientOptions) {
		o.Middlewares = append(o.Middlewares, middlewares...)
	}
}

// WithObserver sets the observability provider.
func WithObserver(observer observability.Provider) func(*ClientOptions) {
	return func(o *ClientOptions) {
		o.Observer = observer
	}
}

// WithDefaultModel sets the model used by requests that leave Model empty.
func WithDefaultModel(model string) func(*ClientOptions) {
	return func(o *ClientOptions) {
		o.DefaultModel = model
	}
}

// CompletionRequest is a single completion call.
type CompletionRequest struct {
	Model       string
	Messages    []ai.Message
	Temperature float32
	MaxTokens   int

	// Structured asks for a JSON object matching Shape.
	Structured bool
	Shape      string
}

// Stats is a snapshot of the client's process-wide counters. Every provider
// attempt counts, retries included.
type Stats struct {
	Calls            int64 `json:"calls"`
	Failures         int64 `json:"failures"`
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

type counters struct {
	calls            atomic.Int64
	failures         atomic.Int64
	promptTokens     atomic.Int64
	completionTokens atomic.Int64
	totalTokens      atomic.Int64
}

// Client sends completion requests through a middleware chain. It is safe
// for concurrent use.
type Client struct {
	provider     ai.Provider
	send         SendFunc
	defaultModel string
	counters     *counters
}

// New builds a Client around provider. The observability middleware, when an
// observer is given, is the outermost wrapper; the accounting step sits
// directly in front of the provider.
func New(provider ai.Provider, opts ...func(*ClientOptions)) (*Client, error) {
	if provider == nil {
		return nil, errors.New("client: provider is nil")
	}

	options := &ClientOptions{}
	for _, opt := range opts {
		opt(options)
	}

	for i, mw := range options.Middlewares {
		if mw.Send == nil {
			return nil, fmt.Errorf("client: middleware at index %d has a nil Send function", i)
		}
	}

	c := &Client{
		provider:     provider,
		defaultModel: options.DefaultModel,
		counters:     &counters{},
	}

	middlewares := options.Middlewares
	if options.Observer != nil {
		middlewares = append([]MiddlewareConfig{NewObservabilityMiddleware(options.Observer, options.DefaultModel)}, middlewares...)
	}
	c.send = buildSendChain(c.accounting(provider.SendMessage), middlewares)

	return c, nil
}

// Stats returns a snapshot of the process-wide counters.
func (c *Client) Stats() Stats {
	return Stats{
		Calls:            c.counters.calls.Load(),
		Failures:         c.counters.failures.Load(),
		PromptTokens:     c.counters.promptTokens.Load(),
		CompletionTokens: c.counters.completionTokens.Load(),
		TotalTokens:      c.counters.totalTokens.Load(),
	}
}

// Send passes request through the middleware chain unchanged.
func (c *Client) Send(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	if request.Model == "" {
		request.Model = c.defaultModel
	}
	return c.send(ctx, request)
}

// Complete sends req and returns the response text. Structured requests get
// a system instruction carrying req.Shape and ask for a JSON object; parsing
// is left to the caller, but a structured answer cut off at the token limit
// fails with parse.ErrMalformedStructuredOutput.
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if len(req.Messages) == 0 {
		return "", errors.New("client: request has no messages")
	}

	messages := req.Messages
	var responseFormat *ai.ResponseFormat
	if req.Structured {
		messages = make([]ai.Message, 0, len(req.Messages)+1)
		messages = append(messages, ai.SystemMessage(structuredInstruction+req.Shape))
		messages = append(messages, req.Messages...)
		responseFormat = &ai.ResponseFormat{Type: ai.ResponseFormatJSONObject}
	}

	response, err := c.Send(ctx, ai.ChatRequest{
		Model:          req.Model,
		Messages:       messages,
		ResponseFormat: responseFormat,
		GenerationConfig: &ai.GenerationConfig{
			Temperature: req.Temperature,
			MaxTokens:   req.MaxTokens,
		},
	})
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(response.Content) == "" {
		if response.Refusal != "" {
			return "", fmt.Errorf("%w: model refused: %s", ErrEmptyResponse, response.Refusal)
		}
		return "", fmt.Errorf("%w (finish reason %q)", ErrEmptyResponse, response.FinishReason)
	}
	if req.Structured && response.FinishReason == finishReasonLength {
		return "", &parse.MalformedOutputError{Raw: response.Content, Cause: parse.ErrTruncatedOutput}
	}
	return response.Content, nil
}

// accounting counts each attempt in the process-wide counters and in the
// run overview found in the context.
func (c *Client) accounting(next SendFunc) SendFunc {
	return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
		response, err := next(ctx, request)

		c.counters.calls.Add(1)
		if err != nil {
			c.counters.failures.Add(1)
		}

		var usage *ai.Usage
		if response != nil && response.Usage != nil {
			usage = response.Usage
			c.counters.promptTokens.Add(int64(usage.PromptTokens))
			c.counters.completionTokens.Add(int64(usage.CompletionTokens))
			c.counters.totalTokens.Add(int64(usage.TotalTokens))
		}

		if run := overview.FromContext(ctx); run != nil {
			run.RecordCall(request.Model, usage, err)
		}

		return response, err
	}
}
