package client

import (
	"context"
	"time"

	"github.com/leofalp/draftly/internal/utils"
	"github.com/leofalp/draftly/providers/ai"
	"github.com/leofalp/draftly/providers/observability"
)

// NewObservabilityMiddleware wraps each call with a client.complete span,
// request/token metrics and a DEBUG log line. Both the span and the observer
// are put in the context so providers can attach HTTP events.
//
// New installs it as the outermost wrapper when WithObserver is given, so it
// reports the final outcome after retries.
func NewObservabilityMiddleware(observer observability.Provider, defaultModel string) MiddlewareConfig {
	return MiddlewareConfig{
		Send: func(next SendFunc) SendFunc {
			return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
				model := effectiveModel(request.Model, defaultModel)
				modelAttr := observability.String(observability.AttrLLMModel, model)

				ctx, span := observer.StartSpan(ctx, observability.SpanClientComplete,
					modelAttr,
					observability.Bool(observability.AttrLLMStructured, request.ResponseFormat != nil),
				)
				defer span.End()
				ctx = observability.ContextWithSpan(ctx, span)
				ctx = observability.ContextWithObserver(ctx, observer)

				start := time.Now()
				response, err := next(ctx, request)
				elapsed := time.Since(start)

				observer.Histogram(observability.MetricClientRequestDuration).Record(ctx, elapsed.Seconds(), modelAttr)

				if err != nil {
					span.RecordError(err)
					span.SetStatus(observability.StatusError, "completion failed")
					observer.Counter(observability.MetricClientRequestCount).Add(ctx, 1,
						observability.String(observability.AttrStatus, "error"), modelAttr)
					return nil, err
				}

				observer.Counter(observability.MetricClientRequestCount).Add(ctx, 1,
					observability.String(observability.AttrStatus, "success"), modelAttr)

				logAttrs := []observability.Attribute{
					modelAttr,
					observability.String(observability.AttrLLMFinishReason, response.FinishReason),
					observability.Duration(observability.AttrDuration, elapsed),
				}
				if response.Usage != nil {
					observer.Counter(observability.MetricClientTokensTotal).Add(ctx, int64(response.Usage.TotalTokens), modelAttr)
					usageAttrs := []observability.Attribute{
						observability.Int(observability.AttrLLMTokensPrompt, response.Usage.PromptTokens),
						observability.Int(observability.AttrLLMTokensCompletion, response.Usage.CompletionTokens),
						observability.Int(observability.AttrLLMTokensTotal, response.Usage.TotalTokens),
					}
					span.SetAttributes(usageAttrs...)
					logAttrs = append(logAttrs, usageAttrs...)
				}
				if response.Content != "" {
					logAttrs = append(logAttrs, observability.String("response", utils.TruncateString(response.Content, 100)))
				}

				observer.Debug(ctx, "llm completion", logAttrs...)
				span.SetStatus(observability.StatusOK, "")
				return response, nil
			}
		},
	}
}

// effectiveModel returns the request-level model when set, falling back to the
// client's configured default.
func effectiveModel(requestModel, defaultModel string) string {
	if requestModel != "" {
		return requestModel
	}
	return defaultModel
}
