package overview

import (
	"context"
	"sync"

	"github.com/leofalp/draftly/core/cost"
	"github.com/leofalp/draftly/providers/ai"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// overviewContextKey is the key used to store Overview in context.
const overviewContextKey contextKey = "overview"

// Overview aggregates call and token statistics for one run. It is safe for
// concurrent use by parallel workers.
type Overview struct {
	mu           sync.Mutex
	calls        int
	failures     int
	totalUsage   ai.Usage
	usageByModel map[string]ai.Usage
}

// Snapshot is a point-in-time copy of an Overview.
type Snapshot struct {
	Calls        int                 `json:"calls"`
	Failures     int                 `json:"failures"`
	TotalUsage   ai.Usage            `json:"total_usage"`
	UsageByModel map[string]ai.Usage `json:"usage_by_model,omitempty"`
}

// New returns an empty Overview.
func New() *Overview {
	return &Overview{usageByModel: make(map[string]ai.Usage)}
}

// FromContext returns the Overview stored in ctx, or nil.
func FromContext(ctx context.Context) *Overview {
	if ctx == nil {
		return nil
	}
	overview, _ := ctx.Value(overviewContextKey).(*Overview)
	return overview
}

// OverviewFromContext retrieves the Overview from the context, creating one if
// it does not already exist. The context pointer is updated in-place when a new
// Overview is created so callers see the enriched context.
func OverviewFromContext(ctx *context.Context) *Overview {
	if overview := FromContext(*ctx); overview != nil {
		return overview
	}
	overview := New()
	*ctx = overview.ToContext(*ctx)
	return overview
}

// ToContext stores the Overview in the given context and returns the enriched context.
func (overview *Overview) ToContext(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, overviewContextKey, overview)
}

// RecordCall counts one provider attempt against model. A nil usage is
// allowed for failed attempts.
func (overview *Overview) RecordCall(model string, usage *ai.Usage, err error) {
	overview.mu.Lock()
	defer overview.mu.Unlock()

	overview.calls++
	if err != nil {
		overview.failures++
	}
	if usage == nil {
		return
	}

	overview.totalUsage.Add(usage)
	if overview.usageByModel == nil {
		overview.usageByModel = make(map[string]ai.Usage)
	}
	modelUsage := overview.usageByModel[model]
	modelUsage.Add(usage)
	overview.usageByModel[model] = modelUsage
}

// Snapshot copies the current statistics.
func (overview *Overview) Snapshot() Snapshot {
	overview.mu.Lock()
	defer overview.mu.Unlock()

	byModel := make(map[string]ai.Usage, len(overview.usageByModel))
	for model, usage := range overview.usageByModel {
		byModel[model] = usage
	}
	return Snapshot{
		Calls:        overview.calls,
		Failures:     overview.failures,
		TotalUsage:   overview.totalUsage,
		UsageByModel: byModel,
	}
}

// EstimatedCost prices the recorded usage. It reports false when pricing is
// empty; models missing from a non-empty pricing table contribute nothing.
func (overview *Overview) EstimatedCost(pricing cost.Pricing) (float64, bool) {
	if len(pricing) == 0 {
		return 0, false
	}

	total := 0.0
	for model, usage := range overview.Snapshot().UsageByModel {
		if mc, ok := pricing.Lookup(model); ok {
			total += mc.CalculateTotalCost(usage.PromptTokens, usage.CompletionTokens)
		}
	}
	return total, true
}
