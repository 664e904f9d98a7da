package cost

import (
	"fmt"
)

// ModelCost is the pricing of one model in USD per million tokens.
//
//	modelCost := cost.ModelCost{
//	    InputCostPerMillion:  0.10,
//	    OutputCostPerMillion: 0.40,
//	}
type ModelCost struct {
	InputCostPerMillion  float64 `json:"input_cost_per_million" yaml:"input_cost_per_million"`
	OutputCostPerMillion float64 `json:"output_cost_per_million" yaml:"output_cost_per_million"`
}

// CalculateInputCost calculates the cost for the given number of input tokens.
func (mc ModelCost) CalculateInputCost(tokens int) float64 {
	return (float64(tokens) / 1_000_000.0) * mc.InputCostPerMillion
}

// CalculateOutputCost calculates the cost for the given number of output tokens.
func (mc ModelCost) CalculateOutputCost(tokens int) float64 {
	return (float64(tokens) / 1_000_000.0) * mc.OutputCostPerMillion
}

// CalculateTotalCost calculates the cost of a prompt/completion token pair.
func (mc ModelCost) CalculateTotalCost(inputTokens, outputTokens int) float64 {
	return mc.CalculateInputCost(inputTokens) + mc.CalculateOutputCost(outputTokens)
}

// Validate rejects negative prices.
func (mc ModelCost) Validate() error {
	if mc.InputCostPerMillion < 0 || mc.OutputCostPerMillion < 0 {
		return fmt.Errorf("negative price (%s)", mc)
	}
	return nil
}

// String returns a formatted string representation of the model costs.
func (mc ModelCost) String() string {
	return fmt.Sprintf("Input: $%.6f/M, Output: $%.6f/M",
		mc.InputCostPerMillion, mc.OutputCostPerMillion)
}

// Pricing maps model identifiers to their cost. Models without an entry are
// treated as free when estimating.
type Pricing map[string]ModelCost

// Lookup returns the pricing of model, if configured.
func (p Pricing) Lookup(model string) (ModelCost, bool) {
	mc, ok := p[model]
	return mc, ok
}
