package http

// Pricing calculates API costs based on token usage.
type Pricing interface {
	// Cost returns the USD cost for a call to the given provider/model.
	Cost(provider, model string, tokensIn, tokensOut int) float64
	// EstimateInput returns a conservative pre-call cost estimate for a
	// prompt of the given size.
	EstimateInput(provider, model string, promptTokens int) float64
}

// ModelPricing holds per-model rates in USD per million tokens.
type ModelPricing struct {
	InputPer1M  float64
	OutputPer1M float64
}

// DefaultPricing resolves costs from a static rate table. Unknown models
// cost zero so a missing table entry never blocks a review.
type DefaultPricing struct {
	rates map[string]map[string]ModelPricing
}

// NewDefaultPricing creates a pricing calculator with current rates.
func NewDefaultPricing() *DefaultPricing {
	return &DefaultPricing{rates: buildRateTable()}
}

// Cost calculates the cost for a completed call.
func (p *DefaultPricing) Cost(provider, model string, tokensIn, tokensOut int) float64 {
	models, ok := p.rates[provider]
	if !ok {
		return 0
	}
	rate, ok := models[model]
	if !ok {
		return 0
	}
	return float64(tokensIn)/1_000_000.0*rate.InputPer1M + float64(tokensOut)/1_000_000.0*rate.OutputPer1M
}

// EstimateInput returns a conservative pre-call cost estimate for a prompt
// of the given size, assuming output roughly matches input. Budget
// reservation uses this before the true usage is known.
func (p *DefaultPricing) EstimateInput(provider, model string, promptTokens int) float64 {
	return p.Cost(provider, model, promptTokens, promptTokens)
}

// buildRateTable returns the published rates per provider.
// Pricing as of: 2025-12-27
// Sources:
// - Anthropic: https://claude.com/pricing
// - OpenAI: https://openai.com/api/pricing/
func buildRateTable() map[string]map[string]ModelPricing {
	return map[string]map[string]ModelPricing{
		"anthropic": {
			"claude-opus-4-5-20251101": {
				InputPer1M:  5.00,
				OutputPer1M: 25.00,
			},
			"claude-sonnet-4-5-20250929": {
				InputPer1M:  3.00,
				OutputPer1M: 15.00,
			},
			"claude-haiku-4-5": {
				InputPer1M:  1.00,
				OutputPer1M: 5.00,
			},
			"claude-3-5-haiku-20241022": {
				InputPer1M:  0.80,
				OutputPer1M: 4.00,
			},
		},
		"openai": {
			"gpt-5.2": {
				InputPer1M:  1.75,
				OutputPer1M: 14.00,
			},
			"gpt-4o": {
				InputPer1M:  2.50,
				OutputPer1M: 10.00,
			},
			"gpt-4o-mini": {
				InputPer1M:  0.15,
				OutputPer1M: 0.60,
			},
			"o4-mini": {
				InputPer1M:  1.10,
				OutputPer1M: 4.40,
			},
		},
		"static": {
			// Test transport is free.
		},
	}
}
