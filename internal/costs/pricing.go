// internal/costs/pricing.go
package costs

import "github.com/user/sparring/pkg/llm"

// Rate is the price in cents per million tokens, split by direction.
type Rate struct {
	InputCentsPerMTok  int `json:"input_cents_per_mtok"`
	OutputCentsPerMTok int `json:"output_cents_per_mtok"`
}

// Pricing maps model ids to rates. Unknown models fall back to Default
// rather than failing; cost estimation is best-effort by design.
type Pricing struct {
	Models  map[string]Rate `json:"models"`
	Default Rate            `json:"default"`
}

// DefaultPricing returns the built-in pricing table. A config file can
// override it entirely; the wrapper takes whatever it is constructed with.
func DefaultPricing() Pricing {
	return Pricing{
		Models: map[string]Rate{
			"gpt-4o":      {InputCentsPerMTok: 250, OutputCentsPerMTok: 1000},
			"gpt-4o-mini": {InputCentsPerMTok: 15, OutputCentsPerMTok: 60},
			"o4-mini":     {InputCentsPerMTok: 110, OutputCentsPerMTok: 440},
		},
		Default: Rate{InputCentsPerMTok: 250, OutputCentsPerMTok: 1000},
	}
}

// Cost estimates the integer-cent cost for the given model and usage,
// rounding up so sub-cent calls are never recorded as free.
func (p Pricing) Cost(model string, usage llm.Usage) int {
	rate, ok := p.Models[model]
	if !ok {
		rate = p.Default
	}

	microCents := int64(usage.InputTokens)*int64(rate.InputCentsPerMTok) +
		int64(usage.OutputTokens)*int64(rate.OutputCentsPerMTok)
	cents := (microCents + 999_999) / 1_000_000
	return int(cents)
}
