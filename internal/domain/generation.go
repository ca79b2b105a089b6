package domain

// Generation is the result of one LLM call.
type Generation struct {
	Content      string
	InputTokens  int
	OutputTokens int
	Cost         float64
}

// TotalTokens returns the combined token usage of the call.
func (g Generation) TotalTokens() int { return g.InputTokens + g.OutputTokens }

// Per-million-token prices used for best-effort cost accounting on
// traces. Unknown models report zero cost rather than guessing.
var modelPricing = map[string]struct{ input, output float64 }{
	"claude-3-5-sonnet-latest": {3.00, 15.00},
	"claude-3-haiku-20240307":  {0.25, 1.25},
	"gpt-4o-mini":              {0.15, 0.60},
	"gpt-4o":                   {2.50, 10.00},
}

// EstimateLLMCost converts token usage into dollars for a known model.
func EstimateLLMCost(model string, inputTokens, outputTokens int) float64 {
	p, ok := modelPricing[model]
	if !ok {
		return 0
	}
	return float64(inputTokens)/1e6*p.input + float64(outputTokens)/1e6*p.output
}
