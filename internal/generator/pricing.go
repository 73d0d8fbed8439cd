package generator

import "math"

// modelCost is USD per million tokens.
type modelCost struct {
	input  float64
	output float64
}

var modelCosts = map[string]modelCost{
	"claude-haiku-4-5":  {1, 5},
	"claude-sonnet-4-5": {3, 15},
	"claude-opus-4-5":   {5, 25},
	"gpt-4o":            {2.5, 10},
	"gpt-4o-mini":       {0.15, 0.6},
	"gemini-2.0-flash":  {0.1, 0.4},
}

// fallbackCost applies to models missing from the table.
var fallbackCost = modelCost{input: 3, output: 15}

// EstimateCostCents converts token usage into whole cents, rounding up so
// any billed call costs at least one cent. Calls without usage cost nothing.
func EstimateCostCents(model string, promptTokens, outputTokens int) int {
	if promptTokens <= 0 && outputTokens <= 0 {
		return 0
	}
	c, ok := modelCosts[model]
	if !ok {
		c = fallbackCost
	}
	usd := float64(promptTokens)*c.input/1_000_000 + float64(outputTokens)*c.output/1_000_000
	return int(math.Ceil(usd * 100))
}
