package llm

// Static per-1K-token USD rates used for the cost estimate attached to every
// classification. Observability only; nothing branches on these numbers.

type tokenRate struct {
	inPer1K  float64
	outPer1K float64
}

// rateTables maps provider → model → rate. Models absent from the table fall
// back to the provider's "" entry.
var rateTables = map[string]map[string]tokenRate{
	"openai": {
		"gpt-4o":      {inPer1K: 0.0025, outPer1K: 0.01},
		"gpt-4o-mini": {inPer1K: 0.00015, outPer1K: 0.0006},
		"":            {inPer1K: 0.0025, outPer1K: 0.01},
	},
	"anthropic": {
		"claude-3-5-sonnet-latest": {inPer1K: 0.003, outPer1K: 0.015},
		"claude-3-5-haiku-latest":  {inPer1K: 0.0008, outPer1K: 0.004},
		"":                         {inPer1K: 0.003, outPer1K: 0.015},
	},
	"gemini": {
		"gemini-1.5-pro":   {inPer1K: 0.00125, outPer1K: 0.005},
		"gemini-1.5-flash": {inPer1K: 0.000075, outPer1K: 0.0003},
		"":                 {inPer1K: 0.00125, outPer1K: 0.005},
	},
	"deepseek": {
		"deepseek-chat": {inPer1K: 0.00027, outPer1K: 0.0011},
		"":              {inPer1K: 0.00027, outPer1K: 0.0011},
	},
}

// estimateTokens approximates token count from character count. Four
// characters per token is the standard rough cut for English text.
func estimateTokens(chars int) float64 {
	return float64(chars) / 4
}

// estimateCost returns the estimated USD cost for a call. Unknown providers
// (the local one) cost zero.
func estimateCost(provider, model string, promptChars, responseChars int) float64 {
	models, ok := rateTables[provider]
	if !ok {
		return 0
	}
	rate, ok := models[model]
	if !ok {
		rate = models[""]
	}
	return estimateTokens(promptChars)/1000*rate.inPer1K +
		estimateTokens(responseChars)/1000*rate.outPer1K
}
