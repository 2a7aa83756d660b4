package llm

import _ "embed"

//go:embed prompts/tier1_filter.md
var tier1PromptRaw string

//go:embed prompts/tier2_analysis.md
var tier2PromptRaw string

// Tier1Prompt is the basic-filter prompt template. Placeholders use the
// {{name}} form resolved by RenderTemplate.
var Tier1Prompt = tier1PromptRaw

// Tier2Prompt is the detailed-analysis prompt template.
var Tier2Prompt = tier2PromptRaw
