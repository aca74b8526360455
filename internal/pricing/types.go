// Package pricing implements the two-layer (memory + disk) pricing cache and
// tiered cost calculator described in spec.md §4.3.
package pricing

import "time"

// Entry is one model's unit pricing (spec.md §3 "Model Pricing Entry").
type Entry struct {
	InputCostPerToken          float64  `json:"input_cost_per_token"`
	OutputCostPerToken         float64  `json:"output_cost_per_token"`
	InputCostPerTokenAbove200k *float64 `json:"input_cost_per_token_above_200k_tokens,omitempty"`
	OutputCostPerTokenAbove200k *float64 `json:"output_cost_per_token_above_200k_tokens,omitempty"`
	MaxInputTokens             *int     `json:"max_input_tokens,omitempty"`
	MaxOutputTokens            *int     `json:"max_output_tokens,omitempty"`
	Mode                       string   `json:"mode,omitempty"`
	LitellmProvider            string   `json:"litellm_provider,omitempty"`
}

// Catalog is the normalized model -> Entry map kept in both cache layers.
type Catalog map[string]Entry

// cacheFile is the on-disk representation, spec.md §3 "Pricing Cache File".
type cacheFile struct {
	Metadata cacheMetadata `json:"metadata"`
	Data     Catalog       `json:"data"`
}

type cacheMetadata struct {
	Timestamp  time.Time     `json:"timestamp"`
	SourceURL  string        `json:"sourceURL"`
	TTL        time.Duration `json:"ttl"`
}

// Result is what Calculate returns for a given (model, inputTokens,
// outputTokens) triple.
type Result struct {
	InputCost    float64
	OutputCost   float64
	TotalCost    float64
	TieredApplied bool
}

const (
	// tieredThreshold is the fixed token count above which the "above"
	// rate applies, per spec.md §4.3.
	tieredThreshold = 200_000

	// memoryTTL is the in-memory cache freshness window.
	memoryTTL = 5 * time.Minute

	// diskTTL is the on-disk cache's default freshness window.
	diskTTL = 1 * time.Hour

	// defaultSourceURL is the upstream LiteLLM model-price document.
	defaultSourceURL = "https://raw.githubusercontent.com/BerriAI/litellm/main/model_prices_and_context_window.json"
)

// skipSubstrings are name fragments that disqualify a catalog entry from
// being a text-generation pricing entry, per spec.md §4.3 ingest rules.
var skipSubstrings = []string{
	"dall-e", "whisper", "tts", "embedding", "moderation", "flux", "stable-diffusion", "sample_spec",
}
