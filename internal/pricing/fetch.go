package pricing

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// rawEntry mirrors the upstream LiteLLM JSON document's loose shape: numeric
// fields sometimes arrive as JSON strings, and the document is full of
// fields this service does not consume (spec.md §6 "must tolerate unknown
// fields"), so we decode into json.Number-friendly wrapper types and ignore
// everything we don't recognize.
type rawEntry struct {
	InputCostPerToken           flexFloat `json:"input_cost_per_token"`
	OutputCostPerToken          flexFloat `json:"output_cost_per_token"`
	InputCostPerTokenAbove200k  flexFloat `json:"input_cost_per_token_above_200k_tokens"`
	OutputCostPerTokenAbove200k flexFloat `json:"output_cost_per_token_above_200k_tokens"`
	InputCostPerImage           flexFloat `json:"input_cost_per_image"`
	OutputCostPerImage          flexFloat `json:"output_cost_per_image"`
	MaxInputTokens              flexInt   `json:"max_input_tokens"`
	MaxOutputTokens             flexInt   `json:"max_output_tokens"`
	Mode                        string    `json:"mode"`
	LitellmProvider             string    `json:"litellm_provider"`
}

// flexFloat unmarshals from either a JSON number or a JSON string, per the
// spec.md §4.3 ingest rule "coerce any numeric field that arrives as a
// string".
type flexFloat struct {
	val float64
	set bool
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" || s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("pricing: parse numeric field %q: %w", s, err)
	}
	f.val, f.set = v, true
	return nil
}

type flexInt struct {
	val int
	set bool
}

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" || s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("pricing: parse integer field %q: %w", s, err)
	}
	f.val, f.set = int(v), true
	return nil
}

// parseCatalog decodes the upstream document and applies the ingest
// filtering rules from spec.md §4.3: skip image/audio/embedding/moderation
// entries by name, keep only entries with both base token prices or
// explicit image pricing.
func parseCatalog(body []byte) (Catalog, error) {
	var raw map[string]rawEntry
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("ultra-mcp: decode pricing document: %w", err)
	}

	catalog := make(Catalog, len(raw))
	for name, re := range raw {
		if shouldSkip(name) {
			continue
		}

		hasBaseRates := re.InputCostPerToken.set && re.OutputCostPerToken.set
		hasImageRates := re.InputCostPerImage.set || re.OutputCostPerImage.set
		if !hasBaseRates && !hasImageRates {
			continue
		}

		entry := Entry{
			InputCostPerToken:  re.InputCostPerToken.val,
			OutputCostPerToken: re.OutputCostPerToken.val,
			Mode:               re.Mode,
			LitellmProvider:    re.LitellmProvider,
		}
		if re.InputCostPerTokenAbove200k.set {
			v := re.InputCostPerTokenAbove200k.val
			entry.InputCostPerTokenAbove200k = &v
		}
		if re.OutputCostPerTokenAbove200k.set {
			v := re.OutputCostPerTokenAbove200k.val
			entry.OutputCostPerTokenAbove200k = &v
		}
		if re.MaxInputTokens.set {
			v := re.MaxInputTokens.val
			entry.MaxInputTokens = &v
		}
		if re.MaxOutputTokens.set {
			v := re.MaxOutputTokens.val
			entry.MaxOutputTokens = &v
		}

		catalog[name] = entry
	}

	return catalog, nil
}

func shouldSkip(name string) bool {
	lower := strings.ToLower(name)
	for _, substr := range skipSubstrings {
		if strings.Contains(lower, substr) {
			return true
		}
	}
	return false
}

// fetchRemote downloads and parses the upstream pricing document.
func fetchRemote(client *http.Client, sourceURL string) (Catalog, error) {
	resp, err := client.Get(sourceURL)
	if err != nil {
		return nil, fmt.Errorf("ultra-mcp: fetch pricing document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ultra-mcp: fetch pricing document: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ultra-mcp: read pricing document: %w", err)
	}

	return parseCatalog(body)
}
