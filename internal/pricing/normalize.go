package pricing

import (
	"sort"
	"strings"
)

// aliasMap maps common model-name aliases to the canonical name used in the
// pricing catalog, per spec.md §4.3 "Model-name normalization".
var aliasMap = map[string]string{
	"gemini-pro":                   "gemini-1.5-pro",
	"claude-3-5-sonnet-20241022":   "claude-3.5-sonnet",
	"claude-3-5-sonnet-20240620":   "claude-3.5-sonnet",
	"claude-3-5-haiku-20241022":    "claude-3.5-haiku",
	"gpt4o":                        "gpt-4o",
	"gpt-4-turbo-preview":          "gpt-4-turbo",
}

// azureKnownSubstrings lists model substrings that an Azure deployment name
// might carry, in priority order so the most specific match wins.
var azureKnownSubstrings = []string{
	"gpt-4o-mini", "gpt-4o", "gpt-4-turbo", "gpt-4", "gpt-3.5-turbo",
	"o3-mini", "o3", "o1-mini", "o1",
}

// normalize resolves a raw model name to the catalog key that should be
// looked up, trying: (1) the alias table, (2) an Azure-deployment-name
// substring match, (3) the name unchanged. Lookup itself then tries exact
// match first, then case-insensitive substring inclusion (lookup).
func normalize(model string) string {
	if canon, ok := aliasMap[model]; ok {
		return canon
	}

	lower := strings.ToLower(model)
	for _, substr := range azureKnownSubstrings {
		if strings.Contains(lower, substr) {
			return substr
		}
	}

	return model
}

// lookup resolves model to a catalog Entry, trying the normalized exact name
// first and falling back to a case-insensitive substring match against every
// catalog key. The substring fallback must be deterministic across calls —
// Go's map iteration order is randomized per run, so picking the first
// range-order match would make the resolved Entry (and downstream cost)
// nondeterministic whenever more than one catalog key substring-overlaps
// the input. Instead every matching key is collected and the most specific
// one wins: longest matching name first, lexical name as the tie-break.
func lookup(catalog Catalog, model string) (Entry, bool) {
	canon := normalize(model)

	if entry, ok := catalog[canon]; ok {
		return entry, true
	}
	if entry, ok := catalog[model]; ok {
		return entry, true
	}

	lowerCanon := strings.ToLower(canon)
	lowerModel := strings.ToLower(model)

	type candidate struct {
		name  string
		entry Entry
	}
	var candidates []candidate
	for name, entry := range catalog {
		lowerName := strings.ToLower(name)
		matches := strings.Contains(lowerName, lowerCanon) || strings.Contains(lowerCanon, lowerName) ||
			strings.Contains(lowerName, lowerModel) || strings.Contains(lowerModel, lowerName)
		if matches {
			candidates = append(candidates, candidate{name: name, entry: entry})
		}
	}
	if len(candidates) == 0 {
		return Entry{}, false
	}

	sort.Slice(candidates, func(i, j int) bool {
		if len(candidates[i].name) != len(candidates[j].name) {
			return len(candidates[i].name) > len(candidates[j].name)
		}
		return candidates[i].name < candidates[j].name
	})
	return candidates[0].entry, true
}
