package provider

import (
	"fmt"

	"github.com/blackjuly/ultra-mcp/internal/errs"
)

// priorityOrder is the fixed selection order from spec.md §4.1 used when
// the caller does not name a provider. "openai-compatible" is a family
// slot, not a registered adapter name: compatible.Adapter.Name() returns
// its subtype ("ollama", "openrouter"), so that slot expands to
// openAICompatibleFamily below rather than a literal map lookup.
var priorityOrder = []string{"azure", "openai", "google", "grok", "bailian", "openai-compatible"}

// openAICompatibleFamily lists the subtype names the "openai-compatible"
// priority slot walks, in order, since they share one slot in spec.md §4.1's
// priority list but are registered individually by Name().
var openAICompatibleFamily = []string{"ollama", "openrouter"}

// Registry holds the configured adapters and implements the priority-order
// default-selection rule.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry builds a Registry from the given adapters, keyed by their
// Name().
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Name()] = a
	}
	return r
}

// Get returns the named adapter, or the default per the priority order
// when name is empty.
func (r *Registry) Get(name string) (Adapter, error) {
	if name != "" {
		a, ok := r.adapters[name]
		if !ok {
			return nil, fmt.Errorf("ultra-mcp: unknown provider %q", name)
		}
		if !a.IsConfigured() {
			return nil, fmt.Errorf("%w: %s", errs.ErrConfigurationMissing, name)
		}
		return a, nil
	}

	for _, candidate := range priorityOrder {
		if candidate == "openai-compatible" {
			for _, sub := range openAICompatibleFamily {
				a, ok := r.adapters[sub]
				if ok && a.IsConfigured() {
					return a, nil
				}
			}
			continue
		}
		a, ok := r.adapters[candidate]
		if ok && a.IsConfigured() {
			return a, nil
		}
	}
	return nil, errs.ErrNoProviderConfigured
}

// ConfiguredProviders returns the set of adapter names with credentials
// present.
func (r *Registry) ConfiguredProviders() []string {
	var names []string
	for name, a := range r.adapters {
		if a.IsConfigured() {
			names = append(names, name)
		}
	}
	return names
}
