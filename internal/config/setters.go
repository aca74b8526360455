package config

import (
	"fmt"
	"net/url"
)

// SetAPIKey sets (or, when value is empty, clears) a provider's API key.
func (s *Store) SetAPIKey(provider string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := fmt.Sprintf("providers.%s.apiKey", provider)
	s.v.Set(key, value)
	return s.save()
}

// SetBaseURL sets (or clears) a provider's base URL override. A non-empty
// value must be a valid absolute URL.
func (s *Store) SetBaseURL(provider string, value string) error {
	if value != "" {
		if _, err := url.ParseRequestURI(value); err != nil {
			return fmt.Errorf("ultra-mcp: invalid base URL %q: %w", value, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := fmt.Sprintf("providers.%s.baseURL", provider)
	s.v.Set(key, value)
	return s.save()
}

// SetAzureResourceName sets (or clears) the Azure OpenAI resource name used
// to derive the deployment's default endpoint when no explicit baseURL is
// configured.
func (s *Store) SetAzureResourceName(value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.v.Set("azureResourceName", value)
	return s.save()
}

// SetVectorConfig overrides the default embedding model per provider. An
// empty argument leaves that provider's current value untouched.
func (s *Store) SetVectorConfig(openaiModel, geminiModel, bailianModel string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if openaiModel != "" {
		s.v.Set("vector.openaiModel", openaiModel)
	}
	if geminiModel != "" {
		s.v.Set("vector.geminiModel", geminiModel)
	}
	if bailianModel != "" {
		s.v.Set("vector.bailianModel", bailianModel)
	}
	return s.save()
}

// Reset restores every setting to its default value.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	def := defaultConfig()
	s.v.Set("providers", def.Providers)
	s.v.Set("azureResourceName", def.AzureResourceName)
	s.v.Set("vector", def.Vector)
	return s.save()
}
