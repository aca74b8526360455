package compatible

import (
	"testing"

	"github.com/blackjuly/ultra-mcp/internal/provider"
)

func TestIsConfiguredOllamaNeedsOnlyBaseURL(t *testing.T) {
	a := New(SubtypeOllama, "", "http://localhost:11434", "llama3", []string{"llama3"}, nil)
	if !a.IsConfigured() {
		t.Fatal("expected Ollama to be configured with just a base URL")
	}
}

func TestIsConfiguredOllamaWithoutBaseURLIsNotConfigured(t *testing.T) {
	a := New(SubtypeOllama, "", "", "llama3", []string{"llama3"}, nil)
	if a.IsConfigured() {
		t.Fatal("expected Ollama without a base URL to be unconfigured")
	}
}

func TestIsConfiguredOpenRouterRequiresAPIKey(t *testing.T) {
	a := New(SubtypeOpenRouter, "", "https://openrouter.ai/api/v1", "openrouter/auto", nil, nil)
	if a.IsConfigured() {
		t.Fatal("expected OpenRouter without an API key to be unconfigured")
	}

	a = New(SubtypeOpenRouter, "sk-key", "https://openrouter.ai/api/v1", "openrouter/auto", nil, nil)
	if !a.IsConfigured() {
		t.Fatal("expected OpenRouter with an API key and base URL to be configured")
	}
}

func TestWithDefaultModelFillsEmptyModel(t *testing.T) {
	a := New(SubtypeOllama, "", "http://localhost:11434", "llama3", []string{"llama3"}, nil)

	req := a.withDefaultModel(provider.Request{})
	if req.Model != "llama3" {
		t.Fatalf("expected default model llama3, got %q", req.Model)
	}
}
