package openai

import (
	"testing"

	"github.com/blackjuly/ultra-mcp/internal/provider"
)

func TestWithDefaultModelFillsEmptyModel(t *testing.T) {
	req := withDefaultModel(provider.Request{})
	if req.Model != defaultModel {
		t.Fatalf("expected default model %q, got %q", defaultModel, req.Model)
	}
}

func TestWithDefaultModelLeavesExplicitModelUntouched(t *testing.T) {
	req := withDefaultModel(provider.Request{Model: "gpt-4-turbo"})
	if req.Model != "gpt-4-turbo" {
		t.Fatalf("expected explicit model preserved, got %q", req.Model)
	}
}

func TestIsConfiguredRequiresAPIKey(t *testing.T) {
	a := New("", "", nil)
	if a.IsConfigured() {
		t.Fatal("expected adapter without an API key to be unconfigured")
	}
	a = New("sk-key", "", nil)
	if !a.IsConfigured() {
		t.Fatal("expected adapter with an API key to be configured")
	}
}

func TestListModelsIncludesReasoningModels(t *testing.T) {
	a := New("sk-key", "", nil)
	found := false
	for _, m := range a.ListModels() {
		if m == "o3-mini" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected o3-mini in the model list")
	}
}
