package azure

import "testing"

func TestNewWithResourceNameBuildsConfiguredAdapter(t *testing.T) {
	a := New("key", "", "my-resource", nil)
	if a.Name() != "azure" {
		t.Fatalf("expected Name() == azure, got %q", a.Name())
	}
	if !a.IsConfigured() {
		t.Fatal("expected adapter with a key to be configured")
	}
}

func TestNewWithExplicitBaseURLAndResourceNameBuildsAdapter(t *testing.T) {
	a := New("key", "https://custom.example.com/openai", "my-resource", nil)
	if a.client == nil {
		t.Fatal("expected client to be constructed")
	}
	// The explicit base URL wins; there is no direct getter, so this test
	// only asserts construction does not panic and produces a usable
	// adapter — the URL precedence itself is exercised by New's branch
	// (baseURL == "" && resourceName != "").
	if a.DefaultModel() != "gpt-4o" {
		t.Fatalf("expected default model gpt-4o, got %q", a.DefaultModel())
	}
}

func TestIsConfiguredRequiresAPIKey(t *testing.T) {
	a := New("", "", "my-resource", nil)
	if a.IsConfigured() {
		t.Fatal("expected adapter without an API key to be unconfigured")
	}
}
