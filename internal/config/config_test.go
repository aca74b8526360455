package config

import (
	"path/filepath"
	"testing"
)

func TestOpenAtCreatesDefaultsAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	s1, err := OpenAt(path)
	if err != nil {
		t.Fatalf("OpenAt: %v", err)
	}
	cfg, err := s1.GetConfig()
	if err != nil {
		t.Fatalf("GetConfig: %v", err)
	}
	if cfg.Vector.OpenAIModel != "text-embedding-3-small" {
		t.Errorf("default OpenAIModel = %q, want text-embedding-3-small", cfg.Vector.OpenAIModel)
	}

	if err := s1.SetAPIKey(ProviderOpenAI, "sk-test"); err != nil {
		t.Fatalf("SetAPIKey: %v", err)
	}

	s2, err := OpenAt(path)
	if err != nil {
		t.Fatalf("reopen OpenAt: %v", err)
	}
	cfg2, err := s2.GetConfig()
	if err != nil {
		t.Fatalf("GetConfig (reload): %v", err)
	}
	if cfg2.Providers[ProviderOpenAI].APIKey != "sk-test" {
		t.Errorf("APIKey = %q, want sk-test", cfg2.Providers[ProviderOpenAI].APIKey)
	}
}

func TestGetConfigEnvOverlayOnlyAppliesWhenFileUnset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	s, err := OpenAt(path)
	if err != nil {
		t.Fatalf("OpenAt: %v", err)
	}

	t.Setenv("OPENAI_API_KEY", "env-key")

	cfg, err := s.GetConfig()
	if err != nil {
		t.Fatalf("GetConfig: %v", err)
	}
	if cfg.Providers[ProviderOpenAI].APIKey != "env-key" {
		t.Errorf("expected env overlay to apply when file unset, got %q", cfg.Providers[ProviderOpenAI].APIKey)
	}

	if err := s.SetAPIKey(ProviderOpenAI, "file-key"); err != nil {
		t.Fatalf("SetAPIKey: %v", err)
	}

	cfg2, err := s.GetConfig()
	if err != nil {
		t.Fatalf("GetConfig: %v", err)
	}
	if cfg2.Providers[ProviderOpenAI].APIKey != "file-key" {
		t.Errorf("expected file value to win once set, got %q", cfg2.Providers[ProviderOpenAI].APIKey)
	}
}

func TestSetBaseURLRejectsInvalidURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	s, err := OpenAt(path)
	if err != nil {
		t.Fatalf("OpenAt: %v", err)
	}

	if err := s.SetBaseURL(ProviderOpenAI, "not a url"); err == nil {
		t.Fatalf("expected error for invalid base URL")
	}
}

func TestResetRestoresDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	s, err := OpenAt(path)
	if err != nil {
		t.Fatalf("OpenAt: %v", err)
	}

	if err := s.SetAPIKey(ProviderOpenAI, "sk-test"); err != nil {
		t.Fatalf("SetAPIKey: %v", err)
	}
	if err := s.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	cfg, err := s.GetConfig()
	if err != nil {
		t.Fatalf("GetConfig: %v", err)
	}
	if cfg.Providers[ProviderOpenAI].APIKey != "" {
		t.Errorf("expected APIKey cleared after Reset, got %q", cfg.Providers[ProviderOpenAI].APIKey)
	}
}
