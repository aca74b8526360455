// Package config implements the Configuration Store from spec.md §4.6:
// per-provider credentials persisted to a platform config directory, with
// an environment-variable overlay applied on read. Built on spf13/viper,
// the same way ngoyal88/relay's pkg/config wraps Viper for its own
// (YAML, hot-reloaded) configuration — here the store is a JSON file,
// re-read explicitly rather than fsnotify-watched, since credential writes
// only happen through the store's own setters.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

// Provider names accepted throughout the engine. These match the keys the
// provider registry looks adapters up by (internal/provider.Registry), not
// the "gemini" spelling used in the MCP tool surface's provider parameter.
const (
	ProviderOpenAI  = "openai"
	ProviderGoogle  = "google"
	ProviderAzure   = "azure"
	ProviderGrok    = "grok"
	ProviderBailian = "bailian"
)

// ProviderCredentials is one provider's persisted API key and base URL
// override.
type ProviderCredentials struct {
	APIKey  string `mapstructure:"apiKey" json:"apiKey"`
	BaseURL string `mapstructure:"baseURL" json:"baseURL"`
}

// VectorConfig holds the embedding-model default overrides per provider.
type VectorConfig struct {
	OpenAIModel string `mapstructure:"openaiModel" json:"openaiModel"`
	GeminiModel string `mapstructure:"geminiModel" json:"geminiModel"`
	BailianModel string `mapstructure:"bailianModel" json:"bailianModel"`
}

// Config is the full persisted+overlaid configuration document.
type Config struct {
	Providers          map[string]ProviderCredentials `mapstructure:"providers" json:"providers"`
	AzureResourceName  string                         `mapstructure:"azureResourceName" json:"azureResourceName"`
	Vector             VectorConfig                   `mapstructure:"vector" json:"vector"`
}

func defaultConfig() Config {
	return Config{
		Providers: map[string]ProviderCredentials{
			ProviderOpenAI:  {},
			ProviderGoogle:  {},
			ProviderAzure:   {},
			ProviderGrok:    {},
			ProviderBailian: {},
		},
		Vector: VectorConfig{
			OpenAIModel:  "text-embedding-3-small",
			GeminiModel:  "text-embedding-004",
			BailianModel: "text-embedding-v1",
		},
	}
}

// envOverlay maps provider -> (apiKeyEnv, baseURLEnv) per spec.md §6's
// environment variable table. AZURE_ENDPOINT is a legacy alias for
// AZURE_BASE_URL, consulted only when AZURE_BASE_URL is unset.
var envOverlay = map[string]struct{ apiKeyEnv, baseURLEnv string }{
	ProviderOpenAI:  {"OPENAI_API_KEY", "OPENAI_BASE_URL"},
	ProviderGoogle:  {"GOOGLE_API_KEY", "GOOGLE_BASE_URL"},
	ProviderAzure:   {"AZURE_API_KEY", "AZURE_BASE_URL"},
	ProviderGrok:    {"XAI_API_KEY", "XAI_BASE_URL"},
	ProviderBailian: {"DASHSCOPE_API_KEY", ""},
}

// Store wraps a Viper instance with thread-safe access, mirroring the
// locking discipline of the teacher's pkg/config.Store.
type Store struct {
	mu   sync.RWMutex
	v    *viper.Viper
	path string
}

// Open loads (or initializes defaults for) the configuration file at the
// platform-standard config directory.
func Open() (*Store, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return OpenAt(path)
}

// OpenAt loads (or initializes) the configuration file at an explicit path.
func OpenAt(path string) (*Store, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("ultra-mcp: create config dir: %w", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		s := &Store{v: v, path: path}
		if err := s.writeDefaults(); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("ultra-mcp: read config: %w", err)
	}

	s := &Store{v: v, path: path}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// DefaultPath returns the platform-standard configuration file path.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("ultra-mcp: resolve config dir: %w", err)
	}
	return filepath.Join(dir, "ultra-mcp", "config.json"), nil
}

func (s *Store) writeDefaults() error {
	def := defaultConfig()
	s.v.Set("providers", def.Providers)
	s.v.Set("azureResourceName", def.AzureResourceName)
	s.v.Set("vector", def.Vector)
	return s.v.WriteConfigAs(s.path)
}

// GetConfig returns the current configuration with environment-variable
// overlay applied: the config file wins when both are set.
func (s *Store) GetConfig() (*Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var cfg Config
	if err := s.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("ultra-mcp: unmarshal config: %w", err)
	}
	if cfg.Providers == nil {
		cfg.Providers = map[string]ProviderCredentials{}
	}

	for provider, envNames := range envOverlay {
		creds := cfg.Providers[provider]

		if creds.APIKey == "" && envNames.apiKeyEnv != "" {
			creds.APIKey = os.Getenv(envNames.apiKeyEnv)
		}
		if creds.BaseURL == "" {
			if envNames.baseURLEnv != "" {
				creds.BaseURL = os.Getenv(envNames.baseURLEnv)
			}
			if creds.BaseURL == "" && provider == ProviderAzure {
				creds.BaseURL = os.Getenv("AZURE_ENDPOINT")
			}
		}

		cfg.Providers[provider] = creds
	}

	return &cfg, nil
}

// GetConfigPath returns the path of the backing config file.
func (s *Store) GetConfigPath() string {
	return s.path
}

func (s *Store) save() error {
	return s.v.WriteConfigAs(s.path)
}

func (s *Store) validate() error {
	var cfg Config
	if err := s.v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("ultra-mcp: unmarshal config: %w", err)
	}
	for provider, creds := range cfg.Providers {
		if creds.BaseURL == "" {
			continue
		}
		if _, err := url.ParseRequestURI(creds.BaseURL); err != nil {
			return fmt.Errorf("ultra-mcp: invalid baseURL for provider %s: %w", provider, err)
		}
	}
	return nil
}
