// Command ultra-mcp is the engine composition root: it wires the
// Configuration Store, Pricing Service, provider adapters, Request Tracker,
// and Conversation Memory into one process and serves a Prometheus metrics
// endpoint, mirroring the teacher's cmd/main.go wiring order while swapping
// relay/proxy components for the gateway engine's own.
//
// The MCP transport and tool-registration surface itself is out of scope
// (spec.md §1); this binary starts the engine's dependency chain and
// exposes /health and /metrics the way the teacher's relay does, so the
// out-of-scope MCP layer has somewhere concrete to attach.
package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/blackjuly/ultra-mcp/internal/config"
	"github.com/blackjuly/ultra-mcp/internal/httpclient"
	"github.com/blackjuly/ultra-mcp/internal/memory"
	"github.com/blackjuly/ultra-mcp/internal/pricing"
	"github.com/blackjuly/ultra-mcp/internal/provider"
	"github.com/blackjuly/ultra-mcp/internal/provider/azure"
	"github.com/blackjuly/ultra-mcp/internal/provider/bailian"
	"github.com/blackjuly/ultra-mcp/internal/provider/compatible"
	"github.com/blackjuly/ultra-mcp/internal/provider/gemini"
	"github.com/blackjuly/ultra-mcp/internal/provider/grok"
	"github.com/blackjuly/ultra-mcp/internal/provider/openai"
	"github.com/blackjuly/ultra-mcp/internal/resilience"
	"github.com/blackjuly/ultra-mcp/internal/store"
	"github.com/blackjuly/ultra-mcp/internal/tokencount"
	"github.com/blackjuly/ultra-mcp/internal/tracker"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	engine, err := build(logger)
	if err != nil {
		logger.Error("failed to build engine", "error", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if len(engine.registry.ConfiguredProviders()) == 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("no provider configured"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	addr := os.Getenv("ULTRA_MCP_ADDR")
	if addr == "" {
		addr = ":8787"
	}

	logger.Info("ultra-mcp engine listening", "addr", addr,
		"configured_providers", engine.registry.ConfiguredProviders())

	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// engine bundles the dependency chain spec.md §2 lays out: Configuration
// Store → Pricing Service → Provider Adapters → Request Tracker →
// Conversation Memory.
type engine struct {
	cfgStore *config.Store
	pricer   *pricing.Service
	registry *provider.Registry
	db       *store.Store
	tracker  *tracker.Tracker
	memory   *memory.Service
}

func build(logger *slog.Logger) (*engine, error) {
	cfgStore, err := config.Open()
	if err != nil {
		return nil, err
	}
	cfg, err := cfgStore.GetConfig()
	if err != nil {
		return nil, err
	}

	baseClient := httpclient.New()
	pricer := pricing.New(baseClient, pricing.WithLogger(logger))

	registry := provider.NewRegistry(buildAdapters(cfg, baseClient)...)

	dbPath, err := store.DefaultPath()
	if err != nil {
		return nil, err
	}
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}

	trk := tracker.New(db, pricer, logger)
	mem := memory.New(db, tokencount.New(), logger)

	return &engine{cfgStore: cfgStore, pricer: pricer, registry: registry, db: db, tracker: trk, memory: mem}, nil
}

// buildAdapters constructs one provider.Adapter per supported provider,
// each wrapped with its own named circuit breaker transport, per spec.md
// §4.1's "adapters never retry internally, the breaker stops hammering a
// provider that is already failing."
func buildAdapters(cfg *config.Config, baseClient *http.Client) []provider.Adapter {
	openaiCreds := cfg.Providers[config.ProviderOpenAI]
	googleCreds := cfg.Providers[config.ProviderGoogle]
	azureCreds := cfg.Providers[config.ProviderAzure]
	grokCreds := cfg.Providers[config.ProviderGrok]
	bailianCreds := cfg.Providers[config.ProviderBailian]

	return []provider.Adapter{
		openai.New(openaiCreds.APIKey, openaiCreds.BaseURL, clientFor("openai", baseClient)),
		azure.New(azureCreds.APIKey, azureCreds.BaseURL, cfg.AzureResourceName, clientFor("azure", baseClient)),
		gemini.New(googleCreds.APIKey, googleCreds.BaseURL, clientFor("google", baseClient)),
		grok.New(grokCreds.APIKey, grokCreds.BaseURL, clientFor("grok", baseClient)),
		bailian.New(bailian.SubtypeBailian, bailianCreds.APIKey, bailianCreds.BaseURL, clientFor("bailian", baseClient)),
		bailian.New(bailian.SubtypeQwen3Coder, os.Getenv("QWEN3_CODER_API_KEY"), bailianCreds.BaseURL, clientFor("qwen3-coder", baseClient)),
		bailian.New(bailian.SubtypeDeepSeekR1, os.Getenv("DEEPSEEK_R1_API_KEY"), bailianCreds.BaseURL, clientFor("deepseek-r1", baseClient)),
		compatible.New(compatible.SubtypeOllama, "", os.Getenv("OLLAMA_BASE_URL"), "llama3", []string{"llama3", "mistral", "codellama"}, clientFor("ollama", baseClient)),
		compatible.New(compatible.SubtypeOpenRouter, os.Getenv("OPENROUTER_API_KEY"), "https://openrouter.ai/api/v1", "openrouter/auto", []string{"openrouter/auto"}, clientFor("openai-compatible", baseClient)),
	}
}

// clientFor clones baseClient's timeout/transport behind a provider-scoped
// circuit breaker, so one misbehaving upstream can't trip every adapter's
// breaker at once.
func clientFor(providerName string, baseClient *http.Client) *http.Client {
	return &http.Client{
		Transport: resilience.NewTransport(providerName, baseClient.Transport),
		Timeout:   baseClient.Timeout,
	}
}
