// Package compatible adapts arbitrary OpenAI-compatible endpoints
// (Ollama, OpenRouter) to the provider.Adapter contract. Per spec.md §4.1,
// the subtype changes only the authentication requirement: Ollama accepts
// a placeholder key, OpenRouter requires a real one.
package compatible

import (
	"context"
	"net/http"

	"github.com/blackjuly/ultra-mcp/internal/provider"
	"github.com/blackjuly/ultra-mcp/internal/provider/openaiwire"
)

// Subtype distinguishes the two OpenAI-compatible targets this adapter
// covers.
type Subtype string

const (
	SubtypeOllama     Subtype = "ollama"
	SubtypeOpenRouter Subtype = "openrouter"
)

const placeholderOllamaKey = "ollama"

// Adapter is the generic OpenAI-compatible provider.Adapter
// implementation.
type Adapter struct {
	subtype      Subtype
	apiKey       string
	baseURL      string
	defaultModel string
	models       []string
	client       *openaiwire.Client
}

// New constructs the adapter. baseURL is required (there is no fixed
// default for a user-supplied compatible endpoint). models is the static
// list ListModels returns; defaultModel must be one of them or empty.
func New(subtype Subtype, apiKey, baseURL, defaultModel string, models []string, httpClient *http.Client) *Adapter {
	effectiveKey := apiKey
	if subtype == SubtypeOllama && effectiveKey == "" {
		effectiveKey = placeholderOllamaKey
	}
	return &Adapter{
		subtype:      subtype,
		apiKey:       apiKey,
		baseURL:      baseURL,
		defaultModel: defaultModel,
		models:       models,
		client:       openaiwire.New(string(subtype), effectiveKey, baseURL, httpClient),
	}
}

func (a *Adapter) Name() string { return string(a.subtype) }

// IsConfigured requires a base URL always; OpenRouter additionally
// requires a real API key, Ollama does not.
func (a *Adapter) IsConfigured() bool {
	if a.baseURL == "" {
		return false
	}
	if a.subtype == SubtypeOpenRouter {
		return a.apiKey != ""
	}
	return true
}

func (a *Adapter) DefaultModel() string { return a.defaultModel }
func (a *Adapter) ListModels() []string { return append([]string(nil), a.models...) }

func (a *Adapter) Generate(ctx context.Context, req provider.Request) (*provider.Response, error) {
	return a.client.Generate(ctx, a.withDefaultModel(req))
}

func (a *Adapter) StreamGenerate(ctx context.Context, req provider.Request) (<-chan provider.Chunk, error) {
	return a.client.StreamGenerate(ctx, a.withDefaultModel(req))
}

func (a *Adapter) withDefaultModel(req provider.Request) provider.Request {
	if req.Model == "" {
		req.Model = a.defaultModel
	}
	return req
}
