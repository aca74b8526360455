// Package openai adapts the OpenAI chat-completions API to the
// provider.Adapter contract, grounded on
// mrmushfiq-llm0-gateway-starter/internal/gateway/providers/openai.go,
// generalized onto the shared internal/provider/openaiwire client.
package openai

import (
	"context"
	"net/http"

	"github.com/blackjuly/ultra-mcp/internal/provider"
	"github.com/blackjuly/ultra-mcp/internal/provider/openaiwire"
)

const defaultModel = "gpt-4o"

var models = []string{
	"gpt-4o", "gpt-4o-mini", "gpt-4-turbo", "gpt-4", "gpt-3.5-turbo",
	"o1", "o1-mini", "o3", "o3-mini",
}

// Adapter is the OpenAI provider.Adapter implementation.
type Adapter struct {
	apiKey string
	client *openaiwire.Client
}

// New constructs the adapter. httpClient should already carry the shared
// proxy-aware transport and this provider's circuit breaker.
func New(apiKey, baseURL string, httpClient *http.Client) *Adapter {
	return &Adapter{
		apiKey: apiKey,
		client: openaiwire.New("openai", apiKey, baseURL, httpClient),
	}
}

func (a *Adapter) Name() string          { return "openai" }
func (a *Adapter) IsConfigured() bool    { return a.apiKey != "" }
func (a *Adapter) DefaultModel() string  { return defaultModel }
func (a *Adapter) ListModels() []string  { return append([]string(nil), models...) }

func (a *Adapter) Generate(ctx context.Context, req provider.Request) (*provider.Response, error) {
	return a.client.Generate(ctx, withDefaultModel(req))
}

func (a *Adapter) StreamGenerate(ctx context.Context, req provider.Request) (<-chan provider.Chunk, error) {
	return a.client.StreamGenerate(ctx, withDefaultModel(req))
}

func withDefaultModel(req provider.Request) provider.Request {
	if req.Model == "" {
		req.Model = defaultModel
	}
	return req
}
