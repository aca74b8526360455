// Package azure adapts Azure OpenAI's chat-completions API (the same wire
// format as OpenAI, at a resource-specific endpoint) to the
// provider.Adapter contract.
package azure

import (
	"context"
	"fmt"
	"net/http"

	"github.com/blackjuly/ultra-mcp/internal/provider"
	"github.com/blackjuly/ultra-mcp/internal/provider/openaiwire"
)

const defaultModel = "gpt-4o"

var models = []string{"gpt-4o", "gpt-4o-mini", "gpt-4-turbo", "gpt-4", "gpt-35-turbo"}

// Adapter is the Azure OpenAI provider.Adapter implementation.
type Adapter struct {
	apiKey string
	client *openaiwire.Client
}

// New constructs the adapter. If baseURL is empty, resourceName derives the
// default Azure OpenAI endpoint (`https://<resourceName>.openai.azure.com/openai`).
func New(apiKey, baseURL, resourceName string, httpClient *http.Client) *Adapter {
	if baseURL == "" && resourceName != "" {
		baseURL = fmt.Sprintf("https://%s.openai.azure.com/openai", resourceName)
	}
	return &Adapter{
		apiKey: apiKey,
		client: openaiwire.New("azure", apiKey, baseURL, httpClient),
	}
}

func (a *Adapter) Name() string         { return "azure" }
func (a *Adapter) IsConfigured() bool   { return a.apiKey != "" }
func (a *Adapter) DefaultModel() string { return defaultModel }
func (a *Adapter) ListModels() []string { return append([]string(nil), models...) }

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
