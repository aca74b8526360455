// Package bailian adapts Alibaba DashScope/Bailian's OpenAI-compatible
// chat-completions endpoint (and its qwen3-coder / deepseek-r1 subtypes) to
// the provider.Adapter contract, per spec.md §4.1.
package bailian

import (
	"context"
	"net/http"

	"github.com/blackjuly/ultra-mcp/internal/provider"
	"github.com/blackjuly/ultra-mcp/internal/provider/openaiwire"
)

const (
	defaultModel   = "qwen-plus"
	defaultBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
)

// Subtype selects which model family this adapter instance enumerates and
// authenticates as.
type Subtype string

const (
	SubtypeBailian    Subtype = "bailian"
	SubtypeQwen3Coder Subtype = "qwen3-coder"
	SubtypeDeepSeekR1 Subtype = "deepseek-r1"
)

var modelsBySubtype = map[Subtype][]string{
	SubtypeBailian:    {"qwen-plus", "qwen-max", "qwen-turbo"},
	SubtypeQwen3Coder: {"qwen3-coder-plus", "qwen3-coder-flash"},
	SubtypeDeepSeekR1: {"deepseek-r1"},
}

// Adapter is the Bailian/DashScope-compatible provider.Adapter
// implementation.
type Adapter struct {
	subtype Subtype
	apiKey  string
	client  *openaiwire.Client
}

// New constructs the adapter for a given subtype and its own credential.
func New(subtype Subtype, apiKey, baseURL string, httpClient *http.Client) *Adapter {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Adapter{
		subtype: subtype,
		apiKey:  apiKey,
		client:  openaiwire.New(string(subtype), apiKey, baseURL, httpClient),
	}
}

func (a *Adapter) Name() string       { return string(a.subtype) }
func (a *Adapter) IsConfigured() bool { return a.apiKey != "" }
func (a *Adapter) DefaultModel() string {
	models := modelsBySubtype[a.subtype]
	if len(models) == 0 {
		return defaultModel
	}
	return models[0]
}
func (a *Adapter) ListModels() []string {
	return append([]string(nil), modelsBySubtype[a.subtype]...)
}

func (a *Adapter) Generate(ctx context.Context, req provider.Request) (*provider.Response, error) {
	return a.client.Generate(ctx, a.withDefaultModel(req))
}

func (a *Adapter) StreamGenerate(ctx context.Context, req provider.Request) (<-chan provider.Chunk, error) {
	return a.client.StreamGenerate(ctx, a.withDefaultModel(req))
}

func (a *Adapter) withDefaultModel(req provider.Request) provider.Request {
	if req.Model == "" {
		req.Model = a.DefaultModel()
	}
	return req
}
