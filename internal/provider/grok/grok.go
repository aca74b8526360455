// Package grok adapts xAI's Grok chat-completions API (also OpenAI-wire
// compatible) to the provider.Adapter contract. Per spec.md §9's Open
// Question on temperature overrides, Grok deliberately does NOT enforce
// the reasoning-model temperature=1.0 override that OpenAI/Azure apply —
// reproduced exactly as the source leaves it, to avoid silent behavior
// drift across adapters.
package grok

import (
	"context"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/blackjuly/ultra-mcp/internal/errs"
	"github.com/blackjuly/ultra-mcp/internal/provider"
)

const (
	defaultModel   = "grok-2-latest"
	defaultBaseURL = "https://api.x.ai/v1"
)

var models = []string{"grok-2-latest", "grok-2-mini", "grok-beta"}

// Adapter is the Grok provider.Adapter implementation. It talks to
// go-openai directly rather than through internal/provider/openaiwire,
// since it must NOT apply openaiwire's reasoning-temperature override.
type Adapter struct {
	apiKey string
	inner  *openai.Client
}

// New constructs the adapter.
func New(apiKey, baseURL string, httpClient *http.Client) *Adapter {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return &Adapter{apiKey: apiKey, inner: openai.NewClientWithConfig(cfg)}
}

func (a *Adapter) Name() string         { return "grok" }
func (a *Adapter) IsConfigured() bool   { return a.apiKey != "" }
func (a *Adapter) DefaultModel() string { return defaultModel }
func (a *Adapter) ListModels() []string { return append([]string(nil), models...) }

func (a *Adapter) buildRequest(req provider.Request, stream bool) openai.ChatCompletionRequest {
	model := req.Model
	if model == "" {
		model = defaultModel
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	out := openai.ChatCompletionRequest{Model: model, Messages: messages, Stream: stream}
	if req.Temperature != nil {
		out.Temperature = *req.Temperature
	}
	if req.MaxOutputTokens != nil {
		out.MaxTokens = *req.MaxOutputTokens
	}
	if req.ReasoningEffort != "" {
		out.ReasoningEffort = string(req.ReasoningEffort)
	}
	return out
}

func (a *Adapter) Generate(ctx context.Context, req provider.Request) (*provider.Response, error) {
	resp, err := a.inner.CreateChatCompletion(ctx, a.buildRequest(req, false))
	if err != nil {
		return nil, a.classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &errs.UpstreamError{Provider: "grok", Status: 200, Body: "empty choices array"}
	}
	return &provider.Response{
		Text:         resp.Choices[0].Message.Content,
		FinishReason: string(resp.Choices[0].FinishReason),
		Usage: &provider.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
	}, nil
}

func (a *Adapter) StreamGenerate(ctx context.Context, req provider.Request) (<-chan provider.Chunk, error) {
	openaiReq := a.buildRequest(req, true)
	openaiReq.StreamOptions = &openai.StreamOptions{IncludeUsage: true}

	stream, err := a.inner.CreateChatCompletionStream(ctx, openaiReq)
	if err != nil {
		return nil, a.classifyError(err)
	}

	out := make(chan provider.Chunk)
	go func() {
		defer close(out)
		defer stream.Close()
		for {
			resp, err := stream.Recv()
			if err != nil {
				select {
				case out <- provider.Chunk{Done: true, Err: streamTerminalErr(err, a.classifyError)}:
				case <-ctx.Done():
				}
				return
			}

			chunk := provider.Chunk{}
			if len(resp.Choices) > 0 {
				chunk.Delta = resp.Choices[0].Delta.Content
				chunk.FinishReason = string(resp.Choices[0].FinishReason)
			}
			if resp.Usage != nil {
				chunk.Usage = &provider.Usage{
					InputTokens:  resp.Usage.PromptTokens,
					OutputTokens: resp.Usage.CompletionTokens,
					TotalTokens:  resp.Usage.TotalTokens,
				}
			}
			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func streamTerminalErr(err error, classify func(error) error) error {
	if strings.Contains(err.Error(), "EOF") {
		return nil
	}
	return classify(err)
}

func (a *Adapter) classifyError(err error) error {
	if apiErr, ok := err.(*openai.APIError); ok {
		return &errs.UpstreamError{Provider: "grok", Status: apiErr.HTTPStatusCode, Body: toString(apiErr.Message)}
	}
	return &errs.TransportError{Provider: "grok", Cause: err}
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
