// Package openaiwire is the shared client helper for every adapter that
// speaks the OpenAI chat-completions wire format (OpenAI itself, Azure,
// Bailian, and generic OpenAI-compatible endpoints; the Grok adapter uses
// go-openai directly instead), built on
// sashabaranov/go-openai the way mrmushfiq-llm0-gateway-starter's
// internal/gateway/providers/openai.go does, generalized to a configurable
// base URL and shared HTTP transport.
package openaiwire

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/blackjuly/ultra-mcp/internal/errs"
	"github.com/blackjuly/ultra-mcp/internal/provider"
)

// reasoningModelPrefixes lists the model-name prefixes that carry the
// upstream-enforced temperature=1.0 override, per spec.md §4.1.
var reasoningModelPrefixes = []string{"o1", "o3", "gpt-5"}

// Client wraps an *openai.Client with the request/response translation the
// provider.Adapter interface needs.
type Client struct {
	providerName string
	inner        *openai.Client
}

// New builds a Client. baseURL empty means the upstream's default
// (api.openai.com); httpClient is normally internal/httpclient's shared
// client wrapped with internal/resilience's per-provider circuit breaker.
func New(providerName, apiKey, baseURL string, httpClient *http.Client) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return &Client{providerName: providerName, inner: openai.NewClientWithConfig(cfg)}
}

// forceReasoningTemperature reports whether model requires the hard
// temperature=1.0 override.
func forceReasoningTemperature(model string) bool {
	lower := strings.ToLower(model)
	for _, prefix := range reasoningModelPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

func (c *Client) buildRequest(req provider.Request, stream bool) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	out := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   stream,
	}

	if forceReasoningTemperature(req.Model) {
		out.Temperature = 1.0
	} else if req.Temperature != nil {
		out.Temperature = *req.Temperature
	}

	if req.MaxOutputTokens != nil {
		out.MaxTokens = *req.MaxOutputTokens
	}

	if strings.HasPrefix(strings.ToLower(req.Model), "o1") || strings.HasPrefix(strings.ToLower(req.Model), "o3") {
		effort := req.ReasoningEffort
		if effort == "" {
			effort = provider.ReasoningMedium
		}
		out.ReasoningEffort = string(effort)
	}

	return out
}

// Generate performs a single non-streaming chat completion.
func (c *Client) Generate(ctx context.Context, req provider.Request) (*provider.Response, error) {
	openaiReq := c.buildRequest(req, false)

	resp, err := c.inner.CreateChatCompletion(ctx, openaiReq)
	if err != nil {
		return nil, c.classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &errs.UpstreamError{Provider: c.providerName, Status: 200, Body: "empty choices array"}
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

// StreamGenerate performs a streaming chat completion, translating
// go-openai's stream into the shared Chunk channel shape.
func (c *Client) StreamGenerate(ctx context.Context, req provider.Request) (<-chan provider.Chunk, error) {
	openaiReq := c.buildRequest(req, true)
	openaiReq.StreamOptions = &openai.StreamOptions{IncludeUsage: true}

	stream, err := c.inner.CreateChatCompletionStream(ctx, openaiReq)
	if err != nil {
		return nil, c.classifyError(err)
	}

	out := make(chan provider.Chunk)
	go func() {
		defer close(out)
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if err != nil {
				if isStreamEOF(err) {
					out <- provider.Chunk{Done: true}
					return
				}
				select {
				case out <- provider.Chunk{Done: true, Err: c.classifyError(err)}:
				case <-ctx.Done():
				}
				return
			}

			chunk := provider.Chunk{}
			if len(resp.Choices) > 0 {
				chunk.Delta = resp.Choices[0].Delta.Content
				if resp.Choices[0].FinishReason != "" {
					chunk.FinishReason = string(resp.Choices[0].FinishReason)
				}
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

func isStreamEOF(err error) bool {
	return err != nil && strings.Contains(err.Error(), "EOF")
}

func (c *Client) classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &errs.UpstreamError{Provider: c.providerName, Status: apiErr.HTTPStatusCode, Body: fmt.Sprint(apiErr.Message)}
	}
	return &errs.TransportError{Provider: c.providerName, Cause: err}
}
