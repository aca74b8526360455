// Package gemini adapts Google's Gemini generative-language API to the
// provider.Adapter contract. Unlike the OpenAI-wire providers, Gemini has
// no shared wire format in this codebase, so this is a hand-rolled
// HTTP/SSE client, grounded on
// mrmushfiq-llm0-gateway-starter/internal/gateway/providers/gemini.go —
// translated from its OpenAI-shaped intermediate types onto the engine's
// own provider.Request/Response/Chunk shapes directly.
package gemini

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/blackjuly/ultra-mcp/internal/errs"
	"github.com/blackjuly/ultra-mcp/internal/provider"
)

const (
	defaultModel   = "gemini-1.5-pro"
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
)

var models = []string{
	"gemini-2.5-pro", "gemini-2.5-flash", "gemini-2.0-flash",
	"gemini-1.5-pro", "gemini-1.5-flash",
}

// Adapter is the Gemini provider.Adapter implementation.
type Adapter struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// New constructs the adapter. httpClient should carry the shared
// proxy-aware transport (spec.md §4.1 "supports environment proxy via a
// dispatcher that injects a proxy tunnel on outbound fetches") and this
// provider's circuit breaker.
func New(apiKey, baseURL string, httpClient *http.Client) *Adapter {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Adapter{apiKey: apiKey, baseURL: baseURL, httpClient: httpClient}
}

func (a *Adapter) Name() string         { return "google" }
func (a *Adapter) IsConfigured() bool   { return a.apiKey != "" }
func (a *Adapter) DefaultModel() string { return defaultModel }
func (a *Adapter) ListModels() []string { return append([]string(nil), models...) }

// content is Gemini's per-turn payload shape.
type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     *float32 `json:"temperature,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
}

type groundingConfig struct {
	GoogleSearchRetrieval *struct{} `json:"googleSearchRetrieval,omitempty"`
}

type generateRequest struct {
	Contents          []content          `json:"contents"`
	GenerationConfig  *generationConfig  `json:"generationConfig,omitempty"`
	Tools             []groundingConfig  `json:"tools,omitempty"`
}

type usageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason"`
	Index        int     `json:"index"`
}

type generateResponse struct {
	Candidates    []candidate    `json:"candidates"`
	UsageMetadata *usageMetadata `json:"usageMetadata"`
}

func (a *Adapter) buildRequest(req provider.Request) generateRequest {
	contents := make([]content, 0, 2)
	if req.SystemPrompt != "" {
		contents = append(contents, content{Role: "user", Parts: []part{{Text: req.SystemPrompt}}})
	}
	contents = append(contents, content{Role: "user", Parts: []part{{Text: req.Prompt}}})

	out := generateRequest{Contents: contents}
	if req.Temperature != nil || req.MaxOutputTokens != nil {
		out.GenerationConfig = &generationConfig{Temperature: req.Temperature, MaxOutputTokens: req.MaxOutputTokens}
	}

	model := req.Model
	if model == "" {
		model = defaultModel
	}

	// Search grounding defaults on for the default Gemini Pro tier when the
	// caller doesn't say otherwise, per spec.md §4.1.
	useGrounding := model == defaultModel
	if req.UseSearchGrounding != nil {
		useGrounding = *req.UseSearchGrounding
	}
	if useGrounding {
		out.Tools = []groundingConfig{{GoogleSearchRetrieval: &struct{}{}}}
	}

	return out
}

func (a *Adapter) endpoint(model, method string) string {
	return fmt.Sprintf("%s/models/%s:%s?key=%s", a.baseURL, model, method, a.apiKey)
}

// Generate performs a single non-streaming call to generateContent.
func (a *Adapter) Generate(ctx context.Context, req provider.Request) (*provider.Response, error) {
	model := req.Model
	if model == "" {
		model = defaultModel
	}

	body, err := json.Marshal(a.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("ultra-mcp: marshal gemini request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint(model, "generateContent"), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ultra-mcp: build gemini request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, &errs.TransportError{Provider: "google", Cause: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errs.TransportError{Provider: "google", Cause: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &errs.UpstreamError{Provider: "google", Status: resp.StatusCode, Body: string(respBody)}
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &errs.ParseError{Provider: "google", Fragment: string(respBody), Cause: err}
	}

	return toResponse(parsed), nil
}

func toResponse(resp generateResponse) *provider.Response {
	var text, finishReason string
	if len(resp.Candidates) > 0 {
		for _, p := range resp.Candidates[0].Content.Parts {
			text += p.Text
		}
		finishReason = resp.Candidates[0].FinishReason
	}

	out := &provider.Response{Text: text, FinishReason: finishReason}
	if resp.UsageMetadata != nil {
		out.Usage = &provider.Usage{
			InputTokens:  resp.UsageMetadata.PromptTokenCount,
			OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:  resp.UsageMetadata.TotalTokenCount,
		}
	}
	return out
}

// StreamGenerate performs a streamGenerateContent call and translates its
// SSE body into the shared Chunk channel shape, per spec.md §4.1's
// streaming contract: split on newlines, "data: " prefixed payloads,
// ignore unparseable fragments silently, no literal [DONE] sentinel on
// this upstream (the HTTP body simply ends).
func (a *Adapter) StreamGenerate(ctx context.Context, req provider.Request) (<-chan provider.Chunk, error) {
	model := req.Model
	if model == "" {
		model = defaultModel
	}

	body, err := json.Marshal(a.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("ultra-mcp: marshal gemini request: %w", err)
	}

	url := a.endpoint(model, "streamGenerateContent") + "&alt=sse"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ultra-mcp: build gemini request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, &errs.TransportError{Provider: "google", Cause: err}
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(resp.Body)
		return nil, &errs.UpstreamError{Provider: "google", Status: resp.StatusCode, Body: string(respBody)}
	}

	out := make(chan provider.Chunk)
	go a.pump(ctx, resp.Body, out)
	return out, nil
}

func (a *Adapter) pump(ctx context.Context, body io.ReadCloser, out chan<- provider.Chunk) {
	defer close(out)
	defer body.Close()

	reader := bufio.NewReader(body)
	var usage *provider.Usage
	var finishReason string

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err != io.EOF {
				select {
				case out <- provider.Chunk{Done: true, Err: &errs.TransportError{Provider: "google", Cause: err}}:
				case <-ctx.Done():
				}
				return
			}
			break
		}

		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, "data: ") {
			continue
		}

		payload := strings.TrimPrefix(line, "data: ")
		var parsed generateResponse
		if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
			continue // malformed fragment: skip, never fatal to the stream
		}

		chunk := provider.Chunk{}
		if len(parsed.Candidates) > 0 {
			for _, p := range parsed.Candidates[0].Content.Parts {
				chunk.Delta += p.Text
			}
			if parsed.Candidates[0].FinishReason != "" {
				finishReason = parsed.Candidates[0].FinishReason
			}
		}
		if parsed.UsageMetadata != nil {
			usage = &provider.Usage{
				InputTokens:  parsed.UsageMetadata.PromptTokenCount,
				OutputTokens: parsed.UsageMetadata.CandidatesTokenCount,
				TotalTokens:  parsed.UsageMetadata.TotalTokenCount,
			}
		}

		if chunk.Delta != "" {
			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}

	select {
	case out <- provider.Chunk{Done: true, FinishReason: finishReason, Usage: usage}:
	case <-ctx.Done():
	}
}
