// Package embedding implements the narrow Embedding Subservice from
// spec.md §4.5: embedOne/embedMany, reusing each chat provider's
// credentials rather than a full Adapter. The one upstream quirk this
// package must reproduce is Azure's inability to batch — embedMany on
// Azure iterates one request per input and concatenates results, while
// every other provider uses its native batch endpoint.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/blackjuly/ultra-mcp/internal/errs"
)

// Vector is one embedding result.
type Vector []float64

// Provider names this package knows how to embed with.
const (
	ProviderOpenAI  = "openai"
	ProviderAzure   = "azure"
	ProviderGemini  = "google"
	ProviderBailian = "bailian"
)

// DefaultModel returns spec.md §4.5's configurable-default embedding model
// per provider.
func DefaultModel(providerName string) string {
	switch providerName {
	case ProviderOpenAI, ProviderAzure:
		return "text-embedding-3-small"
	case ProviderGemini:
		return "text-embedding-004"
	case ProviderBailian:
		return "text-embedding-v1"
	default:
		return ""
	}
}

// Embedder embeds text against one configured provider.
type Embedder struct {
	providerName string
	apiKey       string
	baseURL      string
	model        string
	httpClient   *http.Client
}

// New constructs an Embedder. baseURL and model follow the conventions of
// the corresponding chat adapter (Azure resource endpoint, Gemini
// generative-language base, etc).
func New(providerName, apiKey, baseURL, model string, httpClient *http.Client) *Embedder {
	if model == "" {
		model = DefaultModel(providerName)
	}
	return &Embedder{providerName: providerName, apiKey: apiKey, baseURL: baseURL, model: model, httpClient: httpClient}
}

// EmbedOne embeds a single text.
func (e *Embedder) EmbedOne(ctx context.Context, text string) (Vector, error) {
	vectors, err := e.embedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, &errs.UpstreamError{Provider: e.providerName, Status: 200, Body: "expected exactly one embedding"}
	}
	return vectors[0], nil
}

// EmbedMany embeds a batch of texts. On Azure this issues one HTTP request
// per text (sequential, per spec.md §4.5's Azure batching quirk) and
// concatenates the results; every other provider uses its native batch
// endpoint in a single request.
func (e *Embedder) EmbedMany(ctx context.Context, texts []string) ([]Vector, error) {
	if e.providerName != ProviderAzure {
		return e.embedBatch(ctx, texts)
	}

	results := make([]Vector, 0, len(texts))
	for _, text := range texts {
		v, err := e.embedBatch(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		results = append(results, v...)
	}
	return results, nil
}

// embeddingRequest is the OpenAI-wire-compatible embeddings request body,
// which OpenAI, Azure, and Bailian's compatible-mode endpoint all accept.
type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

func (e *Embedder) embedBatch(ctx context.Context, texts []string) ([]Vector, error) {
	if e.providerName == ProviderGemini {
		return e.embedBatchGemini(ctx, texts)
	}

	body, err := json.Marshal(embeddingRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("ultra-mcp: marshal embedding request: %w", err)
	}

	url := e.baseURL + "/embeddings"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ultra-mcp: build embedding request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, &errs.TransportError{Provider: e.providerName, Cause: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errs.TransportError{Provider: e.providerName, Cause: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &errs.UpstreamError{Provider: e.providerName, Status: resp.StatusCode, Body: string(respBody)}
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &errs.ParseError{Provider: e.providerName, Fragment: string(respBody), Cause: err}
	}

	vectors := make([]Vector, len(parsed.Data))
	for _, d := range parsed.Data {
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

// geminiEmbedRequest/geminiBatchEmbedRequest mirror Gemini's
// embedContent/batchEmbedContents shapes, which are not
// OpenAI-wire-compatible. batchEmbedContents takes N per-text requests in
// one call and returns N embeddings in the same order, which is what lets
// EmbedMany on Gemini issue exactly one HTTP request regardless of N,
// unlike Azure's per-item loop.
type geminiEmbedRequest struct {
	Model   string          `json:"model"`
	Content geminiContentIn `json:"content"`
}

type geminiContentIn struct {
	Parts []geminiPartIn `json:"parts"`
}

type geminiPartIn struct {
	Text string `json:"text"`
}

type geminiBatchEmbedRequest struct {
	Requests []geminiEmbedRequest `json:"requests"`
}

type geminiBatchEmbedResponse struct {
	Embeddings []struct {
		Values []float64 `json:"values"`
	} `json:"embeddings"`
}

func (e *Embedder) embedBatchGemini(ctx context.Context, texts []string) ([]Vector, error) {
	requests := make([]geminiEmbedRequest, len(texts))
	for i, text := range texts {
		requests[i] = geminiEmbedRequest{
			Model:   "models/" + e.model,
			Content: geminiContentIn{Parts: []geminiPartIn{{Text: text}}},
		}
	}

	body, err := json.Marshal(geminiBatchEmbedRequest{Requests: requests})
	if err != nil {
		return nil, fmt.Errorf("ultra-mcp: marshal gemini batch embedding request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:batchEmbedContents?key=%s", e.baseURL, e.model, e.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ultra-mcp: build gemini batch embedding request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, &errs.TransportError{Provider: ProviderGemini, Cause: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errs.TransportError{Provider: ProviderGemini, Cause: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &errs.UpstreamError{Provider: ProviderGemini, Status: resp.StatusCode, Body: string(respBody)}
	}

	var parsed geminiBatchEmbedResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &errs.ParseError{Provider: ProviderGemini, Fragment: string(respBody), Cause: err}
	}
	if len(parsed.Embeddings) != len(texts) {
		return nil, &errs.ParseError{Provider: ProviderGemini, Fragment: string(respBody), Cause: fmt.Errorf("expected %d embeddings, got %d", len(texts), len(parsed.Embeddings))}
	}

	vectors := make([]Vector, len(parsed.Embeddings))
	for i, emb := range parsed.Embeddings {
		vectors[i] = emb.Values
	}
	return vectors, nil
}
