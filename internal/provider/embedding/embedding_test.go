package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestEmbedManyOnAzureIssuesOneRequestPerText(t *testing.T) {
	var requestCount int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requestCount, 1)

		var body embeddingRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		if len(body.Input) != 1 {
			t.Errorf("expected exactly one input per Azure request, got %d", len(body.Input))
		}

		resp := embeddingResponse{Data: []struct {
			Embedding []float64 `json:"embedding"`
			Index     int       `json:"index"`
		}{{Embedding: []float64{1, 2, 3}, Index: 0}}}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	e := New(ProviderAzure, "key", server.URL, "text-embedding-3-small", server.Client())

	vectors, err := e.EmbedMany(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("EmbedMany: %v", err)
	}
	if len(vectors) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vectors))
	}
	if got := atomic.LoadInt32(&requestCount); got != 3 {
		t.Fatalf("expected 3 sequential requests on Azure, got %d", got)
	}
}

func TestEmbedManyOnOpenAIUsesOneBatchRequest(t *testing.T) {
	var requestCount int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requestCount, 1)

		var body embeddingRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		if len(body.Input) != 3 {
			t.Errorf("expected the full batch in one request, got %d inputs", len(body.Input))
		}

		resp := embeddingResponse{Data: []struct {
			Embedding []float64 `json:"embedding"`
			Index     int       `json:"index"`
		}{
			{Embedding: []float64{1}, Index: 0},
			{Embedding: []float64{2}, Index: 1},
			{Embedding: []float64{3}, Index: 2},
		}}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	e := New(ProviderOpenAI, "key", server.URL, "text-embedding-3-small", server.Client())

	vectors, err := e.EmbedMany(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("EmbedMany: %v", err)
	}
	if len(vectors) != 3 || vectors[1][0] != 2 {
		t.Fatalf("expected vectors reordered by index, got %+v", vectors)
	}
	if got := atomic.LoadInt32(&requestCount); got != 1 {
		t.Fatalf("expected exactly 1 batch request on OpenAI, got %d", got)
	}
}

func TestEmbedManyOnGeminiUsesOneBatchRequest(t *testing.T) {
	var requestCount int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requestCount, 1)

		var body geminiBatchEmbedRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		if len(body.Requests) != 3 {
			t.Errorf("expected the full batch in one request, got %d requests", len(body.Requests))
		}

		resp := geminiBatchEmbedResponse{Embeddings: []struct {
			Values []float64 `json:"values"`
		}{
			{Values: []float64{1}},
			{Values: []float64{2}},
			{Values: []float64{3}},
		}}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	e := New(ProviderGemini, "key", server.URL, "text-embedding-004", server.Client())

	vectors, err := e.EmbedMany(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("EmbedMany: %v", err)
	}
	if len(vectors) != 3 || vectors[2][0] != 3 {
		t.Fatalf("expected 3 vectors in request order, got %+v", vectors)
	}
	if got := atomic.LoadInt32(&requestCount); got != 1 {
		t.Fatalf("expected exactly 1 batch request on Gemini, got %d", got)
	}
}

func TestDefaultModelPerProvider(t *testing.T) {
	cases := map[string]string{
		ProviderOpenAI:  "text-embedding-3-small",
		ProviderAzure:   "text-embedding-3-small",
		ProviderGemini:  "text-embedding-004",
		ProviderBailian: "text-embedding-v1",
	}
	for provider, want := range cases {
		if got := DefaultModel(provider); got != want {
			t.Errorf("DefaultModel(%q) = %q, want %q", provider, got, want)
		}
	}
}
