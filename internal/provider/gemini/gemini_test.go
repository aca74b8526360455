package gemini

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/blackjuly/ultra-mcp/internal/provider"
)

type nopCloser struct{ io.Reader }

func (nopCloser) Close() error { return nil }

func TestBuildRequestDefaultsSearchGroundingForDefaultModel(t *testing.T) {
	a := &Adapter{apiKey: "k", baseURL: defaultBaseURL}

	req := a.buildRequest(provider.Request{Model: defaultModel, Prompt: "hi"})
	if len(req.Tools) != 1 {
		t.Fatalf("expected search grounding enabled by default for %s, got %+v", defaultModel, req.Tools)
	}
}

func TestBuildRequestLeavesGroundingOffForOtherModels(t *testing.T) {
	a := &Adapter{apiKey: "k", baseURL: defaultBaseURL}

	req := a.buildRequest(provider.Request{Model: "gemini-1.5-flash", Prompt: "hi"})
	if len(req.Tools) != 0 {
		t.Fatalf("expected no grounding for non-default model, got %+v", req.Tools)
	}
}

func TestBuildRequestHonorsExplicitGroundingOverride(t *testing.T) {
	a := &Adapter{apiKey: "k", baseURL: defaultBaseURL}

	off := false
	req := a.buildRequest(provider.Request{Model: defaultModel, Prompt: "hi", UseSearchGrounding: &off})
	if len(req.Tools) != 0 {
		t.Fatalf("expected caller override to disable grounding, got %+v", req.Tools)
	}

	on := true
	req = a.buildRequest(provider.Request{Model: "gemini-1.5-flash", Prompt: "hi", UseSearchGrounding: &on})
	if len(req.Tools) != 1 {
		t.Fatalf("expected caller override to enable grounding, got %+v", req.Tools)
	}
}

func TestBuildRequestIncludesSystemPromptAsSeparateTurn(t *testing.T) {
	a := &Adapter{apiKey: "k", baseURL: defaultBaseURL}

	req := a.buildRequest(provider.Request{Model: defaultModel, SystemPrompt: "be terse", Prompt: "hi"})
	if len(req.Contents) != 2 {
		t.Fatalf("expected system + user turns, got %d", len(req.Contents))
	}
	if req.Contents[0].Parts[0].Text != "be terse" {
		t.Fatalf("expected system prompt first, got %q", req.Contents[0].Parts[0].Text)
	}
}

func TestPumpAccumulatesDeltaAndFinalUsage(t *testing.T) {
	sse := strings.Join([]string{
		`data: {"candidates":[{"content":{"parts":[{"text":"Hel"}]},"index":0}]}`,
		`data: {"candidates":[{"content":{"parts":[{"text":"lo"}],"role":""},"finishReason":"STOP","index":0}],"usageMetadata":{"promptTokenCount":5,"candidatesTokenCount":2,"totalTokenCount":7}}`,
		``,
	}, "\n")

	a := &Adapter{}
	out := make(chan provider.Chunk, 8)
	a.pump(context.Background(), nopCloser{strings.NewReader(sse)}, out)

	var deltas string
	var final provider.Chunk
	for chunk := range out {
		if chunk.Done {
			final = chunk
			continue
		}
		deltas += chunk.Delta
	}

	if deltas != "Hello" {
		t.Fatalf("expected accumulated delta %q, got %q", "Hello", deltas)
	}
	if final.FinishReason != "STOP" {
		t.Fatalf("expected finish reason STOP, got %q", final.FinishReason)
	}
	if final.Usage == nil || final.Usage.TotalTokens != 7 {
		t.Fatalf("expected usage totalTokens=7, got %+v", final.Usage)
	}
}

func TestPumpSkipsMalformedFragmentsWithoutFailingStream(t *testing.T) {
	sse := strings.Join([]string{
		`data: not-json-at-all`,
		`data: {"candidates":[{"content":{"parts":[{"text":"ok"}]},"finishReason":"STOP"}]}`,
		``,
	}, "\n")

	a := &Adapter{}
	out := make(chan provider.Chunk, 8)
	a.pump(context.Background(), nopCloser{strings.NewReader(sse)}, out)

	var sawOK bool
	for chunk := range out {
		if chunk.Delta == "ok" {
			sawOK = true
		}
	}
	if !sawOK {
		t.Fatal("expected the malformed fragment to be skipped and the valid one to still arrive")
	}
}

