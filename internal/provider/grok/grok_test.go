package grok

import (
	"errors"
	"testing"

	"github.com/sashabaranov/go-openai"

	"github.com/blackjuly/ultra-mcp/internal/errs"
	"github.com/blackjuly/ultra-mcp/internal/provider"
)

func TestBuildRequestDoesNotForceTemperatureForReasoningModels(t *testing.T) {
	a := New("key", "", nil)

	callerTemp := float32(0.3)
	req := provider.Request{Model: "o1-mini", Temperature: &callerTemp}

	out := a.buildRequest(req, false)
	if out.Temperature != 0.3 {
		t.Fatalf("grok must not force temperature=1.0 for reasoning models, got %v", out.Temperature)
	}
}

func TestBuildRequestPassesThroughReasoningEffort(t *testing.T) {
	a := New("key", "", nil)

	req := provider.Request{Model: "grok-2-latest", ReasoningEffort: provider.ReasoningHigh}
	out := a.buildRequest(req, false)
	if out.ReasoningEffort != string(provider.ReasoningHigh) {
		t.Fatalf("expected reasoning effort passed through, got %q", out.ReasoningEffort)
	}
}

func TestBuildRequestDefaultsModelWhenEmpty(t *testing.T) {
	a := New("key", "", nil)

	out := a.buildRequest(provider.Request{}, false)
	if out.Model != defaultModel {
		t.Fatalf("expected default model %q, got %q", defaultModel, out.Model)
	}
}

func TestStreamTerminalErrTreatsEOFAsCleanEnd(t *testing.T) {
	classify := func(err error) error { return errors.New("should not be called") }
	if got := streamTerminalErr(errors.New("EOF"), classify); got != nil {
		t.Fatalf("expected nil for EOF, got %v", got)
	}
}

func TestStreamTerminalErrClassifiesNonEOF(t *testing.T) {
	sentinel := errors.New("classified")
	classify := func(err error) error { return sentinel }
	if got := streamTerminalErr(errors.New("connection reset"), classify); got != sentinel {
		t.Fatalf("expected classified error, got %v", got)
	}
}

func TestClassifyErrorWrapsAPIError(t *testing.T) {
	a := New("key", "", nil)

	apiErr := &openai.APIError{HTTPStatusCode: 500, Message: "server error"}
	err := a.classifyError(apiErr)
	if err == nil {
		t.Fatal("expected non-nil error")
	}
	var upstream *errs.UpstreamError
	if !errors.As(err, &upstream) || upstream.Status != 500 {
		t.Fatalf("expected *errs.UpstreamError with status 500, got %#v", err)
	}
}
