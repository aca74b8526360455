// Package tokencount counts tokens for the models the engine talks to,
// built on pkoukk/tiktoken-go the way ngoyal88/relay's pkg/ai package does,
// generalized to the per-message chat overhead and approximate-fallback
// rules in spec.md §4.2.
package tokencount

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// perMessageOverhead is the fixed per-message token cost OpenAI's chat
// format adds on top of the message content itself (role/name wrapper
// tokens), per spec.md §4.2.
const (
	perMessageOverhead = 3
	perReplyPriming    = 3
	perNameOverhead    = 1
)

// Result is a token count together with whether it was computed exactly
// via a BPE encoder or approximated via the chars/4 fallback.
type Result struct {
	Tokens      int
	Approximate bool
}

// Counter counts tokens for a family of models, caching BPE encoders for
// the process lifetime since constructing one is not free.
type Counter struct {
	mu       sync.Mutex
	encoders map[string]*tiktoken.Tiktoken
}

// New returns a ready-to-use Counter.
func New() *Counter {
	return &Counter{encoders: make(map[string]*tiktoken.Tiktoken)}
}

// Count returns the token count of text for model. If no encoder can be
// resolved for the model (including the cl100k_base fallback encoding
// itself failing to load), it falls back to an approximate count and
// reports Approximate=true rather than returning an error — spec.md §4.2
// treats token counting as best-effort, never a hard failure.
func (c *Counter) Count(model, text string) Result {
	enc := c.encoderFor(model)
	if enc == nil {
		return Result{Tokens: approximate(text), Approximate: true}
	}
	return Result{Tokens: len(enc.Encode(text, nil, nil))}
}

// CountMessage returns the token count of a single chat message, including
// the per-message role/name wrapper overhead OpenAI's chat format charges.
func (c *Counter) CountMessage(model, role, name, content string) Result {
	base := c.Count(model, content)
	overhead := perMessageOverhead
	if name != "" {
		overhead += perNameOverhead
	}
	return Result{Tokens: base.Tokens + overhead, Approximate: base.Approximate}
}

// CountConversation sums CountMessage over every message and adds the
// fixed reply-priming overhead the assistant's turn always carries.
func (c *Counter) CountConversation(model string, messages []Message) Result {
	total := perReplyPriming
	approx := false
	for _, m := range messages {
		r := c.CountMessage(model, m.Role, m.Name, m.Content)
		total += r.Tokens
		approx = approx || r.Approximate
	}
	return Result{Tokens: total, Approximate: approx}
}

// Message is the minimal shape CountConversation needs; callers adapt
// their own conversation types into this.
type Message struct {
	Role    string
	Name    string
	Content string
}

func (c *Counter) encoderFor(model string) *tiktoken.Tiktoken {
	encodingName := encodingForModel(model)

	c.mu.Lock()
	defer c.mu.Unlock()

	if enc, ok := c.encoders[encodingName]; ok {
		return enc
	}

	// Resolve by encoding name rather than tiktoken.EncodingForModel(model):
	// the library's own model table would pick o200k_base for gpt-4o/o1/o3,
	// diverging from spec.md §4.4's literal gpt-4*/gpt-3.5* -> cl100k_base
	// rule this engine must follow.
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil
	}
	c.encoders[encodingName] = enc
	return enc
}

// encodingForModel maps a model family to its tiktoken encoding name, per
// spec.md §4.4's literal selection rule. Models tiktoken-go doesn't
// recognize at all (Gemini, Grok, Bailian, arbitrary OpenAI-compatible
// deployments) fall into the "anything else" branch, which is also
// cl100k_base — close enough for the estimate this engine needs.
func encodingForModel(model string) string {
	lower := strings.ToLower(model)
	switch {
	case strings.HasPrefix(lower, "text-davinci"), strings.HasPrefix(lower, "text-curie"):
		return "p50k_base"
	case strings.HasPrefix(lower, "gpt-4"), strings.HasPrefix(lower, "gpt-3.5"):
		return "cl100k_base"
	case strings.HasPrefix(lower, "gemini"):
		return "cl100k_base"
	default:
		return "cl100k_base"
	}
}

// approximate estimates a token count from character length alone, per
// spec.md §4.2's "ceil(len(text)/4)" fallback rule.
func approximate(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}
