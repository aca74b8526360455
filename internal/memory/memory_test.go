package memory

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/blackjuly/ultra-mcp/internal/store"
	"github.com/blackjuly/ultra-mcp/internal/tokencount"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "ultra-mcp.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return New(s, tokencount.New(), nil)
}

func TestAddMessageAssignsMonotonicIndex(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	sess, err := svc.GetOrCreateSession(ctx, "", "test session")
	if err != nil {
		t.Fatalf("GetOrCreateSession: %v", err)
	}

	for i := 0; i < 3; i++ {
		msg, err := svc.AddMessage(ctx, sess.ID, "user", "hello", "", "", "")
		if err != nil {
			t.Fatalf("AddMessage: %v", err)
		}
		if msg.MessageIndex != i {
			t.Fatalf("MessageIndex = %d, want %d", msg.MessageIndex, i)
		}
	}
}

func TestAddFilesDedupsByContentHash(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	sess, err := svc.GetOrCreateSession(ctx, "", "")
	if err != nil {
		t.Fatalf("GetOrCreateSession: %v", err)
	}

	first, err := svc.AddFiles(ctx, sess.ID, []FileInput{{Path: "a.txt", Content: "same content"}})
	if err != nil {
		t.Fatalf("AddFiles (first): %v", err)
	}
	if len(first) != 1 || first[0].AccessCount != 1 {
		t.Fatalf("unexpected first insert: %+v", first)
	}

	second, err := svc.AddFiles(ctx, sess.ID, []FileInput{{Path: "a-renamed.txt", Content: "same content"}})
	if err != nil {
		t.Fatalf("AddFiles (second): %v", err)
	}
	if len(second) != 1 {
		t.Fatalf("expected one result, got %d", len(second))
	}
	if second[0].ID != first[0].ID {
		t.Fatalf("expected duplicate content to reuse the same file row")
	}
	if second[0].AccessCount != 2 {
		t.Fatalf("AccessCount = %d, want 2", second[0].AccessCount)
	}

	files, err := svc.listRelevantFiles(ctx, sess.ID)
	if err != nil {
		t.Fatalf("listRelevantFiles: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected exactly one distinct file row, got %d", len(files))
	}
}

func TestGetConversationContextPrunesOldestMessagesFirst(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	sess, err := svc.GetOrCreateSession(ctx, "", "")
	if err != nil {
		t.Fatalf("GetOrCreateSession: %v", err)
	}

	// Each message is long enough to individually consume a meaningful
	// token share so a tight budget forces pruning.
	longContent := strings.Repeat("token ", 200)
	var lastID string
	for i := 0; i < 5; i++ {
		msg, err := svc.AddMessage(ctx, sess.ID, "user", longContent, "", "", "")
		if err != nil {
			t.Fatalf("AddMessage: %v", err)
		}
		lastID = msg.ID
	}

	full, err := svc.GetConversationContext(ctx, sess.ID, -1, false, "gpt-4o")
	if err != nil {
		t.Fatalf("GetConversationContext (unbounded): %v", err)
	}
	if len(full.Messages) != 5 {
		t.Fatalf("expected 5 messages unbounded, got %d", len(full.Messages))
	}

	perMessage := full.TotalTokens / 5
	tightBudget := perMessage*2 + 1

	pruned, err := svc.GetConversationContext(ctx, sess.ID, tightBudget, false, "gpt-4o")
	if err != nil {
		t.Fatalf("GetConversationContext (pruned): %v", err)
	}
	if !pruned.Pruned {
		t.Fatalf("expected pruning to occur")
	}
	if len(pruned.Messages) == 0 || len(pruned.Messages) >= 5 {
		t.Fatalf("expected a strict subset of messages, got %d", len(pruned.Messages))
	}

	// Newest message must survive pruning; admission walks from newest to
	// oldest and stops on first overflow.
	if pruned.Messages[len(pruned.Messages)-1].ID != lastID {
		t.Fatalf("expected the most recent message to be retained")
	}
}

func TestGetConversationContextWithZeroMaxTokensReturnsEmpty(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	sess, err := svc.GetOrCreateSession(ctx, "", "")
	if err != nil {
		t.Fatalf("GetOrCreateSession: %v", err)
	}
	if _, err := svc.AddMessage(ctx, sess.ID, "user", "hello", "", "", ""); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}

	out, err := svc.GetConversationContext(ctx, sess.ID, 0, false, "gpt-4o")
	if err != nil {
		t.Fatalf("GetConversationContext: %v", err)
	}
	if len(out.Messages) != 0 {
		t.Fatalf("expected zero maxTokens to return no messages, got %d", len(out.Messages))
	}
	if len(out.Files) != 0 {
		t.Fatalf("expected zero maxTokens to return no files, got %d", len(out.Files))
	}
	if !out.Pruned {
		t.Fatalf("expected Pruned to be true for an explicit zero budget")
	}
}

func TestUpdateBudgetUsageSwallowsErrorsForUnknownSession(t *testing.T) {
	svc := newTestService(t)
	// No budget row exists for this id; UpdateBudgetUsage must not panic
	// or require error handling from the caller.
	svc.UpdateBudgetUsage(context.Background(), "unknown-session", 10, 0.01, 100)
}

func TestCheckBudgetLimitsWithoutBudgetIsAlwaysWithinLimits(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	sess, err := svc.GetOrCreateSession(ctx, "", "")
	if err != nil {
		t.Fatalf("GetOrCreateSession: %v", err)
	}

	status, err := svc.CheckBudgetLimits(ctx, sess.ID)
	if err != nil {
		t.Fatalf("CheckBudgetLimits: %v", err)
	}
	if !status.WithinLimits {
		t.Fatalf("expected within limits with no budget configured")
	}
}

func TestSetBudgetAndExceedLimit(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	sess, err := svc.GetOrCreateSession(ctx, "", "")
	if err != nil {
		t.Fatalf("GetOrCreateSession: %v", err)
	}

	maxTokens := 100
	if err := svc.SetBudget(ctx, sess.ID, &maxTokens, nil, nil); err != nil {
		t.Fatalf("SetBudget: %v", err)
	}

	svc.UpdateBudgetUsage(ctx, sess.ID, 150, 0, 0)

	status, err := svc.CheckBudgetLimits(ctx, sess.ID)
	if err != nil {
		t.Fatalf("CheckBudgetLimits: %v", err)
	}
	if status.WithinTokenLimit {
		t.Fatalf("expected token limit to be exceeded")
	}
	if status.WithinLimits {
		t.Fatalf("expected aggregate withinLimits to be false")
	}
}
