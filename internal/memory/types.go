// Package memory implements the Conversation Memory described in spec.md
// §4.4: sessions, ordered messages, deduplicated file attachments, token
// counting, and budget-aware context pruning, all backed by the shared
// sqlite store.
package memory

import "time"

// Session status values.
const (
	StatusActive   = "active"
	StatusArchived = "archived"
	StatusDeleted  = "deleted"
)

// Session mirrors one row of ultra_sessions.
type Session struct {
	ID            string
	Name          string
	Status        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	LastMessageAt *time.Time
	Metadata      string
}

// Message mirrors one row of ultra_messages.
type Message struct {
	ID              string
	SessionID       string
	MessageIndex    int
	Role            string
	Content         string
	ToolName        string
	ParentMessageID string
	Timestamp       time.Time
	Metadata        string
}

// File mirrors one row of ultra_files.
type File struct {
	ID             string
	SessionID      string
	FilePath       string
	FileContent    string
	ContentHash    string
	AddedAt        time.Time
	LastAccessedAt time.Time
	AccessCount    int
	IsRelevant     bool
}

// FileInput is the caller-supplied shape for addFiles.
type FileInput struct {
	Path    string
	Content string
}

// Budget mirrors one row of ultra_budgets.
type Budget struct {
	SessionID      string
	MaxTokens      *int
	MaxCostUSD     *float64
	MaxDurationMS  *int64
	UsedTokens     int
	UsedCostUSD    float64
	UsedDurationMS int64
}

// BudgetStatus is the result of checkBudgetLimits.
type BudgetStatus struct {
	WithinTokenLimit    bool
	WithinCostLimit     bool
	WithinDurationLimit bool
	WithinLimits        bool
}

// ConversationContext is the result of getConversationContext: the
// (possibly pruned) messages and files that fit the requested token
// budget, plus whether pruning actually occurred.
type ConversationContext struct {
	Messages    []Message
	Files       []File
	TotalTokens int
	Pruned      bool
	Approximate bool
}

// SessionSummary is one row of listSessions' paginated result.
type SessionSummary struct {
	Session       Session
	MessageCount  int
	FileCount     int
	TotalTokens   int
	TotalCostUSD  float64
	LastActivity  *time.Time
}

// SessionPage is the paginated result of listSessions.
type SessionPage struct {
	Sessions   []SessionSummary
	TotalCount int
	HasMore    bool
}

const (
	// messageTokenRatio and fileTokenRatio split a maxTokens budget between
	// messages and files, per spec.md §4.4.
	messageTokenRatio = 0.7
	fileTokenRatio    = 0.3
)
