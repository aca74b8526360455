package memory

import (
	"log/slog"

	"github.com/blackjuly/ultra-mcp/internal/store"
	"github.com/blackjuly/ultra-mcp/internal/tokencount"
)

// Service implements the Conversation Memory operations over a shared
// sqlite store.
type Service struct {
	store   *store.Store
	tokens  *tokencount.Counter
	logger  *slog.Logger
}

// New constructs a Service.
func New(s *store.Store, tokens *tokencount.Counter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: s, tokens: tokens, logger: logger}
}
