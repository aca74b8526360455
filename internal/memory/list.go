package memory

import (
	"context"
	"database/sql"

	"github.com/blackjuly/ultra-mcp/internal/errs"
)

// ListSessions returns a paginated page of session summaries, most recent
// activity first.
func (s *Service) ListSessions(ctx context.Context, status string, limit, offset int) (*SessionPage, error) {
	args := []any{}
	where := ""
	if status != "" {
		where = "WHERE s.status = ?"
		args = append(args, status)
	}

	var totalCount int
	countQuery := "SELECT COUNT(*) FROM ultra_sessions s " + where
	if err := s.store.DB.QueryRowContext(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, &errs.DatabaseError{Op: "memory.ListSessions", Cause: err}
	}

	query := `
		SELECT s.id, s.name, s.status, s.created_at, s.updated_at, s.last_message_at, s.metadata,
		       COUNT(DISTINCT m.id) AS message_count,
		       COUNT(DISTINCT f.id) AS file_count,
		       COALESCE(SUM(DISTINCT b.used_tokens), 0) AS total_tokens,
		       COALESCE(SUM(DISTINCT b.used_cost_usd), 0) AS total_cost_usd
		FROM ultra_sessions s
		LEFT JOIN ultra_messages m ON m.session_id = s.id
		LEFT JOIN ultra_files f ON f.session_id = s.id AND f.is_relevant = 1
		LEFT JOIN ultra_budgets b ON b.session_id = s.id
		` + where + `
		GROUP BY s.id
		ORDER BY COALESCE(s.last_message_at, s.created_at) DESC
		LIMIT ? OFFSET ?
	`
	queryArgs := append(append([]any{}, args...), limit, offset)

	rows, err := s.store.DB.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, &errs.DatabaseError{Op: "memory.ListSessions", Cause: err}
	}
	defer rows.Close()

	var summaries []SessionSummary
	for rows.Next() {
		var sess Session
		var name, metadata sql.NullString
		var lastMessageAt sql.NullTime
		var summary SessionSummary

		if err := rows.Scan(&sess.ID, &name, &sess.Status, &sess.CreatedAt, &sess.UpdatedAt,
			&lastMessageAt, &metadata, &summary.MessageCount, &summary.FileCount,
			&summary.TotalTokens, &summary.TotalCostUSD); err != nil {
			return nil, &errs.DatabaseError{Op: "memory.ListSessions", Cause: err}
		}

		sess.Name = name.String
		sess.Metadata = metadata.String
		if lastMessageAt.Valid {
			sess.LastMessageAt = &lastMessageAt.Time
			summary.LastActivity = &lastMessageAt.Time
		}
		summary.Session = sess
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, &errs.DatabaseError{Op: "memory.ListSessions", Cause: err}
	}

	return &SessionPage{
		Sessions:   summaries,
		TotalCount: totalCount,
		HasMore:    offset+len(summaries) < totalCount,
	}, nil
}
