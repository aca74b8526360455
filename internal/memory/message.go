package memory

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/blackjuly/ultra-mcp/internal/errs"
)

// AddMessage computes the next messageIndex and inserts the message, and
// bumps the session's lastMessageAt, all inside one transaction — the
// atomicity spec.md §4.4 and §5 require so concurrent callers never collide
// on messageIndex. The (sessionId, messageIndex) unique index is the second
// line of defense, not the mechanism that makes this safe.
func (s *Service) AddMessage(ctx context.Context, sessionID, role, content, toolName, parentMessageID, metadata string) (*Message, error) {
	tx, err := s.store.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, &errs.DatabaseError{Op: "memory.AddMessage", Cause: err}
	}
	defer tx.Rollback()

	var nextIndex int
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(message_index), -1) + 1 FROM ultra_messages WHERE session_id = ?
	`, sessionID).Scan(&nextIndex)
	if err != nil {
		return nil, &errs.DatabaseError{Op: "memory.AddMessage", Cause: err}
	}

	now := time.Now().UTC()
	msg := &Message{
		ID:              uuid.New().String(),
		SessionID:       sessionID,
		MessageIndex:    nextIndex,
		Role:            role,
		Content:         content,
		ToolName:        toolName,
		ParentMessageID: parentMessageID,
		Timestamp:       now,
		Metadata:        metadata,
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ultra_messages (
			id, session_id, message_index, role, content, tool_name,
			parent_message_id, timestamp, metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.SessionID, msg.MessageIndex, msg.Role, msg.Content,
		nullIfEmpty(msg.ToolName), nullIfEmpty(msg.ParentMessageID), msg.Timestamp, nullIfEmpty(msg.Metadata))
	if err != nil {
		return nil, &errs.DatabaseError{Op: "memory.AddMessage", Cause: err}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE ultra_sessions SET last_message_at = ?, updated_at = ? WHERE id = ?
	`, now, now, sessionID)
	if err != nil {
		return nil, &errs.DatabaseError{Op: "memory.AddMessage", Cause: err}
	}

	if err := tx.Commit(); err != nil {
		return nil, &errs.DatabaseError{Op: "memory.AddMessage", Cause: err}
	}

	return msg, nil
}

// listMessages returns every message for a session ordered by message_index.
func (s *Service) listMessages(ctx context.Context, sessionID string) ([]Message, error) {
	rows, err := s.store.DB.QueryContext(ctx, `
		SELECT id, session_id, message_index, role, content, tool_name,
		       parent_message_id, timestamp, metadata
		FROM ultra_messages WHERE session_id = ? ORDER BY message_index ASC
	`, sessionID)
	if err != nil {
		return nil, &errs.DatabaseError{Op: "memory.listMessages", Cause: err}
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		var toolName, parentID, metadata sql.NullString
		if err := rows.Scan(&m.ID, &m.SessionID, &m.MessageIndex, &m.Role, &m.Content,
			&toolName, &parentID, &m.Timestamp, &metadata); err != nil {
			return nil, &errs.DatabaseError{Op: "memory.listMessages", Cause: err}
		}
		m.ToolName = toolName.String
		m.ParentMessageID = parentID.String
		m.Metadata = metadata.String
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, &errs.DatabaseError{Op: "memory.listMessages", Cause: err}
	}
	return messages, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
