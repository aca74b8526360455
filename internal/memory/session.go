package memory

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/blackjuly/ultra-mcp/internal/errs"
)

// GetOrCreateSession returns the session identified by id, creating it with
// fresh timestamps when it is not found (under the given id) or when id is
// empty (under a fresh id).
func (s *Service) GetOrCreateSession(ctx context.Context, id, name string) (*Session, error) {
	if id != "" {
		sess, err := s.getSession(ctx, id)
		if err == nil {
			return sess, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, &errs.DatabaseError{Op: "memory.GetOrCreateSession", Cause: err}
		}
	}

	now := time.Now().UTC()
	sess := &Session{
		ID:        uuid.New().String(),
		Name:      name,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if id != "" {
		sess.ID = id
	}

	_, err := s.store.DB.ExecContext(ctx, `
		INSERT INTO ultra_sessions (id, name, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, sess.ID, sess.Name, sess.Status, sess.CreatedAt, sess.UpdatedAt)
	if err != nil {
		return nil, &errs.DatabaseError{Op: "memory.GetOrCreateSession", Cause: err}
	}

	return sess, nil
}

func (s *Service) getSession(ctx context.Context, id string) (*Session, error) {
	row := s.store.DB.QueryRowContext(ctx, `
		SELECT id, name, status, created_at, updated_at, last_message_at, metadata
		FROM ultra_sessions WHERE id = ?
	`, id)

	var sess Session
	var name, metadata sql.NullString
	var lastMessageAt sql.NullTime

	err := row.Scan(&sess.ID, &name, &sess.Status, &sess.CreatedAt, &sess.UpdatedAt, &lastMessageAt, &metadata)
	if err != nil {
		return nil, err
	}

	sess.Name = name.String
	sess.Metadata = metadata.String
	if lastMessageAt.Valid {
		sess.LastMessageAt = &lastMessageAt.Time
	}
	return &sess, nil
}

// UpdateSessionStatus transitions a session between active/archived/deleted.
func (s *Service) UpdateSessionStatus(ctx context.Context, id, status string) error {
	now := time.Now().UTC()
	res, err := s.store.DB.ExecContext(ctx, `
		UPDATE ultra_sessions SET status = ?, updated_at = ? WHERE id = ?
	`, status, now, id)
	if err != nil {
		return &errs.DatabaseError{Op: "memory.UpdateSessionStatus", Cause: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &errs.DatabaseError{Op: "memory.UpdateSessionStatus", Cause: err}
	}
	if n == 0 {
		return errs.ErrNotFound
	}
	return nil
}
