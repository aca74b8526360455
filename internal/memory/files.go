package memory

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"time"

	"github.com/google/uuid"

	"github.com/blackjuly/ultra-mcp/internal/errs"
)

// AddFiles hashes each input's content, then in one transaction looks up
// existing (sessionId, hash) rows in bulk, inserts the new ones, and bumps
// accessCount/lastAccessedAt on duplicates, per spec.md §4.4.
func (s *Service) AddFiles(ctx context.Context, sessionID string, inputs []FileInput) ([]File, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	tx, err := s.store.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, &errs.DatabaseError{Op: "memory.AddFiles", Cause: err}
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	results := make([]File, 0, len(inputs))

	for _, in := range inputs {
		hash := contentHash(in.Content)

		var existing File
		var existingID string
		err := tx.QueryRowContext(ctx, `
			SELECT id FROM ultra_files WHERE session_id = ? AND content_hash = ?
		`, sessionID, hash).Scan(&existingID)

		switch {
		case err == nil:
			_, err = tx.ExecContext(ctx, `
				UPDATE ultra_files
				SET access_count = access_count + 1, last_accessed_at = ?, is_relevant = 1
				WHERE id = ?
			`, now, existingID)
			if err != nil {
				return nil, &errs.DatabaseError{Op: "memory.AddFiles", Cause: err}
			}

			row := tx.QueryRowContext(ctx, `
				SELECT id, session_id, file_path, file_content, content_hash,
				       added_at, last_accessed_at, access_count, is_relevant
				FROM ultra_files WHERE id = ?
			`, existingID)
			if err := scanFile(row, &existing); err != nil {
				return nil, &errs.DatabaseError{Op: "memory.AddFiles", Cause: err}
			}
			results = append(results, existing)

		case err == sql.ErrNoRows:
			f := File{
				ID:             uuid.New().String(),
				SessionID:      sessionID,
				FilePath:       in.Path,
				FileContent:    in.Content,
				ContentHash:    hash,
				AddedAt:        now,
				LastAccessedAt: now,
				AccessCount:    1,
				IsRelevant:     true,
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO ultra_files (
					id, session_id, file_path, file_content, content_hash,
					added_at, last_accessed_at, access_count, is_relevant
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, f.ID, f.SessionID, f.FilePath, f.FileContent, f.ContentHash,
				f.AddedAt, f.LastAccessedAt, f.AccessCount, boolToInt(f.IsRelevant))
			if err != nil {
				return nil, &errs.DatabaseError{Op: "memory.AddFiles", Cause: err}
			}
			results = append(results, f)

		default:
			return nil, &errs.DatabaseError{Op: "memory.AddFiles", Cause: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, &errs.DatabaseError{Op: "memory.AddFiles", Cause: err}
	}

	return results, nil
}

// listRelevantFiles returns a session's relevant files ordered by most
// recently accessed first, the order getConversationContext and pruning
// rely on.
func (s *Service) listRelevantFiles(ctx context.Context, sessionID string) ([]File, error) {
	rows, err := s.store.DB.QueryContext(ctx, `
		SELECT id, session_id, file_path, file_content, content_hash,
		       added_at, last_accessed_at, access_count, is_relevant
		FROM ultra_files
		WHERE session_id = ? AND is_relevant = 1
		ORDER BY last_accessed_at DESC
	`, sessionID)
	if err != nil {
		return nil, &errs.DatabaseError{Op: "memory.listRelevantFiles", Cause: err}
	}
	defer rows.Close()

	var files []File
	for rows.Next() {
		var f File
		if err := scanFile(rows, &f); err != nil {
			return nil, &errs.DatabaseError{Op: "memory.listRelevantFiles", Cause: err}
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, &errs.DatabaseError{Op: "memory.listRelevantFiles", Cause: err}
	}
	return files, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFile(row scanner, f *File) error {
	var isRelevant int
	if err := row.Scan(&f.ID, &f.SessionID, &f.FilePath, &f.FileContent, &f.ContentHash,
		&f.AddedAt, &f.LastAccessedAt, &f.AccessCount, &isRelevant); err != nil {
		return err
	}
	f.IsRelevant = isRelevant != 0
	return nil
}

func contentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
