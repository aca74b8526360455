// Package store owns the single sqlite database backing the Request
// Tracker and Conversation Memory components (spec.md §3.1). It is an
// embedded relational store: one file, schema-migrated on startup, exactly
// one *sql.DB for the process lifetime (spec.md §5 "Database: exactly-one
// connection with per-operation transactions is sufficient").
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps the shared database handle.
type Store struct {
	DB *sql.DB
}

// Open opens (creating if needed) the sqlite database at path and applies
// all pending migrations before returning.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("ultra-mcp: create db dir: %w", err)
		}
	}

	dsn := path + "?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("ultra-mcp: open db: %w", err)
	}

	// A single underlying sqlite connection avoids SQLITE_BUSY under the
	// modernc.org/sqlite driver, which does not multiplex writers across
	// connections as gracefully as the database/sql pool assumes.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{DB: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.DB.Close()
}

// DefaultPath returns the platform-standard location for ultra-mcp.db,
// honoring os.UserConfigDir() (spec.md §6 persistent state layout).
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("ultra-mcp: resolve config dir: %w", err)
	}
	return filepath.Join(dir, "ultra-mcp", "ultra-mcp.db"), nil
}

// now is overridable in tests that need deterministic timestamps; production
// code always calls time.Now().UTC().
var now = func() time.Time { return time.Now().UTC() }
