package store

import (
	"path/filepath"
	"testing"
)

func TestOpenAppliesMigrationsAndIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ultra-mcp.db")

	s1, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Reopening must not re-apply migrations or fail checksum verification.
	s2, err := Open(dbPath)
	if err != nil {
		t.Fatalf("reopen Open: %v", err)
	}
	defer s2.Close()

	var count int
	if err := s2.DB.QueryRow(`SELECT COUNT(*) FROM ultra_migrations`).Scan(&count); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly 1 applied migration, got %d", count)
	}

	tables := []string{"ultra_request_logs", "ultra_sessions", "ultra_messages", "ultra_files", "ultra_budgets"}
	for _, table := range tables {
		var name string
		err := s2.DB.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		if err != nil {
			t.Fatalf("table %s missing: %v", table, err)
		}
	}
}
