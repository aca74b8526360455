package store

import (
	"crypto/sha256"
	"embed"
	"fmt"
	"sort"
	"strings"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const createMigrationsTableSQL = `
CREATE TABLE IF NOT EXISTS ultra_migrations (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL UNIQUE,
	applied_at TIMESTAMP NOT NULL,
	checksum   TEXT NOT NULL
);`

type migrationFile struct {
	Name     string
	Up       string
	Checksum string
}

// loadMigrations reads the embedded migration files and sorts them by name,
// the same shape as the reference ai package's postgres migration loader.
func loadMigrations() ([]migrationFile, error) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("ultra-mcp: read migrations dir: %w", err)
	}

	upFiles := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".up.sql") {
			continue
		}
		data, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("ultra-mcp: read migration %s: %w", entry.Name(), err)
		}
		key := strings.TrimSuffix(entry.Name(), ".up.sql")
		upFiles[key] = string(data)
	}

	migrations := make([]migrationFile, 0, len(upFiles))
	for key, up := range upFiles {
		migrations = append(migrations, migrationFile{
			Name:     key,
			Up:       up,
			Checksum: fmt.Sprintf("%x", sha256.Sum256([]byte(up))),
		})
	}

	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Name < migrations[j].Name })
	return migrations, nil
}

// migrate applies all pending migrations in order, each inside its own
// transaction, and verifies checksums on migrations already applied.
func (s *Store) migrate() error {
	if _, err := s.DB.Exec(createMigrationsTableSQL); err != nil {
		return fmt.Errorf("ultra-mcp: ensure migrations table: %w", err)
	}

	migrations, err := loadMigrations()
	if err != nil {
		return err
	}

	applied := make(map[string]string) // name -> checksum
	rows, err := s.DB.Query(`SELECT name, checksum FROM ultra_migrations`)
	if err != nil {
		return fmt.Errorf("ultra-mcp: read applied migrations: %w", err)
	}
	for rows.Next() {
		var name, checksum string
		if err := rows.Scan(&name, &checksum); err != nil {
			rows.Close()
			return fmt.Errorf("ultra-mcp: scan applied migration: %w", err)
		}
		applied[name] = checksum
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for _, m := range migrations {
		if checksum, ok := applied[m.Name]; ok {
			if checksum != m.Checksum {
				return fmt.Errorf("ultra-mcp: migration %s checksum mismatch (applied %s, on disk %s)", m.Name, checksum, m.Checksum)
			}
			continue
		}

		tx, err := s.DB.Begin()
		if err != nil {
			return fmt.Errorf("ultra-mcp: begin migration %s: %w", m.Name, err)
		}

		if _, err := tx.Exec(m.Up); err != nil {
			tx.Rollback()
			return fmt.Errorf("ultra-mcp: run migration %s: %w", m.Name, err)
		}

		if _, err := tx.Exec(`INSERT INTO ultra_migrations (name, applied_at, checksum) VALUES (?, ?, ?)`,
			m.Name, now(), m.Checksum); err != nil {
			tx.Rollback()
			return fmt.Errorf("ultra-mcp: record migration %s: %w", m.Name, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("ultra-mcp: commit migration %s: %w", m.Name, err)
		}
	}

	return nil
}
