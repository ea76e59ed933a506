package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/sift/internal/config"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 2

// Init initializes the SQLite database at baseDir/sift.db.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.sift.
func Init(baseDir string) (*sql.DB, error) {
	// Create base directory with restricted permissions
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	// Explicit chmod (best-effort, may not work on all platforms)
	_ = os.Chmod(baseDir, 0700)

	// Pragmas in the connection string apply to every pooled connection
	dbPath := filepath.Join(baseDir, "sift.db")
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	// Run migrations (this creates the file if it doesn't exist)
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	// Set file permissions after file exists (best-effort)
	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: inbox and record tables
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS inbox_items (
		  id         TEXT PRIMARY KEY,
		  raw_text   TEXT NOT NULL,
		  created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_inbox_items_arrival
		ON inbox_items(created_at, id);

		CREATE TABLE IF NOT EXISTS informations (
		  id         TEXT PRIMARY KEY,
		  content    TEXT NOT NULL UNIQUE,
		  created_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS ideas (
		  id         TEXT PRIMARY KEY,
		  content    TEXT NOT NULL,
		  created_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS plans (
		  id         TEXT PRIMARY KEY,
		  idea_id    TEXT NOT NULL UNIQUE REFERENCES ideas(id),
		  created_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS tasks (
		  id            TEXT PRIMARY KEY,
		  content       TEXT NOT NULL,
		  plan_id       TEXT REFERENCES plans(id) ON DELETE CASCADE,
		  plan_position INTEGER,
		  created_at    INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_tasks_plan
		ON tasks(plan_id, plan_position)
		WHERE plan_id IS NOT NULL;

		CREATE TABLE IF NOT EXISTS information_ideas (
		  information_id TEXT NOT NULL REFERENCES informations(id) ON DELETE CASCADE,
		  idea_id        TEXT NOT NULL REFERENCES ideas(id) ON DELETE CASCADE,
		  PRIMARY KEY (information_id, idea_id)
		);

		CREATE TABLE IF NOT EXISTS information_tasks (
		  information_id TEXT NOT NULL REFERENCES informations(id) ON DELETE CASCADE,
		  task_id        TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		  PRIMARY KEY (information_id, task_id)
		);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	// Migration 1 -> 2: provenance back to the consumed inbox item
	if version < 2 {
		schema := `
		ALTER TABLE informations ADD COLUMN source_item_id TEXT;
		ALTER TABLE ideas ADD COLUMN source_item_id TEXT;
		ALTER TABLE tasks ADD COLUMN source_item_id TEXT;
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 2 failed: %w", err)
		}
		if err := SetUserVersion(db, 2); err != nil {
			return err
		}
	}

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
