// Package store implements the data-access layer: generic CRUD over named
// collections of JSON records, backed by a single embedded SQLite table.
//
// The logical data model is a document — a mapping from collection name to
// a mapping from record id to record. Keeping each record as one row in a
// transactional store (rather than rewriting the whole document on every
// write) means concurrent callers cannot silently overwrite each other's
// collections.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Collection names the logical groupings of records within the store.
type Collection string

const (
	Users         Collection = "users"
	Tasks         Collection = "tasks"
	Tags          Collection = "tags"
	Comments      Collection = "comments"
	TaskHistory   Collection = "task_history"
	Settings      Collection = "settings"
	Notifications Collection = "notifications"
)

// ErrNotFound is returned when a record id does not exist in a collection.
var ErrNotFound = errors.New("record not found")

// DB is the embedded store. All domain services share one instance,
// injected at construction.
type DB struct {
	db      *sqlx.DB
	log     *zap.Logger
	dataDir string
}

// Open creates (or opens) the store inside dataDir, enables WAL mode, runs
// any pending schema migrations, and seeds default records on first run.
func Open(dataDir string, log *zap.Logger) (*DB, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory %s: %w", dataDir, err)
	}

	dbPath := filepath.Join(dataDir, "taskdesk.db")
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &DB{db: db, log: log, dataDir: dataDir}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	if err := s.Seed(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("seeding defaults: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *DB) Close() error {
	return s.db.Close()
}

// DataDir returns the directory holding the database and its backups.
func (s *DB) DataDir() string {
	return s.dataDir
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *DB) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS records (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       TEXT NOT NULL,
	PRIMARY KEY (collection, id)
);

CREATE INDEX IF NOT EXISTS idx_records_collection ON records(collection);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
