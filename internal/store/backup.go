package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"
)

// document is the on-disk backup shape: collection name to record id to
// record body.
type document map[Collection]map[string]json.RawMessage

// Backup writes the entire store as an indented JSON document and returns
// the path written. An empty path defaults to a timestamped file in the
// data directory.
func (s *DB) Backup(ctx context.Context, path string) (string, error) {
	if path == "" {
		// Nanosecond precision keeps back-to-back backups from landing
		// on the same filename; lexical order stays chronological.
		ts := time.Now().Format("2006-01-02T15-04-05.000000000")
		path = filepath.Join(s.dataDir, fmt.Sprintf("backup-%s.json", ts))
	}

	rows, err := s.db.QueryContext(ctx, "SELECT collection, id, data FROM records")
	if err != nil {
		s.log.Error("reading store for backup", zap.Error(err))
		return "", fmt.Errorf("querying records for backup: %w", err)
	}
	defer rows.Close()

	doc := document{}
	for rows.Next() {
		var col, id string
		var data []byte
		if err := rows.Scan(&col, &id, &data); err != nil {
			return "", fmt.Errorf("scanning record for backup: %w", err)
		}
		c := Collection(col)
		if doc[c] == nil {
			doc[c] = map[string]json.RawMessage{}
		}
		doc[c][id] = json.RawMessage(data)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("reading records for backup: %w", err)
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding backup document: %w", err)
	}
	if err := os.WriteFile(path, out, 0o600); err != nil {
		s.log.Error("writing backup file", zap.String("path", path), zap.Error(err))
		return "", fmt.Errorf("writing backup to %s: %w", path, err)
	}

	s.log.Info("backup written", zap.String("path", path))
	return path, nil
}

// Restore replaces the entire contents of the store with the document at
// path. No re-seeding happens; the store ends up exactly as backed up.
func (s *DB) Restore(ctx context.Context, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading backup %s: %w", path, err)
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decoding backup %s: %w", path, err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM records"); err != nil {
		return fmt.Errorf("clearing store for restore: %w", err)
	}
	for col, records := range doc {
		for id, data := range records {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO records (collection, id, data) VALUES (?, ?, ?)",
				string(col), id, string(data)); err != nil {
				return fmt.Errorf("restoring %s %s: %w", col, id, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing restore: %w", err)
	}

	s.log.Info("store restored", zap.String("path", path))
	return nil
}

// ListBackups returns the backup files in the data directory, oldest
// first. The timestamped naming makes lexical order chronological.
func (s *DB) ListBackups() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.dataDir, "backup-*.json"))
	if err != nil {
		return nil, fmt.Errorf("listing backups: %w", err)
	}
	sort.Strings(matches)
	return matches, nil
}

// PruneBackups deletes the oldest backups so that at most max remain.
// Returns the number of files removed.
func (s *DB) PruneBackups(max int) (int, error) {
	if max < 1 {
		return 0, nil
	}
	backups, err := s.ListBackups()
	if err != nil {
		return 0, err
	}
	removed := 0
	for len(backups)-removed > max {
		path := backups[removed]
		if err := os.Remove(path); err != nil {
			return removed, fmt.Errorf("removing old backup %s: %w", path, err)
		}
		s.log.Info("pruned old backup", zap.String("path", path))
		removed++
	}
	return removed, nil
}
