package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// The CRUD operations are package-level functions rather than methods so
// they can be generic over the record type. Records marshal to JSON
// objects with an "id" field; everything else about their shape is opaque
// to this layer.

// GetAll retrieves every record in a collection. Order is unspecified.
func GetAll[T any](ctx context.Context, s *DB, col Collection) ([]T, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT data FROM records WHERE collection = ?", string(col))
	if err != nil {
		s.log.Error("reading collection", zap.String("collection", string(col)), zap.Error(err))
		return nil, fmt.Errorf("querying %s: %w", col, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", col, err)
		}
		var rec T
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decoding %s record: %w", col, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetByID retrieves a single record by id. Returns ErrNotFound if the id
// is absent from the collection.
func GetByID[T any](ctx context.Context, s *DB, col Collection, id string) (T, error) {
	var zero T
	var data []byte
	err := s.db.GetContext(ctx, &data,
		"SELECT data FROM records WHERE collection = ? AND id = ?", string(col), id)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, ErrNotFound
	}
	if err != nil {
		s.log.Error("reading record",
			zap.String("collection", string(col)), zap.String("id", id), zap.Error(err))
		return zero, fmt.Errorf("getting %s %s: %w", col, id, err)
	}

	var rec T
	if err := json.Unmarshal(data, &rec); err != nil {
		return zero, fmt.Errorf("decoding %s %s: %w", col, id, err)
	}
	return rec, nil
}

// Find retrieves the records in a collection matching the predicate.
func Find[T any](ctx context.Context, s *DB, col Collection, pred func(T) bool) ([]T, error) {
	all, err := GetAll[T](ctx, s, col)
	if err != nil {
		return nil, err
	}
	var out []T
	for _, rec := range all {
		if pred(rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Insert stores a record, generating a UUID when its id field is empty,
// and returns the record as stored. Inserting with an existing id
// replaces that record.
func Insert[T any](ctx context.Context, s *DB, col Collection, rec T) (T, error) {
	var zero T
	raw, err := json.Marshal(rec)
	if err != nil {
		return zero, fmt.Errorf("encoding %s record: %w", col, err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return zero, fmt.Errorf("decoding %s record fields: %w", col, err)
	}

	var id string
	if rawID, ok := fields["id"]; ok {
		if err := json.Unmarshal(rawID, &id); err != nil {
			return zero, fmt.Errorf("decoding %s record id: %w", col, err)
		}
	}
	if id == "" {
		id = uuid.New().String()
		idRaw, _ := json.Marshal(id)
		fields["id"] = idRaw
	}

	data, err := json.Marshal(fields)
	if err != nil {
		return zero, fmt.Errorf("encoding %s record: %w", col, err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO records (collection, id, data) VALUES (?, ?, ?)",
		string(col), id, string(data))
	if err != nil {
		s.log.Error("inserting record",
			zap.String("collection", string(col)), zap.String("id", id), zap.Error(err))
		return zero, fmt.Errorf("inserting into %s: %w", col, err)
	}

	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, fmt.Errorf("decoding stored %s record: %w", col, err)
	}
	return out, nil
}

// Update merges the provided fields into an existing record and returns
// the merged result. Keys absent from partial are left untouched.
// Returns ErrNotFound if the id is absent.
func Update[T any](ctx context.Context, s *DB, col Collection, id string, partial map[string]any) (T, error) {
	var zero T

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return zero, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var data []byte
	err = tx.GetContext(ctx, &data,
		"SELECT data FROM records WHERE collection = ? AND id = ?", string(col), id)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, ErrNotFound
	}
	if err != nil {
		s.log.Error("reading record for update",
			zap.String("collection", string(col)), zap.String("id", id), zap.Error(err))
		return zero, fmt.Errorf("getting %s %s: %w", col, id, err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return zero, fmt.Errorf("decoding %s %s: %w", col, id, err)
	}
	for k, v := range partial {
		raw, err := json.Marshal(v)
		if err != nil {
			return zero, fmt.Errorf("encoding field %s: %w", k, err)
		}
		fields[k] = raw
	}

	merged, err := json.Marshal(fields)
	if err != nil {
		return zero, fmt.Errorf("encoding merged %s record: %w", col, err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE records SET data = ? WHERE collection = ? AND id = ?",
		string(merged), string(col), id); err != nil {
		s.log.Error("updating record",
			zap.String("collection", string(col)), zap.String("id", id), zap.Error(err))
		return zero, fmt.Errorf("updating %s %s: %w", col, id, err)
	}
	if err := tx.Commit(); err != nil {
		return zero, fmt.Errorf("committing update of %s %s: %w", col, id, err)
	}

	var out T
	if err := json.Unmarshal(merged, &out); err != nil {
		return zero, fmt.Errorf("decoding merged %s record: %w", col, err)
	}
	return out, nil
}

// Delete removes a record by id. Reports false when the id was absent.
func (s *DB) Delete(ctx context.Context, col Collection, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM records WHERE collection = ? AND id = ?", string(col), id)
	if err != nil {
		s.log.Error("deleting record",
			zap.String("collection", string(col)), zap.String("id", id), zap.Error(err))
		return false, fmt.Errorf("deleting %s %s: %w", col, id, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Clear removes every record in a collection.
func (s *DB) Clear(ctx context.Context, col Collection) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM records WHERE collection = ?", string(col)); err != nil {
		s.log.Error("clearing collection", zap.String("collection", string(col)), zap.Error(err))
		return fmt.Errorf("clearing %s: %w", col, err)
	}
	s.log.Info("collection cleared", zap.String("collection", string(col)))
	return nil
}

// ClearAll removes every record in every collection, then re-seeds the
// defaults.
func (s *DB) ClearAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM records"); err != nil {
		s.log.Error("clearing store", zap.Error(err))
		return fmt.Errorf("clearing store: %w", err)
	}
	s.log.Info("store cleared")
	return s.Seed(ctx)
}
