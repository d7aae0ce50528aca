// Package testutil provides shared helpers for package tests.
package testutil

import (
	"testing"

	"go.uber.org/zap"

	"github.com/taskdesk/taskdesk/internal/store"
)

// NewTestStore creates a store in a per-test temporary directory with all
// migrations applied and seed data inserted. It automatically closes the
// store when the test completes.
func NewTestStore(t *testing.T) *store.DB {
	t.Helper()

	db, err := store.Open(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return db
}
