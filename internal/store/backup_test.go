package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdesk/taskdesk/internal/model"
	"github.com/taskdesk/taskdesk/internal/store"
	"github.com/taskdesk/taskdesk/tests/testutil"
)

func TestBackupRestoreRoundTrip(t *testing.T) {
	db := testutil.NewTestStore(t)
	ctx := context.Background()

	task, err := store.Insert(ctx, db, store.Tasks, model.Task{Title: "keep me", UserID: "u1"})
	require.NoError(t, err)

	path, err := db.Backup(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, db.DataDir(), filepath.Dir(path))

	deleted, err := db.Delete(ctx, store.Tasks, task.ID)
	require.NoError(t, err)
	require.True(t, deleted)

	require.NoError(t, db.Restore(ctx, path))

	restored, err := store.GetByID[model.Task](ctx, db, store.Tasks, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task, restored)

	users, err := store.GetAll[model.User](ctx, db, store.Users)
	require.NoError(t, err)
	assert.Len(t, users, 1, "seed records must survive the round trip")
}

func TestBackupExplicitPath(t *testing.T) {
	db := testutil.NewTestStore(t)

	want := filepath.Join(t.TempDir(), "snapshot.json")
	got, err := db.Backup(context.Background(), want)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestBackupNamesAreUnique(t *testing.T) {
	db := testutil.NewTestStore(t)
	ctx := context.Background()

	first, err := db.Backup(ctx, "")
	require.NoError(t, err)
	second, err := db.Backup(ctx, "")
	require.NoError(t, err)
	assert.NotEqual(t, first, second,
		"back-to-back backups must not overwrite each other")

	backups, err := db.ListBackups()
	require.NoError(t, err)
	assert.Len(t, backups, 2)
}

func TestPruneBackups(t *testing.T) {
	db := testutil.NewTestStore(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := db.Backup(ctx, "")
		require.NoError(t, err)
	}
	backups, err := db.ListBackups()
	require.NoError(t, err)
	require.Len(t, backups, 4)

	removed, err := db.PruneBackups(1)
	require.NoError(t, err)
	assert.Equal(t, len(backups)-1, removed)

	remaining, err := db.ListBackups()
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
	assert.Equal(t, backups[len(backups)-1], remaining[0], "pruning must keep the newest backup")
}
