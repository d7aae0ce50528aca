package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdesk/taskdesk/internal/model"
	"github.com/taskdesk/taskdesk/internal/password"
	"github.com/taskdesk/taskdesk/internal/store"
	"github.com/taskdesk/taskdesk/tests/testutil"
)

// note is a minimal record shape for exercising the generic CRUD layer.
type note struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

const notes = store.Collection("notes")

func TestInsertAssignsID(t *testing.T) {
	db := testutil.NewTestStore(t)
	ctx := context.Background()

	created, err := store.Insert(ctx, db, notes, note{Title: "first"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "first", created.Title)

	got, err := store.GetByID[note](ctx, db, notes, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestInsertWithExistingIDReplaces(t *testing.T) {
	db := testutil.NewTestStore(t)
	ctx := context.Background()

	created, err := store.Insert(ctx, db, notes, note{Title: "v1"})
	require.NoError(t, err)

	_, err = store.Insert(ctx, db, notes, note{ID: created.ID, Title: "v2"})
	require.NoError(t, err)

	got, err := store.GetByID[note](ctx, db, notes, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Title)

	all, err := store.GetAll[note](ctx, db, notes)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestGetByIDNotFound(t *testing.T) {
	db := testutil.NewTestStore(t)

	_, err := store.GetByID[note](context.Background(), db, notes, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateMergesFields(t *testing.T) {
	db := testutil.NewTestStore(t)
	ctx := context.Background()

	created, err := store.Insert(ctx, db, notes, note{Title: "title", Body: "body"})
	require.NoError(t, err)

	updated, err := store.Update[note](ctx, db, notes, created.ID, map[string]any{
		"body": "changed",
	})
	require.NoError(t, err)
	assert.Equal(t, "title", updated.Title, "untouched field must survive a partial update")
	assert.Equal(t, "changed", updated.Body)

	_, err = store.Update[note](ctx, db, notes, "missing", map[string]any{"body": "x"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteReportsPresence(t *testing.T) {
	db := testutil.NewTestStore(t)
	ctx := context.Background()

	created, err := store.Insert(ctx, db, notes, note{Title: "doomed"})
	require.NoError(t, err)

	deleted, err := db.Delete(ctx, notes, created.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = db.Delete(ctx, notes, created.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestFind(t *testing.T) {
	db := testutil.NewTestStore(t)
	ctx := context.Background()

	for _, title := range []string{"alpha", "beta", "gamma"} {
		_, err := store.Insert(ctx, db, notes, note{Title: title})
		require.NoError(t, err)
	}

	matched, err := store.Find(ctx, db, notes, func(n note) bool {
		return n.Title != "beta"
	})
	require.NoError(t, err)
	assert.Len(t, matched, 2)
}

func TestSeedCreatesAdminAndDefaultTags(t *testing.T) {
	db := testutil.NewTestStore(t)
	ctx := context.Background()

	users, err := store.GetAll[model.User](ctx, db, store.Users)
	require.NoError(t, err)
	require.Len(t, users, 1)

	admin := users[0]
	assert.Equal(t, store.DefaultAdminUsername, admin.Username)
	assert.Equal(t, model.RoleAdmin, admin.Role)
	assert.True(t, admin.Active)
	assert.True(t, password.Verify(admin.Password, store.DefaultAdminPassword),
		"seeded admin password must be stored as a verifiable hash")

	tags, err := store.GetAll[model.Tag](ctx, db, store.Tags)
	require.NoError(t, err)
	assert.Len(t, tags, 5)
}

func TestClearAllReseeds(t *testing.T) {
	db := testutil.NewTestStore(t)
	ctx := context.Background()

	_, err := store.Insert(ctx, db, store.Tasks, model.Task{Title: "stray", UserID: "u1"})
	require.NoError(t, err)

	require.NoError(t, db.ClearAll(ctx))

	tasks, err := store.GetAll[model.Task](ctx, db, store.Tasks)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	users, err := store.GetAll[model.User](ctx, db, store.Users)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	tags, err := store.GetAll[model.Tag](ctx, db, store.Tags)
	require.NoError(t, err)
	assert.Len(t, tags, 5)
}
