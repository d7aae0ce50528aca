package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taskdesk/taskdesk/internal/model"
	"github.com/taskdesk/taskdesk/internal/service"
	"github.com/taskdesk/taskdesk/internal/store"
	"github.com/taskdesk/taskdesk/internal/worker"
	"github.com/taskdesk/taskdesk/tests/testutil"
)

func TestReminderNotifiesDueTasksOnce(t *testing.T) {
	db := testutil.NewTestStore(t)
	ctx := context.Background()

	users, err := store.GetAll[model.User](ctx, db, store.Users)
	require.NoError(t, err)
	admin := users[0]

	log := zap.NewNop()
	tasks := service.NewTaskService(db, log)

	due := time.Now().Add(10 * time.Minute)
	dueTask, err := tasks.Create(ctx, service.CreateTaskInput{
		Title: "almost due", UserID: admin.ID, DueDate: &due,
	})
	require.NoError(t, err)

	far := time.Now().Add(48 * time.Hour)
	_, err = tasks.Create(ctx, service.CreateTaskInput{
		Title: "not yet", UserID: admin.ID, DueDate: &far,
	})
	require.NoError(t, err)

	finishedDue := time.Now().Add(-time.Hour)
	finished, err := tasks.Create(ctx, service.CreateTaskInput{
		Title: "already done", UserID: admin.ID, DueDate: &finishedDue,
	})
	require.NoError(t, err)
	_, err = tasks.Update(ctx, finished.ID, service.UpdateTaskInput{
		Status: statusPtr(model.StatusCompleted),
	}, admin.ID)
	require.NoError(t, err)

	reminder := worker.NewReminder(db, tasks, log, model.NotificationConfig{
		Enabled:             true,
		ReminderLeadMinutes: 30,
		PollIntervalSec:     1,
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go reminder.Start(runCtx)

	require.Eventually(t, func() bool {
		unread, err := tasks.UnreadNotifications(ctx)
		return err == nil && len(unread) == 1
	}, 5*time.Second, 50*time.Millisecond)

	unread, err := tasks.UnreadNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, dueTask.ID, unread[0].TaskID)

	// A later scan must not duplicate the reminder.
	time.Sleep(1500 * time.Millisecond)
	unread, err = tasks.UnreadNotifications(ctx)
	require.NoError(t, err)
	assert.Len(t, unread, 1)
}

func statusPtr(s string) *string { return &s }
