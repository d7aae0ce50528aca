package service_test

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
	"github.com/taskdesk/taskdesk/tests/testutil"
)

func statsFixture(t *testing.T) (*service.StatsService, *service.TaskService, *store.DB, model.User) {
	t.Helper()
	db := testutil.NewTestStore(t)
	admin := seededAdmin(t, db)
	log := zap.NewNop()
	return service.NewStatsService(db, log), service.NewTaskService(db, log), db, admin
}

func TestDashboard(t *testing.T) {
	stats, tasks, _, admin := statsFixture(t)
	ctx := context.Background()

	_, err := tasks.Create(ctx, service.CreateTaskInput{Title: "open", UserID: admin.ID})
	require.NoError(t, err)
	done, err := tasks.Create(ctx, service.CreateTaskInput{Title: "done", UserID: admin.ID})
	require.NoError(t, err)
	_, err = tasks.Update(ctx, done.ID, service.UpdateTaskInput{
		Status: ptr(model.StatusCompleted),
	}, admin.ID)
	require.NoError(t, err)
	_, err = tasks.Create(ctx, service.CreateTaskInput{
		Title: "late", UserID: admin.ID, DueDate: ptr(time.Now().AddDate(0, 0, -3)),
	})
	require.NoError(t, err)
	_, err = tasks.Create(ctx, service.CreateTaskInput{
		Title: "soon", UserID: admin.ID, DueDate: ptr(time.Now().Add(48 * time.Hour)),
	})
	require.NoError(t, err)
	_, err = tasks.Create(ctx, service.CreateTaskInput{
		Title: "working", UserID: admin.ID, Status: model.StatusInProgress,
	})
	require.NoError(t, err)
	dropped, err := tasks.Create(ctx, service.CreateTaskInput{
		Title: "dropped", UserID: admin.ID, DueDate: ptr(time.Now().Add(72 * time.Hour)),
	})
	require.NoError(t, err)
	_, err = tasks.Update(ctx, dropped.ID, service.UpdateTaskInput{
		Status: ptr(model.StatusCanceled),
	}, admin.ID)
	require.NoError(t, err)

	d, err := stats.Dashboard(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 6, d.Total)
	assert.Equal(t, 1, d.Completed)
	assert.Equal(t, 5, d.Pending, "every task not yet completed counts as pending")
	assert.Equal(t, 1, d.Overdue)
	assert.Equal(t, 3, d.ByStatus[model.StatusPending])
	assert.Equal(t, 6, d.ByPriority[model.PriorityMedium])

	require.NotEmpty(t, d.RecentActivity)
	assert.Equal(t, admin.FullName, d.RecentActivity[0].UserName)
	assert.NotEqual(t, "Unknown task", d.RecentActivity[0].TaskTitle)

	require.Len(t, d.Upcoming, 2)
	assert.Equal(t, "soon", d.Upcoming[0].Title)
	assert.Equal(t, "dropped", d.Upcoming[1].Title,
		"only completed tasks are excluded from the upcoming list")
}

func TestDashboardScopedToUser(t *testing.T) {
	stats, tasks, db, admin := statsFixture(t)
	ctx := context.Background()

	users, err := service.NewUserService(db, zap.NewNop(), testSecurity())
	require.NoError(t, err)
	other, err := users.Create(ctx, service.CreateUserInput{
		Username: "grace", Password: "sup3rsecret", Email: "grace@example.com",
	})
	require.NoError(t, err)

	mine, err := tasks.Create(ctx, service.CreateTaskInput{Title: "mine", UserID: admin.ID})
	require.NoError(t, err)
	_, err = tasks.Create(ctx, service.CreateTaskInput{Title: "theirs", UserID: other.ID})
	require.NoError(t, err)

	// A comment by the other user on the admin's task.
	_, err = tasks.AddComment(ctx, mine.ID, other.ID, "looks good")
	require.NoError(t, err)

	d, err := stats.UserStats(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, d.Total)

	// Recent activity follows the actor, not task ownership: the scoped
	// view carries both things the other user did, including the comment
	// on a task they do not own.
	require.Len(t, d.RecentActivity, 2)
	for _, a := range d.RecentActivity {
		assert.Equal(t, other.ID, a.UserID)
	}
	assert.Equal(t, model.ActionComment, d.RecentActivity[0].Action)
	assert.Equal(t, "mine", d.RecentActivity[0].TaskTitle)

	_, err = stats.UserStats(ctx, "ghost")
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestForPeriod(t *testing.T) {
	stats, tasks, _, admin := statsFixture(t)
	ctx := context.Background()

	created, err := tasks.Create(ctx, service.CreateTaskInput{Title: "fresh", UserID: admin.ID})
	require.NoError(t, err)
	_, err = tasks.Update(ctx, created.ID, service.UpdateTaskInput{
		Status: ptr(model.StatusCompleted),
	}, admin.ID)
	require.NoError(t, err)
	_, err = tasks.Create(ctx, service.CreateTaskInput{Title: "still open", UserID: admin.ID})
	require.NoError(t, err)

	st, err := stats.ForPeriod(ctx, service.PeriodDay, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Created)
	assert.Equal(t, 1, st.Completed)
	assert.InDelta(t, 0.5, st.CompletionRate, 0.001)
	assert.False(t, st.Start.After(st.End), "the reported window is ordered")
	assert.Equal(t, 0, st.Start.Hour(), "day periods anchor at local midnight")

	_, err = stats.ForPeriod(ctx, "fortnight", nil)
	var verr *service.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestForPeriodScopedToUser(t *testing.T) {
	stats, tasks, db, admin := statsFixture(t)
	ctx := context.Background()

	users, err := service.NewUserService(db, zap.NewNop(), testSecurity())
	require.NoError(t, err)
	other, err := users.Create(ctx, service.CreateUserInput{
		Username: "heidi", Password: "sup3rsecret", Email: "heidi@example.com",
	})
	require.NoError(t, err)

	_, err = tasks.Create(ctx, service.CreateTaskInput{Title: "admin task", UserID: admin.ID})
	require.NoError(t, err)
	theirs, err := tasks.Create(ctx, service.CreateTaskInput{Title: "their task", UserID: other.ID})
	require.NoError(t, err)
	_, err = tasks.Update(ctx, theirs.ID, service.UpdateTaskInput{
		Status: ptr(model.StatusCompleted),
	}, other.ID)
	require.NoError(t, err)

	st, err := stats.ForPeriod(ctx, service.PeriodDay, &other.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Created)
	assert.Equal(t, 1, st.Completed)
	assert.InDelta(t, 1.0, st.CompletionRate, 0.001)
}

func TestSystemStats(t *testing.T) {
	stats, tasks, _, admin := statsFixture(t)
	ctx := context.Background()

	first, err := tasks.Create(ctx, service.CreateTaskInput{Title: "a", UserID: admin.ID})
	require.NoError(t, err)
	_, err = tasks.Create(ctx, service.CreateTaskInput{Title: "b", UserID: admin.ID})
	require.NoError(t, err)
	_, err = tasks.AddComment(ctx, first.ID, admin.ID, "note")
	require.NoError(t, err)

	st, err := stats.System(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Users)
	assert.Equal(t, 2, st.Tasks)
	assert.Equal(t, 5, st.Tags)
	assert.Equal(t, 1, st.Comments)
	assert.InDelta(t, 0.5, st.CommentsPerTask, 0.001)
	assert.InDelta(t, 2.0, st.TasksPerUser, 0.001)
	assert.Greater(t, st.ActivitiesPerDay, 0.0)
}

func TestSystemStatsEmptyStore(t *testing.T) {
	db := testutil.NewTestStore(t)
	stats := service.NewStatsService(db, zap.NewNop())

	st, err := stats.System(context.Background())
	require.NoError(t, err)
	assert.Zero(t, st.Tasks)
	assert.Zero(t, st.CompletionRate, "ratios stay zero instead of dividing by zero")
	assert.Zero(t, st.ActivitiesPerDay)
}
