package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/taskdesk/taskdesk/internal/model"
	"github.com/taskdesk/taskdesk/internal/store"
)

// Due-date bucket names accepted by TaskFilter.
const (
	DueToday    = "today"
	DueWeek     = "week"
	DueOverdue  = "overdue"
	DueUpcoming = "upcoming"
	DueNone     = "no-date"
)

// TaskFilter controls filtering and sorting for task listings.
type TaskFilter struct {
	UserID   *string
	Status   *string
	Priority *string
	Due      *string // one of the Due* bucket constants
	Search   *string // substring over title + description
	SortBy   string  // "title", "due_date", "priority", "status", "created_at", "updated_at"
	SortDesc bool
}

// TaskService manages tasks, their comments, their audit history, and
// reminder notifications.
type TaskService struct {
	db  *store.DB
	log *zap.Logger
}

// NewTaskService creates the service.
func NewTaskService(db *store.DB, log *zap.Logger) *TaskService {
	return &TaskService{db: db, log: log}
}

// CreateTaskInput holds the fields for a new task.
type CreateTaskInput struct {
	Title       string
	Description string
	Status      string
	Priority    string
	DueDate     *time.Time
	UserID      string
	TagIDs      []string
}

// UpdateTaskInput holds a partial task update; nil fields are left
// unchanged. ClearDueDate removes an existing due date.
type UpdateTaskInput struct {
	Title        *string
	Description  *string
	Status       *string
	Priority     *string
	DueDate      *time.Time
	ClearDueDate bool
	TagIDs       *[]string
}

// List returns tasks matching the filter. Without an explicit sort the
// result is ordered by update time, newest first.
func (s *TaskService) List(ctx context.Context, filter TaskFilter) ([]model.Task, error) {
	tasks, err := store.GetAll[model.Task](ctx, s.db, store.Tasks)
	if err != nil {
		return nil, err
	}

	filtered := tasks[:0]
	now := time.Now()
	for _, t := range tasks {
		if matchesFilter(t, filter, now) {
			filtered = append(filtered, t)
		}
	}
	tasks = filtered

	sortTasks(tasks, filter.SortBy, filter.SortDesc)
	return tasks, nil
}

// Get returns a single task by id.
func (s *TaskService) Get(ctx context.Context, id string) (model.Task, error) {
	task, err := store.GetByID[model.Task](ctx, s.db, store.Tasks, id)
	if errors.Is(err, store.ErrNotFound) {
		return model.Task{}, notFoundErr("task", id)
	}
	return task, err
}

// Create stores a new task and writes a "create" audit entry. Status
// defaults to pending, priority to medium, and the tag set to empty.
func (s *TaskService) Create(ctx context.Context, in CreateTaskInput) (model.Task, error) {
	if strings.TrimSpace(in.Title) == "" {
		return model.Task{}, validationErr("title", "must not be empty")
	}
	status := in.Status
	if status == "" {
		status = model.StatusPending
	}
	if !model.ValidStatus(status) {
		return model.Task{}, validationErr("status", fmt.Sprintf("unknown status %q", status))
	}
	priority := in.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	if !model.ValidPriority(priority) {
		return model.Task{}, validationErr("priority", fmt.Sprintf("unknown priority %q", priority))
	}
	if _, err := store.GetByID[model.User](ctx, s.db, store.Users, in.UserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.Task{}, validationErr("user_id", fmt.Sprintf("unknown user %q", in.UserID))
		}
		return model.Task{}, err
	}
	tagIDs := in.TagIDs
	if tagIDs == nil {
		tagIDs = []string{}
	}

	now := time.Now()
	task := model.Task{
		Title:       in.Title,
		Description: in.Description,
		Status:      status,
		Priority:    priority,
		DueDate:     in.DueDate,
		UserID:      in.UserID,
		TagIDs:      tagIDs,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	created, err := store.Insert(ctx, s.db, store.Tasks, task)
	if err != nil {
		return model.Task{}, err
	}

	s.addHistory(ctx, created.ID, in.UserID, model.ActionCreate, "")
	s.log.Info("task created", zap.String("id", created.ID), zap.String("title", created.Title))
	return created, nil
}

// Update merges the provided fields into an existing task, re-stamps the
// update time, and appends an audit entry describing what changed.
func (s *TaskService) Update(ctx context.Context, id string, in UpdateTaskInput, actorID string) (model.Task, error) {
	existing, err := store.GetByID[model.Task](ctx, s.db, store.Tasks, id)
	if errors.Is(err, store.ErrNotFound) {
		return model.Task{}, notFoundErr("task", id)
	}
	if err != nil {
		return model.Task{}, err
	}

	partial := map[string]any{"updated_at": time.Now()}
	if in.Title != nil {
		if strings.TrimSpace(*in.Title) == "" {
			return model.Task{}, validationErr("title", "must not be empty")
		}
		partial["title"] = *in.Title
	}
	if in.Description != nil {
		partial["description"] = *in.Description
	}
	if in.Status != nil {
		if !model.ValidStatus(*in.Status) {
			return model.Task{}, validationErr("status", fmt.Sprintf("unknown status %q", *in.Status))
		}
		partial["status"] = *in.Status
	}
	if in.Priority != nil {
		if !model.ValidPriority(*in.Priority) {
			return model.Task{}, validationErr("priority", fmt.Sprintf("unknown priority %q", *in.Priority))
		}
		partial["priority"] = *in.Priority
	}
	if in.ClearDueDate {
		partial["due_date"] = nil
	} else if in.DueDate != nil {
		partial["due_date"] = *in.DueDate
	}
	if in.TagIDs != nil {
		partial["tag_ids"] = *in.TagIDs
	}

	updated, err := store.Update[model.Task](ctx, s.db, store.Tasks, id, partial)
	if err != nil {
		return model.Task{}, err
	}

	details := "details updated"
	switch {
	case in.Status != nil && *in.Status != existing.Status:
		details = fmt.Sprintf("status changed from %s to %s", existing.Status, *in.Status)
	case in.Priority != nil && *in.Priority != existing.Priority:
		details = fmt.Sprintf("priority changed from %s to %s", existing.Priority, *in.Priority)
	}
	s.addHistory(ctx, id, actorID, model.ActionUpdate, details)

	s.log.Info("task updated", zap.String("id", id))
	return updated, nil
}

// Delete removes the task together with its comments and audit history.
func (s *TaskService) Delete(ctx context.Context, id, actorID string) error {
	if _, err := store.GetByID[model.Task](ctx, s.db, store.Tasks, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFoundErr("task", id)
		}
		return err
	}

	comments, err := store.Find(ctx, s.db, store.Comments, func(c model.Comment) bool {
		return c.TaskID == id
	})
	if err != nil {
		return err
	}
	for _, c := range comments {
		if _, err := s.db.Delete(ctx, store.Comments, c.ID); err != nil {
			return err
		}
	}

	// The audit trail is scoped to its task: purge it with the task
	// instead of leaving orphaned entries behind.
	history, err := store.Find(ctx, s.db, store.TaskHistory, func(h model.HistoryEntry) bool {
		return h.TaskID == id
	})
	if err != nil {
		return err
	}
	for _, h := range history {
		if _, err := s.db.Delete(ctx, store.TaskHistory, h.ID); err != nil {
			return err
		}
	}

	if _, err := s.db.Delete(ctx, store.Tasks, id); err != nil {
		return err
	}

	s.log.Info("task deleted", zap.String("id", id),
		zap.Int("comments_removed", len(comments)), zap.Int("history_removed", len(history)))
	return nil
}

// Comments returns a task's comments, oldest first.
func (s *TaskService) Comments(ctx context.Context, taskID string) ([]model.Comment, error) {
	comments, err := store.Find(ctx, s.db, store.Comments, func(c model.Comment) bool {
		return c.TaskID == taskID
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(comments, func(i, j int) bool {
		return comments[i].CreatedAt.Before(comments[j].CreatedAt)
	})
	return comments, nil
}

// AddComment attaches a comment to a task, touches the task's update
// time, and appends an audit entry.
func (s *TaskService) AddComment(ctx context.Context, taskID, userID, content string) (model.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return model.Comment{}, validationErr("content", "must not be empty")
	}
	if _, err := store.GetByID[model.Task](ctx, s.db, store.Tasks, taskID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.Comment{}, notFoundErr("task", taskID)
		}
		return model.Comment{}, err
	}

	comment := model.Comment{
		Content:   content,
		TaskID:    taskID,
		UserID:    userID,
		CreatedAt: time.Now(),
	}
	created, err := store.Insert(ctx, s.db, store.Comments, comment)
	if err != nil {
		return model.Comment{}, err
	}

	if _, err := store.Update[model.Task](ctx, s.db, store.Tasks, taskID, map[string]any{
		"updated_at": time.Now(),
	}); err != nil {
		return model.Comment{}, err
	}
	s.addHistory(ctx, taskID, userID, model.ActionComment, "comment added")

	s.log.Info("comment added", zap.String("task_id", taskID), zap.String("id", created.ID))
	return created, nil
}

// DeleteComment removes a comment, touches the parent task's update time,
// and appends an audit entry.
func (s *TaskService) DeleteComment(ctx context.Context, id, actorID string) error {
	comment, err := store.GetByID[model.Comment](ctx, s.db, store.Comments, id)
	if errors.Is(err, store.ErrNotFound) {
		return notFoundErr("comment", id)
	}
	if err != nil {
		return err
	}

	if _, err := s.db.Delete(ctx, store.Comments, id); err != nil {
		return err
	}

	if _, err := store.Update[model.Task](ctx, s.db, store.Tasks, comment.TaskID, map[string]any{
		"updated_at": time.Now(),
	}); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	s.addHistory(ctx, comment.TaskID, actorID, model.ActionDeleteComment, "comment deleted")

	s.log.Info("comment deleted", zap.String("id", id), zap.String("task_id", comment.TaskID))
	return nil
}

// History returns a task's audit entries, newest first.
func (s *TaskService) History(ctx context.Context, taskID string) ([]model.HistoryEntry, error) {
	history, err := store.Find(ctx, s.db, store.TaskHistory, func(h model.HistoryEntry) bool {
		return h.TaskID == taskID
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(history, func(i, j int) bool {
		return history[i].CreatedAt.After(history[j].CreatedAt)
	})
	return history, nil
}

// addHistory appends an audit entry. Failures are logged, never
// propagated: audit writing must not fail the primary operation.
func (s *TaskService) addHistory(ctx context.Context, taskID, userID, action, details string) {
	entry := model.HistoryEntry{
		TaskID:    taskID,
		UserID:    userID,
		Action:    action,
		Details:   details,
		CreatedAt: time.Now(),
	}
	if _, err := store.Insert(ctx, s.db, store.TaskHistory, entry); err != nil {
		s.log.Error("writing task history", zap.String("task_id", taskID), zap.Error(err))
	}
}

// matchesFilter applies every set predicate of the filter to the task.
func matchesFilter(t model.Task, f TaskFilter, now time.Time) bool {
	if f.UserID != nil && t.UserID != *f.UserID {
		return false
	}
	if f.Status != nil && t.Status != *f.Status {
		return false
	}
	if f.Priority != nil && t.Priority != *f.Priority {
		return false
	}
	if f.Search != nil && *f.Search != "" {
		q := strings.ToLower(*f.Search)
		if !strings.Contains(strings.ToLower(t.Title), q) &&
			!strings.Contains(strings.ToLower(t.Description), q) {
			return false
		}
	}
	if f.Due != nil {
		if !matchesDueBucket(t, *f.Due, now) {
			return false
		}
	}
	return true
}

// matchesDueBucket evaluates the due-date bucket predicates against local
// midnight boundaries.
func matchesDueBucket(t model.Task, bucket string, now time.Time) bool {
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	tomorrow := startOfDay.AddDate(0, 0, 1)
	nextWeek := startOfDay.AddDate(0, 0, 7)

	switch bucket {
	case DueToday:
		return t.DueDate != nil && !t.DueDate.Before(startOfDay) && t.DueDate.Before(tomorrow)
	case DueWeek:
		return t.DueDate != nil && !t.DueDate.Before(startOfDay) && t.DueDate.Before(nextWeek)
	case DueOverdue:
		return t.DueDate != nil && t.DueDate.Before(startOfDay) && t.Status != model.StatusCompleted
	case DueUpcoming:
		return t.DueDate != nil && !t.DueDate.Before(startOfDay) && t.Status != model.StatusCompleted
	case DueNone:
		return t.DueDate == nil
	}
	return true
}

// sortTasks orders tasks by the requested column. Tasks without a due
// date sort after dated ones in ascending order. Without a sort column
// the newest-updated task comes first.
func sortTasks(tasks []model.Task, sortBy string, desc bool) {
	if sortBy == "" {
		sort.SliceStable(tasks, func(i, j int) bool {
			return tasks[i].UpdatedAt.After(tasks[j].UpdatedAt)
		})
		return
	}

	dir := 1
	if desc {
		dir = -1
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		return dir*compareTasks(tasks[i], tasks[j], sortBy) < 0
	})
}

func compareTasks(a, b model.Task, sortBy string) int {
	switch sortBy {
	case "title":
		return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	case "due_date":
		switch {
		case a.DueDate == nil && b.DueDate == nil:
			return 0
		case a.DueDate == nil:
			return 1
		case b.DueDate == nil:
			return -1
		}
		return a.DueDate.Compare(*b.DueDate)
	case "priority":
		// Higher priority compares greater, so a descending sort lists
		// high before medium before low.
		return model.PriorityRank(b.Priority) - model.PriorityRank(a.Priority)
	case "status":
		return strings.Compare(a.Status, b.Status)
	case "created_at":
		return a.CreatedAt.Compare(b.CreatedAt)
	case "updated_at":
		return a.UpdatedAt.Compare(b.UpdatedAt)
	}
	return 0
}
