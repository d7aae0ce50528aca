package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/taskdesk/taskdesk/internal/model"
	"github.com/taskdesk/taskdesk/internal/store"
)

// Notify stores a reminder notification for a task.
func (s *TaskService) Notify(ctx context.Context, taskID, message string) (model.Notification, error) {
	n := model.Notification{
		TaskID:    taskID,
		Message:   message,
		Read:      false,
		CreatedAt: time.Now(),
	}
	created, err := store.Insert(ctx, s.db, store.Notifications, n)
	if err != nil {
		return model.Notification{}, err
	}
	s.log.Info("notification created", zap.String("task_id", taskID))
	return created, nil
}

// UnreadNotifications returns unread notifications, newest first.
func (s *TaskService) UnreadNotifications(ctx context.Context) ([]model.Notification, error) {
	unread, err := store.Find(ctx, s.db, store.Notifications, func(n model.Notification) bool {
		return !n.Read
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(unread, func(i, j int) bool {
		return unread[i].CreatedAt.After(unread[j].CreatedAt)
	})
	return unread, nil
}

// MarkNotificationRead flags a notification as read.
func (s *TaskService) MarkNotificationRead(ctx context.Context, id string) error {
	_, err := store.Update[model.Notification](ctx, s.db, store.Notifications, id, map[string]any{
		"read": true,
	})
	if errors.Is(err, store.ErrNotFound) {
		return notFoundErr("notification", id)
	}
	return err
}

// MarkAllNotificationsRead flags every unread notification as read and
// reports how many were updated.
func (s *TaskService) MarkAllNotificationsRead(ctx context.Context) (int, error) {
	unread, err := s.UnreadNotifications(ctx)
	if err != nil {
		return 0, err
	}
	for _, n := range unread {
		if _, err := store.Update[model.Notification](ctx, s.db, store.Notifications, n.ID, map[string]any{
			"read": true,
		}); err != nil {
			return 0, err
		}
	}
	return len(unread), nil
}

// HasNotificationFor reports whether any notification, read or not,
// already exists for the task. The reminder worker uses this to avoid
// duplicate reminders.
func (s *TaskService) HasNotificationFor(ctx context.Context, taskID string) (bool, error) {
	existing, err := store.Find(ctx, s.db, store.Notifications, func(n model.Notification) bool {
		return n.TaskID == taskID
	})
	if err != nil {
		return false, err
	}
	return len(existing) > 0, nil
}
