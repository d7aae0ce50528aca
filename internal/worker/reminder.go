// Package worker runs the background jobs of the application: due-date
// reminders and periodic backups.
package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/taskdesk/taskdesk/internal/model"
	"github.com/taskdesk/taskdesk/internal/service"
	"github.com/taskdesk/taskdesk/internal/store"
)

// Reminder periodically scans for tasks that are due soon or overdue and
// records a notification for each, at most once per task.
type Reminder struct {
	db       *store.DB
	tasks    *service.TaskService
	log      *zap.Logger
	lead     time.Duration
	interval time.Duration
}

// NewReminder creates the worker from the notification config.
func NewReminder(db *store.DB, tasks *service.TaskService, log *zap.Logger, cfg model.NotificationConfig) *Reminder {
	return &Reminder{
		db:       db,
		tasks:    tasks,
		log:      log,
		lead:     time.Duration(cfg.ReminderLeadMinutes) * time.Minute,
		interval: time.Duration(cfg.PollIntervalSec) * time.Second,
	}
}

// Start runs the scan loop until the context is canceled. One scan runs
// immediately on start.
func (r *Reminder) Start(ctx context.Context) {
	r.log.Info("reminder worker started",
		zap.Duration("interval", r.interval), zap.Duration("lead", r.lead))

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.scan(ctx)
	for {
		select {
		case <-ctx.Done():
			r.log.Info("reminder worker stopped")
			return
		case <-ticker.C:
			r.scan(ctx)
		}
	}
}

func (r *Reminder) scan(ctx context.Context) {
	now := time.Now()
	horizon := now.Add(r.lead)

	due, err := store.Find(ctx, r.db, store.Tasks, func(t model.Task) bool {
		if t.DueDate == nil {
			return false
		}
		if t.Status == model.StatusCompleted || t.Status == model.StatusCanceled {
			return false
		}
		return t.DueDate.Before(horizon)
	})
	if err != nil {
		r.log.Error("scanning for due tasks", zap.Error(err))
		return
	}

	for _, t := range due {
		seen, err := r.tasks.HasNotificationFor(ctx, t.ID)
		if err != nil {
			r.log.Error("checking existing notifications", zap.String("task_id", t.ID), zap.Error(err))
			continue
		}
		if seen {
			continue
		}

		msg := fmt.Sprintf("Task %q is due %s", t.Title, t.DueDate.Format("2006-01-02 15:04"))
		if t.DueDate.Before(now) {
			msg = fmt.Sprintf("Task %q is overdue since %s", t.Title, t.DueDate.Format("2006-01-02 15:04"))
		}
		if _, err := r.tasks.Notify(ctx, t.ID, msg); err != nil {
			r.log.Error("recording reminder", zap.String("task_id", t.ID), zap.Error(err))
		}
	}
}
