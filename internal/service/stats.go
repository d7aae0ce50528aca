package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/taskdesk/taskdesk/internal/model"
	"github.com/taskdesk/taskdesk/internal/store"
)

// Reporting periods accepted by TimeStats.
const (
	PeriodDay   = "day"
	PeriodWeek  = "week"
	PeriodMonth = "month"
	PeriodYear  = "year"
)

// StatsService derives aggregate reports from the stored records.
type StatsService struct {
	db  *store.DB
	log *zap.Logger
}

// NewStatsService creates the service.
func NewStatsService(db *store.DB, log *zap.Logger) *StatsService {
	return &StatsService{db: db, log: log}
}

// Activity is an audit entry enriched with the task title and actor name
// for display.
type Activity struct {
	model.HistoryEntry
	TaskTitle string `json:"task_title"`
	UserName  string `json:"user_name"`
}

// Dashboard summarizes the current task landscape, optionally scoped to
// one user.
type Dashboard struct {
	Total          int            `json:"total"`
	Completed      int            `json:"completed"`
	Pending        int            `json:"pending"`
	Overdue        int            `json:"overdue"`
	ByStatus       map[string]int `json:"by_status"`
	ByPriority     map[string]int `json:"by_priority"`
	RecentActivity []Activity     `json:"recent_activity"`
	Upcoming       []model.Task   `json:"upcoming"`
}

// TimeStats counts tasks created and completed within one reporting
// period.
type TimeStats struct {
	Period         string    `json:"period"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	Created        int       `json:"created"`
	Completed      int       `json:"completed"`
	CompletionRate float64   `json:"completion_rate"`
}

// SystemStats is a whole-store summary.
type SystemStats struct {
	Users            int     `json:"users"`
	Tasks            int     `json:"tasks"`
	Tags             int     `json:"tags"`
	Comments         int     `json:"comments"`
	CompletionRate   float64 `json:"completion_rate"`
	CommentsPerTask  float64 `json:"comments_per_task"`
	TasksPerUser     float64 `json:"tasks_per_user"`
	ActivitiesPerDay float64 `json:"activities_per_day"`
}

// Dashboard builds the dashboard summary. A nil userID covers the whole
// store.
func (s *StatsService) Dashboard(ctx context.Context, userID *string) (Dashboard, error) {
	tasks, err := store.GetAll[model.Task](ctx, s.db, store.Tasks)
	if err != nil {
		return Dashboard{}, err
	}
	if userID != nil {
		scoped := tasks[:0]
		for _, t := range tasks {
			if t.UserID == *userID {
				scoped = append(scoped, t)
			}
		}
		tasks = scoped
	}

	now := time.Now()
	d := Dashboard{
		ByStatus:   map[string]int{},
		ByPriority: map[string]int{},
	}
	for _, t := range tasks {
		d.Total++
		d.ByStatus[t.Status]++
		d.ByPriority[t.Priority]++
		if t.Status == model.StatusCompleted {
			d.Completed++
		} else {
			// Pending covers every task that is not done yet, whatever
			// its exact status.
			d.Pending++
		}
		if t.IsOverdue(now) {
			d.Overdue++
		}
	}

	history, err := store.GetAll[model.HistoryEntry](ctx, s.db, store.TaskHistory)
	if err != nil {
		return Dashboard{}, err
	}
	if userID != nil {
		// Activity is scoped by who acted, not by task ownership.
		scoped := history[:0]
		for _, h := range history {
			if h.UserID == *userID {
				scoped = append(scoped, h)
			}
		}
		history = scoped
	}
	sort.Slice(history, func(i, j int) bool {
		return history[i].CreatedAt.After(history[j].CreatedAt)
	})
	if len(history) > 10 {
		history = history[:10]
	}
	d.RecentActivity, err = s.enrich(ctx, history)
	if err != nil {
		return Dashboard{}, err
	}

	upcoming := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.DueDate != nil && !t.DueDate.Before(now) && t.Status != model.StatusCompleted {
			upcoming = append(upcoming, t)
		}
	}
	sort.Slice(upcoming, func(i, j int) bool {
		return upcoming[i].DueDate.Before(*upcoming[j].DueDate)
	})
	if len(upcoming) > 5 {
		upcoming = upcoming[:5]
	}
	d.Upcoming = upcoming

	return d, nil
}

// UserStats builds the dashboard scoped to one user.
func (s *StatsService) UserStats(ctx context.Context, userID string) (Dashboard, error) {
	if _, err := store.GetByID[model.User](ctx, s.db, store.Users, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Dashboard{}, notFoundErr("user", userID)
		}
		return Dashboard{}, err
	}
	return s.Dashboard(ctx, &userID)
}

// ForPeriod counts tasks created and completed since the start of the
// given reporting period, optionally scoped to one user. Period anchors
// are local: midnight for day, the previous Sunday for week, the first
// of the month, January 1st for year.
func (s *StatsService) ForPeriod(ctx context.Context, period string, userID *string) (TimeStats, error) {
	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var since time.Time
	switch period {
	case PeriodDay:
		since = startOfDay
	case PeriodWeek:
		since = startOfDay.AddDate(0, 0, -int(now.Weekday()))
	case PeriodMonth:
		since = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	case PeriodYear:
		since = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	default:
		return TimeStats{}, validationErr("period", fmt.Sprintf("unknown period %q", period))
	}

	tasks, err := store.GetAll[model.Task](ctx, s.db, store.Tasks)
	if err != nil {
		return TimeStats{}, err
	}
	if userID != nil {
		scoped := tasks[:0]
		for _, t := range tasks {
			if t.UserID == *userID {
				scoped = append(scoped, t)
			}
		}
		tasks = scoped
	}

	st := TimeStats{Period: period, Start: since, End: now}
	for _, t := range tasks {
		if !t.CreatedAt.Before(since) {
			st.Created++
		}
		if t.Status == model.StatusCompleted && !t.UpdatedAt.Before(since) {
			st.Completed++
		}
	}
	if st.Created > 0 {
		st.CompletionRate = round2(float64(st.Completed) / float64(st.Created))
	}
	return st, nil
}

// System builds the whole-store summary with derived ratios rounded to
// two decimals.
func (s *StatsService) System(ctx context.Context) (SystemStats, error) {
	users, err := store.GetAll[model.User](ctx, s.db, store.Users)
	if err != nil {
		return SystemStats{}, err
	}
	tasks, err := store.GetAll[model.Task](ctx, s.db, store.Tasks)
	if err != nil {
		return SystemStats{}, err
	}
	tags, err := store.GetAll[model.Tag](ctx, s.db, store.Tags)
	if err != nil {
		return SystemStats{}, err
	}
	comments, err := store.GetAll[model.Comment](ctx, s.db, store.Comments)
	if err != nil {
		return SystemStats{}, err
	}
	history, err := store.GetAll[model.HistoryEntry](ctx, s.db, store.TaskHistory)
	if err != nil {
		return SystemStats{}, err
	}

	st := SystemStats{
		Users:    len(users),
		Tasks:    len(tasks),
		Tags:     len(tags),
		Comments: len(comments),
	}

	completed := 0
	for _, t := range tasks {
		if t.Status == model.StatusCompleted {
			completed++
		}
	}
	if len(tasks) > 0 {
		st.CompletionRate = round2(float64(completed) / float64(len(tasks)))
		st.CommentsPerTask = round2(float64(len(comments)) / float64(len(tasks)))
	}
	if len(users) > 0 {
		st.TasksPerUser = round2(float64(len(tasks)) / float64(len(users)))
	}
	if len(history) > 0 {
		first, last := history[0].CreatedAt, history[0].CreatedAt
		for _, h := range history[1:] {
			if h.CreatedAt.Before(first) {
				first = h.CreatedAt
			}
			if h.CreatedAt.After(last) {
				last = h.CreatedAt
			}
		}
		days := math.Max(1, math.Ceil(last.Sub(first).Hours()/24))
		st.ActivitiesPerDay = round2(float64(len(history)) / days)
	}
	return st, nil
}

// enrich resolves task titles and actor names for display. Entries whose
// task or user no longer exists fall back to placeholder labels.
func (s *StatsService) enrich(ctx context.Context, history []model.HistoryEntry) ([]Activity, error) {
	activities := make([]Activity, 0, len(history))
	for _, h := range history {
		a := Activity{HistoryEntry: h, TaskTitle: "Unknown task", UserName: "Unknown user"}
		task, err := store.GetByID[model.Task](ctx, s.db, store.Tasks, h.TaskID)
		if err == nil {
			a.TaskTitle = task.Title
		} else if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		user, err := store.GetByID[model.User](ctx, s.db, store.Users, h.UserID)
		if err == nil {
			a.UserName = user.FullName
		} else if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, nil
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
