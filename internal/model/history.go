package model

import "time"

// History action labels.
const (
	ActionCreate        = "create"
	ActionUpdate        = "update"
	ActionComment       = "comment"
	ActionDeleteComment = "delete_comment"
)

// HistoryEntry is an immutable audit record of an action taken on a task.
// Entries are never updated; they are removed only when their task is
// deleted.
type HistoryEntry struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	UserID    string    `json:"user_id"`
	Action    string    `json:"action"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
