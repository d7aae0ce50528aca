package model

// Task list views.
const (
	ViewList     = "list"
	ViewBoard    = "board"
	ViewCalendar = "calendar"
)

// ValidView reports whether v is one of the known task list views.
func ValidView(v string) bool {
	switch v {
	case ViewList, ViewBoard, ViewCalendar:
		return true
	}
	return false
}

// UserSettings is the per-user preference record stored in the settings
// collection. The record id equals the user id.
type UserSettings struct {
	ID                 string `json:"id"`
	UserID             string `json:"user_id"`
	Theme              string `json:"theme"`
	Language           string `json:"language"`
	Notifications      bool   `json:"notifications"`
	DefaultView        string `json:"default_view"`
	DefaultFilter      string `json:"default_filter"`
	TaskSortOrder      string `json:"task_sort_order"`
	ShowCompletedTasks bool   `json:"show_completed_tasks"`
}
