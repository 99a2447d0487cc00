package domain

import "time"

type Event struct {
	ID          string    `json:"id"`
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	AllDay      bool      `json:"all_day"`
	HTMLLink    string    `json:"html_link,omitempty"`
}

type Task struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Notes     string     `json:"notes,omitempty"`
	Status    string     `json:"status"`
	Due       *time.Time `json:"due,omitempty"`
	Completed bool       `json:"completed"`
}

const (
	TaskStatusNeedsAction = "needsAction"
	TaskStatusCompleted   = "completed"
)

type Summary struct {
	Day         string    `json:"day"`
	Text        string    `json:"text"`
	EventCount  int       `json:"event_count"`
	TaskCount   int       `json:"task_count"`
	GeneratedAt time.Time `json:"generated_at"`
	Model       string    `json:"model,omitempty"`
}
