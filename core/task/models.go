package task

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// Priorities, lowest to highest.
const (
	PriorityLow    = 1
	PriorityNormal = 2
	PriorityHigh   = 3
)

const (
	StatusOpen = "open"
	StatusDone = "done"
)

// Task is a personal to-do, optionally attached to one of the user's
// registrations (an assignment for that lecture).
type Task struct {
	ID             int         `json:"id"`
	UserID         int         `json:"-"`
	RegistrationID null.Int    `json:"registration_id"`
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	DueDate        null.Time   `json:"due_date"` // UTC
	Priority       int         `json:"priority"`
	Status         string      `json:"status"`
	CreatedAt      time.Time   `json:"created_at"` // UTC
	UpdatedAt      time.Time   `json:"updated_at"` // UTC
}

func (t Task) IsOpen() bool { return t.Status == StatusOpen }

// DueWithin reports whether the task is open and falls due inside
// [from, until).
func (t Task) DueWithin(from, until time.Time) bool {
	if !t.IsOpen() || !t.DueDate.Valid {
		return false
	}
	due := t.DueDate.Time
	return !due.Before(from) && due.Before(until)
}
