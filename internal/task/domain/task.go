package domain

import "time"

// TaskStatus represents the current state of a task
type TaskStatus string

const (
	TaskStatusPlanned    TaskStatus = "planned"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// Valid reports whether the status is one of the known states
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPlanned, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

// Task is a user-owned to-do item with a due date and a reminder time.
// DueAt and ReminderAt are always populated by date normalization before
// a task is persisted.
type Task struct {
	ID          string     `json:"id" gorm:"primaryKey"`
	UserID      string     `json:"user_id" gorm:"index;not null"`
	Title       string     `json:"title" gorm:"not null"`
	Description string     `json:"description,omitempty"`
	DueAt       time.Time  `json:"due_at"`
	ReminderAt  time.Time  `json:"reminder_at"`
	Status      TaskStatus `json:"status" gorm:"default:planned"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
