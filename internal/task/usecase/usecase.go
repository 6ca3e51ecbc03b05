package usecase

import (
	"context"
	"errors"

	authdomain "github.com/MuazAsif-Dev/tasker/internal/auth/domain"
	"github.com/MuazAsif-Dev/tasker/internal/notification"
	"github.com/MuazAsif-Dev/tasker/internal/task/domain"
)

var (
	ErrTaskNotFound  = errors.New("task not found")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrInvalidStatus = errors.New("invalid task status")
)

// CreateTaskRequest carries the raw mutation input; timestamps arrive as
// RFC3339 strings and are normalized before anything is persisted.
type CreateTaskRequest struct {
	Title        string `json:"title" binding:"required"`
	Description  string `json:"description"`
	DueDate      string `json:"due_date"`
	ReminderTime string `json:"reminder_time"`
	Status       string `json:"status"`
}

// TaskUpdateRequest carries partial updates; nil fields keep current values
type TaskUpdateRequest struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	DueDate      *string `json:"due_date"`
	ReminderTime *string `json:"reminder_time"`
	Status       *string `json:"status"`
}

// TaskUsecase defines the task mutation and query operations
type TaskUsecase interface {
	CreateTask(ctx context.Context, userID string, req CreateTaskRequest) (*domain.Task, error)
	GetTaskByID(userID, taskID string) (*domain.Task, error)
	GetUserTasks(userID string) ([]*domain.Task, error)
	UpdateTask(ctx context.Context, userID, taskID string, updates TaskUpdateRequest) (*domain.Task, error)
	DeleteTask(ctx context.Context, userID, taskID string) error
}

// ReminderScheduler is the per-device reminder job lifecycle consumed by
// task mutations. All operations are best-effort on the scheduler side.
type ReminderScheduler interface {
	Schedule(ctx context.Context, in notification.ReminderInput)
	Reschedule(ctx context.Context, in notification.ReminderInput)
	CancelTask(ctx context.Context, taskID string)
}

// ChangePublisher emits cross-process "task set changed" events
type ChangePublisher interface {
	PublishTaskUpdate(ctx context.Context, userID string)
}

// DeviceTokenSource lists the push tokens registered for a user
type DeviceTokenSource interface {
	GetTokensByUserID(userID string) ([]authdomain.FCMToken, error)
}
