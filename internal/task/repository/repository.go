package repository

import (
	"github.com/MuazAsif-Dev/tasker/internal/task/domain"
)

// TaskRepository defines the persistence interface for tasks
type TaskRepository interface {
	Create(task *domain.Task) error
	FindByID(id string) (*domain.Task, error)
	FindByUserID(userID string) ([]*domain.Task, error)
	Update(task *domain.Task) error
	Delete(id string) error
}
