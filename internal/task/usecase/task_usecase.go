package usecase

import (
	"context"
	"log"
	"time"

	"github.com/MuazAsif-Dev/tasker/internal/notification"
	"github.com/MuazAsif-Dev/tasker/internal/task/domain"
	"github.com/MuazAsif-Dev/tasker/internal/task/repository"
	"github.com/MuazAsif-Dev/tasker/internal/task/schedule"

	"github.com/google/uuid"
)

// taskUsecase implements TaskUsecase. A mutation normalizes dates first,
// persists second, and only then touches the reminder scheduler and the
// change bus: those side channels are best-effort and never fail a mutation
// that already committed.
type taskUsecase struct {
	taskRepo  repository.TaskRepository
	tokens    DeviceTokenSource
	scheduler ReminderScheduler
	changes   ChangePublisher
	now       func() time.Time
}

// NewTaskUsecase creates a new instance of taskUsecase
func NewTaskUsecase(taskRepo repository.TaskRepository, tokens DeviceTokenSource, scheduler ReminderScheduler, changes ChangePublisher) TaskUsecase {
	return &taskUsecase{
		taskRepo:  taskRepo,
		tokens:    tokens,
		scheduler: scheduler,
		changes:   changes,
		now:       time.Now,
	}
}

func (u *taskUsecase) CreateTask(ctx context.Context, userID string, req CreateTaskRequest) (*domain.Task, error) {
	now := u.now()

	dueAt, reminderAt, err := schedule.NormalizeDates(now, req.DueDate, req.ReminderTime)
	if err != nil {
		return nil, err
	}

	status := domain.TaskStatus(req.Status)
	if req.Status == "" {
		status = domain.TaskStatusPlanned
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	task := &domain.Task{
		ID:          uuid.New().String(),
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		DueAt:       dueAt,
		ReminderAt:  reminderAt,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := u.taskRepo.Create(task); err != nil {
		return nil, err
	}

	u.changes.PublishTaskUpdate(ctx, userID)
	u.fanOutReminder(ctx, task, reminderAt.Sub(now))

	return task, nil
}

func (u *taskUsecase) GetTaskByID(userID, taskID string) (*domain.Task, error) {
	task, err := u.taskRepo.FindByID(taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}
	if task.UserID != userID {
		return nil, ErrUnauthorized
	}
	return task, nil
}

func (u *taskUsecase) GetUserTasks(userID string) ([]*domain.Task, error) {
	return u.taskRepo.FindByUserID(userID)
}

func (u *taskUsecase) UpdateTask(ctx context.Context, userID, taskID string, updates TaskUpdateRequest) (*domain.Task, error) {
	task, err := u.GetTaskByID(userID, taskID)
	if err != nil {
		return nil, err
	}

	if updates.Title != nil {
		task.Title = *updates.Title
	}
	if updates.Description != nil {
		task.Description = *updates.Description
	}
	if updates.Status != nil {
		status := domain.TaskStatus(*updates.Status)
		if !status.Valid() {
			return nil, ErrInvalidStatus
		}
		task.Status = status
	}

	// Normalize against the supplied timestamps, falling back to the stored
	// ones so an edit that only touches the title keeps a still-valid
	// reminder and recomputes one that already passed.
	now := u.now()
	dueRaw := task.DueAt.Format(time.RFC3339Nano)
	if updates.DueDate != nil {
		dueRaw = *updates.DueDate
	}
	reminderRaw := task.ReminderAt.Format(time.RFC3339Nano)
	if updates.ReminderTime != nil {
		reminderRaw = *updates.ReminderTime
	}

	dueAt, reminderAt, err := schedule.NormalizeDates(now, dueRaw, reminderRaw)
	if err != nil {
		return nil, err
	}
	task.DueAt = dueAt
	task.ReminderAt = reminderAt
	task.UpdatedAt = now

	if err := u.taskRepo.Update(task); err != nil {
		return nil, err
	}

	u.changes.PublishTaskUpdate(ctx, userID)

	// A completed task no longer needs a reminder. Otherwise sweep the
	// task's jobs once and re-add one per device, so rescheduling one
	// device can not drop another device's job.
	u.scheduler.CancelTask(ctx, task.ID)
	if task.Status != domain.TaskStatusCompleted {
		u.fanOutReminder(ctx, task, reminderAt.Sub(now))
	}

	return task, nil
}

func (u *taskUsecase) DeleteTask(ctx context.Context, userID, taskID string) error {
	task, err := u.GetTaskByID(userID, taskID)
	if err != nil {
		return err
	}

	if err := u.taskRepo.Delete(task.ID); err != nil {
		return err
	}

	u.scheduler.CancelTask(ctx, taskID)
	u.changes.PublishTaskUpdate(ctx, userID)

	return nil
}

// fanOutReminder schedules the reminder job for every device token the
// owner has registered. Token lookup failures degrade to no reminder.
func (u *taskUsecase) fanOutReminder(ctx context.Context, task *domain.Task, delay time.Duration) {
	tokens, err := u.tokens.GetTokensByUserID(task.UserID)
	if err != nil {
		log.Printf("[TaskUsecase] Failed to load device tokens for user %s: %v", task.UserID, err)
		return
	}

	for _, token := range tokens {
		u.scheduler.Schedule(ctx, notification.ReminderInput{
			TaskID: task.ID,
			UserID: task.UserID,
			Token:  token.Token,
			Title:  task.Title,
			Body:   task.Description,
			Delay:  delay,
		})
	}
}
