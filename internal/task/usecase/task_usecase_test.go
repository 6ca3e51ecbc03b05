package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	authdomain "github.com/MuazAsif-Dev/tasker/internal/auth/domain"
	"github.com/MuazAsif-Dev/tasker/internal/notification"
	"github.com/MuazAsif-Dev/tasker/internal/task/domain"
	"github.com/MuazAsif-Dev/tasker/internal/task/schedule"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

type memTaskRepo struct {
	tasks map[string]*domain.Task
}

func newMemTaskRepo() *memTaskRepo {
	return &memTaskRepo{tasks: make(map[string]*domain.Task)}
}

func (r *memTaskRepo) Create(task *domain.Task) error {
	clone := *task
	r.tasks[task.ID] = &clone
	return nil
}

func (r *memTaskRepo) FindByID(id string) (*domain.Task, error) {
	task, ok := r.tasks[id]
	if !ok {
		return nil, nil
	}
	clone := *task
	return &clone, nil
}

func (r *memTaskRepo) FindByUserID(userID string) ([]*domain.Task, error) {
	var out []*domain.Task
	for _, task := range r.tasks {
		if task.UserID == userID {
			clone := *task
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *memTaskRepo) Update(task *domain.Task) error {
	clone := *task
	r.tasks[task.ID] = &clone
	return nil
}

func (r *memTaskRepo) Delete(id string) error {
	delete(r.tasks, id)
	return nil
}

type schedulerCall struct {
	op     string
	taskID string
	token  string
	delay  time.Duration
}

type recordingScheduler struct {
	calls []schedulerCall
}

func (s *recordingScheduler) Schedule(_ context.Context, in notification.ReminderInput) {
	s.calls = append(s.calls, schedulerCall{op: "schedule", taskID: in.TaskID, token: in.Token, delay: in.Delay})
}

func (s *recordingScheduler) Reschedule(_ context.Context, in notification.ReminderInput) {
	s.calls = append(s.calls, schedulerCall{op: "reschedule", taskID: in.TaskID, token: in.Token, delay: in.Delay})
}

func (s *recordingScheduler) CancelTask(_ context.Context, taskID string) {
	s.calls = append(s.calls, schedulerCall{op: "cancel", taskID: taskID})
}

type recordingPublisher struct {
	users []string
}

func (p *recordingPublisher) PublishTaskUpdate(_ context.Context, userID string) {
	p.users = append(p.users, userID)
}

type staticTokens struct {
	tokens []authdomain.FCMToken
	err    error
}

func (s *staticTokens) GetTokensByUserID(string) ([]authdomain.FCMToken, error) {
	return s.tokens, s.err
}

type env struct {
	repo      *memTaskRepo
	scheduler *recordingScheduler
	publisher *recordingPublisher
	tokens    *staticTokens
	uc        TaskUsecase
}

func newEnv(tokens ...string) *env {
	e := &env{
		repo:      newMemTaskRepo(),
		scheduler: &recordingScheduler{},
		publisher: &recordingPublisher{},
		tokens:    &staticTokens{},
	}
	for _, token := range tokens {
		e.tokens.tokens = append(e.tokens.tokens, authdomain.FCMToken{Token: token})
	}
	e.uc = &taskUsecase{
		taskRepo:  e.repo,
		tokens:    e.tokens,
		scheduler: e.scheduler,
		changes:   e.publisher,
		now:       func() time.Time { return testNow },
	}
	return e
}

func TestCreateTaskSchedulesReminder24hBeforeDue(t *testing.T) {
	e := newEnv("token-a")
	due := testNow.Add(5 * 24 * time.Hour)

	task, err := e.uc.CreateTask(context.Background(), "user-1", CreateTaskRequest{
		Title:   "Buy groceries",
		DueDate: due.Format(time.RFC3339),
	})
	require.NoError(t, err)

	assert.Equal(t, due, task.DueAt)
	assert.Equal(t, due.Add(-24*time.Hour), task.ReminderAt)
	assert.Equal(t, domain.TaskStatusPlanned, task.Status)

	require.Len(t, e.scheduler.calls, 1)
	call := e.scheduler.calls[0]
	assert.Equal(t, "schedule", call.op)
	assert.Equal(t, task.ID, call.taskID)
	assert.Equal(t, "token-a", call.token)
	assert.Equal(t, 4*24*time.Hour, call.delay, "fires 24h before due")

	assert.Equal(t, []string{"user-1"}, e.publisher.users)
}

func TestCreateTaskClampsImminentDueDate(t *testing.T) {
	e := newEnv("token-a")

	task, err := e.uc.CreateTask(context.Background(), "user-1", CreateTaskRequest{
		Title:   "Urgent",
		DueDate: testNow.Add(time.Minute).Format(time.RFC3339),
	})
	require.NoError(t, err)

	assert.Equal(t, testNow.Add(2*time.Minute), task.DueAt)
	assert.Equal(t, testNow.Add(time.Minute), task.ReminderAt)

	require.Len(t, e.scheduler.calls, 1)
	assert.Equal(t, time.Minute, e.scheduler.calls[0].delay)
}

func TestCreateTaskInvalidDateAbortsBeforeSideEffects(t *testing.T) {
	e := newEnv("token-a")

	_, err := e.uc.CreateTask(context.Background(), "user-1", CreateTaskRequest{
		Title:   "Broken",
		DueDate: "next tuesday",
	})
	assert.ErrorIs(t, err, schedule.ErrInvalidDateFormat)
	assert.Empty(t, e.repo.tasks)
	assert.Empty(t, e.scheduler.calls)
	assert.Empty(t, e.publisher.users)
}

func TestCreateTaskRejectsUnknownStatus(t *testing.T) {
	e := newEnv()

	_, err := e.uc.CreateTask(context.Background(), "user-1", CreateTaskRequest{
		Title:  "Broken",
		Status: "paused",
	})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestCreateTaskSchedulesOneJobPerDevice(t *testing.T) {
	e := newEnv("token-a", "token-b")

	_, err := e.uc.CreateTask(context.Background(), "user-1", CreateTaskRequest{Title: "Multi-device"})
	require.NoError(t, err)

	require.Len(t, e.scheduler.calls, 2)
	assert.Equal(t, "token-a", e.scheduler.calls[0].token)
	assert.Equal(t, "token-b", e.scheduler.calls[1].token)
}

func TestCreateTaskWithoutDevicesStillSucceeds(t *testing.T) {
	e := newEnv()
	e.tokens.err = errors.New("db down")

	task, err := e.uc.CreateTask(context.Background(), "user-1", CreateTaskRequest{Title: "No devices"})
	require.NoError(t, err)
	assert.NotNil(t, e.repo.tasks[task.ID])
	assert.Empty(t, e.scheduler.calls)
}

func TestUpdateTaskReschedulesWithNewDelay(t *testing.T) {
	e := newEnv("token-a")

	task, err := e.uc.CreateTask(context.Background(), "user-1", CreateTaskRequest{
		Title:   "Buy groceries",
		DueDate: testNow.Add(5 * 24 * time.Hour).Format(time.RFC3339),
	})
	require.NoError(t, err)
	e.scheduler.calls = nil

	newReminder := testNow.Add(2 * 24 * time.Hour)
	reminderRaw := newReminder.Format(time.RFC3339)
	updated, err := e.uc.UpdateTask(context.Background(), "user-1", task.ID, TaskUpdateRequest{
		ReminderTime: &reminderRaw,
	})
	require.NoError(t, err)
	assert.Equal(t, newReminder, updated.ReminderAt)

	require.Len(t, e.scheduler.calls, 2)
	assert.Equal(t, "cancel", e.scheduler.calls[0].op)
	assert.Equal(t, "schedule", e.scheduler.calls[1].op)
	assert.Equal(t, 2*24*time.Hour, e.scheduler.calls[1].delay)
}

func TestUpdateTitleOnlyKeepsValidReminder(t *testing.T) {
	e := newEnv("token-a")

	task, err := e.uc.CreateTask(context.Background(), "user-1", CreateTaskRequest{
		Title:   "Buy groceries",
		DueDate: testNow.Add(5 * 24 * time.Hour).Format(time.RFC3339),
	})
	require.NoError(t, err)

	title := "Buy more groceries"
	updated, err := e.uc.UpdateTask(context.Background(), "user-1", task.ID, TaskUpdateRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, task.ReminderAt, updated.ReminderAt)
	assert.Equal(t, title, updated.Title)
}

func TestCompletingTaskCancelsReminder(t *testing.T) {
	e := newEnv("token-a")

	task, err := e.uc.CreateTask(context.Background(), "user-1", CreateTaskRequest{Title: "Done soon"})
	require.NoError(t, err)
	e.scheduler.calls = nil

	status := string(domain.TaskStatusCompleted)
	_, err = e.uc.UpdateTask(context.Background(), "user-1", task.ID, TaskUpdateRequest{Status: &status})
	require.NoError(t, err)

	require.Len(t, e.scheduler.calls, 1)
	assert.Equal(t, "cancel", e.scheduler.calls[0].op)
	assert.Equal(t, task.ID, e.scheduler.calls[0].taskID)
}

func TestDeleteTaskCancelsJobsAndPublishes(t *testing.T) {
	e := newEnv("token-a")

	task, err := e.uc.CreateTask(context.Background(), "user-1", CreateTaskRequest{Title: "Short-lived"})
	require.NoError(t, err)
	e.scheduler.calls = nil
	e.publisher.users = nil

	require.NoError(t, e.uc.DeleteTask(context.Background(), "user-1", task.ID))

	assert.Empty(t, e.repo.tasks)
	require.Len(t, e.scheduler.calls, 1)
	assert.Equal(t, "cancel", e.scheduler.calls[0].op)
	assert.Equal(t, []string{"user-1"}, e.publisher.users)
}

func TestOwnershipChecks(t *testing.T) {
	e := newEnv()

	task, err := e.uc.CreateTask(context.Background(), "user-1", CreateTaskRequest{Title: "Private"})
	require.NoError(t, err)

	_, err = e.uc.GetTaskByID("user-2", task.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = e.uc.GetTaskByID("user-1", "missing")
	assert.ErrorIs(t, err, ErrTaskNotFound)

	err = e.uc.DeleteTask(context.Background(), "user-2", task.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)
}
