package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MuazAsif-Dev/tasker/pkg/fcm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu      sync.Mutex
	sent    []fcm.NotificationData
	tokens  []string
	sendErr error
}

func (s *recordingSender) SendToDevice(_ context.Context, token string, n fcm.NotificationData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.tokens = append(s.tokens, token)
	s.sent = append(s.sent, n)
	return nil
}

func (s *recordingSender) sentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type recordingTokenStore struct {
	mu      sync.Mutex
	deleted []string
}

func (s *recordingTokenStore) DeleteToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, token)
	return nil
}

func (s *recordingTokenStore) deletedTokens() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deleted...)
}

func TestDispatchWorkerSendsDueReminder(t *testing.T) {
	store := newMemStore()
	sender := &recordingSender{}
	scheduler := NewReminderScheduler(store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler.Schedule(ctx, reminderInput("task-1", "token-a", -time.Second))

	worker := NewDispatchWorker(store, sender, &recordingTokenStore{}, 10*time.Millisecond)
	go worker.Start(ctx)

	require.Eventually(t, func() bool { return sender.sentCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	sender.mu.Lock()
	defer sender.mu.Unlock()
	assert.Equal(t, "token-a", sender.tokens[0])
	assert.Equal(t, "Buy groceries", sender.sent[0].Title)
	assert.Equal(t, "Milk and eggs", sender.sent[0].Body)
	assert.Equal(t, "task-1", sender.sent[0].Data["task_id"])
	assert.Equal(t, "task_reminder", sender.sent[0].Data["type"])

	assert.Empty(t, store.scheduled(NotificationQueue), "fired job leaves the scheduled set")
}

func TestDispatchWorkerIgnoresFutureJobs(t *testing.T) {
	store := newMemStore()
	sender := &recordingSender{}
	scheduler := NewReminderScheduler(store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler.Schedule(ctx, reminderInput("task-1", "token-a", time.Hour))

	worker := NewDispatchWorker(store, sender, &recordingTokenStore{}, 10*time.Millisecond)
	go worker.Start(ctx)

	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, sender.sentCount())
	assert.Len(t, store.scheduled(NotificationQueue), 1)
}

func TestDispatchWorkerFailedSendGoesBackToQueue(t *testing.T) {
	store := newMemStore()
	sender := &recordingSender{sendErr: errors.New("push provider unavailable")}
	scheduler := NewReminderScheduler(store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler.Schedule(ctx, reminderInput("task-1", "token-a", -time.Second))

	worker := NewDispatchWorker(store, sender, &recordingTokenStore{}, 10*time.Millisecond)
	go worker.Start(ctx)

	require.Eventually(t, func() bool {
		jobs := store.scheduled(NotificationQueue)
		return len(jobs) == 1 && jobs[0].LastError != ""
	}, 2*time.Second, 10*time.Millisecond, "failed job is rescheduled with the error recorded")
}

func TestDispatchWorkerRemovesUnregisteredToken(t *testing.T) {
	store := newMemStore()
	sender := &recordingSender{sendErr: fcm.ErrUnregistered}
	tokens := &recordingTokenStore{}
	scheduler := NewReminderScheduler(store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler.Schedule(ctx, reminderInput("task-1", "token-dead", -time.Second))

	worker := NewDispatchWorker(store, sender, tokens, 10*time.Millisecond)
	go worker.Start(ctx)

	require.Eventually(t, func() bool {
		return len(tokens.deletedTokens()) == 1
	}, 2*time.Second, 10*time.Millisecond, "dead token row is removed")

	assert.Equal(t, []string{"token-dead"}, tokens.deletedTokens())
	assert.Empty(t, store.scheduled(NotificationQueue), "job completes instead of retrying a dead token")
	assert.Zero(t, sender.sentCount())
}
