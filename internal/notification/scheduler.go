package notification

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/MuazAsif-Dev/tasker/pkg/jobqueue"
)

// NotificationQueue is the delayed-job queue holding pending task reminders.
const NotificationQueue = "tasks-notification-queue"

// JobPayload is the body of a scheduled reminder job.
type JobPayload struct {
	UserID   string `json:"userId"`
	TaskID   string `json:"taskId"`
	Token    string `json:"token"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	DeviceID string `json:"deviceId"`
}

// ReminderInput describes one reminder to schedule for one device.
type ReminderInput struct {
	TaskID string
	UserID string
	Token  string
	Title  string
	Body   string
	Delay  time.Duration // may be zero or negative, fires on the next poll
}

// ReminderScheduler owns the lifecycle of reminder jobs: at most one
// scheduled job exists per (task, device) pair at any time. All operations
// are best-effort; queue failures are logged and never propagated, so a task
// mutation that already committed can not be failed by its reminder.
type ReminderScheduler struct {
	store jobqueue.Store

	mu        sync.Mutex
	taskLocks map[string]*taskLock
}

// taskLock is reference-counted so the registry entry can be dropped once
// the last holder releases it, instead of growing one entry per task ever
// touched.
type taskLock struct {
	mu   sync.Mutex
	refs int
}

func NewReminderScheduler(store jobqueue.Store) *ReminderScheduler {
	return &ReminderScheduler{
		store:     store,
		taskLocks: make(map[string]*taskLock),
	}
}

// lockTask serializes scheduling operations per task ID so a sweep-and-replace
// can not race a concurrent schedule for the same task.
func (s *ReminderScheduler) lockTask(taskID string) func() {
	s.mu.Lock()
	l, ok := s.taskLocks[taskID]
	if !ok {
		l = &taskLock{}
		s.taskLocks[taskID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.taskLocks, taskID)
		}
		s.mu.Unlock()
	}
}

// Schedule submits a reminder job for one device. The push token doubles as
// the device identity, so adding again for the same (task, token) replaces
// the previous job instead of duplicating it.
func (s *ReminderScheduler) Schedule(ctx context.Context, in ReminderInput) {
	unlock := s.lockTask(in.TaskID)
	defer unlock()
	s.schedule(ctx, in)
}

func (s *ReminderScheduler) schedule(ctx context.Context, in ReminderInput) {
	deviceID := in.Token

	payload, err := json.Marshal(JobPayload{
		UserID:   in.UserID,
		TaskID:   in.TaskID,
		Token:    in.Token,
		Title:    in.Title,
		Body:     in.Body,
		DeviceID: deviceID,
	})
	if err != nil {
		log.Printf("[ReminderScheduler] Failed to encode payload for task %s: %v", in.TaskID, err)
		return
	}

	job := &jobqueue.Job{
		ID:      JobID(in.TaskID, deviceID),
		Queue:   NotificationQueue,
		Payload: payload,
		RunAt:   time.Now().Add(in.Delay),
	}

	if err := s.store.Add(ctx, job); err != nil {
		log.Printf("[ReminderScheduler] Failed to add job for task %s: %v", in.TaskID, err)
		return
	}
	log.Printf("[ReminderScheduler] Job for task %s and user %s added to the queue", in.TaskID, in.UserID)
}

// Reschedule removes every job belonging to the task and schedules a fresh
// one with the new delay. The queue has no per-job update, so this is a
// sweep-and-replace over the notification namespace.
func (s *ReminderScheduler) Reschedule(ctx context.Context, in ReminderInput) {
	unlock := s.lockTask(in.TaskID)
	defer unlock()

	if !s.removeTaskJobs(ctx, in.TaskID) {
		return
	}
	s.schedule(ctx, in)
	log.Printf("[ReminderScheduler] Jobs for task %s updated with new delay %s", in.TaskID, in.Delay)
}

// CancelTask removes every scheduled job for the task across all devices.
func (s *ReminderScheduler) CancelTask(ctx context.Context, taskID string) {
	unlock := s.lockTask(taskID)
	defer unlock()

	if s.removeTaskJobs(ctx, taskID) {
		log.Printf("[ReminderScheduler] All notification jobs for task %s have been deleted", taskID)
	}
}

func (s *ReminderScheduler) removeTaskJobs(ctx context.Context, taskID string) bool {
	jobs, err := s.store.List(ctx, NotificationQueue)
	if err != nil {
		log.Printf("[ReminderScheduler] Failed to list jobs for task %s: %v", taskID, err)
		return false
	}

	for _, job := range jobs {
		if TaskIDFromJobID(job.ID) != taskID {
			continue
		}
		if err := s.store.Remove(ctx, job.ID); err != nil {
			log.Printf("[ReminderScheduler] Failed to remove job %s: %v", job.ID, err)
		}
	}
	return true
}
