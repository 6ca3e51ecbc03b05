package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/MuazAsif-Dev/tasker/pkg/fcm"
	"github.com/MuazAsif-Dev/tasker/pkg/jobqueue"
)

// Sender abstracts the push provider. *fcm.Client satisfies it.
type Sender interface {
	SendToDevice(ctx context.Context, token string, notification fcm.NotificationData) error
}

// TokenStore removes device token rows whose tokens FCM rejected.
// repository.FCMTokenRepository satisfies it.
type TokenStore interface {
	DeleteToken(token string) error
}

// DispatchWorker drains due reminder jobs from the notification queue and
// hands them to the push sender. It performs no scheduling logic; transient
// send failures go back through the queue's retry policy, while an
// unregistered token deletes the device row so future mutations stop
// scheduling jobs for it.
type DispatchWorker struct {
	sender Sender
	tokens TokenStore
	worker *jobqueue.Worker
}

func NewDispatchWorker(store jobqueue.Store, sender Sender, tokens TokenStore, pollInterval time.Duration) *DispatchWorker {
	w := &DispatchWorker{sender: sender, tokens: tokens}
	w.worker = jobqueue.NewWorker(store, NotificationQueue, w.handle, pollInterval)
	return w
}

// Start blocks processing due jobs until the context is cancelled.
func (w *DispatchWorker) Start(ctx context.Context) {
	w.worker.Start(ctx)
}

func (w *DispatchWorker) handle(ctx context.Context, job *jobqueue.Job) error {
	var payload JobPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("invalid job payload: %w", err)
	}

	err := w.sender.SendToDevice(ctx, payload.Token, fcm.NotificationData{
		Title: payload.Title,
		Body:  payload.Body,
		Data: map[string]string{
			"type":    "task_reminder",
			"task_id": payload.TaskID,
			"user_id": payload.UserID,
		},
	})
	if err != nil {
		if errors.Is(err, fcm.ErrUnregistered) {
			log.Printf("[DispatchWorker] Token for task %s is no longer registered, removing device", payload.TaskID)
			if derr := w.tokens.DeleteToken(payload.Token); derr != nil {
				log.Printf("[DispatchWorker] Failed to delete dead token: %v", derr)
			}
			// The device is gone, retrying can not deliver. Job is done.
			return nil
		}
		log.Printf("[DispatchWorker] Job %s failed to send reminder for task %s: %v", job.ID, payload.TaskID, err)
		return err
	}

	log.Printf("[DispatchWorker] Job %s completed, reminder for task %s sent", job.ID, payload.TaskID)
	return nil
}
