package notification

import (
	"context"
	"encoding/json"
	"log"

	"github.com/MuazAsif-Dev/tasker/internal/task/domain"
)

// TaskUpdatesChannel is the pub/sub topic carrying task change events.
const TaskUpdatesChannel = "tasks-updates"

// ChangeEvent signals that the task set of a user changed. It carries no
// payload beyond the owner: subscribers re-read the task list themselves so
// every process broadcasts a snapshot it read on its own.
type ChangeEvent struct {
	UserID string `json:"userId"`
}

// Publisher sends raw messages on the change-event topic.
type Publisher interface {
	Publish(ctx context.Context, data []byte) error
}

// TaskSource supplies the fresh task list broadcast after a change event.
type TaskSource interface {
	FindByUserID(userID string) ([]*domain.Task, error)
}

// Broadcaster delivers an event to every live connection of a user.
type Broadcaster interface {
	SendToUser(userID, event string, payload interface{})
}

// ChangeBus propagates task-list changes across processes: the mutating
// process publishes the owner's ID, every subscribed process re-reads that
// owner's tasks and fans them out to its locally connected clients.
type ChangeBus struct {
	publisher   Publisher
	tasks       TaskSource
	broadcaster Broadcaster
}

func NewChangeBus(publisher Publisher, tasks TaskSource, broadcaster Broadcaster) *ChangeBus {
	return &ChangeBus{
		publisher:   publisher,
		tasks:       tasks,
		broadcaster: broadcaster,
	}
}

// PublishTaskUpdate emits a change event for the user. Fire-and-forget: a
// publish failure is logged and swallowed, the task mutation has already
// committed.
func (b *ChangeBus) PublishTaskUpdate(ctx context.Context, userID string) {
	data, err := json.Marshal(ChangeEvent{UserID: userID})
	if err != nil {
		log.Printf("[ChangeBus] Failed to encode change event for user %s: %v", userID, err)
		return
	}
	if err := b.publisher.Publish(ctx, data); err != nil {
		log.Printf("[ChangeBus] Failed to publish change event for user %s: %v", userID, err)
	}
}

// HandleMessage is the subscriber side: re-read the owner's tasks and
// broadcast the snapshot to every live connection of that owner. Users with
// no connections on this process are a cheap no-op inside the broadcaster.
func (b *ChangeBus) HandleMessage(ctx context.Context, data []byte) {
	var event ChangeEvent
	if err := json.Unmarshal(data, &event); err != nil {
		log.Printf("[ChangeBus] Failed to decode change event: %v", err)
		return
	}

	tasks, err := b.tasks.FindByUserID(event.UserID)
	if err != nil {
		log.Printf("[ChangeBus] Failed to load tasks for user %s: %v", event.UserID, err)
		return
	}

	b.broadcaster.SendToUser(event.UserID, TaskUpdatesChannel, tasks)
}
