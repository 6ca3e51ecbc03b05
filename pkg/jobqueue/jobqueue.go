// Package jobqueue provides a durable, database-backed delayed job queue.
// Jobs carry caller-minted IDs; adding a job with an existing ID atomically
// replaces it, so enqueueing is idempotent per ID.
package jobqueue

import (
	"context"
	"time"
)

// JobStatus represents the current state of a job.
type JobStatus string

const (
	StatusScheduled JobStatus = "scheduled"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// Job is a unit of work that becomes due at RunAt.
type Job struct {
	ID          string    `gorm:"primaryKey;size:512"`
	Queue       string    `gorm:"index;size:255;not null"`
	Payload     []byte    `gorm:"type:bytes"`
	RunAt       time.Time `gorm:"index"`
	Status      JobStatus `gorm:"index;size:20;default:'scheduled'"`
	Attempt     int       `gorm:"default:0"`
	MaxRetries  int       `gorm:"default:3"`
	LastError   string    `gorm:"type:text"`
	LockedBy    string    `gorm:"size:255"`
	LockedUntil *time.Time
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

// Store is the persistence contract for the queue.
type Store interface {
	// Add inserts the job or atomically replaces an existing job with the same ID.
	Add(ctx context.Context, job *Job) error
	// List returns all still-scheduled jobs in the queue.
	List(ctx context.Context, queue string) ([]*Job, error)
	// Remove deletes a job by ID. Removing a missing job is not an error.
	Remove(ctx context.Context, jobID string) error
	// ClaimDue locks and returns up to limit due jobs for the given worker.
	ClaimDue(ctx context.Context, queue, workerID string, limit int) ([]*Job, error)
	// Complete marks a claimed job as done.
	Complete(ctx context.Context, jobID, workerID string) error
	// Fail records a failure; with retryAt set the job goes back to scheduled.
	Fail(ctx context.Context, jobID, workerID, errMsg string, retryAt *time.Time) error
}
