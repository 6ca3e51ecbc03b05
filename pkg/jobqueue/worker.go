package jobqueue

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
)

// Handler processes a claimed job. A nil return completes the job; an error
// sends it back through the queue's retry policy.
type Handler func(ctx context.Context, job *Job) error

// Worker polls a single queue for due jobs and runs them through a handler.
type Worker struct {
	store        Store
	queue        string
	handler      Handler
	pollInterval time.Duration
	workerID     string
}

func NewWorker(store Store, queue string, handler Handler, pollInterval time.Duration) *Worker {
	return &Worker{
		store:        store,
		queue:        queue,
		handler:      handler,
		pollInterval: pollInterval,
		workerID:     uuid.New().String(),
	}
}

// Start blocks polling for due jobs until the context is cancelled.
func (w *Worker) Start(ctx context.Context) {
	log.Printf("[JobQueue] Worker %s polling queue %q every %s", w.workerID, w.queue, w.pollInterval)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[JobQueue] Worker %s stopped", w.workerID)
			return
		case <-ticker.C:
			w.drainDue(ctx)
		}
	}
}

func (w *Worker) drainDue(ctx context.Context) {
	jobs, err := w.store.ClaimDue(ctx, w.queue, w.workerID, 10)
	if err != nil {
		log.Printf("[JobQueue] Failed to claim due jobs: %v", err)
		return
	}

	for _, job := range jobs {
		if err := w.handler(ctx, job); err != nil {
			w.handleError(ctx, job, err)
			continue
		}
		if err := w.store.Complete(ctx, job.ID, w.workerID); err != nil {
			log.Printf("[JobQueue] Failed to complete job %s: %v", job.ID, err)
			continue
		}
		log.Printf("[JobQueue] Job %s completed", job.ID)
	}
}

func (w *Worker) handleError(ctx context.Context, job *Job, err error) {
	if job.Attempt < job.MaxRetries {
		retryAt := time.Now().Add(backoff(job.Attempt))
		if failErr := w.store.Fail(ctx, job.ID, w.workerID, err.Error(), &retryAt); failErr != nil {
			log.Printf("[JobQueue] Failed to reschedule job %s: %v", job.ID, failErr)
			return
		}
		log.Printf("[JobQueue] Job %s failed (attempt %d/%d), retrying at %s: %v", job.ID, job.Attempt, job.MaxRetries, retryAt.Format(time.RFC3339), err)
		return
	}

	if failErr := w.store.Fail(ctx, job.ID, w.workerID, err.Error(), nil); failErr != nil {
		log.Printf("[JobQueue] Failed to mark job %s as failed: %v", job.ID, failErr)
		return
	}
	log.Printf("[JobQueue] Job %s failed permanently: %v", job.ID, err)
}

func backoff(attempt int) time.Duration {
	d := time.Second * (1 << attempt)
	if d > time.Minute {
		d = time.Minute
	}
	return d
}
