package notification

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MuazAsif-Dev/tasker/pkg/jobqueue"
)

// memStore is an in-memory jobqueue.Store for exercising the scheduler and
// worker without a database.
type memStore struct {
	mu   sync.Mutex
	jobs map[string]*jobqueue.Job

	failAdd bool
}

func newMemStore() *memStore {
	return &memStore{jobs: make(map[string]*jobqueue.Job)}
}

func (s *memStore) Add(_ context.Context, job *jobqueue.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAdd {
		return errors.New("queue unavailable")
	}
	if job.Status == "" {
		job.Status = jobqueue.StatusScheduled
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = 3
	}
	clone := *job
	s.jobs[job.ID] = &clone
	return nil
}

func (s *memStore) List(_ context.Context, queue string) ([]*jobqueue.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*jobqueue.Job
	for _, job := range s.jobs {
		if job.Queue == queue && job.Status == jobqueue.StatusScheduled {
			clone := *job
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (s *memStore) Remove(_ context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, jobID)
	return nil
}

func (s *memStore) ClaimDue(_ context.Context, queue, workerID string, limit int) ([]*jobqueue.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	var claimed []*jobqueue.Job
	for _, job := range s.jobs {
		if len(claimed) >= limit {
			break
		}
		if job.Queue != queue || job.Status != jobqueue.StatusScheduled || job.RunAt.After(now) {
			continue
		}
		job.Status = jobqueue.StatusRunning
		job.LockedBy = workerID
		job.Attempt++
		clone := *job
		claimed = append(claimed, &clone)
	}
	return claimed, nil
}

func (s *memStore) Complete(_ context.Context, jobID, workerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok || job.LockedBy != workerID {
		return errors.New("job not owned by worker")
	}
	job.Status = jobqueue.StatusCompleted
	return nil
}

func (s *memStore) Fail(_ context.Context, jobID, workerID, errMsg string, retryAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok || job.LockedBy != workerID {
		return errors.New("job not owned by worker")
	}
	job.LastError = errMsg
	job.LockedBy = ""
	if retryAt != nil {
		job.Status = jobqueue.StatusScheduled
		job.RunAt = *retryAt
	} else {
		job.Status = jobqueue.StatusFailed
	}
	return nil
}

func (s *memStore) scheduled(queue string) []*jobqueue.Job {
	jobs, _ := s.List(context.Background(), queue)
	return jobs
}
