package jobqueue

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore implements Store on a GORM-managed jobs table.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates the jobs table.
func (s *GormStore) Migrate() error {
	return s.db.AutoMigrate(&Job{})
}

// Add inserts the job, or replaces an existing job with the same ID.
// Atomic upsert: INSERT ... ON CONFLICT (id) DO UPDATE.
func (s *GormStore) Add(ctx context.Context, job *Job) error {
	if job.Status == "" {
		job.Status = StatusScheduled
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = 3
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"queue", "payload", "run_at", "status", "attempt", "last_error",
			"locked_by", "locked_until", "updated_at",
		}),
	}).Create(job).Error
}

func (s *GormStore) List(ctx context.Context, queue string) ([]*Job, error) {
	var jobs []*Job
	err := s.db.WithContext(ctx).
		Where("queue = ?", queue).
		Where("status = ?", StatusScheduled).
		Order("run_at ASC").
		Find(&jobs).Error
	return jobs, err
}

func (s *GormStore) Remove(ctx context.Context, jobID string) error {
	return s.db.WithContext(ctx).Delete(&Job{}, "id = ?", jobID).Error
}

// ClaimDue fetches and locks due jobs inside a transaction so concurrent
// workers never claim the same job twice.
func (s *GormStore) ClaimDue(ctx context.Context, queue, workerID string, limit int) ([]*Job, error) {
	var claimed []*Job
	now := time.Now()
	lockUntil := now.Add(5 * time.Minute)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var jobs []*Job
		result := tx.
			Where("queue = ?", queue).
			Where("status = ?", StatusScheduled).
			Where("run_at <= ?", now).
			Where("(locked_until IS NULL OR locked_until < ?)", now).
			Order("run_at ASC").
			Limit(limit).
			Find(&jobs)
		if result.Error != nil {
			return result.Error
		}

		for _, job := range jobs {
			job.Status = StatusRunning
			job.LockedBy = workerID
			job.LockedUntil = &lockUntil
			job.Attempt++
			if err := tx.Save(job).Error; err != nil {
				return err
			}
			claimed = append(claimed, job)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// Complete marks a job as successfully processed.
// Validates that the worker owns the job.
func (s *GormStore) Complete(ctx context.Context, jobID, workerID string) error {
	result := s.db.WithContext(ctx).
		Model(&Job{}).
		Where("id = ? AND locked_by = ?", jobID, workerID).
		Updates(map[string]any{
			"status":       StatusCompleted,
			"locked_by":    "",
			"locked_until": nil,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("job not owned by worker")
	}
	return nil
}

// Fail records a failure. With retryAt the job is rescheduled, otherwise it
// is marked failed permanently.
func (s *GormStore) Fail(ctx context.Context, jobID, workerID, errMsg string, retryAt *time.Time) error {
	updates := map[string]any{
		"last_error":   errMsg,
		"locked_by":    "",
		"locked_until": nil,
	}
	if retryAt != nil {
		updates["status"] = StatusScheduled
		updates["run_at"] = *retryAt
	} else {
		updates["status"] = StatusFailed
	}

	result := s.db.WithContext(ctx).
		Model(&Job{}).
		Where("id = ? AND locked_by = ?", jobID, workerID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("job not owned by worker")
	}
	return nil
}
