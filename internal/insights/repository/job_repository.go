package repository

import (
	"errors"
	"fmt"
	"time"

	"briefing-backend/internal/insights/domain"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrInvalidTransition is returned when a patch would move a job's
	// status backward along the state machine
	ErrInvalidTransition = errors.New("invalid job status transition")
	// ErrInvalidPatch is returned when a patch violates a counter invariant
	ErrInvalidPatch = errors.New("invalid job patch")
	// ErrJobClaimed is returned when a CAS update lost against a concurrent writer
	ErrJobClaimed = errors.New("job was updated concurrently")
)

// JobRepository defines the interface for job lifecycle persistence
type JobRepository interface {
	// CreateOrReuse creates a pending job, or returns the user's existing
	// active (pending/processing) job of the same type instead of a duplicate
	CreateOrReuse(userID string, jobType domain.JobType, metadata datatypes.JSON, maxRetries int) (*domain.Job, bool, error)
	// FindByID finds a job by its ID
	FindByID(id string) (*domain.Job, error)
	// FindActive finds the user's active job of the given type, if any
	FindActive(userID string, jobType domain.JobType) (*domain.Job, error)
	// ListRecent returns the user's jobs ordered by creation time descending
	ListRecent(userID string, limit int) ([]*domain.Job, error)
	// Update applies a patch, enforcing forward-only status and counter invariants
	Update(id string, patch domain.JobPatch) (*domain.Job, error)
	// ClaimNextPending atomically moves the oldest pending job to processing.
	// Returns nil, nil when no pending job exists.
	ClaimNextPending() (*domain.Job, error)
}

// gormJobRepository implements JobRepository using GORM
type gormJobRepository struct {
	db *gorm.DB
}

// NewJobRepository creates a new GORM-based JobRepository
func NewJobRepository(db *gorm.DB) JobRepository {
	return &gormJobRepository{db: db}
}

// CreateOrReuse creates a pending job unless the user already has an active
// job of the same type. The existing rows are locked for the duration of the
// transaction so two concurrent requests cannot both insert.
func (r *gormJobRepository) CreateOrReuse(userID string, jobType domain.JobType, metadata datatypes.JSON, maxRetries int) (*domain.Job, bool, error) {
	if !jobType.IsValid() {
		return nil, false, fmt.Errorf("%w: unknown job type %q", ErrInvalidPatch, jobType)
	}

	var job *domain.Job
	reused := false

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var existing domain.Job
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND job_type = ? AND status IN ?",
				userID, jobType, []domain.JobStatus{domain.JobStatusPending, domain.JobStatusProcessing}).
			Order("created_at ASC").
			First(&existing).Error
		if err == nil {
			job = &existing
			reused = true
			return nil
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}

		created := &domain.Job{
			ID:         uuid.New().String(),
			UserID:     userID,
			JobType:    jobType,
			Status:     domain.JobStatusPending,
			Metadata:   metadata,
			MaxRetries: maxRetries,
			CreatedAt:  time.Now(),
		}
		if err := tx.Create(created).Error; err != nil {
			return err
		}
		job = created
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return job, reused, nil
}

func (r *gormJobRepository) FindByID(id string) (*domain.Job, error) {
	var job domain.Job
	err := r.db.Where("id = ?", id).First(&job).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

func (r *gormJobRepository) FindActive(userID string, jobType domain.JobType) (*domain.Job, error) {
	var job domain.Job
	err := r.db.Where("user_id = ? AND job_type = ? AND status IN ?",
		userID, jobType, []domain.JobStatus{domain.JobStatusPending, domain.JobStatusProcessing}).
		Order("created_at ASC").
		First(&job).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

func (r *gormJobRepository) ListRecent(userID string, limit int) ([]*domain.Job, error) {
	var jobs []*domain.Job
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}

// Update applies a patch with a compare-and-set on the current status, so a
// stale writer loses instead of regressing the state machine.
func (r *gormJobRepository) Update(id string, patch domain.JobPatch) (*domain.Job, error) {
	job, err := r.FindByID(id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, gorm.ErrRecordNotFound
	}

	updates, err := buildJobUpdates(job, patch)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return job, nil
	}

	res := r.db.Model(&domain.Job{}).
		Where("id = ? AND status = ?", id, job.Status).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrJobClaimed
	}
	return r.FindByID(id)
}

// ClaimNextPending moves the oldest pending job to processing with a CAS
// update, so at most one worker owns a job at a time.
func (r *gormJobRepository) ClaimNextPending() (*domain.Job, error) {
	var job domain.Job
	err := r.db.Where("status = ?", domain.JobStatusPending).
		Order("created_at ASC").
		First(&job).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}

	res := r.db.Model(&domain.Job{}).
		Where("id = ? AND status = ?", job.ID, domain.JobStatusPending).
		Update("status", domain.JobStatusProcessing)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Another worker claimed it first
		return nil, nil
	}
	job.Status = domain.JobStatusProcessing
	return &job, nil
}

// buildJobUpdates validates a patch against the job's invariants and returns
// the column map to apply
func buildJobUpdates(job *domain.Job, patch domain.JobPatch) (map[string]interface{}, error) {
	updates := map[string]interface{}{}

	if patch.Status != nil {
		if !job.Status.CanTransitionTo(*patch.Status) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, job.Status, *patch.Status)
		}
		if *patch.Status != job.Status {
			updates["status"] = *patch.Status
			if patch.Status.IsTerminal() {
				updates["completed_at"] = time.Now()
			}
		}
	}

	progress := job.Progress
	total := job.Total
	if patch.Total != nil {
		if *patch.Total < 0 {
			return nil, fmt.Errorf("%w: negative total", ErrInvalidPatch)
		}
		total = *patch.Total
		updates["total"] = total
	}
	if patch.Progress != nil {
		if *patch.Progress < job.Progress {
			return nil, fmt.Errorf("%w: progress may not decrease", ErrInvalidPatch)
		}
		progress = *patch.Progress
		updates["progress"] = progress
	}
	if progress > total {
		return nil, fmt.Errorf("%w: progress %d exceeds total %d", ErrInvalidPatch, progress, total)
	}

	if patch.RetryCount != nil {
		if *patch.RetryCount < 0 || *patch.RetryCount > job.MaxRetries {
			return nil, fmt.Errorf("%w: retry_count %d outside [0, %d]", ErrInvalidPatch, *patch.RetryCount, job.MaxRetries)
		}
		updates["retry_count"] = *patch.RetryCount
	}
	if patch.Metadata != nil {
		updates["metadata"] = patch.Metadata
	}
	if patch.Error != nil {
		updates["error"] = *patch.Error
	}
	return updates, nil
}
