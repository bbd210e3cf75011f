package domain

import (
	"time"

	"gorm.io/datatypes"
)

// JobType enumerates the kinds of asynchronous analytics work
type JobType string

const (
	JobTypeFetchMessages    JobType = "fetch_messages"
	JobTypeComputeAnalytics JobType = "compute_analytics"
	JobTypeFullSync         JobType = "full_sync"
	JobTypeComputeInsights  JobType = "compute_insights"
)

// IsValid reports whether the job type is one of the known kinds
func (t JobType) IsValid() bool {
	switch t {
	case JobTypeFetchMessages, JobTypeComputeAnalytics, JobTypeFullSync, JobTypeComputeInsights:
		return true
	}
	return false
}

// JobStatus represents the current lifecycle state of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether the status is a final state
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanTransitionTo reports whether moving from s to next respects the
// forward-only state machine pending -> processing -> {completed, failed}.
// Staying on the same non-terminal status is allowed (progress updates).
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	if s == next {
		return !s.IsTerminal()
	}
	switch s {
	case JobStatusPending:
		return next == JobStatusProcessing || next == JobStatusCompleted || next == JobStatusFailed
	case JobStatusProcessing:
		return next == JobStatusCompleted || next == JobStatusFailed
	}
	return false
}

// Job represents one unit of asynchronous analytics work and its lifecycle
type Job struct {
	ID          string         `json:"id" gorm:"primaryKey"`
	UserID      string         `json:"user_id" gorm:"index;not null"`
	JobType     JobType        `json:"job_type" gorm:"index;not null"`
	Status      JobStatus      `json:"status" gorm:"index;default:pending"`
	Progress    int            `json:"progress" gorm:"default:0"`
	Total       int            `json:"total" gorm:"default:0"`
	Metadata    datatypes.JSON `json:"metadata,omitempty"`
	RetryCount  int            `json:"retry_count" gorm:"default:0"`
	MaxRetries  int            `json:"max_retries" gorm:"default:3"`
	Error       string         `json:"error,omitempty" gorm:"type:text"`
	CreatedAt   time.Time      `json:"created_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// TableName specifies the table name for GORM
func (Job) TableName() string {
	return "insight_jobs"
}

// IsActive reports whether the job still occupies the user's work slot
func (j *Job) IsActive() bool {
	return !j.Status.IsTerminal()
}

// JobPatch describes the fields the worker may change on a job.
// Nil fields are left untouched.
type JobPatch struct {
	Status     *JobStatus
	Progress   *int
	Total      *int
	Metadata   datatypes.JSON
	RetryCount *int
	Error      *string
}
