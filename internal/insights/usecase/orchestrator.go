package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"briefing-backend/internal/insights/domain"
	"briefing-backend/internal/insights/dto"
	"briefing-backend/internal/insights/repository"
	"briefing-backend/internal/telemetry"

	"gorm.io/datatypes"
)

var (
	// ErrJobFailed is returned when the backing job reached failed status.
	// The caller decides whether to retry.
	ErrJobFailed = errors.New("analytics job failed")
)

// Result sources reported to callers
const (
	SourceCache    = "cache"
	SourceJob      = "job"
	SourceFallback = "fallback"
)

// Orchestrator gives callers a single "get me current analytics" operation:
// cache first, then find-or-create a job, wait for it, and repair stuck jobs
// with a direct synchronous fetch.
type Orchestrator struct {
	jobRepo       repository.JobRepository
	analyticsRepo repository.AnalyticsCacheRepository
	analytics     *AnalyticsService
	notifier      *JobNotifier
	clock         Clock

	pollInterval time.Duration
	stuckAfter   time.Duration
	maxRetries   int
}

// NewOrchestrator creates a new Orchestrator
func NewOrchestrator(
	jobRepo repository.JobRepository,
	analyticsRepo repository.AnalyticsCacheRepository,
	analytics *AnalyticsService,
	notifier *JobNotifier,
	clock Clock,
	pollInterval, stuckAfter time.Duration,
	maxRetries int,
) *Orchestrator {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	if stuckAfter <= 0 {
		stuckAfter = 60 * time.Second
	}
	return &Orchestrator{
		jobRepo:       jobRepo,
		analyticsRepo: analyticsRepo,
		analytics:     analytics,
		notifier:      notifier,
		clock:         clock,
		pollInterval:  pollInterval,
		stuckAfter:    stuckAfter,
		maxRetries:    maxRetries,
	}
}

// GetAnalytics returns the user's analytics, creating or waiting on a job as
// needed. The stuck-job fallback guarantees a result within the threshold
// window even if the worker never responds.
func (o *Orchestrator) GetAnalytics(ctx context.Context, userID string, daysBack int) (*dto.AnalyticsResponse, error) {
	if daysBack <= 0 {
		daysBack = 30
	}

	// Fresh cache short-circuits all job work
	if payload, err := o.cachedPayload(userID, daysBack); err != nil {
		return nil, err
	} else if payload != nil {
		telemetry.AnalyticsCacheHits.Inc()
		return &dto.AnalyticsResponse{Source: SourceCache, Payload: payload}, nil
	}
	telemetry.AnalyticsCacheMisses.Inc()

	metadata, _ := json.Marshal(map[string]interface{}{"days_back": daysBack})
	job, reused, err := o.jobRepo.CreateOrReuse(userID, domain.JobTypeFullSync, metadata, o.maxRetries)
	if err != nil {
		return nil, fmt.Errorf("failed to create analytics job: %w", err)
	}
	if !reused {
		telemetry.JobsCreated.Inc()
		log.Printf("[Orchestrator] Created job %s for user %s", job.ID, userID)
	}

	return o.waitForJob(ctx, job, userID, daysBack)
}

// CreateJob exposes raw job creation for the jobs endpoint
func (o *Orchestrator) CreateJob(userID string, jobType domain.JobType, metadata map[string]interface{}) (*domain.Job, bool, error) {
	var raw datatypes.JSON
	if metadata != nil {
		encoded, err := json.Marshal(metadata)
		if err != nil {
			return nil, false, fmt.Errorf("failed to encode metadata: %w", err)
		}
		raw = encoded
	}
	job, reused, err := o.jobRepo.CreateOrReuse(userID, jobType, raw, o.maxRetries)
	if err != nil {
		return nil, false, err
	}
	if !reused {
		telemetry.JobsCreated.Inc()
	}
	return job, reused, nil
}

// GetJob returns a job owned by the user, or nil when not found
func (o *Orchestrator) GetJob(userID, jobID string) (*domain.Job, error) {
	job, err := o.jobRepo.FindByID(jobID)
	if err != nil {
		return nil, err
	}
	if job == nil || job.UserID != userID {
		return nil, nil
	}
	return job, nil
}

// ListRecentJobs returns the user's most recent jobs
func (o *Orchestrator) ListRecentJobs(userID string, limit int) ([]*domain.Job, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return o.jobRepo.ListRecent(userID, limit)
}

// waitForJob polls the job on the configured interval, waking early on
// notifier updates, until terminal status or the stuck threshold elapses
func (o *Orchestrator) waitForJob(ctx context.Context, job *domain.Job, userID string, daysBack int) (*dto.AnalyticsResponse, error) {
	// Stuck threshold is measured against job creation, not against when
	// this caller started waiting
	deadline := job.CreatedAt.Add(o.stuckAfter)

	updates := o.notifier.Subscribe(job.ID)
	defer o.notifier.Unsubscribe(job.ID, updates)

	for {
		current, err := o.jobRepo.FindByID(job.ID)
		if err != nil {
			// Transient read failures retry on the next tick
			log.Printf("[Orchestrator] Failed to poll job %s: %v", job.ID, err)
		} else if current != nil {
			switch current.Status {
			case domain.JobStatusCompleted:
				payload, err := o.cachedPayload(userID, daysBack)
				if err != nil {
					return nil, err
				}
				if payload != nil {
					return &dto.AnalyticsResponse{Source: SourceJob, JobID: current.ID, Payload: payload}, nil
				}
				// Completed but the cache row is gone (purged or expired):
				// compute directly rather than erroring
				return o.fallback(current.ID, userID, daysBack)
			case domain.JobStatusFailed:
				return nil, fmt.Errorf("%w: %s", ErrJobFailed, current.Error)
			}
		}

		if !o.clock.Now().Before(deadline) {
			log.Printf("[Orchestrator] Job %s stuck for over %s, falling back to direct fetch", job.ID, o.stuckAfter)
			telemetry.FallbackFetches.Inc()
			return o.fallback(job.ID, userID, daysBack)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-updates:
			// Re-check immediately
		case <-o.clock.After(o.pollInterval):
		}
	}
}

// fallback bypasses the job pipeline with a direct synchronous compute. The
// job is left running; a late completion just overwrites the cache.
func (o *Orchestrator) fallback(jobID, userID string, daysBack int) (*dto.AnalyticsResponse, error) {
	payload, err := o.analytics.ComputeAndCache(userID, daysBack, nil)
	if err != nil {
		return nil, fmt.Errorf("fallback fetch failed: %w", err)
	}
	return &dto.AnalyticsResponse{Source: SourceFallback, JobID: jobID, Payload: payload}, nil
}

// cachedPayload returns the cached, non-expired payload for the request, or
// nil when absent
func (o *Orchestrator) cachedPayload(userID string, daysBack int) (*dto.AnalyticsPayload, error) {
	entry, err := o.analyticsRepo.Get(domain.AnalyticsCacheKey(userID, daysBack))
	if err != nil {
		return nil, fmt.Errorf("failed to read analytics cache: %w", err)
	}
	if entry == nil {
		return nil, nil
	}

	var payload dto.AnalyticsPayload
	if err := json.Unmarshal(entry.Payload, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode cached payload: %w", err)
	}
	return &payload, nil
}
