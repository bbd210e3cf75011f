// Package worker claims pending analytics jobs and executes them: fetching
// provider data into the message cache, running the heuristic engine and
// aggregator, and advancing job status. At most one worker owns a job at a
// time; retries stay inside processing and never move status backward.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"briefing-backend/internal/insights/aggregator"
	"briefing-backend/internal/insights/domain"
	"briefing-backend/internal/insights/repository"
	"briefing-backend/internal/insights/usecase"
	"briefing-backend/internal/telemetry"
	"briefing-backend/pkg/provider"
)

// CompletionFunc is invoked after a job reaches completed status
type CompletionFunc func(userID string, job *domain.Job)

// Worker drives the job execution loop
type Worker struct {
	jobRepo     repository.JobRepository
	messageRepo repository.MessageCacheRepository
	analytics   *usecase.AnalyticsService
	aggregator  *aggregator.Aggregator
	notifier    *usecase.JobNotifier
	providers   []provider.Provider
	creds       provider.CredentialsStore
	onCompleted CompletionFunc

	interval time.Duration
	stopChan chan struct{}
}

// NewWorker creates a new Worker
func NewWorker(
	jobRepo repository.JobRepository,
	messageRepo repository.MessageCacheRepository,
	analytics *usecase.AnalyticsService,
	agg *aggregator.Aggregator,
	notifier *usecase.JobNotifier,
	providers []provider.Provider,
	creds provider.CredentialsStore,
	interval time.Duration,
) *Worker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Worker{
		jobRepo:     jobRepo,
		messageRepo: messageRepo,
		analytics:   analytics,
		aggregator:  agg,
		notifier:    notifier,
		providers:   providers,
		creds:       creds,
		interval:    interval,
		stopChan:    make(chan struct{}),
	}
}

// SetCompletionHook registers a callback fired when a job completes
func (w *Worker) SetCompletionHook(fn CompletionFunc) {
	w.onCompleted = fn
}

// Start begins the claim loop in a background goroutine
func (w *Worker) Start() {
	log.Printf("[Worker] Starting job worker (interval: %s)", w.interval)

	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				w.processNext(context.Background())
			case <-w.stopChan:
				log.Println("[Worker] Worker stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the worker loop
func (w *Worker) Stop() {
	close(w.stopChan)
}

// processNext claims and fully processes at most one pending job
func (w *Worker) processNext(ctx context.Context) {
	job, err := w.jobRepo.ClaimNextPending()
	if err != nil {
		log.Printf("[Worker] Failed to claim job: %v", err)
		return
	}
	if job == nil {
		return
	}

	telemetry.JobsInFlight.Inc()
	defer telemetry.JobsInFlight.Dec()
	w.notifier.Publish(usecase.JobUpdate{JobID: job.ID, Status: domain.JobStatusProcessing})
	log.Printf("[Worker] Processing job %s (%s) for user %s", job.ID, job.JobType, job.UserID)

	w.runWithRetries(ctx, job)
}

// runWithRetries executes the job handler, retrying in place until the retry
// budget is exhausted. Status only ever moves forward.
func (w *Worker) runWithRetries(ctx context.Context, job *domain.Job) {
	var lastErr error
	for attempt := job.RetryCount; ; attempt++ {
		current, err := w.jobRepo.FindByID(job.ID)
		if err != nil || current == nil {
			log.Printf("[Worker] Lost job %s mid-flight: %v", job.ID, err)
			return
		}

		lastErr = w.runJob(ctx, current)
		if lastErr == nil {
			w.complete(current)
			return
		}

		if attempt+1 > current.MaxRetries {
			break
		}
		telemetry.JobRetries.Inc()
		retries := attempt + 1
		if _, err := w.jobRepo.Update(job.ID, domain.JobPatch{RetryCount: &retries}); err != nil {
			log.Printf("[Worker] Failed to record retry for job %s: %v", job.ID, err)
			return
		}
		log.Printf("[Worker] Job %s attempt %d failed, retrying: %v", job.ID, retries, lastErr)
	}

	w.fail(job, lastErr)
}

// runJob dispatches on the job type. The switch is exhaustive over JobType.
func (w *Worker) runJob(ctx context.Context, job *domain.Job) error {
	switch job.JobType {
	case domain.JobTypeFetchMessages:
		return w.fetchMessages(ctx, job)
	case domain.JobTypeComputeAnalytics:
		return w.computeAnalytics(ctx, job)
	case domain.JobTypeFullSync:
		if err := w.setStep(job, "fetching_messages"); err != nil {
			return err
		}
		if err := w.fetchMessages(ctx, job); err != nil {
			return err
		}
		if err := w.setStep(job, "computing_analytics"); err != nil {
			return err
		}
		return w.computeAnalytics(ctx, job)
	case domain.JobTypeComputeInsights:
		return w.computeInsights(ctx, job)
	}
	return fmt.Errorf("unknown job type %q", job.JobType)
}

// fetchMessages pulls provider messages into the message cache
func (w *Worker) fetchMessages(ctx context.Context, job *domain.Job) error {
	creds, err := w.creds.GetCredentials(ctx, job.UserID)
	if err != nil {
		return fmt.Errorf("failed to resolve credentials: %w", err)
	}

	opts := provider.FetchOptions{DaysBack: daysBack(job.Metadata)}

	fetched := false
	written := 0
	var lastErr error

	for _, p := range w.providers {
		messages, err := p.FetchMessages(ctx, creds, opts)
		if err != nil {
			lastErr = fmt.Errorf("%s fetch failed: %w", p.Name(), err)
			log.Printf("[Worker] %v", lastErr)
			continue
		}
		fetched = true

		total := written + len(messages)
		if _, err := w.jobRepo.Update(job.ID, domain.JobPatch{Total: &total}); err != nil {
			return err
		}

		for _, msg := range messages {
			entry := &domain.MessageCacheEntry{
				UserID:         job.UserID,
				Provider:       p.Name(),
				MessageID:      msg.MessageID,
				RawPayload:     msg.RawPayload,
				Subject:        msg.Subject,
				Snippet:        msg.Snippet,
				FromEmail:      msg.FromEmail,
				ToEmail:        msg.ToEmail,
				ThreadID:       msg.ThreadID,
				HasAttachments: msg.HasAttachments,
				InternalDate:   msg.InternalDate,
			}
			if err := w.messageRepo.Upsert(entry); err != nil {
				return fmt.Errorf("failed to cache message %s: %w", msg.MessageID, err)
			}
			written++
			if written%25 == 0 {
				progress := written
				if _, err := w.jobRepo.Update(job.ID, domain.JobPatch{Progress: &progress}); err != nil {
					return err
				}
			}
		}
	}

	if !fetched {
		if lastErr != nil {
			return lastErr
		}
		return fmt.Errorf("no provider configured")
	}

	progress := written
	_, err = w.jobRepo.Update(job.ID, domain.JobPatch{Progress: &progress})
	return err
}

// computeAnalytics runs the engine over the cached window and writes the
// analytics cache entry. Calendar events are best effort.
func (w *Worker) computeAnalytics(ctx context.Context, job *domain.Job) error {
	var events []domain.CalendarEvent
	if creds, err := w.creds.GetCredentials(ctx, job.UserID); err == nil {
		opts := provider.FetchOptions{DaysBack: daysBack(job.Metadata)}
		for _, p := range w.providers {
			raw, err := p.FetchEvents(ctx, creds, opts)
			if err != nil {
				log.Printf("[Worker] %s events fetch failed (continuing without): %v", p.Name(), err)
				continue
			}
			for _, e := range raw {
				events = append(events, domain.CalendarEvent{
					ID:          e.EventID,
					Title:       e.Title,
					Description: e.Description,
					StartsAt:    e.StartsAt,
				})
			}
		}
	}

	_, err := w.analytics.ComputeAndCache(job.UserID, daysBack(job.Metadata), events)
	return err
}

// computeInsights runs the batch aggregations
func (w *Worker) computeInsights(ctx context.Context, job *domain.Job) error {
	userEmail := ""
	if creds, err := w.creds.GetCredentials(ctx, job.UserID); err == nil {
		userEmail = creds.Username
	}
	_, err := w.aggregator.ComputeAll(job.UserID, userEmail)
	return err
}

// complete moves the job to its terminal success state
func (w *Worker) complete(job *domain.Job) {
	status := domain.JobStatusCompleted
	updated, err := w.jobRepo.Update(job.ID, domain.JobPatch{Status: &status})
	if err != nil {
		log.Printf("[Worker] Failed to complete job %s: %v", job.ID, err)
		return
	}
	telemetry.JobsCompleted.Inc()
	w.notifier.Publish(usecase.JobUpdate{JobID: job.ID, Status: domain.JobStatusCompleted})
	log.Printf("[Worker] Completed job %s (%s)", job.ID, job.JobType)

	if w.onCompleted != nil {
		w.onCompleted(job.UserID, updated)
	}
}

// fail moves the job to its terminal failure state with the error recorded
func (w *Worker) fail(job *domain.Job, cause error) {
	status := domain.JobStatusFailed
	msg := cause.Error()
	if _, err := w.jobRepo.Update(job.ID, domain.JobPatch{Status: &status, Error: &msg}); err != nil {
		log.Printf("[Worker] Failed to mark job %s failed: %v", job.ID, err)
		return
	}
	telemetry.JobsFailed.Inc()
	w.notifier.Publish(usecase.JobUpdate{JobID: job.ID, Status: domain.JobStatusFailed})
	log.Printf("[Worker] Job %s failed after %d retries: %v", job.ID, job.MaxRetries, cause)
}

// setStep records metadata.current_step for progress visibility
func (w *Worker) setStep(job *domain.Job, step string) error {
	current, err := w.jobRepo.FindByID(job.ID)
	if err != nil || current == nil {
		return fmt.Errorf("failed to reload job %s: %w", job.ID, err)
	}

	meta := map[string]interface{}{}
	if len(current.Metadata) > 0 {
		_ = json.Unmarshal(current.Metadata, &meta)
	}
	meta["current_step"] = step
	encoded, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	_, err = w.jobRepo.Update(job.ID, domain.JobPatch{Metadata: encoded})
	return err
}

// daysBack reads metadata.days_back, defaulting to 30
func daysBack(metadata []byte) int {
	if len(metadata) == 0 {
		return 30
	}
	var meta struct {
		DaysBack int `json:"days_back"`
	}
	if err := json.Unmarshal(metadata, &meta); err != nil || meta.DaysBack <= 0 {
		return 30
	}
	return meta.DaysBack
}
