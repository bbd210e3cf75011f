package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"briefing-backend/internal/insights/domain"
	"briefing-backend/internal/insights/engine"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

// fakeJobRepo keeps jobs in memory. The onFind hook runs against the stored
// job before every FindByID, so tests can script lifecycle progress.
type fakeJobRepo struct {
	mu        sync.Mutex
	jobs      map[string]*domain.Job
	nextID    int
	createdAt time.Time
	onFind    func(job *domain.Job)
}

func newFakeJobRepo(createdAt time.Time) *fakeJobRepo {
	return &fakeJobRepo{jobs: map[string]*domain.Job{}, createdAt: createdAt}
}

func (f *fakeJobRepo) CreateOrReuse(userID string, jobType domain.JobType, metadata datatypes.JSON, maxRetries int) (*domain.Job, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, job := range f.jobs {
		if job.UserID == userID && job.JobType == jobType && job.IsActive() {
			out := *job
			return &out, true, nil
		}
	}

	f.nextID++
	job := &domain.Job{
		ID:         fmt.Sprintf("job-%d", f.nextID),
		UserID:     userID,
		JobType:    jobType,
		Status:     domain.JobStatusPending,
		Metadata:   metadata,
		MaxRetries: maxRetries,
		CreatedAt:  f.createdAt,
	}
	f.jobs[job.ID] = job
	out := *job
	return &out, false, nil
}

func (f *fakeJobRepo) FindByID(id string) (*domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	job, ok := f.jobs[id]
	if !ok {
		return nil, nil
	}
	if f.onFind != nil {
		f.onFind(job)
	}
	out := *job
	return &out, nil
}

func (f *fakeJobRepo) FindActive(userID string, jobType domain.JobType) (*domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, job := range f.jobs {
		if job.UserID == userID && job.JobType == jobType && job.IsActive() {
			out := *job
			return &out, nil
		}
	}
	return nil, nil
}

func (f *fakeJobRepo) ListRecent(userID string, limit int) ([]*domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var jobs []*domain.Job
	for _, job := range f.jobs {
		if job.UserID == userID && len(jobs) < limit {
			out := *job
			jobs = append(jobs, &out)
		}
	}
	return jobs, nil
}

func (f *fakeJobRepo) Update(id string, patch domain.JobPatch) (*domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	job := f.jobs[id]
	if patch.Status != nil {
		job.Status = *patch.Status
		if patch.Status.IsTerminal() {
			now := time.Now()
			job.CompletedAt = &now
		}
	}
	if patch.Progress != nil {
		job.Progress = *patch.Progress
	}
	if patch.Total != nil {
		job.Total = *patch.Total
	}
	if patch.RetryCount != nil {
		job.RetryCount = *patch.RetryCount
	}
	if patch.Metadata != nil {
		job.Metadata = patch.Metadata
	}
	if patch.Error != nil {
		job.Error = *patch.Error
	}
	out := *job
	return &out, nil
}

func (f *fakeJobRepo) ClaimNextPending() (*domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, job := range f.jobs {
		if job.Status == domain.JobStatusPending {
			job.Status = domain.JobStatusProcessing
			out := *job
			return &out, nil
		}
	}
	return nil, nil
}

type fakeAnalyticsRepo struct {
	mu      sync.Mutex
	entries map[string]*domain.AnalyticsCacheEntry
}

func newFakeAnalyticsRepo() *fakeAnalyticsRepo {
	return &fakeAnalyticsRepo{entries: map[string]*domain.AnalyticsCacheEntry{}}
}

func (f *fakeAnalyticsRepo) Get(cacheKey string) (*domain.AnalyticsCacheEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entry, ok := f.entries[cacheKey]
	if !ok || entry.IsExpired(time.Now()) {
		return nil, nil
	}
	entry.HitCount++
	out := *entry
	return &out, nil
}

func (f *fakeAnalyticsRepo) Save(cacheKey, userID string, payload datatypes.JSON, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.entries[cacheKey] = &domain.AnalyticsCacheEntry{
		CacheKey:  cacheKey,
		UserID:    userID,
		Payload:   payload,
		ExpiresAt: time.Now().Add(ttl),
	}
	return nil
}

func (f *fakeAnalyticsRepo) PurgeExpired(now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var purged int64
	for key, entry := range f.entries {
		if entry.IsExpired(now) {
			delete(f.entries, key)
			purged++
		}
	}
	return purged, nil
}

func (f *fakeAnalyticsRepo) seed(t *testing.T, userID string, daysBack int, payload *seedPayload) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, f.Save(domain.AnalyticsCacheKey(userID, daysBack), userID, raw, time.Hour))
}

// seedPayload is the minimal payload shape the seed helper stores
type seedPayload = struct {
	TotalMessages int `json:"total_messages"`
	DaysBack      int `json:"days_back"`
}

type fakeMessageRepo struct {
	entries []*domain.MessageCacheEntry
}

func (f *fakeMessageRepo) Upsert(entry *domain.MessageCacheEntry) error {
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeMessageRepo) ListByUser(userID string) ([]*domain.MessageCacheEntry, error) {
	return f.entries, nil
}

func (f *fakeMessageRepo) ListByUserSince(userID string, since time.Time) ([]*domain.MessageCacheEntry, error) {
	return f.entries, nil
}

func (f *fakeMessageRepo) CountByUser(userID string) (int64, error) {
	return int64(len(f.entries)), nil
}

// fakeClock returns a fixed now; After hands out the test-controlled channel
// (nil blocks forever)
type fakeClock struct {
	now   time.Time
	after chan time.Time
}

func (c *fakeClock) Now() time.Time                         { return c.now }
func (c *fakeClock) After(d time.Duration) <-chan time.Time { return c.after }

type orchestratorFixture struct {
	jobRepo       *fakeJobRepo
	analyticsRepo *fakeAnalyticsRepo
	messageRepo   *fakeMessageRepo
	notifier      *JobNotifier
	clock         *fakeClock
	orchestrator  *Orchestrator
}

func newOrchestratorFixture(createdAt time.Time) *orchestratorFixture {
	jobRepo := newFakeJobRepo(createdAt)
	analyticsRepo := newFakeAnalyticsRepo()
	messageRepo := &fakeMessageRepo{}
	notifier := NewJobNotifier()
	clock := &fakeClock{now: createdAt}

	analytics := NewAnalyticsService(messageRepo, analyticsRepo, engine.DefaultConfig(), time.Hour)
	orchestrator := NewOrchestrator(jobRepo, analyticsRepo, analytics, notifier, clock, 5*time.Second, 60*time.Second, 3)

	return &orchestratorFixture{
		jobRepo:       jobRepo,
		analyticsRepo: analyticsRepo,
		messageRepo:   messageRepo,
		notifier:      notifier,
		clock:         clock,
		orchestrator:  orchestrator,
	}
}

var fixtureBase = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func TestGetAnalyticsCacheHit(t *testing.T) {
	fx := newOrchestratorFixture(fixtureBase)
	fx.analyticsRepo.seed(t, "u1", 30, &seedPayload{TotalMessages: 7, DaysBack: 30})

	resp, err := fx.orchestrator.GetAnalytics(context.Background(), "u1", 30)

	require.NoError(t, err)
	assert.Equal(t, SourceCache, resp.Source)
	assert.Equal(t, 7, resp.Payload.TotalMessages)
	assert.Empty(t, fx.jobRepo.jobs, "a cache hit must not create a job")
}

func TestGetAnalyticsJobCompletes(t *testing.T) {
	fx := newOrchestratorFixture(fixtureBase)
	fx.jobRepo.onFind = func(job *domain.Job) {
		job.Status = domain.JobStatusCompleted
		fx.analyticsRepo.seed(t, "u1", 30, &seedPayload{TotalMessages: 4, DaysBack: 30})
	}

	resp, err := fx.orchestrator.GetAnalytics(context.Background(), "u1", 30)

	require.NoError(t, err)
	assert.Equal(t, SourceJob, resp.Source)
	assert.Equal(t, "job-1", resp.JobID)
	assert.Equal(t, 4, resp.Payload.TotalMessages)
}

func TestGetAnalyticsJobFails(t *testing.T) {
	fx := newOrchestratorFixture(fixtureBase)
	fx.jobRepo.onFind = func(job *domain.Job) {
		job.Status = domain.JobStatusFailed
		job.Error = "provider timeout"
	}

	_, err := fx.orchestrator.GetAnalytics(context.Background(), "u1", 30)

	require.ErrorIs(t, err, ErrJobFailed)
	assert.Contains(t, err.Error(), "provider timeout")
}

func TestGetAnalyticsStuckJobFallsBack(t *testing.T) {
	fx := newOrchestratorFixture(fixtureBase)
	// Job was created a while ago and never progressed
	fx.clock.now = fixtureBase.Add(2 * time.Minute)
	date := fixtureBase.Add(-time.Hour)
	fx.messageRepo.entries = []*domain.MessageCacheEntry{
		{ID: "m1", UserID: "u1", Provider: "gmail", MessageID: "m1", Subject: "Status", InternalDate: &date},
	}

	resp, err := fx.orchestrator.GetAnalytics(context.Background(), "u1", 30)

	require.NoError(t, err)
	assert.Equal(t, SourceFallback, resp.Source)
	assert.Equal(t, 1, resp.Payload.TotalMessages)

	// The fallback wrote through the cache, so the next call hits it
	resp, err = fx.orchestrator.GetAnalytics(context.Background(), "u1", 30)
	require.NoError(t, err)
	assert.Equal(t, SourceCache, resp.Source)
}

func TestGetAnalyticsCompletedJobMissingCacheFallsBack(t *testing.T) {
	fx := newOrchestratorFixture(fixtureBase)
	fx.jobRepo.onFind = func(job *domain.Job) {
		job.Status = domain.JobStatusCompleted
	}

	resp, err := fx.orchestrator.GetAnalytics(context.Background(), "u1", 30)

	require.NoError(t, err)
	assert.Equal(t, SourceFallback, resp.Source)
}

func TestGetAnalyticsWakesOnNotifierUpdate(t *testing.T) {
	fx := newOrchestratorFixture(fixtureBase)

	calls := 0
	fx.jobRepo.onFind = func(job *domain.Job) {
		calls++
		switch calls {
		case 1:
			// Still pending; the published update wakes the waiter without
			// burning the poll interval (After blocks forever here)
			fx.notifier.Publish(JobUpdate{JobID: job.ID, Status: domain.JobStatusProcessing})
		default:
			job.Status = domain.JobStatusCompleted
			fx.analyticsRepo.seed(t, "u1", 30, &seedPayload{TotalMessages: 2, DaysBack: 30})
		}
	}

	resp, err := fx.orchestrator.GetAnalytics(context.Background(), "u1", 30)

	require.NoError(t, err)
	assert.Equal(t, SourceJob, resp.Source)
	assert.Equal(t, 2, calls)
}

func TestGetAnalyticsContextCanceled(t *testing.T) {
	fx := newOrchestratorFixture(fixtureBase)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fx.orchestrator.GetAnalytics(ctx, "u1", 30)

	require.ErrorIs(t, err, context.Canceled)
}

func TestCreateJobReusesActive(t *testing.T) {
	fx := newOrchestratorFixture(fixtureBase)

	first, reused, err := fx.orchestrator.CreateJob("u1", domain.JobTypeFullSync, map[string]interface{}{"days_back": 30})
	require.NoError(t, err)
	assert.False(t, reused)

	second, reused, err := fx.orchestrator.CreateJob("u1", domain.JobTypeFullSync, nil)
	require.NoError(t, err)
	assert.True(t, reused)
	assert.Equal(t, first.ID, second.ID)

	// A different type gets its own job
	third, reused, err := fx.orchestrator.CreateJob("u1", domain.JobTypeComputeInsights, nil)
	require.NoError(t, err)
	assert.False(t, reused)
	assert.NotEqual(t, first.ID, third.ID)
}

func TestGetJobEnforcesOwnership(t *testing.T) {
	fx := newOrchestratorFixture(fixtureBase)
	job, _, err := fx.orchestrator.CreateJob("u1", domain.JobTypeFullSync, nil)
	require.NoError(t, err)

	found, err := fx.orchestrator.GetJob("u1", job.ID)
	require.NoError(t, err)
	require.NotNil(t, found)

	other, err := fx.orchestrator.GetJob("u2", job.ID)
	require.NoError(t, err)
	assert.Nil(t, other)
}
