package usecase

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"briefing-backend/internal/insights/domain"
	"briefing-backend/internal/insights/dto"
	"briefing-backend/internal/insights/engine"
	"briefing-backend/internal/insights/repository"
)

// AnalyticsService is the synchronous analytics path. The worker runs it at
// the end of a job; the orchestrator runs it directly when a job is stuck.
type AnalyticsService struct {
	messageRepo   repository.MessageCacheRepository
	analyticsRepo repository.AnalyticsCacheRepository
	engineCfg     engine.Config
	cacheTTL      time.Duration
}

// NewAnalyticsService creates a new AnalyticsService
func NewAnalyticsService(
	messageRepo repository.MessageCacheRepository,
	analyticsRepo repository.AnalyticsCacheRepository,
	engineCfg engine.Config,
	cacheTTL time.Duration,
) *AnalyticsService {
	return &AnalyticsService{
		messageRepo:   messageRepo,
		analyticsRepo: analyticsRepo,
		engineCfg:     engineCfg,
		cacheTTL:      cacheTTL,
	}
}

// Compute builds the analytics payload from the user's cached messages in the
// window, plus any calendar events the caller has on hand
func (s *AnalyticsService) Compute(userID string, daysBack int, events []domain.CalendarEvent) (*dto.AnalyticsPayload, error) {
	if daysBack <= 0 {
		daysBack = 30
	}
	since := time.Now().AddDate(0, 0, -daysBack)

	entries, err := s.messageRepo.ListByUserSince(userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load cached messages: %w", err)
	}

	messages := make([]domain.Message, 0, len(entries))
	for _, e := range entries {
		messages = append(messages, e.AsMessage())
	}

	payload := &dto.AnalyticsPayload{
		TotalMessages:  len(messages),
		DaysBack:       daysBack,
		PriorityCounts: map[string]int{},
		ActionItems:    engine.ExtractActionItems(messages, events, s.engineCfg.ExcerptLength),
	}

	var textParts []string
	var responseTotal float64
	responseSamples := 0
	now := time.Now()

	for _, msg := range messages {
		priority := engine.DetectPriority(msg.Subject, msg.Snippet)
		payload.PriorityCounts[string(priority)]++

		textParts = append(textParts, msg.Subject, msg.Snippet)

		if hours := engine.TimeToRespond(msg, now); hours != nil {
			responseTotal += *hours
			responseSamples++
		}
	}

	text := strings.Join(textParts, " ")
	payload.Topics = engine.ExtractTopics(text, s.engineCfg.TopicLimit)
	payload.Sentiment = engine.AnalyzeSentiment(text, s.engineCfg)

	if responseSamples > 0 {
		avg := responseTotal / float64(responseSamples)
		payload.AvgResponseHours = &avg
	}

	return payload, nil
}

// ComputeAndCache computes the payload and writes it to the analytics cache
// under the user's key. Both the worker and the stuck-job fallback write
// through here; last writer wins.
func (s *AnalyticsService) ComputeAndCache(userID string, daysBack int, events []domain.CalendarEvent) (*dto.AnalyticsPayload, error) {
	payload, err := s.Compute(userID, daysBack, events)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal analytics payload: %w", err)
	}

	key := domain.AnalyticsCacheKey(userID, payload.DaysBack)
	if err := s.analyticsRepo.Save(key, userID, raw, s.cacheTTL); err != nil {
		return nil, fmt.Errorf("failed to cache analytics payload: %w", err)
	}

	log.Printf("[Analytics] Computed analytics for user %s (%d messages, %d action items)",
		userID, payload.TotalMessages, len(payload.ActionItems))
	return payload, nil
}
