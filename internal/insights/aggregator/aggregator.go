// Package aggregator computes a user's named derived metrics from their full
// message history. Each computation appends one InsightRecord; below its
// minimum data volume it skips instead of writing a misleading zero.
package aggregator

import (
	"encoding/json"
	"fmt"
	"log"

	"briefing-backend/internal/insights/domain"
	"briefing-backend/internal/insights/repository"
)

// Config carries the tunable aggregation constants
type Config struct {
	// MinMessages is the minimum history size for the strategic ratio
	MinMessages int
	// MaxResponseGapHours excludes thread gaps longer than this from velocity
	MaxResponseGapHours float64
	// VelocityScalePerDay is how many velocity points one day of average
	// response time costs
	VelocityScalePerDay float64
	// TopCounterparts is how many counterparts the health score averages over
	TopCounterparts int
}

// DefaultConfig returns the reference constants
func DefaultConfig() Config {
	return Config{
		MinMessages:         2,
		MaxResponseGapHours: 168,
		VelocityScalePerDay: 10,
		TopCounterparts:     10,
	}
}

// Subjects containing any of these mark a message as strategic
var strategicKeywords = []string{"plan", "strategy", "proposal", "roadmap", "vision"}

// Aggregator runs the batch insight computations
type Aggregator struct {
	messageRepo repository.MessageCacheRepository
	insightRepo repository.InsightRepository
	cfg         Config
}

// NewAggregator creates a new Aggregator
func NewAggregator(messageRepo repository.MessageCacheRepository, insightRepo repository.InsightRepository, cfg Config) *Aggregator {
	return &Aggregator{
		messageRepo: messageRepo,
		insightRepo: insightRepo,
		cfg:         cfg,
	}
}

// StrategicVsReactiveValue is the payload of a strategic_vs_reactive record
type StrategicVsReactiveValue struct {
	StrategicSeconds float64 `json:"strategic_seconds"`
	ReactiveSeconds  float64 `json:"reactive_seconds"`
	Ratio            float64 `json:"ratio"`
	MessageCount     int     `json:"message_count"`
}

// DecisionVelocityValue is the payload of a decision_velocity record
type DecisionVelocityValue struct {
	AvgResponseHours float64 `json:"avg_response_hours"`
	VelocityScore    float64 `json:"velocity_score"`
	SampleCount      int     `json:"sample_count"`
}

// RelationshipHealthValue is the payload of a relationship_health record
type RelationshipHealthValue struct {
	HealthScore      float64 `json:"health_score"`
	CounterpartCount int     `json:"counterpart_count"`
}

// ComputeAll runs every computation for the user and returns how many
// insight records were written
func (a *Aggregator) ComputeAll(userID, userEmail string) (int, error) {
	entries, err := a.messageRepo.ListByUser(userID)
	if err != nil {
		return 0, fmt.Errorf("failed to load message history: %w", err)
	}

	messages := make([]domain.Message, 0, len(entries))
	for _, e := range entries {
		messages = append(messages, e.AsMessage())
	}

	written := 0
	if v, ok := strategicVsReactive(messages, a.cfg); ok {
		if err := a.insert(userID, domain.InsightStrategicVsReactive, v); err != nil {
			return written, err
		}
		written++
	}
	if v, ok := decisionVelocity(messages, a.cfg); ok {
		if err := a.insert(userID, domain.InsightDecisionVelocity, v); err != nil {
			return written, err
		}
		written++
	}
	if v, ok := relationshipHealth(messages, userEmail, a.cfg); ok {
		if err := a.insert(userID, domain.InsightRelationshipHealth, v); err != nil {
			return written, err
		}
		written++
	}

	log.Printf("[Aggregator] Wrote %d insight records for user %s (%d messages)", written, userID, len(messages))
	return written, nil
}

func (a *Aggregator) insert(userID string, insightType domain.InsightType, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s value: %w", insightType, err)
	}
	if _, err := a.insightRepo.Insert(userID, insightType, raw); err != nil {
		return fmt.Errorf("failed to insert %s record: %w", insightType, err)
	}
	return nil
}
