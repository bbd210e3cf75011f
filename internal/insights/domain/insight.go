package domain

import (
	"time"

	"gorm.io/datatypes"
)

// InsightType enumerates the named derived metrics the aggregator produces
type InsightType string

const (
	InsightStrategicVsReactive InsightType = "strategic_vs_reactive"
	InsightDecisionVelocity    InsightType = "decision_velocity"
	InsightRelationshipHealth  InsightType = "relationship_health"
)

// IsValid reports whether the insight type is one of the known metrics
func (t InsightType) IsValid() bool {
	switch t {
	case InsightStrategicVsReactive, InsightDecisionVelocity, InsightRelationshipHealth:
		return true
	}
	return false
}

// InsightRecord is one computed metric for a user. Records are append-only:
// each computation inserts a new row and the newest row per (user, type) is
// authoritative.
type InsightRecord struct {
	ID          string         `json:"id" gorm:"primaryKey"`
	UserID      string         `json:"user_id" gorm:"index:idx_insight_user_type;not null"`
	InsightType InsightType    `json:"insight_type" gorm:"index:idx_insight_user_type;not null"`
	Value       datatypes.JSON `json:"value"`
	ComputedAt  time.Time      `json:"computed_at" gorm:"index"`
}

// TableName specifies the table name for GORM
func (InsightRecord) TableName() string {
	return "insight_records"
}
