package domain

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// AnalyticsCacheEntry stores a computed, time-boxed analytics payload
type AnalyticsCacheEntry struct {
	CacheKey  string         `json:"cache_key" gorm:"primaryKey"`
	UserID    string         `json:"user_id" gorm:"index;not null"`
	Payload   datatypes.JSON `json:"payload"`
	ExpiresAt time.Time      `json:"expires_at" gorm:"index"`
	HitCount  int            `json:"hit_count" gorm:"default:0"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (AnalyticsCacheEntry) TableName() string {
	return "analytics_cache"
}

// IsExpired reports whether the payload must no longer be served
func (e *AnalyticsCacheEntry) IsExpired(now time.Time) bool {
	return !e.ExpiresAt.After(now)
}

// AnalyticsCacheKey derives the cache key for a user's analytics request.
// Both the worker and the fallback path write under the same key, so
// last-writer-wins is acceptable.
func AnalyticsCacheKey(userID string, daysBack int) string {
	return fmt.Sprintf("analytics:%s:%d", userID, daysBack)
}
