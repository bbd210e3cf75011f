package repository

import (
	"time"

	"briefing-backend/internal/insights/domain"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AnalyticsCacheRepository defines the interface for computed analytics payloads
type AnalyticsCacheRepository interface {
	// Get returns the entry for the key if it has not expired, incrementing
	// its hit counter. Expired or missing entries return nil, nil.
	Get(cacheKey string) (*domain.AnalyticsCacheEntry, error)
	// Save writes a payload under the key with the given time-to-live.
	// Last writer wins: the worker and the fallback path share keys.
	Save(cacheKey, userID string, payload datatypes.JSON, ttl time.Duration) error
	// PurgeExpired deletes entries whose expiry has passed
	PurgeExpired(now time.Time) (int64, error)
}

// analyticsCacheRepository implements AnalyticsCacheRepository using GORM
type analyticsCacheRepository struct {
	db *gorm.DB
}

// NewAnalyticsCacheRepository creates a new instance of analyticsCacheRepository
func NewAnalyticsCacheRepository(db *gorm.DB) AnalyticsCacheRepository {
	return &analyticsCacheRepository{db: db}
}

// Get returns a non-expired entry and bumps hit_count atomically in the
// database rather than read-modify-write
func (r *analyticsCacheRepository) Get(cacheKey string) (*domain.AnalyticsCacheEntry, error) {
	var entry domain.AnalyticsCacheEntry
	err := r.db.Where("cache_key = ? AND expires_at > ?", cacheKey, time.Now()).
		First(&entry).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}

	if err := r.db.Model(&domain.AnalyticsCacheEntry{}).
		Where("cache_key = ?", cacheKey).
		UpdateColumn("hit_count", gorm.Expr("hit_count + 1")).Error; err != nil {
		return nil, err
	}
	entry.HitCount++
	return &entry, nil
}

func (r *analyticsCacheRepository) Save(cacheKey, userID string, payload datatypes.JSON, ttl time.Duration) error {
	now := time.Now()
	entry := &domain.AnalyticsCacheEntry{
		CacheKey:  cacheKey,
		UserID:    userID,
		Payload:   payload,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}

	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "cache_key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"user_id", "payload", "expires_at", "updated_at",
		}),
	}).Create(entry).Error
}

func (r *analyticsCacheRepository) PurgeExpired(now time.Time) (int64, error) {
	res := r.db.Where("expires_at <= ?", now).Delete(&domain.AnalyticsCacheEntry{})
	return res.RowsAffected, res.Error
}
