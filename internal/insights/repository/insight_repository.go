package repository

import (
	"time"

	"briefing-backend/internal/insights/domain"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// InsightRepository defines the interface for derived metric records.
// Records are append-only; each computation inserts a new row.
type InsightRepository interface {
	// Insert writes a new insight record for the user
	Insert(userID string, insightType domain.InsightType, value datatypes.JSON) (*domain.InsightRecord, error)
	// GetLatest returns the newest record for (user, type), or nil when none exists
	GetLatest(userID string, insightType domain.InsightType) (*domain.InsightRecord, error)
	// ListHistory returns records for (user, type) newest first
	ListHistory(userID string, insightType domain.InsightType, limit int) ([]*domain.InsightRecord, error)
}

// insightRepository implements InsightRepository using GORM
type insightRepository struct {
	db *gorm.DB
}

// NewInsightRepository creates a new instance of insightRepository
func NewInsightRepository(db *gorm.DB) InsightRepository {
	return &insightRepository{db: db}
}

func (r *insightRepository) Insert(userID string, insightType domain.InsightType, value datatypes.JSON) (*domain.InsightRecord, error) {
	record := &domain.InsightRecord{
		ID:          uuid.New().String(),
		UserID:      userID,
		InsightType: insightType,
		Value:       value,
		ComputedAt:  time.Now(),
	}
	if err := r.db.Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func (r *insightRepository) GetLatest(userID string, insightType domain.InsightType) (*domain.InsightRecord, error) {
	var record domain.InsightRecord
	err := r.db.Where("user_id = ? AND insight_type = ?", userID, insightType).
		Order("computed_at DESC").
		First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *insightRepository) ListHistory(userID string, insightType domain.InsightType, limit int) ([]*domain.InsightRecord, error) {
	var records []*domain.InsightRecord
	err := r.db.Where("user_id = ? AND insight_type = ?", userID, insightType).
		Order("computed_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}
