package repository

import (
	"time"

	"briefing-backend/internal/insights/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MessageCacheRepository defines the interface for cached provider messages
type MessageCacheRepository interface {
	// Upsert writes a message, overwriting any row with the same
	// (user_id, provider, message_id)
	Upsert(entry *domain.MessageCacheEntry) error
	// ListByUser returns the user's messages in chronological order
	ListByUser(userID string) ([]*domain.MessageCacheEntry, error)
	// ListByUserSince returns the user's messages received after the cutoff,
	// in chronological order
	ListByUserSince(userID string, since time.Time) ([]*domain.MessageCacheEntry, error)
	// CountByUser returns how many messages are cached for the user
	CountByUser(userID string) (int64, error)
}

// messageCacheRepository implements MessageCacheRepository using GORM
type messageCacheRepository struct {
	db *gorm.DB
}

// NewMessageCacheRepository creates a new instance of messageCacheRepository
func NewMessageCacheRepository(db *gorm.DB) MessageCacheRepository {
	return &messageCacheRepository{db: db}
}

// Upsert writes a message atomically: INSERT ... ON CONFLICT DO UPDATE on the
// (user_id, provider, message_id) unique index, so a re-fetch never duplicates
func (r *messageCacheRepository) Upsert(entry *domain.MessageCacheEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	now := time.Now()
	entry.CreatedAt = now
	entry.UpdatedAt = now

	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "provider"}, {Name: "message_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"raw_payload", "subject", "snippet", "from_email", "to_email",
			"thread_id", "has_attachments", "internal_date", "updated_at",
		}),
	}).Create(entry).Error
}

func (r *messageCacheRepository) ListByUser(userID string) ([]*domain.MessageCacheEntry, error) {
	var entries []*domain.MessageCacheEntry
	err := r.db.Where("user_id = ?", userID).
		Order("internal_date ASC NULLS LAST").
		Find(&entries).Error
	return entries, err
}

func (r *messageCacheRepository) ListByUserSince(userID string, since time.Time) ([]*domain.MessageCacheEntry, error) {
	var entries []*domain.MessageCacheEntry
	err := r.db.Where("user_id = ? AND internal_date >= ?", userID, since).
		Order("internal_date ASC").
		Find(&entries).Error
	return entries, err
}

func (r *messageCacheRepository) CountByUser(userID string) (int64, error) {
	var count int64
	err := r.db.Model(&domain.MessageCacheEntry{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}
