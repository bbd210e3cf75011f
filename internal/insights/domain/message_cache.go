package domain

import "time"

// MessageCacheEntry stores a normalized copy of one provider message.
// Re-fetching the same message upserts the existing row, so (user_id,
// provider, message_id) is unique.
type MessageCacheEntry struct {
	ID             string     `json:"id" gorm:"primaryKey"`
	UserID         string     `json:"user_id" gorm:"index:idx_msg_cache;uniqueIndex:idx_msg_cache_unique;not null"`
	Provider       string     `json:"provider" gorm:"uniqueIndex:idx_msg_cache_unique;not null"`
	MessageID      string     `json:"message_id" gorm:"uniqueIndex:idx_msg_cache_unique;not null"`
	RawPayload     string     `json:"raw_payload,omitempty" gorm:"type:text"`
	Subject        string     `json:"subject"`
	Snippet        string     `json:"snippet" gorm:"type:text"`
	FromEmail      string     `json:"from_email" gorm:"index"`
	ToEmail        string     `json:"to_email"`
	ThreadID       string     `json:"thread_id" gorm:"index"`
	HasAttachments bool       `json:"has_attachments" gorm:"default:false"`
	InternalDate   *time.Time `json:"internal_date,omitempty" gorm:"index"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (MessageCacheEntry) TableName() string {
	return "message_cache"
}

// AsMessage converts a cache row into the immutable value the heuristic
// engine and aggregator operate on.
func (e *MessageCacheEntry) AsMessage() Message {
	return Message{
		ID:        e.MessageID,
		Subject:   e.Subject,
		Snippet:   e.Snippet,
		FromEmail: e.FromEmail,
		ToEmail:   e.ToEmail,
		ThreadID:  e.ThreadID,
		Date:      e.InternalDate,
	}
}
