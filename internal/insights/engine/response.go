package engine

import (
	"time"

	"briefing-backend/internal/insights/domain"
)

// TimeToRespond returns the hours elapsed since the message was received,
// relative to now. A message without a date returns nil rather than zero,
// so callers can tell "no data" from "just arrived".
func TimeToRespond(msg domain.Message, now time.Time) *float64 {
	if msg.Date == nil {
		return nil
	}
	hours := now.Sub(*msg.Date).Hours()
	return &hours
}
