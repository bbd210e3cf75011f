package domain

import "time"

// Message is the immutable value type the heuristic engine classifies.
// Optional fields are explicit pointers rather than maybe-present map keys.
type Message struct {
	ID        string     `json:"id"`
	Subject   string     `json:"subject"`
	Snippet   string     `json:"snippet"`
	FromEmail string     `json:"from_email"`
	ToEmail   string     `json:"to_email"`
	ThreadID  string     `json:"thread_id"`
	Date      *time.Time `json:"date,omitempty"`
}

// CalendarEvent is the immutable value type for provider calendar entries
type CalendarEvent struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	StartsAt    *time.Time `json:"starts_at,omitempty"`
}
