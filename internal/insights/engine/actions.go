package engine

import (
	"strings"

	"briefing-backend/internal/insights/domain"
)

// ActionSourceType tells which kind of record an action item came from
type ActionSourceType string

const (
	ActionSourceEmail   ActionSourceType = "email"
	ActionSourceMeeting ActionSourceType = "meeting"
)

// ActionSource points back at the record an action item was extracted from
type ActionSource struct {
	Type ActionSourceType `json:"type"`
	ID   string           `json:"id,omitempty"`
}

// ActionItem is one extracted open task
type ActionItem struct {
	Text   string       `json:"text"`
	Source ActionSource `json:"source"`
	Status string       `json:"status"`
}

// ActionItemStatusOpen is the status every freshly extracted item carries
const ActionItemStatusOpen = "open"

var actionMarkers = []string{
	"action required",
	"please review",
	"todo",
	"action:",
	"need you to",
	"can you",
	"waiting on you",
	"due by",
}

// Line prefixes scanned inside calendar event descriptions
var eventLineMarkers = []string{"todo:", "action:"}

// ContainsActionItems reports whether the subject or body matches the
// action-marker vocabulary. Case-insensitive, never errors.
func ContainsActionItems(subject, body string) bool {
	text := strings.ToLower(subject + " " + body)
	for _, marker := range actionMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

// ExtractActionItems collects open action items from a batch of emails and
// calendar events. Each matching email yields one item; each marker line in
// an event description yields one item. Empty input yields an empty slice.
func ExtractActionItems(emails []domain.Message, events []domain.CalendarEvent, excerptLen int) []ActionItem {
	if excerptLen <= 0 {
		excerptLen = DefaultConfig().ExcerptLength
	}

	items := []ActionItem{}

	for _, email := range emails {
		if !ContainsActionItems(email.Subject, email.Snippet) {
			continue
		}
		text := email.Subject
		if text == "" {
			text = email.Snippet
		}
		items = append(items, ActionItem{
			Text:   "Action from email: " + excerpt(text, excerptLen),
			Source: ActionSource{Type: ActionSourceEmail, ID: email.ID},
			Status: ActionItemStatusOpen,
		})
	}

	for _, event := range events {
		for _, line := range strings.Split(event.Description, "\n") {
			trimmed := strings.TrimSpace(line)
			lower := strings.ToLower(trimmed)
			for _, marker := range eventLineMarkers {
				if strings.HasPrefix(lower, marker) {
					items = append(items, ActionItem{
						Text:   strings.TrimSpace(trimmed[len(marker):]),
						Source: ActionSource{Type: ActionSourceMeeting, ID: event.ID},
						Status: ActionItemStatusOpen,
					})
					break
				}
			}
		}
	}

	return items
}

// excerpt truncates text to at most n runes
func excerpt(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
