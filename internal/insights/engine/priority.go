package engine

import "strings"

// Priority represents message priority level
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Urgency markers, checked before the medium markers so a message matching
// both is high.
var highPriorityMarkers = []string{
	"urgent",
	"asap",
	"action required",
	"immediate attention",
	"critical",
	"emergency",
	"deadline today",
}

var mediumPriorityMarkers = []string{
	"review",
	"please review",
	"when you get a chance",
	"feedback",
	"decision needed",
	"follow up",
}

// DetectPriority classifies a message by its subject and snippet using
// case-insensitive substring matching. High markers win over medium markers;
// a message matching neither is low.
func DetectPriority(subject, snippet string) Priority {
	text := strings.ToLower(subject + " " + snippet)

	for _, marker := range highPriorityMarkers {
		if strings.Contains(text, marker) {
			return PriorityHigh
		}
	}
	for _, marker := range mediumPriorityMarkers {
		if strings.Contains(text, marker) {
			return PriorityMedium
		}
	}
	return PriorityLow
}
