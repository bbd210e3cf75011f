// Package engine contains the heuristic classifiers that turn raw messages
// into priority, sentiment, topic and action-item signals. Every function is
// pure and total: identical input yields identical output, and malformed
// input degrades to a safe default instead of an error.
package engine

// Config carries the tunable heuristic constants. The thresholds have no
// derivation beyond observed behavior, so they stay configurable.
type Config struct {
	// SentimentPositiveThreshold is the score above which text is labeled positive
	SentimentPositiveThreshold float64
	// SentimentNegativeThreshold is the score below which text is labeled negative
	SentimentNegativeThreshold float64
	// TopicLimit caps how many topics ExtractTopics returns
	TopicLimit int
	// ExcerptLength caps the text carried into an extracted action item
	ExcerptLength int
}

// DefaultConfig returns the reference constants
func DefaultConfig() Config {
	return Config{
		SentimentPositiveThreshold: 0.2,
		SentimentNegativeThreshold: -0.2,
		TopicLimit:                 5,
		ExcerptLength:              80,
	}
}
