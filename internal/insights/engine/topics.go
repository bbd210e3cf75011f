package engine

import (
	"sort"
	"strings"
	"unicode"
)

// Topic is one extracted term or phrase with its frequency
type Topic struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// Common function words stripped before counting
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "but": true, "by": true, "for": true, "from": true, "has": true,
	"have": true, "he": true, "her": true, "his": true, "i": true, "if": true,
	"in": true, "is": true, "it": true, "its": true, "me": true, "my": true,
	"not": true, "of": true, "on": true, "or": true, "our": true, "she": true,
	"so": true, "that": true, "the": true, "their": true, "them": true,
	"there": true, "they": true, "this": true, "to": true, "us": true,
	"was": true, "we": true, "were": true, "will": true, "with": true,
	"you": true, "your": true, "about": true, "into": true, "just": true,
	"can": true, "do": true, "does": true, "what": true, "when": true,
	"where": true, "which": true, "who": true, "how": true, "all": true,
	"no": true, "yes": true, "out": true, "up": true, "down": true,
	"am": true, "been": true, "being": true, "than": true, "then": true,
	"also": true, "very": true, "more": true, "most": true, "some": true,
	"any": true, "would": true, "should": true, "could": true, "here": true,
	"re": true, "fwd": true, "fw": true,
}

// ExtractTopics returns the most frequent significant tokens and adjacent
// bigrams in the text, ordered by descending frequency. Ties keep first-seen
// order so the result is deterministic. Empty input yields an empty slice.
func ExtractTopics(text string, limit int) []Topic {
	if limit <= 0 {
		limit = DefaultConfig().TopicLimit
	}

	tokens := tokenize(text)
	if len(tokens) == 0 {
		return []Topic{}
	}

	counts := map[string]int{}
	firstSeen := map[string]int{}
	order := 0

	note := func(term string) {
		if _, ok := counts[term]; !ok {
			firstSeen[term] = order
			order++
		}
		counts[term]++
	}

	prev := ""
	for _, tok := range tokens {
		if stopwords[tok] || len(tok) < 3 {
			prev = ""
			continue
		}
		note(tok)
		if prev != "" {
			note(prev + " " + tok)
		}
		prev = tok
	}

	topics := make([]Topic, 0, len(counts))
	for term, count := range counts {
		topics = append(topics, Topic{Term: term, Count: count})
	}
	sort.Slice(topics, func(i, j int) bool {
		if topics[i].Count != topics[j].Count {
			return topics[i].Count > topics[j].Count
		}
		return firstSeen[topics[i].Term] < firstSeen[topics[j].Term]
	})

	if len(topics) > limit {
		topics = topics[:limit]
	}
	return topics
}

// tokenize lowercases text and splits on anything that is not a letter or digit
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
