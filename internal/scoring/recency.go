package scoring

import (
	"strings"
	"time"

	"github.com/finetunelab/websearch/internal/models"
)

// recencyKeywords mark a query as time-sensitive.
var recencyKeywords = []string{
	"latest", "recent", "breaking", "news", "today", "current", "newest",
	"this week", "this month", "this year", "update",
}

const (
	neutralRecency = 0.5
	undatedPenalty = 0.3
)

// recencyRequested reports whether the query signals a need for fresh results.
func recencyRequested(query string) bool {
	q := strings.ToLower(query)
	for _, kw := range recencyKeywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

// recencyScore rates the document's publish date. The signal only becomes
// material when the query asks for recency; otherwise every document scores
// neutral regardless of date.
func recencyScore(doc *models.Document, query string) float64 {
	if !recencyRequested(query) {
		return neutralRecency
	}
	if doc.PublishedAt == nil {
		return undatedPenalty
	}

	age := time.Since(*doc.PublishedAt)
	switch {
	case age < 7*24*time.Hour:
		return 1.0
	case age < 30*24*time.Hour:
		return 0.9
	case age < 180*24*time.Hour:
		return 0.7
	case age < 365*24*time.Hour:
		return 0.55
	case age < 2*365*24*time.Hour:
		return 0.4
	default:
		return 0.2
	}
}
