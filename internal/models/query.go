package models

import (
	"fmt"
	"strings"
)

// NormalizeQuery trims the query and collapses internal whitespace runs to a
// single space. Returns an error if the result is empty; length bounds are
// enforced by the orchestrator against its configuration.
func NormalizeQuery(raw string) (string, error) {
	q := strings.Join(strings.Fields(raw), " ")
	if q == "" {
		return "", fmt.Errorf("query cannot be empty")
	}
	return q, nil
}

// SearchOptions controls optional behavior of one orchestrated search call.
type SearchOptions struct {
	ProviderOverride string `json:"provider_override,omitempty"`
	SkipCache        bool   `json:"skip_cache,omitempty"`
	DeepSearch       bool   `json:"deep_search,omitempty"`
	Summarize        bool   `json:"summarize,omitempty"`
	AutoRefine       bool   `json:"auto_refine,omitempty"`
	SortBy           string `json:"sort_by,omitempty"` // "date" or "" (confidence)

	// UserID and ConversationID identify the caller for summary persistence.
	UserID         string `json:"user_id,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
}

func lowerTrim(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
