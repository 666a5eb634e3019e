// Package models defines core data structures for queries, documents, and
// search responses.
package models

import "time"

// Document is a single web search result. Providers create documents with
// title/url/snippet; later pipeline stages enrich them in place.
type Document struct {
	Title           string     `json:"title"`
	URL             string     `json:"url"`
	Snippet         string     `json:"snippet"`
	Source          string     `json:"source,omitempty"`
	PublishedAt     *time.Time `json:"published_at,omitempty"`
	ImageURL        string     `json:"image_url,omitempty"`
	FullContent     string     `json:"full_content,omitempty"`
	Summary         string     `json:"summary,omitempty"`
	ConfidenceScore float64    `json:"confidence_score,omitempty"`
}

// CanonicalKey returns the deduplication key for the document: the
// canonicalized URL plus the lowercased title.
func (d *Document) CanonicalKey() string {
	return CanonicalizeURL(d.URL) + "|" + lowerTrim(d.Title)
}

// Merge fills d's empty or weaker fields from other, preferring the richer
// value per field: longer snippet, earliest publish date, any non-empty
// optional field. d's URL and title are kept as-is.
func (d *Document) Merge(other *Document) {
	if other == nil {
		return
	}
	if len(other.Snippet) > len(d.Snippet) {
		d.Snippet = other.Snippet
	}
	if d.Source == "" {
		d.Source = other.Source
	}
	if other.PublishedAt != nil && (d.PublishedAt == nil || other.PublishedAt.Before(*d.PublishedAt)) {
		d.PublishedAt = other.PublishedAt
	}
	if d.ImageURL == "" {
		d.ImageURL = other.ImageURL
	}
	if d.FullContent == "" {
		d.FullContent = other.FullContent
	}
	if d.Summary == "" {
		d.Summary = other.Summary
	}
	if other.ConfidenceScore > d.ConfidenceScore {
		d.ConfidenceScore = other.ConfidenceScore
	}
}

// ProviderResult is the unit a search provider returns: the documents plus
// transport metadata. Immutable once produced.
type ProviderResult struct {
	ProviderName string      `json:"provider_name"`
	LatencyMs    int64       `json:"latency_ms"`
	Documents    []*Document `json:"documents"`
	RawPayload   []byte      `json:"-"`
}

// SearchMetadata describes how a search response was produced.
type SearchMetadata struct {
	Provider    string    `json:"provider"`
	LatencyMs   int64     `json:"latency_ms"`
	Cached      bool      `json:"cached"`
	FetchedAt   time.Time `json:"fetched_at"`
	ResultCount int       `json:"result_count"`
}

// Summary is one summarized search result, ready for persistence.
type Summary struct {
	ResultTitle string `json:"result_title"`
	Summary     string `json:"summary"`
	IsIngested  bool   `json:"is_ingested"`
	IsSaved     bool   `json:"is_saved"`
}

// SearchResponse is the result of one orchestrated search call.
type SearchResponse struct {
	Query        string         `json:"query"`
	Results      []*Document    `json:"results"`
	GraphResults []*Document    `json:"graph_results,omitempty"`
	Metadata     SearchMetadata `json:"metadata"`
	Raw          []byte         `json:"-"`
}
