package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/finetunelab/websearch/internal/models"
)

const searxngCap = 50

// SearxNG queries a self-hosted SearxNG instance's JSON API. The instance
// URL comes from configuration; no API key is involved.
type SearxNG struct {
	endpoint string
	client   *http.Client
}

// NewSearxNG creates the provider. Returns an error when no instance
// endpoint is configured.
func NewSearxNG(endpoint string) (*SearxNG, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("searxng: instance endpoint not configured")
	}
	return &SearxNG{endpoint: strings.TrimSuffix(endpoint, "/"), client: newHTTPClient()}, nil
}

// Name returns the provider name.
func (s *SearxNG) Name() string { return "searxng" }

type searxngResponse struct {
	Results []struct {
		Title         string `json:"title"`
		URL           string `json:"url"`
		Content       string `json:"content"`
		PublishedDate string `json:"publishedDate"`
		ImgSrc        string `json:"img_src"`
		Engine        string `json:"engine"`
	} `json:"results"`
}

// Search runs one search against the instance's /search endpoint.
func (s *SearxNG) Search(ctx context.Context, query string, maxResults int) (*models.ProviderResult, error) {
	start := time.Now()
	maxResults = clampResults(maxResults, searxngCap)

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	body, err := doAndRead(s.client, req)
	if err != nil {
		return nil, fmt.Errorf("searxng: %w", err)
	}

	var parsed searxngResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("searxng: parsing response: %w", err)
	}

	docs := make([]*models.Document, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		if len(docs) >= maxResults {
			break
		}
		if r.URL == "" || r.Title == "" {
			continue
		}
		source := r.Engine
		if source == "" {
			source = models.Domain(r.URL)
		}
		docs = append(docs, &models.Document{
			Title:       r.Title,
			URL:         r.URL,
			Snippet:     r.Content,
			Source:      source,
			PublishedAt: parsePublishedAt(r.PublishedDate),
			ImageURL:    r.ImgSrc,
		})
	}

	return &models.ProviderResult{
		ProviderName: s.Name(),
		LatencyMs:    time.Since(start).Milliseconds(),
		Documents:    docs,
		RawPayload:   body,
	}, nil
}
