package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/finetunelab/websearch/internal/models"
)

const serperCap = 10

// Serper queries Google results through the serper.dev JSON API.
type Serper struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewSerper creates the provider. Returns an error when no API key is configured.
func NewSerper(endpoint, apiKey string) (*Serper, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("serper: api key not configured")
	}
	if endpoint == "" {
		endpoint = "https://google.serper.dev/search"
	}
	return &Serper{endpoint: endpoint, apiKey: apiKey, client: newHTTPClient()}, nil
}

// Name returns the provider name.
func (s *Serper) Name() string { return "serper" }

type serperRequest struct {
	Q   string `json:"q"`
	Num int    `json:"num"`
}

type serperResponse struct {
	Organic []struct {
		Title    string `json:"title"`
		Link     string `json:"link"`
		Snippet  string `json:"snippet"`
		Date     string `json:"date"`
		ImageURL string `json:"imageUrl"`
	} `json:"organic"`
}

// Search runs one search against the serper.dev API.
func (s *Serper) Search(ctx context.Context, query string, maxResults int) (*models.ProviderResult, error) {
	start := time.Now()
	maxResults = clampResults(maxResults, serperCap)

	payload, err := json.Marshal(serperRequest{Q: query, Num: maxResults})
	if err != nil {
		return nil, fmt.Errorf("serper: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", s.apiKey)

	body, err := doAndRead(s.client, req)
	if err != nil {
		return nil, fmt.Errorf("serper: %w", err)
	}

	var parsed serperResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("serper: parsing response: %w", err)
	}

	docs := make([]*models.Document, 0, len(parsed.Organic))
	for _, r := range parsed.Organic {
		if len(docs) >= maxResults {
			break
		}
		if r.Link == "" || r.Title == "" {
			continue
		}
		docs = append(docs, &models.Document{
			Title:       r.Title,
			URL:         r.Link,
			Snippet:     r.Snippet,
			Source:      models.Domain(r.Link),
			PublishedAt: parsePublishedAt(r.Date),
			ImageURL:    r.ImageURL,
		})
	}

	return &models.ProviderResult{
		ProviderName: s.Name(),
		LatencyMs:    time.Since(start).Milliseconds(),
		Documents:    docs,
		RawPayload:   body,
	}, nil
}
