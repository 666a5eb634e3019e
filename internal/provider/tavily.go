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

const tavilyCap = 20

// Tavily queries the Tavily search API, a search backend built for LLM
// pipelines that returns extracted content snippets.
type Tavily struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewTavily creates the provider. Returns an error when no API key is configured.
func NewTavily(endpoint, apiKey string) (*Tavily, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("tavily: api key not configured")
	}
	if endpoint == "" {
		endpoint = "https://api.tavily.com/search"
	}
	return &Tavily{endpoint: endpoint, apiKey: apiKey, client: newHTTPClient()}, nil
}

// Name returns the provider name.
func (t *Tavily) Name() string { return "tavily" }

type tavilyRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type tavilyResponse struct {
	Results []struct {
		Title         string  `json:"title"`
		URL           string  `json:"url"`
		Content       string  `json:"content"`
		Score         float64 `json:"score"`
		PublishedDate string  `json:"published_date"`
	} `json:"results"`
}

// Search runs one search against the Tavily API.
func (t *Tavily) Search(ctx context.Context, query string, maxResults int) (*models.ProviderResult, error) {
	start := time.Now()
	maxResults = clampResults(maxResults, tavilyCap)

	payload, err := json.Marshal(tavilyRequest{Query: query, MaxResults: maxResults})
	if err != nil {
		return nil, fmt.Errorf("tavily: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	body, err := doAndRead(t.client, req)
	if err != nil {
		return nil, fmt.Errorf("tavily: %w", err)
	}

	var parsed tavilyResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("tavily: parsing response: %w", err)
	}

	docs := make([]*models.Document, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		if len(docs) >= maxResults {
			break
		}
		if r.URL == "" || r.Title == "" {
			continue
		}
		docs = append(docs, &models.Document{
			Title:       r.Title,
			URL:         r.URL,
			Snippet:     r.Content,
			Source:      models.Domain(r.URL),
			PublishedAt: parsePublishedAt(r.PublishedDate),
		})
	}

	return &models.ProviderResult{
		ProviderName: t.Name(),
		LatencyMs:    time.Since(start).Milliseconds(),
		Documents:    docs,
		RawPayload:   body,
	}, nil
}
