package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/finetunelab/websearch/internal/models"
)

const braveCap = 20

// Brave queries the Brave Search JSON API.
type Brave struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewBrave creates the provider. Returns an error when no API key is configured.
func NewBrave(endpoint, apiKey string) (*Brave, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("brave: api key not configured")
	}
	if endpoint == "" {
		endpoint = "https://api.search.brave.com/res/v1/web/search"
	}
	return &Brave{endpoint: endpoint, apiKey: apiKey, client: newHTTPClient()}, nil
}

// Name returns the provider name.
func (b *Brave) Name() string { return "brave" }

type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
			PageAge     string `json:"page_age"`
			Thumbnail   struct {
				Src string `json:"src"`
			} `json:"thumbnail"`
			Profile struct {
				Name string `json:"name"`
			} `json:"profile"`
		} `json:"results"`
	} `json:"web"`
}

// Search runs one web search against the Brave API.
func (b *Brave) Search(ctx context.Context, query string, maxResults int) (*models.ProviderResult, error) {
	start := time.Now()
	maxResults = clampResults(maxResults, braveCap)

	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(maxResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.apiKey)

	body, err := doAndRead(b.client, req)
	if err != nil {
		return nil, fmt.Errorf("brave: %w", err)
	}

	var parsed braveResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("brave: parsing response: %w", err)
	}

	docs := make([]*models.Document, 0, len(parsed.Web.Results))
	for _, r := range parsed.Web.Results {
		if len(docs) >= maxResults {
			break
		}
		if r.URL == "" || r.Title == "" {
			continue
		}
		source := r.Profile.Name
		if source == "" {
			source = models.Domain(r.URL)
		}
		docs = append(docs, &models.Document{
			Title:       r.Title,
			URL:         r.URL,
			Snippet:     r.Description,
			Source:      source,
			PublishedAt: parsePublishedAt(r.PageAge),
			ImageURL:    r.Thumbnail.Src,
		})
	}

	return &models.ProviderResult{
		ProviderName: b.Name(),
		LatencyMs:    time.Since(start).Milliseconds(),
		Documents:    docs,
		RawPayload:   body,
	}, nil
}
