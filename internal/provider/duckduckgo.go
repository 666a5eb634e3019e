package provider

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/finetunelab/websearch/internal/models"
)

// duckduckgoCap is the number of results one HTML results page yields.
const duckduckgoCap = 10

// DuckDuckGo scrapes the DuckDuckGo HTML endpoint. It needs no API key and
// serves as the default primary backend.
type DuckDuckGo struct {
	endpoint string
	client   *http.Client
}

// NewDuckDuckGo creates the provider. endpoint defaults to the public HTML
// search endpoint when empty.
func NewDuckDuckGo(endpoint string) *DuckDuckGo {
	if endpoint == "" {
		endpoint = "https://html.duckduckgo.com/html/"
	}
	return &DuckDuckGo{endpoint: endpoint, client: newHTTPClient()}
}

// Name returns the provider name.
func (d *DuckDuckGo) Name() string { return "duckduckgo" }

// Search fetches and parses one HTML results page.
func (d *DuckDuckGo) Search(ctx context.Context, query string, maxResults int) (*models.ProviderResult, error) {
	start := time.Now()
	maxResults = clampResults(maxResults, duckduckgoCap)

	searchURL := fmt.Sprintf("%s?q=%s", d.endpoint, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "text/html")

	body, err := doAndRead(d.client, req)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: %w", err)
	}

	docs, err := parseDuckDuckGoHTML(body, maxResults)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: %w", err)
	}

	return &models.ProviderResult{
		ProviderName: d.Name(),
		LatencyMs:    time.Since(start).Milliseconds(),
		Documents:    docs,
		RawPayload:   body,
	}, nil
}

func parseDuckDuckGoHTML(body []byte, maxResults int) ([]*models.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	var docs []*models.Document
	doc.Find("div.result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		link := sel.Find("a.result__a").First()
		title := strings.TrimSpace(link.Text())
		href, _ := link.Attr("href")
		snippet := strings.TrimSpace(sel.Find(".result__snippet").First().Text())

		resultURL := unwrapDuckDuckGoRedirect(href)
		if title == "" || resultURL == "" {
			return true
		}
		docs = append(docs, &models.Document{
			Title:   title,
			URL:     resultURL,
			Snippet: snippet,
			Source:  models.Domain(resultURL),
		})
		return len(docs) < maxResults
	})
	return docs, nil
}

// unwrapDuckDuckGoRedirect extracts the target URL from DuckDuckGo's
// redirect wrapper (the uddg query parameter).
func unwrapDuckDuckGoRedirect(href string) string {
	if strings.Contains(href, "uddg=") {
		if u, err := url.Parse(href); err == nil {
			if target := u.Query().Get("uddg"); target != "" {
				return target
			}
		}
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	return href
}
