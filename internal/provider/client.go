package provider

import (
	"fmt"
	"io"
	"net/http"
	"time"
)

// defaultUserAgent is sent by providers that scrape HTML endpoints.
const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

// doAndRead executes the request and reads the full body. Non-2xx statuses
// are transport errors: providers surface them so the orchestrator can
// advance to the next backend.
func doAndRead(client *http.Client, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return body, nil
}

// clampResults bounds maxResults to [1, cap].
func clampResults(maxResults, apiCap int) int {
	if maxResults < 1 {
		return 1
	}
	if maxResults > apiCap {
		return apiCap
	}
	return maxResults
}

// parsePublishedAt parses the date formats the backends emit. Returns nil
// when nothing matches; a missing date is not an error.
func parsePublishedAt(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
		"January 2, 2006",
		"Jan 2, 2006",
	}
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return &ts
		}
	}
	return nil
}
