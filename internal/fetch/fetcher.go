// Package fetch retrieves full-page text for deep search: retrying HTTP
// fetch, HTML-to-text cleaning, and length-bounded truncation.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const (
	maxAttempts  = 3
	minLineChars = 20
)

// strippedSelectors are removed from the page before text extraction.
var strippedSelectors = []string{
	"script", "style", "nav", "header", "footer", "aside", "form",
	"noscript", "iframe", "[hidden]", "[aria-hidden=true]",
	"[style*='display:none']", "[style*='display: none']",
}

// contentSelectors are tried in order to locate the main content region.
var contentSelectors = []string{"main", "article", "[role=main]"}

// Fetcher retrieves and cleans full-page text from URLs.
type Fetcher struct {
	client    *http.Client
	userAgent string
	maxChars  int
	logger    *zap.Logger

	// backoff delays between attempts; variable so tests can shrink them.
	backoff []time.Duration
}

// NewFetcher creates a fetcher. maxChars caps the cleaned text length;
// timeout bounds each individual HTTP attempt.
func NewFetcher(timeout time.Duration, userAgent string, maxChars int, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxChars <= 0 {
		maxChars = 15000
	}
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		maxChars:  maxChars,
		logger:    logger,
		backoff:   []time.Duration{time.Second, 2 * time.Second, 4 * time.Second},
	}
}

// FetchAndClean retrieves the URL and returns cleaned, truncated page text.
// It never returns an error: on irrecoverable failure it returns "" and the
// caller falls back to the provider snippet.
func (f *Fetcher) FetchAndClean(ctx context.Context, url string) string {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ""
			case <-time.After(f.backoff[attempt-1]):
			}
		}

		html, err := f.fetchOnce(ctx, url)
		if err == nil {
			return SmartTruncate(CleanHTML(html), f.maxChars)
		}
		lastErr = err
		if !retryable(err) {
			break
		}
	}

	f.logger.Debug("content fetch failed, falling back to snippet",
		zap.String("url", url), zap.Error(lastErr))
	return ""
}

// statusError reports a non-2xx response.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &statusError{code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading body: %w", err)
	}
	return string(body), nil
}

// retryable reports whether the error warrants another attempt: connection
// reset, timeout, 429, or 5xx. Access denials (403, 406) and other client
// errors are terminal.
func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "connection reset") || strings.Contains(msg, "EOF")
}

// CleanHTML extracts readable text from an HTML page: boilerplate elements
// are stripped, the main content region is preferred over the full body,
// whitespace is collapsed, and short fragments (navigation leftovers) are
// dropped.
func CleanHTML(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	for _, sel := range strippedSelectors {
		doc.Find(sel).Remove()
	}

	var region *goquery.Selection
	for _, sel := range contentSelectors {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			region = s
			break
		}
	}
	if region == nil {
		region = doc.Find("body").First()
	}
	if region.Length() == 0 {
		return ""
	}

	var lines []string
	for _, rawLine := range strings.Split(region.Text(), "\n") {
		line := strings.Join(strings.Fields(rawLine), " ")
		if len(line) >= minLineChars {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n\n")
}
