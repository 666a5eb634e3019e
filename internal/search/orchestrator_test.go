package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/finetunelab/websearch/internal/cache"
	"github.com/finetunelab/websearch/internal/config"
	"github.com/finetunelab/websearch/internal/fetch"
	"github.com/finetunelab/websearch/internal/models"
	"github.com/finetunelab/websearch/internal/provider"
	"github.com/finetunelab/websearch/internal/refine"
	"github.com/finetunelab/websearch/internal/scoring"
	"github.com/finetunelab/websearch/internal/telemetry"
)

type fakeProvider struct {
	name  string
	docs  []*models.Document
	err   error
	calls atomic.Int32
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Search(ctx context.Context, query string, maxResults int) (*models.ProviderResult, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	// Return fresh copies; the pipeline mutates documents in place.
	docs := make([]*models.Document, 0, len(f.docs))
	for _, d := range f.docs {
		c := *d
		docs = append(docs, &c)
	}
	return &models.ProviderResult{Documents: docs, RawPayload: []byte(`{}`)}, nil
}

func testDocs(n int) []*models.Document {
	docs := make([]*models.Document, 0, n)
	for i := 0; i < n; i++ {
		docs = append(docs, &models.Document{
			Title:   fmt.Sprintf("go concurrency patterns part %d", i),
			URL:     fmt.Sprintf("https://example.org/article-%d", i),
			Snippet: "goroutines and channels in go concurrency",
		})
	}
	return docs
}

func newTestOrchestrator(t *testing.T, cfg *config.Config, providers ...provider.Provider) *Orchestrator {
	t.Helper()
	logger := zap.NewNop()
	reg := provider.NewRegistry(logger)
	for _, p := range providers {
		reg.Register(p)
	}
	deps := Deps{
		Cache:   cache.New(cfg.Cache.MaxEntries),
		Tracker: telemetry.NewTracker(cfg.Telemetry.WindowSize),
		Scorer:  scoring.NewEngine(scoring.DefaultWeights(), scoring.NewTrustList(logger), logger),
		Refiner: refine.NewRefiner(3, 0.45, nil, logger),
	}
	o := New(cfg, reg, deps, logger)
	o.randFunc = func() float64 { return 1.0 } // no random purge in tests
	t.Cleanup(o.Close)
	return o
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Search.PrimaryProvider = "alpha"
	cfg.Search.FallbackProvider = "beta"
	return cfg
}

func TestSearchValidation(t *testing.T) {
	o := newTestOrchestrator(t, testConfig(), &fakeProvider{name: "alpha", docs: testDocs(3)})

	tests := []struct {
		name  string
		query string
	}{
		{"empty", ""},
		{"whitespace only", "   \t  "},
		{"too short", "a"},
		{"too long", string(make([]byte, 600))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := o.Search(context.Background(), tt.query, 5, models.SearchOptions{})
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestSearchDisabled(t *testing.T) {
	cfg := testConfig()
	disabled := false
	cfg.Search.Enabled = &disabled
	o := newTestOrchestrator(t, cfg, &fakeProvider{name: "alpha", docs: testDocs(3)})

	_, err := o.Search(context.Background(), "go concurrency", 5, models.SearchOptions{})
	var ce *ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestSearchFirstNonEmptyProviderWins(t *testing.T) {
	failing := &fakeProvider{name: "alpha", err: errors.New("upstream 500")}
	empty := &fakeProvider{name: "beta"}
	good := &fakeProvider{name: "gamma", docs: testDocs(4)}
	o := newTestOrchestrator(t, testConfig(), failing, empty, good)

	resp, err := o.Search(context.Background(), "go concurrency patterns", 10, models.SearchOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if resp.Metadata.Provider != "gamma" {
		t.Errorf("provider = %q, want gamma", resp.Metadata.Provider)
	}
	if len(resp.Results) != 4 {
		t.Errorf("results = %d, want 4", len(resp.Results))
	}
	if failing.calls.Load() != 1 || empty.calls.Load() != 1 || good.calls.Load() != 1 {
		t.Errorf("call counts = %d/%d/%d, want 1/1/1",
			failing.calls.Load(), empty.calls.Load(), good.calls.Load())
	}
}

func TestSearchAllProvidersFail(t *testing.T) {
	a := &fakeProvider{name: "alpha", err: errors.New("timeout")}
	b := &fakeProvider{name: "beta", err: errors.New("rate limited")}
	o := newTestOrchestrator(t, testConfig(), a, b)

	_, err := o.Search(context.Background(), "go concurrency", 5, models.SearchOptions{})
	var ee *ExecutionError
	if !errors.As(err, &ee) {
		t.Fatalf("expected ExecutionError, got %v", err)
	}
	if ee.Unwrap() == nil {
		t.Error("ExecutionError should carry the last provider error")
	}
}

func TestSearchEmptySuccessBeatsFailure(t *testing.T) {
	empty := &fakeProvider{name: "alpha"}
	failing := &fakeProvider{name: "beta", err: errors.New("down")}
	o := newTestOrchestrator(t, testConfig(), empty, failing)

	resp, err := o.Search(context.Background(), "go concurrency", 5, models.SearchOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Results) != 0 {
		t.Errorf("results = %d, want 0", len(resp.Results))
	}
}

func TestSearchCacheRoundTrip(t *testing.T) {
	p := &fakeProvider{name: "alpha", docs: testDocs(3)}
	o := newTestOrchestrator(t, testConfig(), p)
	ctx := context.Background()

	first, err := o.Search(ctx, "go concurrency patterns", 5, models.SearchOptions{})
	if err != nil {
		t.Fatalf("first Search: %v", err)
	}
	if first.Metadata.Cached {
		t.Error("first call should not be cached")
	}

	second, err := o.Search(ctx, "go concurrency patterns", 5, models.SearchOptions{})
	if err != nil {
		t.Fatalf("second Search: %v", err)
	}
	if !second.Metadata.Cached {
		t.Error("second call should be served from cache")
	}
	if second.Metadata.LatencyMs != 0 {
		t.Errorf("cached latency = %d, want 0", second.Metadata.LatencyMs)
	}
	if got := p.calls.Load(); got != 1 {
		t.Errorf("provider calls = %d, want 1", got)
	}
}

func TestSearchSkipCache(t *testing.T) {
	p := &fakeProvider{name: "alpha", docs: testDocs(3)}
	o := newTestOrchestrator(t, testConfig(), p)
	ctx := context.Background()
	opts := models.SearchOptions{SkipCache: true}

	for i := 0; i < 2; i++ {
		if _, err := o.Search(ctx, "go concurrency patterns", 5, opts); err != nil {
			t.Fatalf("Search %d: %v", i, err)
		}
	}
	if got := p.calls.Load(); got != 2 {
		t.Errorf("provider calls = %d, want 2", got)
	}
}

func TestSearchOverrideNeverServedFromOtherCache(t *testing.T) {
	alpha := &fakeProvider{name: "alpha", docs: testDocs(3)}
	beta := &fakeProvider{name: "beta", docs: testDocs(2)}
	o := newTestOrchestrator(t, testConfig(), alpha, beta)
	ctx := context.Background()

	// Populate alpha's cache entry.
	if _, err := o.Search(ctx, "go concurrency patterns", 5, models.SearchOptions{}); err != nil {
		t.Fatalf("Search: %v", err)
	}

	resp, err := o.Search(ctx, "go concurrency patterns", 5, models.SearchOptions{ProviderOverride: "beta"})
	if err != nil {
		t.Fatalf("override Search: %v", err)
	}
	if resp.Metadata.Cached {
		t.Error("override must not be served from another provider's cache entry")
	}
	if resp.Metadata.Provider != "beta" {
		t.Errorf("provider = %q, want beta", resp.Metadata.Provider)
	}
	if got := beta.calls.Load(); got != 1 {
		t.Errorf("beta calls = %d, want 1", got)
	}
}

func TestSearchDeduplicatesResults(t *testing.T) {
	now := time.Now()
	p := &fakeProvider{name: "alpha", docs: []*models.Document{
		{Title: "Go Concurrency", URL: "https://example.org/go?utm_source=feed", Snippet: "short"},
		{Title: "go concurrency", URL: "https://example.org/go", Snippet: "a much longer snippet about goroutines", PublishedAt: &now},
		{Title: "Other", URL: "https://example.org/other", Snippet: "different"},
	}}
	o := newTestOrchestrator(t, testConfig(), p)

	resp, err := o.Search(context.Background(), "go concurrency", 10, models.SearchOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("results = %d, want 2 after dedup", len(resp.Results))
	}
	for _, doc := range resp.Results {
		if doc.Title == "Go Concurrency" {
			if doc.Snippet != "a much longer snippet about goroutines" {
				t.Errorf("merged snippet = %q, want the longer one", doc.Snippet)
			}
			if doc.PublishedAt == nil {
				t.Error("merged doc should keep the publish date")
			}
		}
	}
}

func TestSearchConcurrentCacheHits(t *testing.T) {
	p := &fakeProvider{name: "alpha", docs: testDocs(5)}
	o := newTestOrchestrator(t, testConfig(), p)
	ctx := context.Background()

	// Warm the cache, then hit it from many goroutines at once. Each hit
	// re-scores and re-sorts its own copy of the cached documents.
	if _, err := o.Search(ctx, "go concurrency patterns", 5, models.SearchOptions{}); err != nil {
		t.Fatalf("warmup Search: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := o.Search(ctx, "go concurrency patterns", 5, models.SearchOptions{})
			if err != nil {
				errs <- err
				return
			}
			if !resp.Metadata.Cached {
				errs <- errors.New("expected cache hit")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
	if got := p.calls.Load(); got != 1 {
		t.Errorf("provider calls = %d, want 1", got)
	}
}

func TestCacheHitAfterDeepSearchHasNoFullContent(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><main><p>`+
			`A long enough paragraph about goroutines and channels to survive cleaning.`+
			`</p></main></body></html>`)
	}))
	defer page.Close()

	logger := zap.NewNop()
	cfg := testConfig()
	reg := provider.NewRegistry(logger)
	reg.Register(&fakeProvider{name: "alpha", docs: []*models.Document{
		{Title: "go concurrency patterns", URL: page.URL, Snippet: "goroutines"},
	}})
	deps := Deps{
		Cache:   cache.New(cfg.Cache.MaxEntries),
		Tracker: telemetry.NewTracker(cfg.Telemetry.WindowSize),
		Fetcher: fetch.NewFetcher(5*time.Second, "test-agent", 15000, logger),
		Scorer:  scoring.NewEngine(scoring.DefaultWeights(), scoring.NewTrustList(logger), logger),
		Refiner: refine.NewRefiner(3, 0.45, nil, logger),
	}
	o := New(cfg, reg, deps, logger)
	o.randFunc = func() float64 { return 1.0 }
	t.Cleanup(o.Close)
	ctx := context.Background()

	deep, err := o.Search(ctx, "go concurrency patterns", 5, models.SearchOptions{DeepSearch: true})
	if err != nil {
		t.Fatalf("deep Search: %v", err)
	}
	if deep.Results[0].FullContent == "" {
		t.Fatal("deep search should populate FullContent")
	}

	plain, err := o.Search(ctx, "go concurrency patterns", 5, models.SearchOptions{})
	if err != nil {
		t.Fatalf("plain Search: %v", err)
	}
	if !plain.Metadata.Cached {
		t.Fatal("expected second call to hit the cache")
	}
	if plain.Results[0].FullContent != "" {
		t.Error("cache hit without deep search returned FullContent")
	}
	if plain.Results[0].Summary != "" {
		t.Error("cache hit without deep search returned a summary")
	}
}

func TestSearchNoDeepFetchByDefault(t *testing.T) {
	p := &fakeProvider{name: "alpha", docs: testDocs(3)}
	o := newTestOrchestrator(t, testConfig(), p)

	resp, err := o.Search(context.Background(), "go concurrency", 5, models.SearchOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, doc := range resp.Results {
		if doc.FullContent != "" {
			t.Errorf("doc %q has full content without deep search", doc.URL)
		}
	}
}

func TestDeepFetchCount(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"go", 2},
		{"short query", 2},
		{"go concurrency patterns", 3},
		{"compare postgres and mysql", 5},
		{"comprehensive guide to distributed systems", 5},
		{"what are the long term economic effects of remote work on mid-size cities", 5},
	}
	for _, tt := range tests {
		if got := deepFetchCount(tt.query); got != tt.want {
			t.Errorf("deepFetchCount(%q) = %d, want %d", tt.query, got, tt.want)
		}
	}
}

func TestSearchResultsSortedByConfidence(t *testing.T) {
	p := &fakeProvider{name: "alpha", docs: []*models.Document{
		{Title: "unrelated clickbait you won't believe", URL: "https://viral-buzz.example.com/wow", Snippet: "shocking"},
		{Title: "Go concurrency patterns", URL: "https://en.wikipedia.org/wiki/Concurrency", Snippet: "go concurrency patterns explained"},
	}}
	o := newTestOrchestrator(t, testConfig(), p)

	resp, err := o.Search(context.Background(), "go concurrency patterns", 5, models.SearchOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(resp.Results))
	}
	if resp.Results[0].ConfidenceScore < resp.Results[1].ConfidenceScore {
		t.Error("results not sorted by confidence descending")
	}
	if resp.Results[0].URL != "https://en.wikipedia.org/wiki/Concurrency" {
		t.Errorf("top result = %q, want the wikipedia article", resp.Results[0].URL)
	}
}

func TestSearchSortByDate(t *testing.T) {
	old := time.Now().AddDate(-1, 0, 0)
	recent := time.Now().AddDate(0, 0, -2)
	p := &fakeProvider{name: "alpha", docs: []*models.Document{
		{Title: "go release notes archive", URL: "https://example.org/old", Snippet: "go", PublishedAt: &old},
		{Title: "undated go guide", URL: "https://example.org/undated", Snippet: "go"},
		{Title: "go release announcement", URL: "https://example.org/new", Snippet: "go", PublishedAt: &recent},
	}}
	o := newTestOrchestrator(t, testConfig(), p)

	resp, err := o.Search(context.Background(), "go release", 5, models.SearchOptions{SortBy: "date"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if resp.Results[0].URL != "https://example.org/new" {
		t.Errorf("first = %q, want the newest", resp.Results[0].URL)
	}
	if resp.Results[2].URL != "https://example.org/undated" {
		t.Errorf("last = %q, want the undated doc", resp.Results[2].URL)
	}
}

func TestSearchRefinementRunsAtMostOnce(t *testing.T) {
	// One weak result keeps ShouldRefine true even after refinement, so the
	// depth guard is the only thing stopping recursion.
	p := &fakeProvider{name: "alpha", docs: []*models.Document{
		{Title: "lone result", URL: "https://example.org/only", Snippet: "thin"},
	}}
	o := newTestOrchestrator(t, testConfig(), p)

	_, err := o.Search(context.Background(), "obscure topic", 5, models.SearchOptions{AutoRefine: true})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got := p.calls.Load(); got != 2 {
		t.Errorf("provider calls = %d, want 2 (original + one refinement)", got)
	}
}

func TestSearchNoRefinementWhenCacheSkipped(t *testing.T) {
	// A weak result set would normally trigger refinement, but the caller
	// opted out of caching, which also opts out of the refinement pass.
	p := &fakeProvider{name: "alpha", docs: []*models.Document{
		{Title: "lone result", URL: "https://example.org/only", Snippet: "thin"},
	}}
	o := newTestOrchestrator(t, testConfig(), p)

	opts := models.SearchOptions{AutoRefine: true, SkipCache: true}
	_, err := o.Search(context.Background(), "obscure topic", 5, opts)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got := p.calls.Load(); got != 1 {
		t.Errorf("provider calls = %d, want 1", got)
	}
}

func TestSearchRefinementSkippedWhenStrong(t *testing.T) {
	docs := []*models.Document{
		{Title: "go concurrency patterns", URL: "https://en.wikipedia.org/wiki/A", Snippet: "go concurrency patterns"},
		{Title: "go concurrency patterns guide", URL: "https://go.dev/blog/b", Snippet: "go concurrency patterns"},
		{Title: "go concurrency patterns talk", URL: "https://github.com/c", Snippet: "go concurrency patterns"},
		{Title: "go concurrency patterns book", URL: "https://arxiv.org/abs/d", Snippet: "go concurrency patterns"},
	}
	p := &fakeProvider{name: "alpha", docs: docs}
	o := newTestOrchestrator(t, testConfig(), p)

	_, err := o.Search(context.Background(), "go concurrency patterns", 5, models.SearchOptions{AutoRefine: true})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got := p.calls.Load(); got != 1 {
		t.Errorf("provider calls = %d, want 1 (no refinement)", got)
	}
}

func TestSearchMaxResultsClamped(t *testing.T) {
	p := &fakeProvider{name: "alpha", docs: testDocs(12)}
	o := newTestOrchestrator(t, testConfig(), p)

	resp, err := o.Search(context.Background(), "go concurrency", 8, models.SearchOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Results) != 8 {
		t.Errorf("results = %d, want 8", len(resp.Results))
	}
}

func TestProviderOrder(t *testing.T) {
	alpha := &fakeProvider{name: "alpha"}
	beta := &fakeProvider{name: "beta"}
	gamma := &fakeProvider{name: "gamma"}
	o := newTestOrchestrator(t, testConfig(), gamma, alpha, beta)

	tests := []struct {
		name     string
		override string
		want     []string
	}{
		{"default order", "", []string{"alpha", "beta", "gamma"}},
		{"override first", "gamma", []string{"gamma", "alpha", "beta"}},
		{"unregistered override ignored", "nope", []string{"alpha", "beta", "gamma"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := o.providerOrder(tt.override)
			if len(got) != len(tt.want) {
				t.Fatalf("order = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("order = %v, want %v", got, tt.want)
				}
			}
		})
	}
}
