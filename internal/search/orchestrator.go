// Package search contains the orchestrator that drives one web search
// end to end: validation, caching, provider failover, content enrichment,
// scoring, summarization, and query refinement.
package search

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/finetunelab/websearch/internal/cache"
	"github.com/finetunelab/websearch/internal/config"
	"github.com/finetunelab/websearch/internal/fetch"
	"github.com/finetunelab/websearch/internal/models"
	"github.com/finetunelab/websearch/internal/provider"
	"github.com/finetunelab/websearch/internal/refine"
	"github.com/finetunelab/websearch/internal/scoring"
	"github.com/finetunelab/websearch/internal/telemetry"
)

const (
	// purgeProbability is the chance a search call opportunistically sweeps
	// expired cache entries before doing anything else.
	purgeProbability = 0.05

	// Adaptive deep-fetch sizing: how many top results get full content.
	topCountDefault = 3
	topCountShort   = 2
	topCountLong    = 5

	shortQueryChars = 20
	longQueryChars  = 60

	graphSearchLimit   = 5
	graphSearchTimeout = 2 * time.Second

	ingestQueueSize = 32
)

// analysisKeywords mark queries that benefit from more full-content fetches.
var analysisKeywords = []string{
	"analyze", "compare", "evaluate", "research", "comprehensive",
	"overview", "in-depth", "detailed", "versus",
}

// Deps bundles the orchestrator's collaborators. Cache, Tracker, Fetcher,
// Scorer, and Refiner are required; the rest are optional and nil disables
// the corresponding stage.
type Deps struct {
	Cache        *cache.Cache
	Tracker      *telemetry.Tracker
	Fetcher      *fetch.Fetcher
	Scorer       *scoring.Engine
	Refiner      *refine.Refiner
	Summarizer   Summarizer
	SummaryStore SummaryStore
	Graph        GraphStore
}

type ingestJob struct {
	docs    []*models.Document
	groupID string
}

// Orchestrator coordinates one search request across providers, the cache,
// and the enrichment pipeline. Safe for concurrent use.
type Orchestrator struct {
	cfg    *config.Config
	reg    *provider.Registry
	deps   Deps
	logger *zap.Logger

	ingestCh chan ingestJob
	done     chan struct{}

	// Injectable for tests.
	now      func() time.Time
	randFunc func() float64
}

// New creates an orchestrator and starts its background graph-ingestion
// worker. Call Close to stop the worker.
func New(cfg *config.Config, reg *provider.Registry, deps Deps, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Orchestrator{
		cfg:      cfg,
		reg:      reg,
		deps:     deps,
		logger:   logger,
		ingestCh: make(chan ingestJob, ingestQueueSize),
		done:     make(chan struct{}),
		now:      time.Now,
		randFunc: rand.Float64,
	}
	go o.ingestLoop()
	return o
}

// Close stops the background ingestion worker. Queued jobs are drained first.
func (o *Orchestrator) Close() {
	close(o.ingestCh)
	<-o.done
}

// Search runs one orchestrated web search. maxResults <= 0 selects the
// configured default. Returns a ConfigurationError, ValidationError, or
// ExecutionError on failure.
func (o *Orchestrator) Search(ctx context.Context, query string, maxResults int, opts models.SearchOptions) (*models.SearchResponse, error) {
	return o.search(ctx, query, maxResults, opts, 0)
}

// search is the recursive core; depth > 0 marks a refinement sub-search and
// is never allowed past 1.
func (o *Orchestrator) search(ctx context.Context, query string, maxResults int, opts models.SearchOptions, depth int) (*models.SearchResponse, error) {
	if !o.cfg.Search.EnabledOrDefault() {
		return nil, &ConfigurationError{Reason: "web search is disabled"}
	}

	query, err := models.NormalizeQuery(query)
	if err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}
	if n := len(query); n < o.cfg.Search.MinQueryLength {
		return nil, &ValidationError{Reason: fmt.Sprintf("query shorter than %d characters", o.cfg.Search.MinQueryLength)}
	} else if n > o.cfg.Search.MaxQueryLength {
		return nil, &ValidationError{Reason: fmt.Sprintf("query longer than %d characters", o.cfg.Search.MaxQueryLength)}
	}

	if maxResults <= 0 {
		maxResults = o.cfg.Search.DefaultResults
	}
	if maxResults > o.cfg.Search.MaxResults {
		maxResults = o.cfg.Search.MaxResults
	}

	cacheEnabled := o.deps.Cache != nil && o.cfg.Cache.EnabledOrDefault()

	// Opportunistic sweep so expired entries do not linger forever on a
	// read-mostly workload.
	if cacheEnabled && o.randFunc() < purgeProbability {
		if purged := o.deps.Cache.PurgeExpired(); purged > 0 {
			o.logger.Debug("purged expired cache entries", zap.Int("count", purged))
		}
	}

	if o.deps.Tracker != nil && depth == 0 {
		o.deps.Tracker.RecordQuery(query)
	}

	order := o.providerOrder(opts.ProviderOverride)
	if len(order) == 0 {
		return nil, &ConfigurationError{Reason: "no search providers registered"}
	}

	if cacheEnabled && !opts.SkipCache {
		if resp := o.fromCache(query, maxResults, order, opts); resp != nil {
			return resp, nil
		}
	}

	result, err := o.runProviders(ctx, query, maxResults, order)
	if err != nil {
		return nil, err
	}

	docs := refine.Merge(result.Documents, nil)
	if len(docs) > maxResults {
		docs = docs[:maxResults]
	}

	if cacheEnabled && !opts.SkipCache {
		ttl := time.Duration(o.cfg.Cache.TTLSeconds) * time.Second
		o.deps.Cache.Set(query, result.ProviderName, maxResults, docs, result.RawPayload, ttl)
	}

	if opts.DeepSearch && o.deps.Fetcher != nil {
		o.deepFetch(ctx, query, docs)
	}

	o.scoreAndSort(docs, query)

	if (opts.Summarize || opts.DeepSearch) && o.deps.Summarizer != nil {
		o.summarize(ctx, query, docs, opts)
	}

	if opts.AutoRefine && !opts.SkipCache && depth == 0 {
		docs = o.maybeRefine(ctx, query, maxResults, opts, docs)
	}

	o.finalSort(docs, opts.SortBy)

	var graphResults []*models.Document
	if o.deps.Graph != nil {
		if o.cfg.Graph.IngestEnabled && len(docs) > 0 {
			o.enqueueIngest(docs)
		}
		graphResults = o.graphSearch(ctx, query)
	}

	return &models.SearchResponse{
		Query:        query,
		Results:      docs,
		GraphResults: graphResults,
		Metadata: models.SearchMetadata{
			Provider:    result.ProviderName,
			LatencyMs:   result.LatencyMs,
			Cached:      false,
			FetchedAt:   o.now(),
			ResultCount: len(docs),
		},
		Raw: result.RawPayload,
	}, nil
}

// providerOrder resolves the failover order: explicit override first, then
// the configured primary and fallback, then every other registered provider.
// The tail is latency-ranked when telemetry routing is enabled.
func (o *Orchestrator) providerOrder(override string) []string {
	seen := make(map[string]bool)
	var order []string
	add := func(name string) {
		if name == "" || seen[name] {
			return
		}
		if _, err := o.reg.Get(name); err != nil {
			return
		}
		seen[name] = true
		order = append(order, name)
	}

	add(override)
	add(o.cfg.Search.PrimaryProvider)
	add(o.cfg.Search.FallbackProvider)

	rest := make([]string, 0, o.reg.Len())
	for _, name := range o.reg.Names() {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	if o.cfg.Telemetry.RoutingEnabled && o.deps.Tracker != nil {
		rest = o.deps.Tracker.RankProviders(rest)
	}
	for _, name := range rest {
		add(name)
	}
	return order
}

// fromCache serves a cached response if one exists for any provider in the
// attempt order. With an explicit override only that provider's entry is
// consulted, so an override is never answered from another backend's cache.
func (o *Orchestrator) fromCache(query string, maxResults int, order []string, opts models.SearchOptions) *models.SearchResponse {
	candidates := order
	if opts.ProviderOverride != "" {
		candidates = []string{opts.ProviderOverride}
	}
	for _, name := range candidates {
		entry := o.deps.Cache.Get(query, name, maxResults)
		if entry == nil {
			continue
		}
		docs := entry.Documents
		o.scoreAndSort(docs, query)
		o.finalSort(docs, opts.SortBy)
		o.logger.Debug("cache hit",
			zap.String("query", query),
			zap.String("provider", entry.Provider))
		return &models.SearchResponse{
			Query:   query,
			Results: docs,
			Metadata: models.SearchMetadata{
				Provider:    entry.Provider,
				LatencyMs:   0,
				Cached:      true,
				FetchedAt:   entry.FetchedAt,
				ResultCount: len(docs),
			},
			Raw: entry.RawPayload,
		}
	}
	return nil
}

// runProviders tries each provider in order and returns the first non-empty
// result. An empty but successful result is kept as a fallback in case every
// later provider fails. Returns an ExecutionError when nothing succeeds.
func (o *Orchestrator) runProviders(ctx context.Context, query string, maxResults int, order []string) (*models.ProviderResult, error) {
	timeout := time.Duration(o.cfg.Search.RequestTimeoutMs) * time.Millisecond
	var lastEmpty *models.ProviderResult
	var lastErr error

	for _, name := range order {
		p, err := o.reg.Get(name)
		if err != nil {
			lastErr = err
			continue
		}

		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		start := o.now()
		result, err := p.Search(attemptCtx, query, maxResults)
		cancel()
		latency := o.now().Sub(start).Milliseconds()

		if o.deps.Tracker != nil {
			code := ""
			if err != nil {
				code = "provider_error"
			}
			o.deps.Tracker.Log(name, latency, err == nil, len(query), code)
		}

		if err != nil {
			o.logger.Warn("provider failed, trying next",
				zap.String("provider", name),
				zap.Error(err))
			lastErr = err
			continue
		}

		result.ProviderName = name
		result.LatencyMs = latency
		if len(result.Documents) > 0 {
			return result, nil
		}
		o.logger.Debug("provider returned no results", zap.String("provider", name))
		lastEmpty = result
	}

	if lastEmpty != nil {
		return lastEmpty, nil
	}
	return nil, &ExecutionError{Reason: "all providers failed", Err: lastErr}
}

// deepFetchCount picks how many top results get a full-content fetch, based
// on how much the query looks like a research task.
func deepFetchCount(query string) int {
	if len(query) >= longQueryChars {
		return topCountLong
	}
	lowered := strings.ToLower(query)
	for _, kw := range analysisKeywords {
		if strings.Contains(lowered, kw) {
			return topCountLong
		}
	}
	if len(query) <= shortQueryChars {
		return topCountShort
	}
	return topCountDefault
}

// deepFetch retrieves and cleans full page content for the top documents,
// concurrently. Fetch failures leave the document untouched.
func (o *Orchestrator) deepFetch(ctx context.Context, query string, docs []*models.Document) {
	n := deepFetchCount(query)
	if n > len(docs) {
		n = len(docs)
	}
	if n == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, doc := range docs[:n] {
		doc := doc
		g.Go(func() error {
			if content := o.deps.Fetcher.FetchAndClean(gctx, doc.URL); content != "" {
				doc.FullContent = content
			}
			return nil
		})
	}
	g.Wait() //nolint:errcheck // workers never return errors
}

// scoreAndSort assigns confidence scores and orders docs best-first.
func (o *Orchestrator) scoreAndSort(docs []*models.Document, query string) {
	if o.deps.Scorer == nil {
		return
	}
	o.deps.Scorer.ScoreBatch(docs, query)
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].ConfidenceScore > docs[j].ConfidenceScore
	})
}

// finalSort applies the caller-requested ordering. "date" sorts newest first
// with undated documents last; anything else orders by confidence. Runs last
// because a refinement merge can interleave two already-sorted sets.
func (o *Orchestrator) finalSort(docs []*models.Document, sortBy string) {
	if sortBy != "date" {
		sort.SliceStable(docs, func(i, j int) bool {
			return docs[i].ConfidenceScore > docs[j].ConfidenceScore
		})
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		a, b := docs[i].PublishedAt, docs[j].PublishedAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
}

// summarize generates per-document summaries, attaches them in order, and
// persists them when a store and user identity are present. Failures are
// logged and never fail the search.
func (o *Orchestrator) summarize(ctx context.Context, query string, docs []*models.Document, opts models.SearchOptions) {
	summaries, err := o.deps.Summarizer.SummarizeBatch(ctx, docs, query)
	if err != nil {
		o.logger.Warn("summarization failed", zap.Error(err))
		return
	}
	for i := range summaries {
		if i < len(docs) && summaries[i].Summary != "" {
			docs[i].Summary = summaries[i].Summary
		}
	}
	if o.deps.SummaryStore != nil && opts.UserID != "" {
		saved, failed := o.deps.SummaryStore.SaveBatch(ctx, summaries, query, opts.UserID, opts.ConversationID)
		o.logger.Debug("persisted summaries",
			zap.Int("saved", saved),
			zap.Int("failed", failed))
	}
}

// maybeRefine runs at most one refinement pass: if the current result set is
// weak, re-search with an alternative query and keep the union when the
// alternative actually improved things.
func (o *Orchestrator) maybeRefine(ctx context.Context, query string, maxResults int, opts models.SearchOptions, docs []*models.Document) []*models.Document {
	if o.deps.Refiner == nil {
		return docs
	}
	avg := refine.MeanConfidence(docs)
	if !o.deps.Refiner.ShouldRefine(len(docs), avg) {
		return docs
	}

	candidates := o.deps.Refiner.RefinedQueries(ctx, query, o.now())
	if len(candidates) == 0 {
		return docs
	}
	refined := candidates[0]
	o.logger.Info("refining weak result set",
		zap.String("original", query),
		zap.String("refined", refined),
		zap.Int("results", len(docs)),
		zap.Float64("avg_confidence", avg))

	subOpts := opts
	subOpts.AutoRefine = false
	subOpts.SkipCache = true
	sub, err := o.search(ctx, refined, maxResults, subOpts, 1)
	if err != nil {
		o.logger.Warn("refinement search failed", zap.Error(err))
		return docs
	}
	if len(sub.Results) <= len(docs) && refine.MeanConfidence(sub.Results) <= avg {
		return docs
	}

	merged := refine.Merge(sub.Results, docs)
	if len(merged) > maxResults {
		merged = merged[:maxResults]
	}
	return merged
}

// enqueueIngest hands documents to the background graph worker without
// blocking; the job is dropped with a warning when the queue is full.
func (o *Orchestrator) enqueueIngest(docs []*models.Document) {
	job := ingestJob{docs: docs, groupID: o.cfg.Graph.GroupID}
	select {
	case o.ingestCh <- job:
	default:
		o.logger.Warn("graph ingest queue full, dropping batch",
			zap.Int("docs", len(docs)))
	}
}

func (o *Orchestrator) ingestLoop() {
	defer close(o.done)
	for job := range o.ingestCh {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := o.deps.Graph.UploadAndProcess(ctx, job.docs, job.groupID); err != nil {
			o.logger.Warn("graph ingestion failed", zap.Error(err))
		}
		cancel()
	}
}

// graphSearch queries the local graph store for supplementary results.
// Best effort: failures are logged and return nil.
func (o *Orchestrator) graphSearch(ctx context.Context, query string) []*models.Document {
	gctx, cancel := context.WithTimeout(ctx, graphSearchTimeout)
	defer cancel()
	results, err := o.deps.Graph.Search(gctx, query, o.cfg.Graph.GroupID, graphSearchLimit)
	if err != nil {
		o.logger.Debug("graph search failed", zap.Error(err))
		return nil
	}
	return results
}
