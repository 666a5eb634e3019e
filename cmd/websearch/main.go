// Package main is the websearch CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/finetunelab/websearch/internal/cache"
	"github.com/finetunelab/websearch/internal/config"
	"github.com/finetunelab/websearch/internal/fetch"
	"github.com/finetunelab/websearch/internal/graph"
	"github.com/finetunelab/websearch/internal/models"
	"github.com/finetunelab/websearch/internal/provider"
	"github.com/finetunelab/websearch/internal/refine"
	"github.com/finetunelab/websearch/internal/scoring"
	"github.com/finetunelab/websearch/internal/search"
	"github.com/finetunelab/websearch/internal/server"
	"github.com/finetunelab/websearch/internal/storage"
	"github.com/finetunelab/websearch/internal/summarize"
	"github.com/finetunelab/websearch/internal/telemetry"
	"github.com/finetunelab/websearch/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/websearch/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used. A missing default file falls back to built-in defaults plus
// environment credentials.
func loadConfig(path string) (*config.Config, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				return config.Load(fallback)
			}
		}
		if _, statErr := os.Stat(path); statErr != nil {
			return config.Default(), nil
		}
	}
	return config.Load(path)
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "version", "--version", "-v":
		fmt.Printf("websearch version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// Components holds everything the orchestrator needs, for shared wiring
// between the server and one-shot search commands.
type Components struct {
	Registry     *provider.Registry
	Tracker      *telemetry.Tracker
	Orchestrator *search.Orchestrator

	trustCancel context.CancelFunc
	store       *storage.SummaryStore
	graphStore  *graph.Store
}

// Close releases background workers and storage handles.
func (c *Components) Close() {
	if c.Orchestrator != nil {
		c.Orchestrator.Close()
	}
	if c.trustCancel != nil {
		c.trustCancel()
	}
	if c.store != nil {
		_ = c.store.Close()
	}
	if c.graphStore != nil {
		_ = c.graphStore.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	registry := provider.NewRegistry(logger)
	registry.Register(provider.NewDuckDuckGo(cfg.Providers.DuckDuckGo.Endpoint))
	if p, err := provider.NewBrave(cfg.Providers.Brave.Endpoint, cfg.Providers.Brave.APIKey); err == nil {
		registry.Register(p)
	} else {
		logger.Debug("brave provider not configured", zap.Error(err))
	}
	if p, err := provider.NewTavily(cfg.Providers.Tavily.Endpoint, cfg.Providers.Tavily.APIKey); err == nil {
		registry.Register(p)
	} else {
		logger.Debug("tavily provider not configured", zap.Error(err))
	}
	if p, err := provider.NewSerper(cfg.Providers.Serper.Endpoint, cfg.Providers.Serper.APIKey); err == nil {
		registry.Register(p)
	} else {
		logger.Debug("serper provider not configured", zap.Error(err))
	}
	if p, err := provider.NewSearxNG(cfg.Providers.SearxNG.Endpoint); err == nil {
		registry.Register(p)
	} else {
		logger.Debug("searxng provider not configured", zap.Error(err))
	}

	trust := scoring.NewTrustList(logger)
	var trustCancel context.CancelFunc
	if cfg.Scoring.TrustListPath != "" {
		if err := trust.LoadFile(cfg.Scoring.TrustListPath); err != nil {
			logger.Warn("trust list load failed, using built-in defaults", zap.Error(err))
		} else if cfg.Scoring.WatchTrustList {
			var watchCtx context.Context
			watchCtx, trustCancel = context.WithCancel(context.Background())
			if err := trust.Watch(watchCtx, cfg.Scoring.TrustListPath); err != nil {
				logger.Warn("trust list watch failed", zap.Error(err))
			}
		}
	}

	weights := scoring.Weights{
		Keyword:    cfg.Scoring.KeywordWeight,
		Reputation: cfg.Scoring.ReputationWeight,
		Recency:    cfg.Scoring.RecencyWeight,
	}
	tracker := telemetry.NewTracker(cfg.Telemetry.WindowSize)
	fetcher := fetch.NewFetcher(
		time.Duration(cfg.Fetch.TimeoutMs)*time.Millisecond,
		cfg.Fetch.UserAgent,
		cfg.Fetch.MaxContentChars,
		logger,
	)

	var summarizer search.Summarizer
	var generator refine.QueryGenerator
	if client, err := summarize.NewClient(cfg.Summarize.APIKey, cfg.Summarize.BaseURL, cfg.Summarize.Model, logger); err == nil {
		summarizer = client
		generator = client
	} else {
		logger.Debug("summarizer not configured", zap.Error(err))
	}

	components := &Components{
		Registry:    registry,
		Tracker:     tracker,
		trustCancel: trustCancel,
	}

	var summaryStore search.SummaryStore
	if cfg.Storage.DatabasePath != "" {
		store, err := storage.NewSummaryStore(cfg.Storage.DatabasePath, logger)
		if err != nil {
			components.Close()
			return nil, fmt.Errorf("failed to open summary store: %w", err)
		}
		components.store = store
		summaryStore = store
	}

	var graphStore search.GraphStore
	if cfg.Graph.IngestEnabled {
		gs, err := graph.NewStore(cfg.Graph.IndexPath)
		if err != nil {
			components.Close()
			return nil, fmt.Errorf("failed to open graph store: %w", err)
		}
		components.graphStore = gs
		graphStore = gs
	}

	deps := search.Deps{
		Cache:        cache.New(cfg.Cache.MaxEntries),
		Tracker:      tracker,
		Fetcher:      fetcher,
		Scorer:       scoring.NewEngine(weights, trust, logger),
		Refiner:      refine.NewRefiner(0, 0, generator, logger),
		Summarizer:   summarizer,
		SummaryStore: summaryStore,
		Graph:        graphStore,
	}
	components.Orchestrator = search.New(cfg, registry, deps, logger)
	return components, nil
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	srv := server.NewServer(
		components.Orchestrator,
		components.Registry,
		components.Tracker,
		&cfg.Server,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	maxResults := fs.Int("limit", 0, "number of results (0 = configured default)")
	providerName := fs.String("provider", "", "force a specific provider")
	deep := fs.Bool("deep", false, "fetch full page content for top results")
	summarizeFlag := fs.Bool("summarize", false, "generate per-result summaries")
	autoRefine := fs.Bool("refine", false, "retry with a refined query when results are weak")
	skipCache := fs.Bool("no-cache", false, "bypass the result cache")
	sortBy := fs.String("sort", "", "sort order: confidence (default) or date")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: websearch search [flags] <query>")
		os.Exit(1)
	}
	query := strings.Join(fs.Args(), " ")

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize components: %v\n", err)
		os.Exit(1)
	}
	defer components.Close()

	opts := models.SearchOptions{
		ProviderOverride: *providerName,
		SkipCache:        *skipCache,
		DeepSearch:       *deep,
		Summarize:        *summarizeFlag,
		AutoRefine:       *autoRefine,
		SortBy:           *sortBy,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	response, err := components.Orchestrator.Search(ctx, query, *maxResults, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(response); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		printResults(response)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func printResults(response *models.SearchResponse) {
	fmt.Printf("Results for %q (provider: %s, cached: %v)\n\n",
		response.Query, response.Metadata.Provider, response.Metadata.Cached)
	for i, doc := range response.Results {
		fmt.Printf("%2d. %s  [%.2f]\n", i+1, doc.Title, doc.ConfidenceScore)
		fmt.Printf("    %s\n", doc.URL)
		if doc.Summary != "" {
			fmt.Printf("    %s\n", doc.Summary)
		} else if doc.Snippet != "" {
			fmt.Printf("    %s\n", doc.Snippet)
		}
		fmt.Println()
	}
	if len(response.GraphResults) > 0 {
		fmt.Println("Related from local index:")
		for _, doc := range response.GraphResults {
			fmt.Printf("  - %s  %s\n", doc.Title, doc.URL)
		}
	}
}

func printUsage() {
	fmt.Println(`websearch - Multi-provider web search orchestrator

Usage:
  websearch server [flags]          Start the HTTP API server
  websearch search [flags] <query>  Run a one-shot search
  websearch version                 Show version
  websearch help                    Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/websearch/config.yaml)
  --debug            Enable debug logging

Search Flags:
  --config string    Config file path
  --limit int        Number of results (default from config)
  --provider string  Force a specific provider (duckduckgo, brave, tavily, serper, searxng)
  --deep             Fetch full page content for top results
  --summarize        Generate per-result summaries (requires an OpenAI API key)
  --refine           Retry with a refined query when results are weak
  --no-cache         Bypass the result cache
  --sort string      Sort order: confidence (default) or date
  --output string    Output format: text or json

Examples:
  websearch server
  websearch search "go concurrency patterns"
  websearch search --deep --summarize "compare postgres and mysql replication"
  websearch search --provider brave --sort date "kubernetes release"
  websearch search --output json "rust async runtimes"`)
}
