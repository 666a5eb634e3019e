// Package config provides configuration loading and structs for the websearch service.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Search    SearchConfig    `yaml:"search"`
	Providers ProvidersConfig `yaml:"providers"`
	Cache     CacheConfig     `yaml:"cache"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Graph     GraphConfig     `yaml:"graph"`
	Summarize SummarizeConfig `yaml:"summarize"`
	Storage   StorageConfig   `yaml:"storage"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// SearchConfig holds orchestration settings.
type SearchConfig struct {
	Enabled          *bool  `yaml:"enabled"`
	MinQueryLength   int    `yaml:"min_query_length"`
	MaxQueryLength   int    `yaml:"max_query_length"`
	DefaultResults   int    `yaml:"default_results"`
	MaxResults       int    `yaml:"max_results"`
	PrimaryProvider  string `yaml:"primary_provider"`
	FallbackProvider string `yaml:"fallback_provider"`
	RequestTimeoutMs int    `yaml:"request_timeout_ms"`
}

// EnabledOrDefault reports whether the subsystem is enabled; defaults to true when unset.
func (s *SearchConfig) EnabledOrDefault() bool {
	if s.Enabled != nil {
		return *s.Enabled
	}
	return true
}

// ProviderConfig holds endpoint and credentials for one search backend.
type ProviderConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
}

// ProvidersConfig holds per-provider settings keyed by provider name.
type ProvidersConfig struct {
	DuckDuckGo ProviderConfig `yaml:"duckduckgo"`
	Brave      ProviderConfig `yaml:"brave"`
	Tavily     ProviderConfig `yaml:"tavily"`
	Serper     ProviderConfig `yaml:"serper"`
	SearxNG    ProviderConfig `yaml:"searxng"`
}

// CacheConfig holds result cache settings.
type CacheConfig struct {
	Enabled    *bool `yaml:"enabled"`
	TTLSeconds int   `yaml:"ttl_seconds"`
	MaxEntries int   `yaml:"max_entries"`
}

// EnabledOrDefault reports whether caching is enabled; defaults to true when unset.
func (c *CacheConfig) EnabledOrDefault() bool {
	if c.Enabled != nil {
		return *c.Enabled
	}
	return true
}

// FetchConfig holds content fetcher settings.
type FetchConfig struct {
	MaxContentChars int    `yaml:"max_content_chars"`
	TimeoutMs       int    `yaml:"timeout_ms"`
	UserAgent       string `yaml:"user_agent"`
}

// ScoringConfig holds confidence scoring settings.
type ScoringConfig struct {
	KeywordWeight    float64 `yaml:"keyword_weight"`
	ReputationWeight float64 `yaml:"reputation_weight"`
	RecencyWeight    float64 `yaml:"recency_weight"`
	TrustListPath    string  `yaml:"trust_list_path"`
	WatchTrustList   bool    `yaml:"watch_trust_list"`
}

// TelemetryConfig holds latency telemetry settings.
type TelemetryConfig struct {
	WindowSize     int  `yaml:"window_size"`
	RoutingEnabled bool `yaml:"routing_enabled"`
}

// GraphConfig holds knowledge-graph store settings.
type GraphConfig struct {
	IngestEnabled bool   `yaml:"ingest_enabled"`
	GroupID       string `yaml:"group_id"`
	IndexPath     string `yaml:"index_path"` // empty = in-memory
}

// SummarizeConfig holds LLM summarizer settings.
type SummarizeConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// StorageConfig holds summary persistence settings.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// Load reads and parses the config file at path, applies defaults, and
// overlays credentials from the environment. Returns an error if the file
// cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	applyEnv(&cfg)
	return &cfg, nil
}

// Default returns a config with all defaults applied and environment
// credentials overlaid, for running without a config file.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	applyEnv(&cfg)
	return &cfg
}

// applyEnv overlays provider and summarizer credentials from environment
// variables of the form WEBSEARCH_<NAME>_API_KEY.
func applyEnv(cfg *Config) {
	overlay := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	overlay(&cfg.Providers.Brave.APIKey, "WEBSEARCH_BRAVE_API_KEY")
	overlay(&cfg.Providers.Tavily.APIKey, "WEBSEARCH_TAVILY_API_KEY")
	overlay(&cfg.Providers.Serper.APIKey, "WEBSEARCH_SERPER_API_KEY")
	overlay(&cfg.Providers.SearxNG.Endpoint, "WEBSEARCH_SEARXNG_ENDPOINT")
	overlay(&cfg.Summarize.APIKey, "WEBSEARCH_OPENAI_API_KEY")
}
