package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	ApplyDefaults(&cfg)

	if cfg.Search.DefaultResults != 10 {
		t.Errorf("DefaultResults = %d, want 10", cfg.Search.DefaultResults)
	}
	if cfg.Search.MaxResults != 20 {
		t.Errorf("MaxResults = %d, want 20", cfg.Search.MaxResults)
	}
	if cfg.Search.PrimaryProvider != "duckduckgo" {
		t.Errorf("PrimaryProvider = %q", cfg.Search.PrimaryProvider)
	}
	if !cfg.Search.EnabledOrDefault() {
		t.Error("expected search enabled by default")
	}
	if !cfg.Cache.EnabledOrDefault() {
		t.Error("expected cache enabled by default")
	}
	if cfg.Fetch.MaxContentChars != 15000 {
		t.Errorf("MaxContentChars = %d, want 15000", cfg.Fetch.MaxContentChars)
	}
	sum := cfg.Scoring.KeywordWeight + cfg.Scoring.ReputationWeight + cfg.Scoring.RecencyWeight
	if sum < 0.99 || sum > 1.01 {
		t.Errorf("default weights sum to %f, want 1.0", sum)
	}
}

func TestDefaultsPreserveExplicitValues(t *testing.T) {
	f := false
	cfg := Config{
		Search: SearchConfig{Enabled: &f, MaxResults: 5},
	}
	ApplyDefaults(&cfg)

	if cfg.Search.EnabledOrDefault() {
		t.Error("explicit enabled=false was overwritten")
	}
	if cfg.Search.MaxResults != 5 {
		t.Errorf("MaxResults = %d, want 5", cfg.Search.MaxResults)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
debug: true
search:
  primary_provider: tavily
  max_results: 15
cache:
  ttl_seconds: 60
providers:
  tavily:
    api_key: tvly-test
`)
	if err := os.WriteFile(path, content, 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.Debug {
		t.Error("expected debug true")
	}
	if cfg.Search.PrimaryProvider != "tavily" {
		t.Errorf("PrimaryProvider = %q", cfg.Search.PrimaryProvider)
	}
	if cfg.Search.MaxResults != 15 {
		t.Errorf("MaxResults = %d", cfg.Search.MaxResults)
	}
	if cfg.Cache.TTLSeconds != 60 {
		t.Errorf("TTLSeconds = %d", cfg.Cache.TTLSeconds)
	}
	if cfg.Providers.Tavily.APIKey != "tvly-test" {
		t.Errorf("Tavily.APIKey = %q", cfg.Providers.Tavily.APIKey)
	}
	// Defaults still applied for unset fields.
	if cfg.Search.DefaultResults != 10 {
		t.Errorf("DefaultResults = %d, want 10", cfg.Search.DefaultResults)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("WEBSEARCH_BRAVE_API_KEY", "brave-env-key")
	cfg := Default()
	if cfg.Providers.Brave.APIKey != "brave-env-key" {
		t.Errorf("Brave.APIKey = %q, want env value", cfg.Providers.Brave.APIKey)
	}
}
