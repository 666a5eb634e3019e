package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Search.MinQueryLength == 0 {
		cfg.Search.MinQueryLength = 2
	}
	if cfg.Search.MaxQueryLength == 0 {
		cfg.Search.MaxQueryLength = 500
	}
	if cfg.Search.DefaultResults == 0 {
		cfg.Search.DefaultResults = 10
	}
	if cfg.Search.MaxResults == 0 {
		cfg.Search.MaxResults = 20
	}
	if cfg.Search.PrimaryProvider == "" {
		cfg.Search.PrimaryProvider = "duckduckgo"
	}
	if cfg.Search.FallbackProvider == "" {
		cfg.Search.FallbackProvider = "brave"
	}
	if cfg.Search.RequestTimeoutMs == 0 {
		cfg.Search.RequestTimeoutMs = 10000
	}
	if cfg.Cache.TTLSeconds == 0 {
		cfg.Cache.TTLSeconds = 900
	}
	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = 1000
	}
	if cfg.Fetch.MaxContentChars == 0 {
		cfg.Fetch.MaxContentChars = 15000
	}
	if cfg.Fetch.TimeoutMs == 0 {
		cfg.Fetch.TimeoutMs = 12000
	}
	if cfg.Fetch.UserAgent == "" {
		cfg.Fetch.UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	}
	if cfg.Scoring.KeywordWeight == 0 && cfg.Scoring.ReputationWeight == 0 && cfg.Scoring.RecencyWeight == 0 {
		cfg.Scoring.KeywordWeight = 0.5
		cfg.Scoring.ReputationWeight = 0.3
		cfg.Scoring.RecencyWeight = 0.2
	}
	if cfg.Telemetry.WindowSize == 0 {
		cfg.Telemetry.WindowSize = 256
	}
	if cfg.Providers.DuckDuckGo.Endpoint == "" {
		cfg.Providers.DuckDuckGo.Endpoint = "https://html.duckduckgo.com/html/"
	}
	if cfg.Providers.Brave.Endpoint == "" {
		cfg.Providers.Brave.Endpoint = "https://api.search.brave.com/res/v1/web/search"
	}
	if cfg.Providers.Tavily.Endpoint == "" {
		cfg.Providers.Tavily.Endpoint = "https://api.tavily.com/search"
	}
	if cfg.Providers.Serper.Endpoint == "" {
		cfg.Providers.Serper.Endpoint = "https://google.serper.dev/search"
	}
	if cfg.Graph.GroupID == "" {
		cfg.Graph.GroupID = "default"
	}
	if cfg.Summarize.Model == "" {
		cfg.Summarize.Model = "gpt-4o-mini"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "data/summaries.db"
	}
}
