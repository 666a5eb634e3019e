package scoring

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Tier classifies a source domain.
type Tier int

const (
	// TierUnknown is an unclassified domain.
	TierUnknown Tier = iota
	// TierHigh is a curated high-trust domain.
	TierHigh
	// TierLow is a known low-quality domain.
	TierLow
)

// defaultHighTrust are encyclopedic/reference/newswire domains. Subdomains
// inherit the tier.
var defaultHighTrust = []string{
	"wikipedia.org", "britannica.com", "arxiv.org", "nature.com",
	"sciencedirect.com", "acm.org", "ieee.org", "nih.gov", "reuters.com",
	"apnews.com", "bbc.com", "bbc.co.uk", "go.dev", "mozilla.org",
	"stackoverflow.com", "github.com",
}

// defaultLowSignals are clickbait markers checked against the domain and title.
var defaultLowSignals = []string{
	"clickbait", "viral", "buzz", "gossip", "shocking", "you won't believe",
	"doctors hate", "one weird trick", "top 10 reasons", "sponsored",
}

// trustListFile is the YAML shape of an external trust list.
type trustListFile struct {
	High       []string `yaml:"high"`
	Low        []string `yaml:"low"`
	LowSignals []string `yaml:"low_signals"`
}

// TrustList holds domain trust tiers and clickbait signal words. It starts
// from built-in defaults, can be extended from a YAML file, and can hot
// reload that file on change. Safe for concurrent use.
type TrustList struct {
	mu         sync.RWMutex
	high       map[string]bool
	low        map[string]bool
	lowSignals []string
	logger     *zap.Logger
}

// NewTrustList creates a trust list seeded with the built-in tiers.
func NewTrustList(logger *zap.Logger) *TrustList {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &TrustList{
		high:   make(map[string]bool),
		low:    make(map[string]bool),
		logger: logger,
	}
	for _, d := range defaultHighTrust {
		t.high[d] = true
	}
	t.lowSignals = append(t.lowSignals, defaultLowSignals...)
	return t
}

// LoadFile merges the YAML trust list at path on top of the defaults.
func (t *TrustList) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read trust list: %w", err)
	}
	var file trustListFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse trust list: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, d := range file.High {
		t.high[strings.ToLower(d)] = true
	}
	for _, d := range file.Low {
		t.low[strings.ToLower(d)] = true
	}
	for _, s := range file.LowSignals {
		t.lowSignals = append(t.lowSignals, strings.ToLower(s))
	}
	return nil
}

// Watch reloads the trust list whenever the file at path changes. It runs
// until ctx is cancelled. Reload failures are logged and the previous state
// is kept.
func (t *TrustList) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(path); err != nil {
		_ = watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := t.LoadFile(path); err != nil {
					t.logger.Warn("trust list reload failed", zap.String("path", path), zap.Error(err))
					continue
				}
				t.logger.Info("trust list reloaded", zap.String("path", path))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				t.logger.Warn("trust list watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}

// Tier classifies a domain. Subdomains inherit their parent's tier, and
// .gov/.edu hosts default to high trust.
func (t *TrustList) Tier(domain string) Tier {
	domain = strings.ToLower(domain)
	if domain == "" {
		return TierUnknown
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	for d := domain; d != ""; d = parentDomain(d) {
		if t.high[d] {
			return TierHigh
		}
		if t.low[d] {
			return TierLow
		}
	}
	if strings.HasSuffix(domain, ".gov") || strings.HasSuffix(domain, ".edu") {
		return TierHigh
	}
	return TierUnknown
}

// HasLowSignal reports whether s contains any clickbait signal word.
func (t *TrustList) HasLowSignal(s string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, signal := range t.lowSignals {
		if strings.Contains(s, signal) {
			return true
		}
	}
	return false
}

// parentDomain strips the leftmost label; "en.wikipedia.org" -> "wikipedia.org".
// Returns "" at the registrable-domain level.
func parentDomain(domain string) string {
	idx := strings.Index(domain, ".")
	if idx < 0 {
		return ""
	}
	rest := domain[idx+1:]
	if !strings.Contains(rest, ".") {
		return ""
	}
	return rest
}
