// Package telemetry records per-provider search latency and outcome samples
// and exposes rolling percentile statistics used for routing decisions.
package telemetry

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Sample is one provider attempt.
type Sample struct {
	Provider    string    `json:"provider"`
	LatencyMs   int64     `json:"latency_ms"`
	Success     bool      `json:"success"`
	QueryLength int       `json:"query_length"`
	ErrorCode   string    `json:"error_code,omitempty"`
	At          time.Time `json:"at"`
}

// ProviderStats summarizes the tracked window for one provider.
type ProviderStats struct {
	Provider string `json:"provider"`
	Samples  int    `json:"samples"`
	Failures int    `json:"failures"`
	P50      int64  `json:"p50_ms"`
	P95      int64  `json:"p95_ms"`
}

// ring is a fixed-capacity FIFO buffer of samples.
type ring struct {
	items    []Sample
	head     int
	size     int
	capacity int
}

func newRing(capacity int) *ring {
	return &ring{items: make([]Sample, capacity), capacity: capacity}
}

func (r *ring) add(s Sample) {
	r.items[r.head] = s
	r.head = (r.head + 1) % r.capacity
	if r.size < r.capacity {
		r.size++
	}
}

func (r *ring) samples() []Sample {
	out := make([]Sample, r.size)
	if r.size < r.capacity {
		copy(out, r.items[:r.size])
	} else {
		copy(out, r.items[r.head:])
		copy(out[r.capacity-r.head:], r.items[:r.head])
	}
	return out
}

// Tracker collects latency samples per provider in bounded ring buffers.
// Thread-safe for concurrent orchestrator invocations.
type Tracker struct {
	mu         sync.RWMutex
	windows    map[string]*ring
	windowSize int

	totalSearches int64
	repeatCount   int64
	recentQueries *lru.Cache[string, struct{}]
}

// NewTracker creates a tracker keeping up to windowSize samples per provider.
func NewTracker(windowSize int) *Tracker {
	if windowSize <= 0 {
		windowSize = 256
	}
	recent, _ := lru.New[string, struct{}](500)
	return &Tracker{
		windows:       make(map[string]*ring),
		windowSize:    windowSize,
		recentQueries: recent,
	}
}

// Log appends one provider attempt sample.
func (t *Tracker) Log(provider string, latencyMs int64, success bool, queryLength int, errorCode string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	w, ok := t.windows[provider]
	if !ok {
		w = newRing(t.windowSize)
		t.windows[provider] = w
	}
	w.add(Sample{
		Provider:    provider,
		LatencyMs:   latencyMs,
		Success:     success,
		QueryLength: queryLength,
		ErrorCode:   errorCode,
		At:          time.Now(),
	})
}

// RecordQuery tracks query repetition across the whole subsystem.
func (t *Tracker) RecordQuery(query string) {
	hash := hashQuery(query)

	t.mu.Lock()
	defer t.mu.Unlock()

	t.totalSearches++
	if _, seen := t.recentQueries.Get(hash); seen {
		t.repeatCount++
	}
	t.recentQueries.Add(hash, struct{}{})
}

func hashQuery(query string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(query))))
	return hex.EncodeToString(sum[:16])
}

// Stats returns p50/p95 latency for the provider's tracked window. A
// provider with no samples returns zeros so ordering comparators stay total.
func (t *Tracker) Stats(provider string) ProviderStats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.statsLocked(provider)
}

func (t *Tracker) statsLocked(provider string) ProviderStats {
	stats := ProviderStats{Provider: provider}
	w, ok := t.windows[provider]
	if !ok || w.size == 0 {
		return stats
	}

	samples := w.samples()
	latencies := make([]int64, 0, len(samples))
	for _, s := range samples {
		latencies = append(latencies, s.LatencyMs)
		if !s.Success {
			stats.Failures++
		}
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	stats.Samples = len(latencies)
	stats.P50 = percentile(latencies, 50)
	stats.P95 = percentile(latencies, 95)
	return stats
}

// percentile returns the p-th percentile of sorted latencies using
// nearest-rank selection.
func percentile(sorted []int64, p int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (p*len(sorted) + 99) / 100
	if idx < 1 {
		idx = 1
	}
	if idx > len(sorted) {
		idx = len(sorted)
	}
	return sorted[idx-1]
}

// RankProviders returns names ordered ascending by p95 then p50 latency.
// Ties (including providers with no samples) keep their input order, which
// the orchestrator passes in registration order.
func (t *Tracker) RankProviders(names []string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ranked := make([]string, len(names))
	copy(ranked, names)
	stats := make(map[string]ProviderStats, len(names))
	for _, n := range names {
		stats[n] = t.statsLocked(n)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := stats[ranked[i]], stats[ranked[j]]
		if a.P95 != b.P95 {
			return a.P95 < b.P95
		}
		return a.P50 < b.P50
	})
	return ranked
}

// Snapshot summarizes all tracked providers plus query repetition counters.
type Snapshot struct {
	Providers     []ProviderStats `json:"providers"`
	TotalSearches int64           `json:"total_searches"`
	RepeatCount   int64           `json:"repeat_count"`
}

// Snapshot returns the current telemetry state for reporting.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	names := make([]string, 0, len(t.windows))
	for name := range t.windows {
		names = append(names, name)
	}
	sort.Strings(names)

	snap := Snapshot{
		TotalSearches: t.totalSearches,
		RepeatCount:   t.repeatCount,
	}
	for _, name := range names {
		snap.Providers = append(snap.Providers, t.statsLocked(name))
	}
	return snap
}
