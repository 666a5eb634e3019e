package cache

import (
	"testing"
	"time"

	"github.com/finetunelab/websearch/internal/models"
)

func docs(urls ...string) []*models.Document {
	out := make([]*models.Document, len(urls))
	for i, u := range urls {
		out[i] = &models.Document{Title: u, URL: u}
	}
	return out
}

func TestGetSetRoundTrip(t *testing.T) {
	c := New(10)
	c.Set("golang", "duckduckgo", 5, docs("https://go.dev"), []byte(`{}`), time.Minute)

	entry := c.Get("golang", "duckduckgo", 5)
	if entry == nil {
		t.Fatal("expected hit")
	}
	if len(entry.Documents) != 1 || entry.Documents[0].URL != "https://go.dev" {
		t.Errorf("unexpected documents: %+v", entry.Documents)
	}
}

func TestKeyIsolation(t *testing.T) {
	c := New(10)
	c.Set("golang", "duckduckgo", 5, docs("https://go.dev"), nil, time.Minute)

	tests := []struct {
		name             string
		query, provider  string
		maxResults       int
	}{
		{"different provider", "golang", "brave", 5},
		{"different maxResults", "golang", "duckduckgo", 10},
		{"different query", "rust", "duckduckgo", 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if c.Get(tt.query, tt.provider, tt.maxResults) != nil {
				t.Error("expected miss")
			}
		})
	}
}

func TestExpiryCheckedOnRead(t *testing.T) {
	c := New(10)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set("golang", "duckduckgo", 5, docs("https://go.dev"), nil, time.Minute)

	now = now.Add(2 * time.Minute)
	if c.Get("golang", "duckduckgo", 5) != nil {
		t.Error("expected expired entry to miss without a purge sweep")
	}
	if c.Len() != 0 {
		t.Errorf("expected expired entry removed on read, len = %d", c.Len())
	}
}

func TestPurgeExpired(t *testing.T) {
	c := New(10)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set("a", "p", 5, docs("https://a.example"), nil, time.Minute)
	c.Set("b", "p", 5, docs("https://b.example"), nil, time.Hour)

	now = now.Add(10 * time.Minute)
	if purged := c.PurgeExpired(); purged != 1 {
		t.Errorf("PurgeExpired() = %d, want 1", purged)
	}
	if c.Get("b", "p", 5) == nil {
		t.Error("unexpired entry was purged")
	}
}

func TestCapacityEviction(t *testing.T) {
	c := New(2)
	c.Set("a", "p", 5, docs("https://a.example"), nil, time.Minute)
	c.Set("b", "p", 5, docs("https://b.example"), nil, time.Minute)
	c.Set("c", "p", 5, docs("https://c.example"), nil, time.Minute)

	if c.Get("a", "p", 5) != nil {
		t.Error("expected oldest entry evicted")
	}
	if c.Get("b", "p", 5) == nil || c.Get("c", "p", 5) == nil {
		t.Error("expected newer entries retained")
	}
}

func TestSetStoresSnapshot(t *testing.T) {
	c := New(10)
	stored := docs("https://go.dev")
	c.Set("golang", "duckduckgo", 5, stored, nil, time.Minute)

	// Later pipeline stages mutate the live documents in place; the cached
	// copy must not see those writes.
	stored[0].FullContent = "full page text"
	stored[0].Summary = "a summary"
	stored[0].ConfidenceScore = 0.9

	entry := c.Get("golang", "duckduckgo", 5)
	if entry == nil {
		t.Fatal("expected hit")
	}
	if entry.Documents[0].FullContent != "" {
		t.Error("cached document leaked FullContent written after Set")
	}
	if entry.Documents[0].Summary != "" {
		t.Error("cached document leaked Summary written after Set")
	}
}

func TestGetReturnsCopies(t *testing.T) {
	c := New(10)
	c.Set("golang", "duckduckgo", 5, docs("https://go.dev", "https://go.dev/blog"), nil, time.Minute)

	first := c.Get("golang", "duckduckgo", 5)
	if first == nil {
		t.Fatal("expected hit")
	}
	first.Documents[0].Title = "mutated"
	first.Documents[0], first.Documents[1] = first.Documents[1], first.Documents[0]

	second := c.Get("golang", "duckduckgo", 5)
	if second.Documents[0].Title != "https://go.dev" {
		t.Errorf("cached title = %q, want original", second.Documents[0].Title)
	}
	if second.Documents[0].URL != "https://go.dev" {
		t.Error("cached document order changed by caller mutation")
	}
	if second.Documents[0] == first.Documents[1] {
		t.Error("Get returned aliased document pointers")
	}
}

func TestOverwriteSameKey(t *testing.T) {
	c := New(10)
	c.Set("a", "p", 5, docs("https://old.example"), nil, time.Minute)
	c.Set("a", "p", 5, docs("https://new.example"), nil, time.Minute)

	entry := c.Get("a", "p", 5)
	if entry == nil || entry.Documents[0].URL != "https://new.example" {
		t.Errorf("expected overwrite, got %+v", entry)
	}
	if c.Len() != 1 {
		t.Errorf("len = %d, want 1", c.Len())
	}
}
