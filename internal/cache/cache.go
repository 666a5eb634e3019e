// Package cache provides a TTL-bounded in-memory cache for search results.
package cache

import (
	"container/list"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/finetunelab/websearch/internal/models"
)

// Entry is one cached result set, keyed by (query, provider, maxResults).
type Entry struct {
	Query      string
	Provider   string
	MaxResults int
	Documents  []*models.Document
	RawPayload []byte
	FetchedAt  time.Time
	ExpiresAt  time.Time
}

// Expired reports whether the entry's TTL has elapsed at t.
func (e *Entry) Expired(t time.Time) bool {
	return t.After(e.ExpiresAt)
}

// Cache maps (query, provider, maxResults) to a previously fetched result
// set with an expiry. Reads validate expiry themselves, so stale entries are
// never returned even before a purge sweep runs. Safe for concurrent use.
type Cache struct {
	mu       sync.RWMutex
	entries  map[string]*list.Element
	order    *list.List // insertion order, oldest at back
	capacity int

	now func() time.Time
}

type cacheItem struct {
	key   string
	entry *Entry
}

// New creates a cache bounded at capacity entries. When full, the oldest
// entry is evicted on insert.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Cache{
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		capacity: capacity,
		now:      time.Now,
	}
}

// Key builds the cache key for a (query, provider, maxResults) tuple.
func Key(query, provider string, maxResults int) string {
	var b strings.Builder
	b.WriteString(query)
	b.WriteByte(0)
	b.WriteString(provider)
	b.WriteByte(0)
	b.WriteString(strconv.Itoa(maxResults))
	return b.String()
}

// cloneDocuments deep-copies docs so cached state is never aliased by
// callers. Later pipeline stages mutate documents in place; a shared slice
// would leak those writes into the cache and race on concurrent hits.
func cloneDocuments(docs []*models.Document) []*models.Document {
	out := make([]*models.Document, len(docs))
	for i, doc := range docs {
		clone := *doc
		if doc.PublishedAt != nil {
			ts := *doc.PublishedAt
			clone.PublishedAt = &ts
		}
		out[i] = &clone
	}
	return out
}

// Get returns the entry for the tuple if present and unexpired. Expired
// entries are removed on the read path. The returned documents are copies;
// callers may mutate them freely.
func (c *Cache) Get(query, provider string, maxResults int) *Entry {
	key := Key(query, provider, maxResults)

	c.mu.RLock()
	elem, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil
	}

	entry := elem.Value.(*cacheItem).entry
	if entry.Expired(c.now()) {
		c.mu.Lock()
		if cur, still := c.entries[key]; still && cur == elem {
			c.order.Remove(elem)
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil
	}

	snapshot := *entry
	snapshot.Documents = cloneDocuments(entry.Documents)
	return &snapshot
}

// Set stores a snapshot of the documents for the tuple with the given TTL,
// overwriting any existing entry and evicting the oldest entry when at
// capacity. The stored copies are unaffected by later mutation of docs.
func (c *Cache) Set(query, provider string, maxResults int, docs []*models.Document, raw []byte, ttl time.Duration) {
	key := Key(query, provider, maxResults)
	fetchedAt := c.now()
	entry := &Entry{
		Query:      query,
		Provider:   provider,
		MaxResults: maxResults,
		Documents:  cloneDocuments(docs),
		RawPayload: raw,
		FetchedAt:  fetchedAt,
		ExpiresAt:  fetchedAt.Add(ttl),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		elem.Value.(*cacheItem).entry = entry
		c.order.MoveToFront(elem)
		return
	}

	elem := c.order.PushFront(&cacheItem{key: key, entry: entry})
	c.entries[key] = elem

	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheItem).key)
		}
	}
}

// PurgeExpired removes all expired entries and returns how many were dropped.
func (c *Cache) PurgeExpired() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	purged := 0
	for elem := c.order.Back(); elem != nil; {
		prev := elem.Prev()
		item := elem.Value.(*cacheItem)
		if item.entry.Expired(now) {
			c.order.Remove(elem)
			delete(c.entries, item.key)
			purged++
		}
		elem = prev
	}
	return purged
}

// Len returns the current number of entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.order.Len()
}
