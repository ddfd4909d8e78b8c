package params

import (
	"context"
	"sync"
	"time"
)

// Entry is a cached parameters value with its expiry metadata.
type Entry struct {
	Parameters Parameters `json:"parameters"`
	FetchedAt  time.Time  `json:"fetched_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
}

// Expired reports whether the entry is stale at now.
func (e Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Cache stores parameters per business path. Implementations must be safe
// for concurrent use.
type Cache interface {
	Get(ctx context.Context, path BusinessPath) (Entry, bool, error)
	Set(ctx context.Context, path BusinessPath, entry Entry) error
	Clear(ctx context.Context) error
}

// MemoryCache keeps entries in process memory. Expired entries are dropped
// lazily on Get.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[BusinessPath]Entry
	now     func() time.Time
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[BusinessPath]Entry),
		now:     time.Now,
	}
}

// WithClock overrides the clock used for expiry checks.
func (c *MemoryCache) WithClock(now func() time.Time) *MemoryCache {
	if now != nil {
		c.now = now
	}
	return c
}

// Get returns the entry for path when present and not expired.
func (c *MemoryCache) Get(_ context.Context, path BusinessPath) (Entry, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[path]
	c.mu.RUnlock()
	if !ok {
		return Entry{}, false, nil
	}
	if entry.Expired(c.now()) {
		c.mu.Lock()
		if current, still := c.entries[path]; still && current.ExpiresAt.Equal(entry.ExpiresAt) {
			delete(c.entries, path)
		}
		c.mu.Unlock()
		return Entry{}, false, nil
	}
	entry.Parameters = entry.Parameters.Clone()
	return entry, true, nil
}

// Set stores entry for path, replacing any previous value.
func (c *MemoryCache) Set(_ context.Context, path BusinessPath, entry Entry) error {
	entry.Parameters = entry.Parameters.Clone()
	c.mu.Lock()
	c.entries[path] = entry
	c.mu.Unlock()
	return nil
}

// Clear drops every entry.
func (c *MemoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	c.entries = make(map[BusinessPath]Entry)
	c.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
