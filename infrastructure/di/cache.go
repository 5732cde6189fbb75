package di

import (
	"context"
	"sync"
	"time"

	"tutormatch-backend/application/ports"
)

const cacheSweepInterval = time.Minute

// queryCache is a TTL map backing the read-side caching middleware. Entries
// are evicted lazily on read and swept by a background janitor.
type queryCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	value    interface{}
	deadline time.Time
}

func (e cacheEntry) expired(now time.Time) bool {
	return now.After(e.deadline)
}

// NewQueryCache creates an in-memory cache and starts its janitor. The
// janitor stops when ctx is cancelled.
func NewQueryCache(ctx context.Context) ports.Cache {
	c := &queryCache{entries: make(map[string]cacheEntry)}
	go c.janitor(ctx)
	return c
}

// Get retrieves a live value from the cache
func (c *queryCache) Get(_ context.Context, key string) (interface{}, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || entry.expired(time.Now()) {
		return nil, false
	}
	return entry.value, true
}

// Set stores a value with a TTL in seconds
func (c *queryCache) Set(_ context.Context, key string, value interface{}, ttl int) error {
	c.mu.Lock()
	c.entries[key] = cacheEntry{
		value:    value,
		deadline: time.Now().Add(time.Duration(ttl) * time.Second),
	}
	c.mu.Unlock()
	return nil
}

// Delete removes a single key
func (c *queryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// Clear drops every entry
func (c *queryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
	return nil
}

func (c *queryCache) janitor(ctx context.Context) {
	ticker := time.NewTicker(cacheSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for key, entry := range c.entries {
				if entry.expired(now) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}
