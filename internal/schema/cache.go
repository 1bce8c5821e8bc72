package schema

import (
	"context"
	"sync"
	"time"
)

type Fetcher interface {
	Fetch(ctx context.Context) (*Snapshot, error)
}

// Cache holds the process-wide schema snapshot. The introspector stays
// stateless; callers decide the refresh cadence through the TTL or an explicit
// Refresh. Safe for concurrent readers.
type Cache struct {
	fetcher Fetcher
	ttl     time.Duration
	now     func() time.Time

	mu       sync.RWMutex
	snapshot *Snapshot
	loadedAt time.Time
}

func NewCache(fetcher Fetcher, ttl time.Duration) *Cache {
	return &Cache{fetcher: fetcher, ttl: ttl, now: time.Now}
}

// Get returns the cached snapshot, fetching a fresh one when the cache is
// empty or the TTL has elapsed.
func (c *Cache) Get(ctx context.Context) (*Snapshot, error) {
	c.mu.RLock()
	snap := c.snapshot
	loadedAt := c.loadedAt
	c.mu.RUnlock()

	if snap != nil && (c.ttl <= 0 || c.now().Sub(loadedAt) < c.ttl) {
		return snap, nil
	}
	return c.Refresh(ctx)
}

// Refresh fetches a new snapshot unconditionally. A failed fetch leaves any
// previously cached snapshot in place.
func (c *Cache) Refresh(ctx context.Context) (*Snapshot, error) {
	snap, err := c.fetcher.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.snapshot = snap
	c.loadedAt = c.now()
	c.mu.Unlock()
	return snap, nil
}
