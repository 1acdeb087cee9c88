package client

import (
	"sync"
	"time"
)

const DefaultPreviewTTL = 5 * time.Second

type cacheEntry struct {
	preview Preview
	expires time.Time
}

// PreviewCache is a read-through, fixed-TTL cache keyed by session ID.
// Expired entries are removed by a sweep that is scheduled only while the
// cache holds something.
//
// A read that overlaps an invalidation may carry the state from before the
// write, so fills go through Token and SetIfCurrent.
type PreviewCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
	writes  Generation

	now       func() time.Time
	afterFunc func(d time.Duration, f func()) *time.Timer
	sweep     *time.Timer
}

func NewPreviewCache(ttl time.Duration) *PreviewCache {
	if ttl <= 0 {
		ttl = DefaultPreviewTTL
	}
	return &PreviewCache{
		ttl:       ttl,
		entries:   make(map[string]cacheEntry),
		now:       time.Now,
		afterFunc: time.AfterFunc,
	}
}

func (c *PreviewCache) Get(sessionID string) (Preview, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[sessionID]
	if !ok || !c.now().Before(e.expires) {
		return Preview{}, false
	}
	return e.preview, true
}

func (c *PreviewCache) Set(sessionID string, p Preview) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[sessionID] = cacheEntry{preview: p, expires: c.now().Add(c.ttl)}
	c.scheduleSweepLocked()
}

// Token is taken before fetching a preview that will fill the cache.
func (c *PreviewCache) Token() uint64 {
	return c.writes.Current()
}

// SetIfCurrent stores p unless some session was invalidated after token
// was taken.
func (c *PreviewCache) SetIfCurrent(sessionID string, p Preview, token uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.writes.IsCurrent(token) {
		return false
	}
	c.entries[sessionID] = cacheEntry{preview: p, expires: c.now().Add(c.ttl)}
	c.scheduleSweepLocked()
	return true
}

func (c *PreviewCache) Invalidate(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, sessionID)
	c.writes.Invalidate()
}

func (c *PreviewCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// SweepScheduled reports whether an eviction pass is pending.
func (c *PreviewCache) SweepScheduled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweep != nil
}

func (c *PreviewCache) scheduleSweepLocked() {
	if c.sweep != nil || len(c.entries) == 0 {
		return
	}
	c.sweep = c.afterFunc(c.ttl, c.evictExpired)
}

func (c *PreviewCache) evictExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for id, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, id)
		}
	}
	c.sweep = nil
	c.scheduleSweepLocked()
}
