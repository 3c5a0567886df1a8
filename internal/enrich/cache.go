package enrich

import (
	"sync"
	"time"

	"github.com/classdesk/session-gateway/internal/session"
)

const defaultCleanupInterval = 5 * time.Minute

// freshnessCache keeps recently fetched profiles keyed by backend access
// token. It exists to collapse render-storm refetches: a read inside the TTL
// reuses the last profile instead of hitting the backend again. The TTL is
// short so out-of-band role/status changes still appear within seconds.
type freshnessCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	stopCh  chan struct{}
}

type cacheEntry struct {
	profile   session.Profile
	fetchedAt time.Time
}

func newFreshnessCache(ttl time.Duration) *freshnessCache {
	c := &freshnessCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}
	if ttl > 0 {
		go c.cleanupLoop()
	}
	return c
}

// Get returns the cached profile for a token if still fresh.
func (c *freshnessCache) Get(token string, now time.Time) (session.Profile, bool) {
	if c.ttl <= 0 || token == "" {
		return session.Profile{}, false
	}
	c.mu.RLock()
	entry, ok := c.entries[token]
	c.mu.RUnlock()
	if !ok || now.Sub(entry.fetchedAt) > c.ttl {
		return session.Profile{}, false
	}
	return entry.profile, true
}

// Put stores a freshly fetched profile.
func (c *freshnessCache) Put(token string, profile session.Profile, now time.Time) {
	if c.ttl <= 0 || token == "" {
		return
	}
	c.mu.Lock()
	c.entries[token] = cacheEntry{profile: profile, fetchedAt: now}
	c.mu.Unlock()
}

// Invalidate drops the entry for a token. Called on a 401 so a dead token
// never serves a cached profile.
func (c *freshnessCache) Invalidate(token string) {
	c.mu.Lock()
	delete(c.entries, token)
	c.mu.Unlock()
}

func (c *freshnessCache) cleanupLoop() {
	ticker := time.NewTicker(defaultCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

// Stop stops the cleanup goroutine.
func (c *freshnessCache) Stop() {
	close(c.stopCh)
}

func (c *freshnessCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for token, entry := range c.entries {
		if now.Sub(entry.fetchedAt) > c.ttl {
			delete(c.entries, token)
		}
	}
}
