package services

import (
	"sync"
	"time"

	"github.com/camplight-labs/camplight-core/internal/core/domain"
)

const (
	// DefaultValidationTTL is how long a cached classification is trusted.
	// Seconds, not minutes: entries carry a decrypted token.
	DefaultValidationTTL = 10 * time.Second

	// DefaultValidationCacheSize bounds the cache.
	DefaultValidationCacheSize = 4096
)

// ValidationCache is a bounded, TTL-evicting map of per-user connection
// classifications. It is per-process and deliberately not shared across
// instances: a disconnect on one instance becomes visible to another only
// after the TTL. Callers needing strong consistency read through to the
// store instead.
type ValidationCache struct {
	mu         sync.Mutex
	entries    map[string]cacheEntry
	ttl        time.Duration
	maxEntries int

	// now is swappable in tests.
	now func() time.Time
}

// cacheEntry holds one classification: either a usable connection or the
// sentinel error explaining why the user cannot call upstream.
type cacheEntry struct {
	conn      *domain.ValidatedConnection
	err       error
	expiresAt time.Time
}

// NewValidationCache creates a cache with the given entry TTL and size bound.
func NewValidationCache(ttl time.Duration, maxEntries int) *ValidationCache {
	if ttl <= 0 {
		ttl = DefaultValidationTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultValidationCacheSize
	}
	return &ValidationCache{
		entries:    make(map[string]cacheEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// get returns the cached classification for userID, if fresh.
func (c *ValidationCache) get(userID string) (*domain.ValidatedConnection, error, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[userID]
	if !ok {
		return nil, nil, false
	}
	if !c.now().Before(entry.expiresAt) {
		delete(c.entries, userID)
		return nil, nil, false
	}
	return entry.conn, entry.err, true
}

// set stores a classification for userID.
func (c *ValidationCache) set(userID string, conn *domain.ValidatedConnection, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxEntries {
		c.evictLocked()
	}
	c.entries[userID] = cacheEntry{
		conn:      conn,
		err:       err,
		expiresAt: c.now().Add(c.ttl),
	}
}

// Purge drops the entry for userID. Disconnect and reconnect call this so
// the change is visible immediately within this process.
func (c *ValidationCache) Purge(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
}

// Len reports the current entry count.
func (c *ValidationCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictLocked drops expired entries, then arbitrary ones until under bound.
// Entries live for seconds, so losing a live one early only costs one extra
// store read.
func (c *ValidationCache) evictLocked() {
	now := c.now()
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
		}
	}
	for k := range c.entries {
		if len(c.entries) < c.maxEntries {
			break
		}
		delete(c.entries, k)
	}
}
