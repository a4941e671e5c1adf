package llm

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/cardsage/cardsage/internal/model"
)

// cacheEntry represents a cached extraction result.
type cacheEntry struct {
	expiry  time.Time
	request model.StructuredRequest
}

// extractionCache provides thread-safe caching for extraction results so
// repeated queries do not burn provider tokens.
type extractionCache struct {
	entries map[string]cacheEntry
	stopCh  chan struct{}
	ttl     time.Duration
	mu      sync.RWMutex
}

// newExtractionCache creates a new cache with the specified TTL.
func newExtractionCache(ttl time.Duration) *extractionCache {
	if ttl == 0 {
		ttl = 15 * time.Minute // Default TTL
	}

	cache := &extractionCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}

	// Start cleanup goroutine
	go cache.cleanup()

	return cache
}

// cacheKey derives a stable key for a query and locale pair.
func cacheKey(text, locale string) string {
	sum := sha256.Sum256([]byte(locale + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

// get retrieves a request from the cache if it exists and hasn't expired.
func (c *extractionCache) get(key string) (model.StructuredRequest, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists {
		return model.StructuredRequest{}, false
	}

	if time.Now().After(entry.expiry) {
		return model.StructuredRequest{}, false
	}

	return entry.request, true
}

// set stores a request in the cache.
func (c *extractionCache) set(key string, request model.StructuredRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		request: request,
		expiry:  time.Now().Add(c.ttl),
	}
}

// cleanup periodically removes expired entries.
func (c *extractionCache) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, entry := range c.entries {
				if now.After(entry.expiry) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

// clear removes all entries from the cache.
func (c *extractionCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// size returns the number of entries in the cache.
func (c *extractionCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the cleanup goroutine.
func (c *extractionCache) Close() {
	close(c.stopCh)
}
