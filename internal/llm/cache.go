package llm

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"
)

// cacheEntry represents a cached completion.
type cacheEntry struct {
	expiry time.Time
	text   string
}

// completionCache provides thread-safe caching for completion responses.
// Completions are deterministic enough at low temperature that replaying
// an identical prompt within the TTL is wasted spend.
type completionCache struct {
	entries map[string]cacheEntry
	stopCh  chan struct{}
	ttl     time.Duration
	mu      sync.RWMutex
}

// newCompletionCache creates a new cache with the specified TTL.
func newCompletionCache(ttl time.Duration) *completionCache {
	if ttl == 0 {
		ttl = 15 * time.Minute
	}

	cache := &completionCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}

	go cache.cleanup()

	return cache
}

// key derives the cache key from both prompts.
func (c *completionCache) key(systemPrompt, userPrompt string) string {
	hash := sha256.Sum256([]byte(systemPrompt + "\x00" + userPrompt))
	return fmt.Sprintf("%x", hash)
}

// get retrieves a completion from the cache if it exists and hasn't expired.
func (c *completionCache) get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists {
		return "", false
	}

	if time.Now().After(entry.expiry) {
		return "", false
	}

	return entry.text, true
}

// set stores a completion in the cache.
func (c *completionCache) set(key, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		text:   text,
		expiry: time.Now().Add(c.ttl),
	}
}

// cleanup periodically removes expired entries.
func (c *completionCache) cleanup() {
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

// size returns the number of entries in the cache.
func (c *completionCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the cleanup goroutine.
func (c *completionCache) Close() {
	close(c.stopCh)
}
