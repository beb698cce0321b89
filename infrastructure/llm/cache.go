package llm

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/unicode/norm"
)

// DefaultCacheTTL is used when a cacheable request does not override it.
const DefaultCacheTTL = 5 * time.Minute

type cacheEntry struct {
	value    any
	storedAt time.Time
	ttl      time.Duration
}

func (e cacheEntry) expired(now time.Time) bool {
	return now.Sub(e.storedAt) > e.ttl
}

// ResponseCache is a TTL key/value store for model responses. Expiry is
// lazy: an entry past its TTL is treated as absent and evicted on read.
// Entries are never mutated, only replaced or deleted. Safe for concurrent
// use.
type ResponseCache struct {
	mu         sync.RWMutex
	entries    map[string]cacheEntry
	defaultTTL time.Duration

	// now is swapped in tests to control expiry.
	now func() time.Time
}

// NewResponseCache creates a cache with the given default TTL.
// A non-positive TTL falls back to DefaultCacheTTL.
func NewResponseCache(defaultTTL time.Duration) *ResponseCache {
	if defaultTTL <= 0 {
		defaultTTL = DefaultCacheTTL
	}
	return &ResponseCache{
		entries:    make(map[string]cacheEntry),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// Get returns the cached value for key, or false when the key is absent or
// its entry has outlived its TTL. Expired entries are evicted on the spot.
func (c *ResponseCache) Get(key string) (any, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if entry.expired(c.now()) {
		c.mu.Lock()
		// Re-check under the write lock; a Set may have replaced the entry.
		if current, still := c.entries[key]; still && current.expired(c.now()) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	return entry.value, true
}

// Set stores value under key, overwriting unconditionally.
// A non-positive ttl uses the cache default.
func (c *ResponseCache) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.mu.Lock()
	c.entries[key] = cacheEntry{value: value, storedAt: c.now(), ttl: ttl}
	c.mu.Unlock()
}

// Clear deletes every entry whose key starts with prefix.
// An empty prefix clears the whole cache.
func (c *ResponseCache) Clear(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prefix == "" {
		c.entries = make(map[string]cacheEntry)
		return
	}
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
}

// Len reports the number of physically present entries, expired or not.
func (c *ResponseCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// CacheKey derives a stable, content-addressed key for a logical request.
// The payload is serialized to canonical JSON (Go sorts map keys) and
// Unicode-normalized so visually identical prompts hash identically.
// The task and model stay in the clear so Clear can target a task prefix.
func CacheKey(task TaskKind, model string, payload any) string {
	raw, err := json.Marshal(payload)
	if err != nil {
		// Unserializable payloads still need a usable key; fall back to the
		// formatted value.
		raw = []byte(fmt.Sprintf("%+v", payload))
	}
	sum := sha256.Sum256(norm.NFC.Bytes(raw))
	return fmt.Sprintf("%s:%s:%x", task, model, sum)
}
