package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseCache_RoundTrip(t *testing.T) {
	// Given a cache holding a fresh entry
	cache := NewResponseCache(time.Minute)
	cache.Set("key-a", &Response{Text: "hello"}, 0)

	// When reading it back
	value, ok := cache.Get("key-a")

	// Then the stored value is returned
	require.True(t, ok)
	resp, isResp := value.(*Response)
	require.True(t, isResp)
	assert.Equal(t, "hello", resp.Text)
}

func TestResponseCache_MissOnUnknownKey(t *testing.T) {
	cache := NewResponseCache(time.Minute)

	_, ok := cache.Get("never-set")

	assert.False(t, ok)
}

func TestResponseCache_ExpiresAfterTTL(t *testing.T) {
	// Given an entry written with a 5 minute TTL
	clock := newFakeClock()
	cache := NewResponseCache(5 * time.Minute)
	cache.now = clock.Now
	cache.Set("key-a", "cached", 0)

	// When time passes just short of the TTL
	clock.Advance(5*time.Minute - time.Second)
	_, ok := cache.Get("key-a")
	assert.True(t, ok, "entry must survive until the TTL elapses")

	// When time passes the TTL
	clock.Advance(2 * time.Second)
	_, ok = cache.Get("key-a")

	// Then the entry is gone and has been evicted
	assert.False(t, ok)
	assert.Zero(t, cache.Len(), "expired entries are removed on read")
}

func TestResponseCache_PerEntryTTLOverridesDefault(t *testing.T) {
	// Given one short-lived and one long-lived entry
	clock := newFakeClock()
	cache := NewResponseCache(time.Minute)
	cache.now = clock.Now
	cache.Set("short", "a", 10*time.Second)
	cache.Set("long", "b", time.Hour)

	// When the default TTL has long passed
	clock.Advance(10 * time.Minute)

	// Then only the long-lived entry survives
	_, shortOK := cache.Get("short")
	_, longOK := cache.Get("long")
	assert.False(t, shortOK)
	assert.True(t, longOK)
}

func TestResponseCache_ClearByPrefix(t *testing.T) {
	// Given entries for two tasks
	cache := NewResponseCache(time.Minute)
	cache.Set("bulk_content:gpt-4o:abc", "a", 0)
	cache.Set("bulk_content:gpt-4o:def", "b", 0)
	cache.Set("chat_assistant:gpt-4o:abc", "c", 0)

	// When clearing one task's prefix
	cache.Clear("bulk_content:")

	// Then only that task's entries are removed
	assert.Equal(t, 1, cache.Len())
	_, ok := cache.Get("chat_assistant:gpt-4o:abc")
	assert.True(t, ok)
}

func TestResponseCache_ClearAll(t *testing.T) {
	cache := NewResponseCache(time.Minute)
	cache.Set("a", 1, 0)
	cache.Set("b", 2, 0)

	cache.Clear("")

	assert.Zero(t, cache.Len())
}

func TestCacheKey_DeterministicForEqualPayloads(t *testing.T) {
	// Given two structurally identical payloads built independently
	first := Payload{Prompt: "write a tagline", Options: map[string]any{"temperature": 0.2}}
	second := Payload{Prompt: "write a tagline", Options: map[string]any{"temperature": 0.2}}

	// Then their keys collide, so the second request hits the cache
	assert.Equal(t, CacheKey(TaskBulkContent, "gpt-4o", first), CacheKey(TaskBulkContent, "gpt-4o", second))
}

func TestCacheKey_VariesWithInputs(t *testing.T) {
	base := Payload{Prompt: "write a tagline"}

	keyA := CacheKey(TaskBulkContent, "gpt-4o", base)

	assert.NotEqual(t, keyA, CacheKey(TaskBulkContent, "gpt-4o-mini", base), "model must be part of the key")
	assert.NotEqual(t, keyA, CacheKey(TaskChatAssistant, "gpt-4o", base), "task must be part of the key")
	assert.NotEqual(t, keyA, CacheKey(TaskBulkContent, "gpt-4o", Payload{Prompt: "write a slogan"}),
		"prompt must be part of the key")
}

func TestCacheKey_NormalizesUnicodePrompts(t *testing.T) {
	// Given the same prompt in composed and decomposed form
	composed := Payload{Prompt: "café branding"}
	decomposed := Payload{Prompt: "café branding"}

	// Then both forms map to the same entry
	assert.Equal(t,
		CacheKey(TaskBulkContent, "gpt-4o", composed),
		CacheKey(TaskBulkContent, "gpt-4o", decomposed))
}
