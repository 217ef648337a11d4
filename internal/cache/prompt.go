// Package cache implements the prompt cache (exact-match on a normalized
// request) and the semantic cache (embedding-similarity match on the last
// user message), both backed by a bounded LRU.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/lynkr-ai/gateway/pkg/models"
)

// PromptCacheEntry is a stored, complete provider response keyed by a hash
// of the normalized request.
type PromptCacheEntry struct {
	Response  models.Response
	CreatedAt time.Time
}

// PromptCache is an exact-match cache keyed on (model, tool set, normalized
// messages, mode). A hit short-circuits the agent loop with a synthetic
// response carrying usage.cache_read_input_tokens = prompt_tokens.
type PromptCache struct {
	lru   *lru.Cache[string, PromptCacheEntry]
	ttl   time.Duration
	Stats Stats
}

// NewPromptCache builds a prompt cache bounded to size entries, each
// expiring after ttl (0 disables expiry, relying purely on LRU eviction).
func NewPromptCache(size int, ttl time.Duration) (*PromptCache, error) {
	if size <= 0 {
		size = 512
	}
	c, err := lru.New[string, PromptCacheEntry](size)
	if err != nil {
		return nil, err
	}
	return &PromptCache{lru: c, ttl: ttl}, nil
}

// Key computes a stable hash of (model, tools, normalized messages, mode).
func Key(model string, tools []models.ToolDefinition, messages []models.Message, mode models.RequestMode) string {
	h := sha256.New()
	enc := json.NewEncoder(h)
	_ = enc.Encode(model)
	_ = enc.Encode(tools)
	_ = enc.Encode(normalizeForHash(messages))
	_ = enc.Encode(mode)
	return hex.EncodeToString(h.Sum(nil))
}

// normalizeForHash strips fields irrelevant to cache identity (nothing
// today beyond what Message already carries, but keeping this as a
// dedicated step means future per-request annotations don't silently leak
// into the cache key).
func normalizeForHash(messages []models.Message) []models.Message {
	return messages
}

// Lookup returns the cached response for key, if present and unexpired.
func (c *PromptCache) Lookup(key string) (models.Response, bool) {
	entry, ok := c.lru.Get(key)
	if !ok {
		c.Stats.RecordMiss()
		return models.Response{}, false
	}
	if c.ttl > 0 && time.Since(entry.CreatedAt) > c.ttl {
		c.lru.Remove(key)
		c.Stats.RecordEviction()
		c.Stats.RecordMiss()
		return models.Response{}, false
	}
	c.Stats.RecordHit()
	return withCacheReadUsage(entry.Response), true
}

func withCacheReadUsage(resp models.Response) models.Response {
	resp.Usage.CacheReadInputTokens = resp.Usage.InputTokens
	return resp
}

// Store records a response under key. Callers store only when step == 1 &&
// toolCallsExecuted == 0, i.e. the first model turn produced a complete
// answer without tools.
func (c *PromptCache) Store(key string, response models.Response) {
	c.lru.Add(key, PromptCacheEntry{Response: response, CreatedAt: time.Now()})
}

// Len reports the number of entries currently cached.
func (c *PromptCache) Len() int { return c.lru.Len() }

// Sweep proactively evicts expired entries rather than waiting for the next
// Lookup to find them stale. Returns the number removed. A no-op when the
// cache has no TTL configured.
func (c *PromptCache) Sweep() int {
	if c.ttl <= 0 {
		return 0
	}
	removed := 0
	for _, key := range c.lru.Keys() {
		entry, ok := c.lru.Peek(key)
		if !ok {
			continue
		}
		if time.Since(entry.CreatedAt) > c.ttl {
			c.lru.Remove(key)
			c.Stats.RecordEviction()
			removed++
		}
	}
	return removed
}
