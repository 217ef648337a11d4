package cache

import (
	"math"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/lynkr-ai/gateway/pkg/models"
)

// Embedder produces a fixed-dimension embedding for a piece of text.
type Embedder interface {
	Embed(text string) ([]float64, error)
}

// SemanticEntry pairs an embedding with the response it produced.
type SemanticEntry struct {
	Embedding []float64
	Response  models.Response
	CreatedAt time.Time
}

// SemanticCacheSettings configures the semantic cache.
type SemanticCacheSettings struct {
	Threshold float64 // default 0.95
	TTL       time.Duration
	Size      int
}

// DefaultSemanticCacheSettings returns the documented defaults.
func DefaultSemanticCacheSettings() SemanticCacheSettings {
	return SemanticCacheSettings{Threshold: 0.95, Size: 512}
}

// SemanticCache keys on an embedding of the last user message (or
// concatenated recent messages) and returns the best match with cosine
// similarity at or above Threshold.
type SemanticCache struct {
	embedder Embedder
	settings SemanticCacheSettings
	entries  *lru.Cache[string, SemanticEntry]
	Stats    Stats
}

// NewSemanticCache builds a semantic cache. A nil embedder makes every
// lookup a deterministic miss, so the cache can be wired in and disabled by
// configuration without affecting correctness.
func NewSemanticCache(embedder Embedder, settings SemanticCacheSettings) (*SemanticCache, error) {
	if settings.Threshold <= 0 {
		settings.Threshold = 0.95
	}
	if settings.Size <= 0 {
		settings.Size = 512
	}
	entries, err := lru.New[string, SemanticEntry](settings.Size)
	if err != nil {
		return nil, err
	}
	return &SemanticCache{embedder: embedder, settings: settings, entries: entries}, nil
}

// Lookup embeds text and returns the best cached match at or above the
// configured similarity threshold.
func (c *SemanticCache) Lookup(text string) (models.Response, bool) {
	if c.embedder == nil {
		c.Stats.RecordMiss()
		return models.Response{}, false
	}
	embedding, err := c.embedder.Embed(text)
	if err != nil {
		c.Stats.RecordMiss()
		return models.Response{}, false
	}

	var best SemanticEntry
	bestScore := -1.0
	found := false
	for _, key := range c.entries.Keys() {
		entry, ok := c.entries.Peek(key)
		if !ok {
			continue
		}
		if c.settings.TTL > 0 && time.Since(entry.CreatedAt) > c.settings.TTL {
			continue
		}
		score := cosineSimilarity(embedding, entry.Embedding)
		if score > bestScore {
			bestScore = score
			best = entry
			found = true
		}
	}
	if !found || bestScore < c.settings.Threshold {
		c.Stats.RecordMiss()
		return models.Response{}, false
	}
	c.Stats.RecordHit()
	return best.Response, true
}

// Store embeds text and records the response against it. Key is caller's
// choice (typically the same hash used for lookup bookkeeping).
func (c *SemanticCache) Store(key, text string, response models.Response) error {
	if c.embedder == nil {
		return nil
	}
	embedding, err := c.embedder.Embed(text)
	if err != nil {
		return err
	}
	c.entries.Add(key, SemanticEntry{Embedding: embedding, Response: response, CreatedAt: time.Now()})
	return nil
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
