package routing

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

// Price is a model's per-million-token input/output cost in USD.
type Price struct {
	InputUSD  float64
	OutputUSD float64
}

// PriceSource identifies where a price entry came from, for diagnostics.
type PriceSource string

const (
	SourceLiteLLM   PriceSource = "litellm"
	SourceModelsDev PriceSource = "models_dev"
	SourceBuiltin   PriceSource = "builtin"
)

// builtinPrices is a small built-in price sheet (modeled on a Databricks-style
// hardcoded fallback table) used when neither the LiteLLM nor models.dev
// feeds have an entry for a given provider:model key.
var builtinPrices = map[string]Price{
	"anthropic:claude-3-5-sonnet": {InputUSD: 3.0, OutputUSD: 15.0},
	"anthropic:claude-3-haiku":    {InputUSD: 0.25, OutputUSD: 1.25},
	"openai:gpt-4o":               {InputUSD: 2.5, OutputUSD: 10.0},
	"openai:gpt-4o-mini":          {InputUSD: 0.15, OutputUSD: 0.6},
	"ollama:llama3.1":             {InputUSD: 0, OutputUSD: 0},
}

// PriceRegistry merges price entries from multiple feeds, preferring
// LiteLLM, then models.dev, then the built-in sheet, with a 24h on-disk
// cache so the feeds aren't refetched on every process start.
type PriceRegistry struct {
	mu       sync.RWMutex
	entries  map[string]Price
	cachePath string
	ttl      time.Duration
	fetchedAt time.Time
}

// diskCache is the on-disk shape: {litellm, modelsDev, timestamp}.
type diskCache struct {
	LiteLLM   map[string]Price `json:"litellm"`
	ModelsDev map[string]Price `json:"modelsDev"`
	Timestamp int64            `json:"timestamp"`
}

// NewPriceRegistry builds a registry seeded with the built-in sheet and,
// if present and fresh, entries loaded from cachePath.
func NewPriceRegistry(cachePath string, ttl time.Duration) *PriceRegistry {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	r := &PriceRegistry{
		entries:   make(map[string]Price, len(builtinPrices)),
		cachePath: cachePath,
		ttl:       ttl,
	}
	for k, v := range builtinPrices {
		r.entries[k] = v
	}
	r.loadDiskCache()
	return r
}

func (r *PriceRegistry) loadDiskCache() {
	if r.cachePath == "" {
		return
	}
	data, err := os.ReadFile(r.cachePath)
	if err != nil {
		return
	}
	var cache diskCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return
	}
	fetchedAt := time.Unix(cache.Timestamp, 0)
	if time.Since(fetchedAt) > r.ttl {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range cache.ModelsDev {
		r.entries[k] = v
	}
	for k, v := range cache.LiteLLM {
		r.entries[k] = v
	}
	r.fetchedAt = fetchedAt
}

// Lookup returns the price for a provider:model key, if known.
func (r *PriceRegistry) Lookup(provider, model string) (Price, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.entries[provider+":"+model]
	return p, ok
}

// Merge inserts or overwrites price entries and persists them to disk if
// cachePath was configured (best-effort; write failures are ignored since
// the cache is purely an optimisation).
func (r *PriceRegistry) Merge(source PriceSource, entries map[string]Price) {
	r.mu.Lock()
	for k, v := range entries {
		r.entries[k] = v
	}
	r.mu.Unlock()
	_ = source
	r.persist()
}

func (r *PriceRegistry) persist() {
	if r.cachePath == "" {
		return
	}
	r.mu.RLock()
	cache := diskCache{ModelsDev: cloneMap(r.entries), Timestamp: time.Now().Unix()}
	r.mu.RUnlock()
	data, err := json.Marshal(cache)
	if err != nil {
		return
	}
	_ = os.WriteFile(r.cachePath, data, 0o600)
}

func cloneMap(m map[string]Price) map[string]Price {
	out := make(map[string]Price, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// CheapestCandidate picks, from a set of (provider, model) candidates, the
// one with the lowest InputUSD+OutputUSD total, falling back to the first
// candidate (in input order) when none have a known price.
func (r *PriceRegistry) CheapestCandidate(candidates []TierTarget) (TierTarget, bool) {
	var best TierTarget
	bestCost := -1.0
	found := false
	for _, c := range candidates {
		price, ok := r.Lookup(c.Provider, c.Model)
		if !ok {
			continue
		}
		total := price.InputUSD + price.OutputUSD
		if !found || total < bestCost {
			best = c
			bestCost = total
			found = true
		}
	}
	if !found && len(candidates) > 0 {
		return candidates[0], false
	}
	return best, found
}
