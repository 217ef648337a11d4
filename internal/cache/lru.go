package cache

import "sync/atomic"

// Stats tracks hit/miss/eviction counters for a cache, read concurrently
// with updates via atomic counters rather than a mutex.
type Stats struct {
	Hits      atomic.Int64
	Misses    atomic.Int64
	Evictions atomic.Int64
}

// RecordHit increments the hit counter.
func (s *Stats) RecordHit() { s.Hits.Add(1) }

// RecordMiss increments the miss counter.
func (s *Stats) RecordMiss() { s.Misses.Add(1) }

// RecordEviction increments the eviction counter.
func (s *Stats) RecordEviction() { s.Evictions.Add(1) }

// Snapshot is a point-in-time read of Stats' counters.
type Snapshot struct {
	Hits      int64
	Misses    int64
	Evictions int64
}

// Snapshot reads the current counter values.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{Hits: s.Hits.Load(), Misses: s.Misses.Load(), Evictions: s.Evictions.Load()}
}

// HitRate returns hits / (hits + misses), or 0 when there have been no
// lookups yet.
func (s Snapshot) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
