package cache

import "sync/atomic"

// Tracker accumulates cache statistics. All counters are independent atomics:
// increments never contend on a shared lock, and a Snapshot may reflect a
// slightly stale total. That is acceptable since statistics are advisory.
type Tracker struct {
	hits        atomic.Int64
	misses      atomic.Int64
	evictions   atomic.Int64
	expirations atomic.Int64
	sets        atomic.Int64
	deletes     atomic.Int64
	errors      atomic.Int64

	// Gauges tracking the live contents of the cache.
	entries   atomic.Int64
	sizeBytes atomic.Int64
}

// NewTracker creates a new statistics tracker with all counters at zero.
func NewTracker() *Tracker {
	return &Tracker{}
}

// RecordHit records a successful lookup.
func (t *Tracker) RecordHit() { t.hits.Add(1) }

// RecordMiss records a lookup of an absent or expired key.
func (t *Tracker) RecordMiss() { t.misses.Add(1) }

// RecordEviction records an entry removed under capacity pressure.
func (t *Tracker) RecordEviction() { t.evictions.Add(1) }

// RecordExpiration records an entry removed because its TTL elapsed.
func (t *Tracker) RecordExpiration() { t.expirations.Add(1) }

// RecordSet records a successful insert or replace.
func (t *Tracker) RecordSet() { t.sets.Add(1) }

// RecordDelete records an explicit removal.
func (t *Tracker) RecordDelete() { t.deletes.Add(1) }

// RecordError records an operation failure, including non-fatal failures
// such as a tiered cache failing to propagate a write to a backing tier.
func (t *Tracker) RecordError() { t.errors.Add(1) }

// AddEntry adjusts the live entry and byte gauges for a stored entry.
func (t *Tracker) AddEntry(sizeBytes int64) {
	t.entries.Add(1)
	t.sizeBytes.Add(sizeBytes)
}

// RemoveEntry adjusts the live entry and byte gauges for a removed entry.
func (t *Tracker) RemoveEntry(sizeBytes int64) {
	t.entries.Add(-1)
	t.sizeBytes.Add(-sizeBytes)
}

// ResetGauges zeroes the live entry and byte gauges. Cumulative counters
// (hits, misses, evictions) are preserved; Clear does not rewrite history.
func (t *Tracker) ResetGauges() {
	t.entries.Store(0)
	t.sizeBytes.Store(0)
}

// HitRate returns hits/(hits+misses), or 0.0 when no lookups have occurred.
func (t *Tracker) HitRate() float64 {
	hits := t.hits.Load()
	total := hits + t.misses.Load()
	if total == 0 {
		return 0.0
	}
	return float64(hits) / float64(total)
}

// Snapshot returns a point-in-time view of the tracked statistics.
func (t *Tracker) Snapshot() Stats {
	return Stats{
		Hits:        t.hits.Load(),
		Misses:      t.misses.Load(),
		Evictions:   t.evictions.Load(),
		Expirations: t.expirations.Load(),
		Sets:        t.sets.Load(),
		Deletes:     t.deletes.Load(),
		Errors:      t.errors.Load(),
		Entries:     int(t.entries.Load()),
		SizeBytes:   t.sizeBytes.Load(),
	}
}

// Stats provides a point-in-time view of cache statistics.
type Stats struct {
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	Evictions   int64 `json:"evictions"`
	Expirations int64 `json:"expirations"`
	Sets        int64 `json:"sets"`
	Deletes     int64 `json:"deletes"`
	Errors      int64 `json:"errors"`
	Entries     int   `json:"entries"`
	SizeBytes   int64 `json:"size_bytes"`
}

// HitRate returns hits/(hits+misses) for the snapshot, or 0.0 when no
// lookups have occurred. The result is always within [0.0, 1.0].
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0.0
	}
	return float64(s.Hits) / float64(total)
}

// HitRate derives the hit rate of any cache from its base contract. It is a
// convenience layered on Cache.Stats rather than a method each
// implementation must duplicate.
func HitRate(c Cache) float64 {
	return c.Stats().HitRate()
}
