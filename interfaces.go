package cache

import "context"

// Cache defines the core contract for cache operations.
// Implementations must be safe for concurrent use by multiple goroutines.
//
// Absence is a normal, non-error result: Get and Exists report missing or
// expired keys through their boolean results and return a nil error. Errors
// are reserved for malformed input and collaborator failures.
type Cache interface {
	// Get retrieves the value stored under key. The second result reports
	// whether a live (present and unexpired) entry was found. A hit updates
	// the entry's access metadata and the eviction strategy's bookkeeping.
	//
	// The returned slice is the stored payload; callers must not mutate it.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set inserts or replaces the value stored under key. If inserting
	// would exceed the cache's entry or byte limits, entries are evicted
	// until the constraints are satisfied. Set fails with ErrEntryTooLarge
	// only when the new entry alone exceeds the byte limit; the cache's
	// state is left unchanged on failure.
	Set(ctx context.Context, key string, value []byte, opts ...SetOption) error

	// Delete removes the entry stored under key and reports whether a
	// removal occurred. Deleting an absent key is a no-op.
	Delete(ctx context.Context, key string) (bool, error)

	// Clear removes all entries and resets the size gauges. Cumulative
	// statistics (hits, misses, evictions) are preserved.
	Clear(ctx context.Context) error

	// Exists reports whether a live entry is stored under key. It honors
	// TTL expiry but does not count as an access for statistics or
	// recency bookkeeping.
	Exists(ctx context.Context, key string) (bool, error)

	// Stats returns a snapshot of the cache's statistics.
	Stats() Stats

	// Len returns the current number of live entries.
	Len() int

	// MemoryUsage returns the total size in bytes of all live entries.
	MemoryUsage() int64
}

// EntryCache is implemented by caches that expose entry-level access,
// including metadata attached via WithMetadata.
type EntryCache interface {
	Cache

	// GetEntry retrieves the full entry stored under key. Like Get, it
	// counts as an access and updates recency bookkeeping. The returned
	// entry is owned by the cache; callers must not mutate it.
	GetEntry(ctx context.Context, key string) (*Entry, bool, error)
}

// ExpiringCache is implemented by caches that support explicit expiry
// sweeps in addition to lazy expiry on access.
type ExpiringCache interface {
	Cache

	// RemoveExpired removes all entries whose TTL has elapsed and returns
	// the keys that were removed. The sweep checks ctx between entries, so
	// it can be interrupted safely and resumed by a later sweep.
	RemoveExpired(ctx context.Context) ([]string, error)
}

// EvictionStrategy decides which entry to evict when a cache exceeds its
// capacity. Implementations maintain their own auxiliary index (a linked
// list, frequency buckets, or a heap) so that selection does not rescan the
// full entry set, and must be safe for concurrent use.
type EvictionStrategy interface {
	// SelectVictim chooses the next entry to evict. The entries map holds
	// the cache's current live entries; keys tracked by the strategy but
	// no longer present are skipped. The second result is false when the
	// strategy has no candidate.
	SelectVictim(entries map[string]*Entry) (string, bool)

	// OnAccess is called when an entry is read, so strategies can update
	// recency or frequency bookkeeping.
	OnAccess(entry *Entry)

	// OnAdd is called when an entry is inserted.
	OnAdd(entry *Entry)

	// OnRemove is called when an entry is removed for any reason
	// (delete, clear, eviction, expiry).
	OnRemove(entry *Entry)
}
