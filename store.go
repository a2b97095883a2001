package cache

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// removal causes, used to pick the right statistics counter.
type removalCause int

const (
	causeDelete removalCause = iota
	causeEvict
	causeExpire
	causeClear
)

// Store is an in-memory cache bounded by entry count and/or total byte size.
// Overflow is resolved by the configured eviction strategy. A single mutex
// guards the entry map, the strategy's auxiliary index, and the byte
// counter, so Get, Set, Delete, and Exists are atomic with respect to each
// other.
type Store struct {
	config   Config
	strategy EvictionStrategy
	stats    *Tracker
	logger   *Logger

	mu        sync.Mutex
	entries   map[string]*Entry
	sizeBytes int64
}

// compile-time interface checks
var (
	_ Cache         = (*Store)(nil)
	_ EntryCache    = (*Store)(nil)
	_ ExpiringCache = (*Store)(nil)
)

// NewStore creates a new in-memory cache with the given configuration.
func NewStore(config Config, opts ...StoreOption) (*Store, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cache config: %w", err)
	}
	config.SetDefaults()

	options := applyStoreOptions(opts)
	strategy := options.strategy
	if strategy == nil {
		var err error
		strategy, err = NewStrategy(config.Strategy)
		if err != nil {
			return nil, err
		}
	}

	return &Store{
		config:   config,
		strategy: strategy,
		stats:    NewTracker(),
		logger:   options.logger,
		entries:  make(map[string]*Entry),
	}, nil
}

// Get retrieves the value stored under key. Expired entries are removed on
// observation and reported as misses.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, ok, err := s.GetEntry(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	return entry.Data, true, nil
}

// GetEntry retrieves the full entry stored under key. A hit updates the
// entry's access metadata and the eviction strategy's bookkeeping.
func (s *Store) GetEntry(ctx context.Context, key string) (*Entry, bool, error) {
	if err := validateKey(key); err != nil {
		return nil, false, newCacheError("get", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.entries[key]
	if !exists {
		s.stats.RecordMiss()
		return nil, false, nil
	}
	if entry.IsExpired() {
		s.removeLocked(ctx, entry, causeExpire)
		s.stats.RecordMiss()
		return nil, false, nil
	}

	entry.AccessedAt = time.Now()
	entry.AccessCount++
	s.strategy.OnAccess(entry)
	s.stats.RecordHit()
	return entry, true, nil
}

// Set inserts or replaces the value stored under key, evicting entries as
// needed to satisfy the configured limits. It fails with ErrEntryTooLarge
// only when the new entry alone exceeds the byte limit; in that case the
// cache is left unchanged.
func (s *Store) Set(ctx context.Context, key string, value []byte, opts ...SetOption) error {
	if err := validateKey(key); err != nil {
		return newCacheError("set", key, err)
	}

	options := applySetOptions(s.config, opts)
	size := entrySize(key, value)
	if s.config.MaxSizeBytes > 0 && size > s.config.MaxSizeBytes {
		return newCacheError("set", key, ErrEntryTooLarge)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Replacing an existing entry frees its space first so the eviction
	// loop does not count it twice.
	if old, exists := s.entries[key]; exists {
		delete(s.entries, key)
		s.sizeBytes -= old.SizeBytes
		s.stats.RemoveEntry(old.SizeBytes)
	}

	s.evictForLocked(ctx, size)

	now := time.Now()
	entry := &Entry{
		Key:        key,
		Data:       value,
		Metadata:   options.metadata,
		SizeBytes:  size,
		CreatedAt:  now,
		AccessedAt: now,
		Priority:   options.priority,
		TTL:        options.ttl,
	}
	s.entries[key] = entry
	s.sizeBytes += size
	s.strategy.OnAdd(entry)
	s.stats.AddEntry(size)
	s.stats.RecordSet()
	return nil
}

// evictForLocked removes entries until an insertion of the given size fits
// within the configured limits or the store is empty. Caller must hold s.mu.
func (s *Store) evictForLocked(ctx context.Context, incoming int64) {
	for len(s.entries) > 0 {
		overEntries := s.config.MaxEntries > 0 && len(s.entries)+1 > s.config.MaxEntries
		overBytes := s.config.MaxSizeBytes > 0 && s.sizeBytes+incoming > s.config.MaxSizeBytes
		if !overEntries && !overBytes {
			return
		}
		victim, ok := s.strategy.SelectVictim(s.entries)
		if !ok {
			return
		}
		s.removeLocked(ctx, s.entries[victim], causeEvict)
	}
}

// removeLocked removes an entry and updates the strategy index, counters,
// and statistics for the given cause. Caller must hold s.mu.
func (s *Store) removeLocked(ctx context.Context, entry *Entry, cause removalCause) {
	delete(s.entries, entry.Key)
	s.sizeBytes -= entry.SizeBytes
	s.strategy.OnRemove(entry)
	s.stats.RemoveEntry(entry.SizeBytes)

	switch cause {
	case causeEvict:
		s.stats.RecordEviction()
		logEviction(ctx, s.logger, entry.Key, entry.SizeBytes, "capacity")
	case causeExpire:
		s.stats.RecordExpiration()
	case causeDelete:
		s.stats.RecordDelete()
	}
}

// Delete removes the entry stored under key and reports whether a removal
// occurred.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, newCacheError("delete", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.entries[key]
	if !exists {
		return false, nil
	}
	s.removeLocked(ctx, entry, causeDelete)
	return true, nil
}

// Clear removes all entries and resets the size gauges. Cumulative
// statistics survive a clear.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range s.entries {
		s.strategy.OnRemove(entry)
	}
	s.entries = make(map[string]*Entry)
	s.sizeBytes = 0
	s.stats.ResetGauges()
	return nil
}

// Exists reports whether a live entry is stored under key. It honors TTL
// expiry (removing the entry once expiry is observed) but does not count as
// an access.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, newCacheError("exists", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.entries[key]
	if !exists {
		return false, nil
	}
	if entry.IsExpired() {
		s.removeLocked(ctx, entry, causeExpire)
		return false, nil
	}
	return true, nil
}

// RemoveExpired removes all entries whose TTL has elapsed and returns the
// removed keys. The sweep re-acquires the lock per entry and checks ctx
// between entries, so cancellation leaves no partial state and a later
// sweep picks up where this one stopped.
func (s *Store) RemoveExpired(ctx context.Context) ([]string, error) {
	start := time.Now()

	s.mu.Lock()
	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	s.mu.Unlock()

	var removed []string
	var bytesFreed int64
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		s.mu.Lock()
		if entry, exists := s.entries[key]; exists && entry.IsExpired() {
			s.removeLocked(ctx, entry, causeExpire)
			removed = append(removed, key)
			bytesFreed += entry.SizeBytes
		}
		s.mu.Unlock()
	}

	if len(removed) > 0 {
		logCleanup(ctx, s.logger, len(removed), bytesFreed, time.Since(start))
	}
	return removed, nil
}

// Stats returns a snapshot of the store's statistics.
func (s *Store) Stats() Stats {
	return s.stats.Snapshot()
}

// Len returns the current number of live entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// MemoryUsage returns the total size in bytes of all live entries.
func (s *Store) MemoryUsage() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sizeBytes
}

func validateKey(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	return nil
}
