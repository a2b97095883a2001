package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// WriteMode selects how TieredCache propagates writes to backing tiers.
type WriteMode int

const (
	// WriteThrough propagates each Set to the backing tiers synchronously
	// before Set returns. This is the default.
	WriteThrough WriteMode = iota
	// WriteBack queues propagation to the backing tiers and applies it
	// from a background worker. Queued writes are flushed on Close; when
	// the queue is saturated, writes are dropped with a logged warning
	// and an error count.
	WriteBack
)

const defaultWriteBackQueue = 256

// TieredOption configures TieredCache construction.
type TieredOption func(*tieredOptions)

type tieredOptions struct {
	mode      WriteMode
	queueSize int
	logger    *Logger
}

// WithWriteMode selects the write propagation mode.
func WithWriteMode(mode WriteMode) TieredOption {
	return func(o *tieredOptions) {
		o.mode = mode
	}
}

// WithWriteBackQueueSize sets the write-back queue capacity.
func WithWriteBackQueueSize(size int) TieredOption {
	return func(o *tieredOptions) {
		o.queueSize = size
	}
}

// WithTieredLogger sets the logger used for propagation and promotion
// failures. By default nothing is logged.
func WithTieredLogger(logger *Logger) TieredOption {
	return func(o *tieredOptions) {
		o.logger = logger
	}
}

// tieredWrite is one queued write-back propagation.
type tieredWrite struct {
	key   string
	value []byte
	opts  []SetOption
}

// TieredCache composes multiple caches ordered from fastest to slowest.
// Lookups fall through to slower tiers on a miss; a hit in a slower tier is
// promoted into every faster tier. Writes always land in tier 0 and
// propagate to the backing tiers per the configured WriteMode; a failed
// propagation is non-fatal to the Set call but is logged and counted in the
// stats error counter.
//
// TieredCache holds no lock of its own across tier operations, so a slow
// backing tier never blocks access to a faster one beyond the individual
// call in flight.
type TieredCache struct {
	tiers  []Cache
	mode   WriteMode
	stats  *Tracker
	logger *Logger

	queue   chan tieredWrite
	wg      sync.WaitGroup
	closeMu sync.RWMutex
	closed  atomic.Bool
}

var _ Cache = (*TieredCache)(nil)

// NewTieredCache creates a tiered cache over the given tiers, ordered
// fastest first. At least one tier is required.
func NewTieredCache(tiers []Cache, opts ...TieredOption) (*TieredCache, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("at least one tier is required")
	}

	options := tieredOptions{queueSize: defaultWriteBackQueue}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = NewNopLogger()
	}
	if options.queueSize <= 0 {
		return nil, fmt.Errorf("write-back queue size must be positive")
	}

	t := &TieredCache{
		tiers:  tiers,
		mode:   options.mode,
		stats:  NewTracker(),
		logger: options.logger,
	}
	if t.mode == WriteBack {
		t.queue = make(chan tieredWrite, options.queueSize)
		t.wg.Add(1)
		go t.writeBackWorker()
	}
	return t, nil
}

// writeBackWorker drains the write-back queue into the backing tiers.
func (t *TieredCache) writeBackWorker() {
	defer t.wg.Done()
	ctx := context.Background()
	for w := range t.queue {
		t.propagate(ctx, w.key, w.value, w.opts)
	}
}

// propagate writes to every backing tier, logging and counting failures.
func (t *TieredCache) propagate(ctx context.Context, key string, value []byte, opts []SetOption) {
	for i, tier := range t.tiers[1:] {
		if err := tier.Set(ctx, key, value, opts...); err != nil {
			t.stats.RecordError()
			t.logger.WithTier(i+1).Warn(ctx, "failed to propagate write to backing tier",
				"key", key, "error", err)
		}
	}
}

// tierLookup reads key from a single tier. Tiers exposing entry-level access
// also yield the set options that reproduce the entry's TTL, priority, and
// metadata, so a promoted copy keeps them.
func tierLookup(ctx context.Context, tier Cache, key string) ([]byte, []SetOption, bool, error) {
	ec, ok := tier.(EntryCache)
	if !ok {
		value, found, err := tier.Get(ctx, key)
		return value, nil, found, err
	}

	entry, found, err := ec.GetEntry(ctx, key)
	if err != nil || !found {
		return nil, nil, false, err
	}
	opts := []SetOption{WithTTL(entry.TTL), WithPriority(entry.Priority)}
	if entry.Metadata != nil {
		opts = append(opts, WithMetadata(entry.Metadata))
	}
	return entry.Data, opts, true, nil
}

// Get tries each tier in order. A hit at tier i>0 promotes the entry into
// all faster tiers along with its TTL, priority, and metadata, subject to
// each tier's own capacity and eviction rules.
func (t *TieredCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := validateKey(key); err != nil {
		return nil, false, newCacheError("get", key, err)
	}

	for i, tier := range t.tiers {
		value, opts, ok, err := tierLookup(ctx, tier, key)
		if err != nil {
			// A failing tier reads as a miss; slower tiers may still
			// hold a usable copy.
			t.stats.RecordError()
			t.logger.WithTier(i).Warn(ctx, "tier lookup failed", "key", key, "error", err)
			continue
		}
		if !ok {
			continue
		}

		for j := 0; j < i; j++ {
			if err := t.tiers[j].Set(ctx, key, value, opts...); err != nil {
				t.stats.RecordError()
				t.logger.WithTier(j).Warn(ctx, "failed to promote entry", "key", key, "error", err)
			}
		}
		t.stats.RecordHit()
		return value, true, nil
	}

	t.stats.RecordMiss()
	return nil, false, nil
}

// Set writes to tier 0 and propagates to the backing tiers per the
// configured write mode. Only a tier-0 failure fails the call.
func (t *TieredCache) Set(ctx context.Context, key string, value []byte, opts ...SetOption) error {
	// The read lock keeps Close from closing the write-back queue while a
	// Set is between the closed check and the queue send.
	t.closeMu.RLock()
	defer t.closeMu.RUnlock()
	if t.closed.Load() {
		return newCacheError("set", key, ErrCacheClosed)
	}

	if err := t.tiers[0].Set(ctx, key, value, opts...); err != nil {
		t.stats.RecordError()
		return err
	}
	t.stats.RecordSet()

	if len(t.tiers) == 1 {
		return nil
	}

	switch t.mode {
	case WriteBack:
		select {
		case t.queue <- tieredWrite{key: key, value: value, opts: opts}:
		default:
			t.stats.RecordError()
			t.logger.Warn(ctx, "write-back queue full, dropping propagation", "key", key)
		}
	default:
		t.propagate(ctx, key, value, opts)
	}
	return nil
}

// Delete removes the key from every tier and reports whether any tier held
// it.
func (t *TieredCache) Delete(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, newCacheError("delete", key, err)
	}

	var removed bool
	for i, tier := range t.tiers {
		ok, err := tier.Delete(ctx, key)
		if err != nil {
			t.stats.RecordError()
			t.logger.WithTier(i).Warn(ctx, "tier delete failed", "key", key, "error", err)
			continue
		}
		removed = removed || ok
	}
	if removed {
		t.stats.RecordDelete()
	}
	return removed, nil
}

// Clear clears every tier. All tiers are attempted; the first error is
// returned after the sweep completes.
func (t *TieredCache) Clear(ctx context.Context) error {
	var errs []error
	for i, tier := range t.tiers {
		if err := tier.Clear(ctx); err != nil {
			t.stats.RecordError()
			t.logger.WithTier(i).Warn(ctx, "tier clear failed", "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Exists reports whether any tier holds a live entry for key. Like the
// single-store Exists, it does not count as an access or promote entries.
func (t *TieredCache) Exists(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, newCacheError("exists", key, err)
	}

	for i, tier := range t.tiers {
		ok, err := tier.Exists(ctx, key)
		if err != nil {
			t.stats.RecordError()
			t.logger.WithTier(i).Warn(ctx, "tier existence check failed", "key", key, "error", err)
			continue
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// Stats returns lookup-level statistics for the tiered cache as a whole
// (a hit in any tier counts as one hit), with the entry and byte gauges
// reporting tier 0. Per-tier statistics remain available from the tiers
// themselves.
func (t *TieredCache) Stats() Stats {
	s := t.stats.Snapshot()
	s.Entries = t.tiers[0].Len()
	s.SizeBytes = t.tiers[0].MemoryUsage()
	return s
}

// Len returns the number of live entries in the fastest tier.
func (t *TieredCache) Len() int {
	return t.tiers[0].Len()
}

// MemoryUsage returns the byte usage of the fastest tier.
func (t *TieredCache) MemoryUsage() int64 {
	return t.tiers[0].MemoryUsage()
}

// Close flushes any queued write-back propagations and stops the worker.
// Further Set calls fail with ErrCacheClosed; reads remain available.
func (t *TieredCache) Close() error {
	t.closeMu.Lock()
	if !t.closed.CompareAndSwap(false, true) {
		t.closeMu.Unlock()
		return nil
	}
	if t.queue != nil {
		close(t.queue)
	}
	t.closeMu.Unlock()

	t.wg.Wait()
	return nil
}
