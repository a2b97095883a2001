package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jmgilman/go/fs/core"
	"github.com/opencontainers/go-digest"
)

const (
	diskDataDir   = "data"
	diskIndexFile = "index.json"
)

// DiskCache is a persistent cache backed by a core.FS filesystem. Payloads
// are stored in content-addressed files written atomically (temp file plus
// rename) with a digest header, so a partially written or corrupted file is
// detected on read instead of being served. Entry metadata lives in an
// in-memory index persisted as JSON for recovery across restarts.
//
// The filesystem abstraction allows testing against in-memory filesystems
// and using the same implementation for any disk-like backend.
type DiskCache struct {
	fs        core.FS
	root      string
	dataDir   string
	indexPath string
	config    Config
	strategy  EvictionStrategy
	stats     *Tracker
	logger    *Logger

	mu        sync.Mutex
	entries   map[string]*Entry
	sizeBytes int64
}

var (
	_ Cache         = (*DiskCache)(nil)
	_ EntryCache    = (*DiskCache)(nil)
	_ ExpiringCache = (*DiskCache)(nil)
)

// diskIndexEntry is the persisted form of an entry's metadata.
type diskIndexEntry struct {
	Key         string            `json:"key"`
	SizeBytes   int64             `json:"size_bytes"`
	CreatedAt   time.Time         `json:"created_at"`
	AccessedAt  time.Time         `json:"accessed_at"`
	AccessCount int64             `json:"access_count"`
	Priority    int               `json:"priority,omitempty"`
	TTL         time.Duration     `json:"ttl,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// NewDiskCache creates a persistent cache rooted at root on the given
// filesystem. An existing index at the root is loaded, so entries written by
// a previous process remain available.
func NewDiskCache(ctx context.Context, fsys core.FS, root string, config Config, opts ...StoreOption) (*DiskCache, error) {
	if fsys == nil {
		return nil, fmt.Errorf("filesystem cannot be nil")
	}
	if root == "" {
		return nil, fmt.Errorf("root path cannot be empty")
	}
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

	dataDir := filepath.Join(root, diskDataDir)
	if err := fsys.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	c := &DiskCache{
		fs:        fsys,
		root:      root,
		dataDir:   dataDir,
		indexPath: filepath.Join(root, diskIndexFile),
		config:    config,
		strategy:  strategy,
		stats:     NewTracker(),
		logger:    options.logger,
		entries:   make(map[string]*Entry),
	}
	if err := c.loadIndex(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// loadIndex restores entry metadata from a previous run. A missing index
// means an empty cache; a malformed one is discarded rather than failing
// construction, since the data files remain recoverable by re-population.
func (c *DiskCache) loadIndex(ctx context.Context) error {
	exists, err := c.fs.Exists(c.indexPath)
	if err != nil {
		return fmt.Errorf("failed to check cache index: %w", err)
	}
	if !exists {
		return nil
	}

	data, err := c.fs.ReadFile(c.indexPath)
	if err != nil {
		return fmt.Errorf("failed to read cache index: %w", err)
	}

	var persisted []diskIndexEntry
	if err := json.Unmarshal(data, &persisted); err != nil {
		c.logger.Warn(ctx, "discarding malformed cache index", "path", c.indexPath, "error", err)
		return nil
	}

	// Replay entries oldest access first so the recency-based strategies
	// reconstruct the same ordering they had before shutdown.
	sort.Slice(persisted, func(i, j int) bool {
		return persisted[i].AccessedAt.Before(persisted[j].AccessedAt)
	})
	for _, pe := range persisted {
		entry := &Entry{
			Key:         pe.Key,
			Metadata:    pe.Metadata,
			SizeBytes:   pe.SizeBytes,
			CreatedAt:   pe.CreatedAt,
			AccessedAt:  pe.AccessedAt,
			AccessCount: pe.AccessCount,
			Priority:    pe.Priority,
			TTL:         pe.TTL,
		}
		c.entries[entry.Key] = entry
		c.sizeBytes += entry.SizeBytes
		c.strategy.OnAdd(entry)
		c.stats.AddEntry(entry.SizeBytes)
	}
	return nil
}

// persistIndexLocked writes the index atomically. Persistence is
// best-effort: a failure is logged and counted but does not fail the cache
// operation, since the in-memory index remains authoritative until shutdown.
// Caller must hold c.mu.
func (c *DiskCache) persistIndexLocked(ctx context.Context) {
	persisted := make([]diskIndexEntry, 0, len(c.entries))
	for _, entry := range c.entries {
		persisted = append(persisted, diskIndexEntry{
			Key:         entry.Key,
			SizeBytes:   entry.SizeBytes,
			CreatedAt:   entry.CreatedAt,
			AccessedAt:  entry.AccessedAt,
			AccessCount: entry.AccessCount,
			Priority:    entry.Priority,
			TTL:         entry.TTL,
			Metadata:    entry.Metadata,
		})
	}

	data, err := json.Marshal(persisted)
	if err == nil {
		err = c.writeAtomically(c.indexPath, data)
	}
	if err != nil {
		c.stats.RecordError()
		c.logger.Warn(ctx, "failed to persist cache index", "path", c.indexPath, "error", err)
	}
}

// dataPath returns the content-addressed file path for a key.
func (c *DiskCache) dataPath(key string) string {
	return filepath.Join(c.dataDir, digest.FromString(key).Encoded())
}

// writeAtomically writes data to path via a temp file and rename, with a
// digest header for integrity verification. Rename is atomic on POSIX
// filesystems, so readers never observe a partial file.
func (c *DiskCache) writeAtomically(path string, data []byte) error {
	tempPath := filepath.Join(filepath.Dir(path), ".tmp-"+filepath.Base(path))

	file, err := c.fs.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	checksum := digest.FromBytes(data).Encoded()
	_, err = file.Write(append([]byte(checksum+"\n"), data...))
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = c.fs.Remove(tempPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := c.fs.Rename(tempPath, path); err != nil {
		_ = c.fs.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file to %q: %w", path, err)
	}
	return nil
}

// readVerified reads a data file and verifies its digest header.
func (c *DiskCache) readVerified(path string) ([]byte, error) {
	raw, err := c.fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageFailed, err)
	}

	header, data, found := strings.Cut(string(raw), "\n")
	if !found {
		return nil, ErrCorrupted
	}
	if digest.FromString(data).Encoded() != header {
		return nil, ErrCorrupted
	}
	return []byte(data), nil
}

// Get retrieves the value stored under key, verifying its integrity.
// A corrupted or unreadable file removes the entry and returns an error the
// caller can distinguish from a plain miss.
func (c *DiskCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, ok, err := c.GetEntry(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	return entry.Data, true, nil
}

// GetEntry retrieves the full entry stored under key, with the payload
// loaded from disk.
func (c *DiskCache) GetEntry(ctx context.Context, key string) (*Entry, bool, error) {
	if err := validateKey(key); err != nil {
		return nil, false, newCacheError("get", key, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		c.stats.RecordMiss()
		return nil, false, nil
	}
	if entry.IsExpired() {
		c.removeLocked(ctx, entry, causeExpire)
		c.persistIndexLocked(ctx)
		c.stats.RecordMiss()
		return nil, false, nil
	}

	data, err := c.readVerified(c.dataPath(key))
	if err != nil {
		// The entry's backing file is unusable; drop it so the key reads
		// as absent from now on.
		c.removeLocked(ctx, entry, causeDelete)
		c.persistIndexLocked(ctx)
		c.stats.RecordError()
		return nil, false, newCacheError("get", key, err)
	}

	entry.AccessedAt = time.Now()
	entry.AccessCount++
	c.strategy.OnAccess(entry)
	c.stats.RecordHit()

	// The payload rides on a copy so the in-memory index does not pin
	// every payload ever read.
	result := *entry
	result.Data = data
	return &result, true, nil
}

// Set writes the value to disk atomically and records it in the index,
// evicting entries as needed to satisfy the configured limits.
func (c *DiskCache) Set(ctx context.Context, key string, value []byte, opts ...SetOption) error {
	if err := validateKey(key); err != nil {
		return newCacheError("set", key, err)
	}

	options := applySetOptions(c.config, opts)
	size := entrySize(key, value)
	if c.config.MaxSizeBytes > 0 && size > c.config.MaxSizeBytes {
		return newCacheError("set", key, ErrEntryTooLarge)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Write the data file before touching the index. If the write fails
	// the index is untouched and no partial entry exists. The write happens
	// under the store lock: the temp path is derived from the key, so
	// concurrent writers for the same key must not share it.
	if err := c.writeAtomically(c.dataPath(key), value); err != nil {
		c.stats.RecordError()
		return newCacheError("set", key, fmt.Errorf("%w: %w", ErrStorageFailed, err))
	}

	if old, exists := c.entries[key]; exists {
		delete(c.entries, key)
		c.sizeBytes -= old.SizeBytes
		c.stats.RemoveEntry(old.SizeBytes)
	}

	for len(c.entries) > 0 {
		overEntries := c.config.MaxEntries > 0 && len(c.entries)+1 > c.config.MaxEntries
		overBytes := c.config.MaxSizeBytes > 0 && c.sizeBytes+size > c.config.MaxSizeBytes
		if !overEntries && !overBytes {
			break
		}
		victim, ok := c.strategy.SelectVictim(c.entries)
		if !ok {
			break
		}
		c.removeLocked(ctx, c.entries[victim], causeEvict)
	}

	now := time.Now()
	entry := &Entry{
		Key:        key,
		Metadata:   options.metadata,
		SizeBytes:  size,
		CreatedAt:  now,
		AccessedAt: now,
		Priority:   options.priority,
		TTL:        options.ttl,
	}
	c.entries[key] = entry
	c.sizeBytes += size
	c.strategy.OnAdd(entry)
	c.stats.AddEntry(size)
	c.stats.RecordSet()
	c.persistIndexLocked(ctx)
	return nil
}

// removeLocked removes an entry's index record and backing file.
// Caller must hold c.mu.
func (c *DiskCache) removeLocked(ctx context.Context, entry *Entry, cause removalCause) {
	delete(c.entries, entry.Key)
	c.sizeBytes -= entry.SizeBytes
	c.strategy.OnRemove(entry)
	c.stats.RemoveEntry(entry.SizeBytes)

	if err := c.fs.Remove(c.dataPath(entry.Key)); err != nil {
		c.logger.Warn(ctx, "failed to remove cache data file", "key", entry.Key, "error", err)
	}

	switch cause {
	case causeEvict:
		c.stats.RecordEviction()
		logEviction(ctx, c.logger, entry.Key, entry.SizeBytes, "capacity")
	case causeExpire:
		c.stats.RecordExpiration()
	case causeDelete:
		c.stats.RecordDelete()
	}
}

// Delete removes the entry stored under key along with its data file.
func (c *DiskCache) Delete(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, newCacheError("delete", key, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		return false, nil
	}
	c.removeLocked(ctx, entry, causeDelete)
	c.persistIndexLocked(ctx)
	return true, nil
}

// Clear removes all entries and their data files. Cumulative statistics
// survive a clear.
func (c *DiskCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, entry := range c.entries {
		c.strategy.OnRemove(entry)
		if err := c.fs.Remove(c.dataPath(entry.Key)); err != nil {
			c.logger.Warn(ctx, "failed to remove cache data file", "key", entry.Key, "error", err)
		}
	}
	c.entries = make(map[string]*Entry)
	c.sizeBytes = 0
	c.stats.ResetGauges()
	c.persistIndexLocked(ctx)
	return nil
}

// Exists reports whether a live entry is stored under key without reading
// its payload or counting an access.
func (c *DiskCache) Exists(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, newCacheError("exists", key, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		return false, nil
	}
	if entry.IsExpired() {
		c.removeLocked(ctx, entry, causeExpire)
		c.persistIndexLocked(ctx)
		return false, nil
	}
	return true, nil
}

// RemoveExpired removes all expired entries and their data files, returning
// the removed keys. The sweep checks ctx between entries and can be
// interrupted safely.
func (c *DiskCache) RemoveExpired(ctx context.Context) ([]string, error) {
	start := time.Now()

	c.mu.Lock()
	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	c.mu.Unlock()

	var removed []string
	var bytesFreed int64
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		c.mu.Lock()
		if entry, exists := c.entries[key]; exists && entry.IsExpired() {
			c.removeLocked(ctx, entry, causeExpire)
			removed = append(removed, key)
			bytesFreed += entry.SizeBytes
		}
		c.mu.Unlock()
	}

	if len(removed) > 0 {
		c.mu.Lock()
		c.persistIndexLocked(ctx)
		c.mu.Unlock()
		logCleanup(ctx, c.logger, len(removed), bytesFreed, time.Since(start))
	}
	return removed, nil
}

// Stats returns a snapshot of the cache's statistics.
func (c *DiskCache) Stats() Stats {
	return c.stats.Snapshot()
}

// Len returns the current number of live entries.
func (c *DiskCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// MemoryUsage returns the total size in bytes charged to live entries.
func (c *DiskCache) MemoryUsage() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sizeBytes
}

// Close persists the index. The cache remains usable afterwards; Close
// exists so shutdown paths can guarantee a durable index.
func (c *DiskCache) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.persistIndexLocked(ctx)
	return nil
}
