package cache

import (
	"fmt"
	"time"
)

// StrategyType identifies an eviction strategy variant.
type StrategyType string

// Supported eviction strategies.
const (
	// StrategyLRU evicts the least recently accessed entry.
	StrategyLRU StrategyType = "lru"
	// StrategyLFU evicts the least frequently accessed entry.
	StrategyLFU StrategyType = "lfu"
	// StrategyFIFO evicts the earliest inserted entry regardless of access.
	StrategyFIFO StrategyType = "fifo"
	// StrategySize evicts the largest entry by size in bytes.
	StrategySize StrategyType = "size"
	// StrategyPriority evicts the entry with the lowest priority value.
	StrategyPriority StrategyType = "priority"
)

// Config holds configuration for cache behavior. It is immutable after the
// cache is constructed.
type Config struct {
	// MaxEntries is the maximum number of entries the cache may hold.
	// Zero means unbounded by entry count.
	MaxEntries int
	// MaxSizeBytes is the maximum total size of the cache in bytes.
	// Zero means unbounded by size.
	MaxSizeBytes int64
	// DefaultTTL is the time-to-live applied to entries stored without an
	// explicit TTL. Zero means entries do not expire by default.
	DefaultTTL time.Duration
	// Strategy selects the eviction strategy used under capacity pressure.
	Strategy StrategyType
}

// Validate checks that the cache configuration is valid.
func (c *Config) Validate() error {
	if c.MaxEntries < 0 {
		return fmt.Errorf("max entries cannot be negative")
	}
	if c.MaxSizeBytes < 0 {
		return fmt.Errorf("max size cannot be negative")
	}
	if c.DefaultTTL < 0 {
		return fmt.Errorf("default TTL cannot be negative")
	}
	switch c.Strategy {
	case "", StrategyLRU, StrategyLFU, StrategyFIFO, StrategySize, StrategyPriority:
		return nil
	default:
		return fmt.Errorf("unknown eviction strategy %q", c.Strategy)
	}
}

// SetDefaults applies default values to unset fields in the configuration.
func (c *Config) SetDefaults() {
	if c.Strategy == "" {
		c.Strategy = StrategyLRU
	}
}

// Entry represents a single entry in a cache. An entry is owned exclusively
// by the cache holding it; callers receive only the entry's data.
type Entry struct {
	// Key is the unique identifier for this cache entry.
	Key string
	// Data contains the cached payload.
	Data []byte
	// Metadata contains additional metadata about the entry, used by the
	// specialized caches (image dimensions, local file paths).
	Metadata map[string]string
	// SizeBytes is the size charged against the cache's byte limit.
	SizeBytes int64
	// CreatedAt is when this entry was first created.
	CreatedAt time.Time
	// AccessedAt is when this entry was last accessed.
	AccessedAt time.Time
	// AccessCount tracks how many times this entry has been accessed.
	AccessCount int64
	// Priority orders entries for the priority eviction strategy. Entries
	// stored without an explicit priority have priority 0, the lowest.
	Priority int
	// TTL is the time-to-live for this entry. Zero means no expiration.
	TTL time.Duration
}

// IsExpired returns true if the cache entry has expired based on its TTL.
func (e *Entry) IsExpired() bool {
	if e.TTL <= 0 {
		return false
	}
	return time.Since(e.CreatedAt) > e.TTL
}

// entrySize computes the size charged for an entry with the given key and
// payload. The key is counted so that empty payloads still occupy space.
func entrySize(key string, data []byte) int64 {
	return int64(len(key)) + int64(len(data))
}
