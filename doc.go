// Package cache provides a unified caching abstraction with pluggable
// eviction strategies, multi-tier composition, and a registry for managing
// named cache instances.
//
// The package is built around a small base contract (the Cache interface)
// implemented by an in-memory bounded store (Store) and a persistent
// filesystem-backed store (DiskCache). Caches can be stacked into a
// TieredCache that reads through slower tiers and promotes hits into faster
// ones, and looked up by name through a Registry.
//
// # Components
//
//   - Cache: core interface for cache operations (get, set, delete, clear, exists)
//   - Store: in-memory store bounded by entry count and/or byte size
//   - DiskCache: persistent store over a core.FS with atomic, checksummed writes
//   - TieredCache: multi-level composition with promotion and write policies
//   - Registry: named cache instances with aggregate stats and bulk cleanup
//   - EvictionStrategy: pluggable strategies (LRU, LFU, FIFO, size, priority)
//   - ImageCache, NetworkCache: thin specializations layered on any base cache
//
// # Entry Lifecycle
//
// Entries are created by Set, mutated on every Get (access time and count)
// and Set (value replacement), and destroyed by Delete, Clear, eviction under
// capacity pressure, or TTL expiry once observed by an access or sweep.
//
// # Error Handling
//
// Absence is not an error: Get, Exists, and Delete report missing keys
// through their boolean results. Failures are sentinel errors checked with
// errors.Is, optionally wrapped in a CacheError carrying the operation and
// key for diagnostics:
//
//   - ErrInvalidKey: empty or malformed key
//   - ErrEntryTooLarge: a single entry exceeds the configured byte limit
//   - ErrCorrupted: stored data failed checksum verification
//   - ErrStorageFailed, ErrFetchFailed, ErrDecodeFailed: collaborator failures
//
// # Concurrency
//
// All cache implementations are safe for concurrent use. Each store owns one
// lock guarding its entry map, eviction index, and size counters; statistics
// use independent atomic counters and may be read with relaxed consistency.
// TieredCache never holds one tier's lock while operating on another.
package cache
