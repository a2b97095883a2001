package cache

import (
	"context"
	"sync"
)

// Registry manages named cache instances so process-wide caches can be
// looked up, inspected, and cleaned up uniformly.
//
// The registry's lock guards only the name-to-cache mapping; it is never
// held across a cache's own operations, so a slow or contended cache cannot
// block registry lookups.
type Registry struct {
	mu     sync.RWMutex
	caches map[string]Cache
	logger *Logger
}

// NewRegistry creates an empty cache registry.
func NewRegistry(opts ...StoreOption) *Registry {
	options := applyStoreOptions(opts)
	return &Registry{
		caches: make(map[string]Cache),
		logger: options.logger,
	}
}

// Register adds a cache under the given name. It returns false without
// replacing anything when the name is already registered or invalid.
func (r *Registry) Register(name string, c Cache) bool {
	if name == "" || c == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.caches[name]; exists {
		return false
	}
	r.caches[name] = c
	return true
}

// Get returns the cache registered under name.
func (r *Registry) Get(name string) (Cache, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, exists := r.caches[name]
	return c, exists
}

// Names returns the names of all registered caches.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.caches))
	for name := range r.caches {
		names = append(names, name)
	}
	return names
}

// AllStats returns a statistics snapshot for every registered cache, keyed
// by name.
func (r *Registry) AllStats() map[string]Stats {
	r.mu.RLock()
	snapshot := make(map[string]Cache, len(r.caches))
	for name, c := range r.caches {
		snapshot[name] = c
	}
	r.mu.RUnlock()

	stats := make(map[string]Stats, len(snapshot))
	for name, c := range snapshot {
		stats[name] = c.Stats()
	}
	return stats
}

// CleanupAll clears every registered cache. The cleanup is best-effort: a
// cache that fails to clear is logged and does not stop the remaining
// caches from being cleared. It returns true only if every cache cleared
// successfully.
func (r *Registry) CleanupAll(ctx context.Context) bool {
	r.mu.RLock()
	snapshot := make(map[string]Cache, len(r.caches))
	for name, c := range r.caches {
		snapshot[name] = c
	}
	r.mu.RUnlock()

	ok := true
	for name, c := range snapshot {
		if err := c.Clear(ctx); err != nil {
			ok = false
			r.logger.Warn(ctx, "failed to clear cache", "cache", name, "error", err)
		}
	}
	return ok
}
