package cache

import "time"

// SetOption configures a single Set operation. Options not consumed by the
// cache's configured eviction strategy are stored on the entry but otherwise
// ignored; passing WithPriority to an LRU cache is a silent no-op.
type SetOption func(*setOptions)

type setOptions struct {
	ttl      time.Duration
	priority int
	metadata map[string]string
}

// WithTTL overrides the cache's default time-to-live for this entry.
// A zero duration stores the entry without expiration.
func WithTTL(ttl time.Duration) SetOption {
	return func(o *setOptions) {
		o.ttl = ttl
	}
}

// WithPriority assigns an eviction priority to this entry. Lower values are
// evicted first by the priority strategy; other strategies ignore it.
func WithPriority(priority int) SetOption {
	return func(o *setOptions) {
		o.priority = priority
	}
}

// WithMetadata attaches string metadata to this entry. The map is stored as
// given; callers must not mutate it afterwards.
func WithMetadata(metadata map[string]string) SetOption {
	return func(o *setOptions) {
		o.metadata = metadata
	}
}

// applySetOptions resolves per-set options against the cache configuration.
func applySetOptions(cfg Config, opts []SetOption) setOptions {
	options := setOptions{ttl: cfg.DefaultTTL}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

// StoreOption configures cache construction.
type StoreOption func(*storeOptions)

type storeOptions struct {
	logger   *Logger
	strategy EvictionStrategy
}

// WithLogger sets the logger used for eviction and cleanup events.
// By default caches log nothing.
func WithLogger(logger *Logger) StoreOption {
	return func(o *storeOptions) {
		o.logger = logger
	}
}

// WithStrategy overrides the eviction strategy selected by Config.Strategy.
// This allows callers to plug in a custom EvictionStrategy implementation.
func WithStrategy(strategy EvictionStrategy) StoreOption {
	return func(o *storeOptions) {
		o.strategy = strategy
	}
}

func applyStoreOptions(opts []StoreOption) storeOptions {
	options := storeOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = NewNopLogger()
	}
	return options
}
