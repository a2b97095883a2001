package cache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jmgilman/go/fs/core"
	"golang.org/x/sync/singleflight"
)

// MetaLocalPath is the metadata key recording where a remote file was
// materialized on the local filesystem.
const MetaLocalPath = "local_path"

// Fetcher retrieves the contents of a remote file. Implementations are
// collaborators of the cache; their failures surface as ErrFetchFailed.
type Fetcher interface {
	Fetch(ctx context.Context, remote string) ([]byte, error)
}

// HTTPFetcher fetches remote files over HTTP with exponential backoff
// retries. Server errors and transport failures are retried; client errors
// are not.
type HTTPFetcher struct {
	client     *http.Client
	maxRetries uint64
}

// HTTPFetcherOption configures an HTTPFetcher.
type HTTPFetcherOption func(*HTTPFetcher)

// WithHTTPClient sets the HTTP client used for fetches.
func WithHTTPClient(client *http.Client) HTTPFetcherOption {
	return func(f *HTTPFetcher) {
		f.client = client
	}
}

// WithMaxRetries sets how many times a failed fetch is retried.
func WithMaxRetries(retries uint64) HTTPFetcherOption {
	return func(f *HTTPFetcher) {
		f.maxRetries = retries
	}
}

// NewHTTPFetcher creates an HTTP fetcher with a 30 second request timeout
// and 3 retries by default.
func NewHTTPFetcher(opts ...HTTPFetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		client:     &http.Client{Timeout: 30 * time.Second},
		maxRetries: 3,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads the remote file, retrying transient failures with
// exponential backoff.
func (f *HTTPFetcher) Fetch(ctx context.Context, remote string) ([]byte, error) {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), f.maxRetries), ctx)

	return backoff.RetryWithData(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, remote, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		resp, err := f.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("server returned %s", resp.Status)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, backoff.Permanent(fmt.Errorf("server returned %s", resp.Status))
		}
		return io.ReadAll(resp.Body)
	}, policy)
}

// NetworkCache specializes a base cache for files fetched from remote
// locations. Fetched payloads are recorded in the base cache keyed by their
// remote reference and materialized as files at a caller-chosen local path.
// Concurrent fetches of the same remote are collapsed into one request.
//
// NetworkCache embeds its base cache, so consumers depending only on the
// base Cache contract work unmodified against it. The base must support
// expiry sweeps so CleanupExpired can also remove materialized files.
type NetworkCache struct {
	ExpiringCache

	fetcher Fetcher
	fs      core.FS
	logger  *Logger
	group   singleflight.Group

	mu         sync.Mutex
	localPaths map[string]string
}

// NewNetworkCache creates a network file cache over base. The filesystem
// receives the materialized local files.
func NewNetworkCache(base ExpiringCache, fetcher Fetcher, fsys core.FS, opts ...StoreOption) (*NetworkCache, error) {
	if base == nil {
		return nil, fmt.Errorf("base cache cannot be nil")
	}
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher cannot be nil")
	}
	if fsys == nil {
		return nil, fmt.Errorf("filesystem cannot be nil")
	}
	options := applyStoreOptions(opts)
	return &NetworkCache{
		ExpiringCache: base,
		fetcher:       fetcher,
		fs:            fsys,
		logger:        options.logger,
		localPaths:    make(map[string]string),
	}, nil
}

// CacheRemoteFile fetches the remote file, writes it to the local path, and
// records it in the base cache. A fetch or write failure leaves the cache
// without a partial entry.
func (c *NetworkCache) CacheRemoteFile(ctx context.Context, remote, local string, opts ...SetOption) error {
	if err := validateKey(remote); err != nil {
		return newCacheError("cache_remote_file", remote, err)
	}
	if local == "" {
		return newCacheError("cache_remote_file", remote, fmt.Errorf("%w: empty local path", ErrInvalidKey))
	}

	fetched, err, _ := c.group.Do(remote, func() (any, error) {
		return c.fetcher.Fetch(ctx, remote)
	})
	if err != nil {
		return newCacheError("cache_remote_file", remote, fmt.Errorf("%w: %w", ErrFetchFailed, err))
	}
	data := fetched.([]byte)

	if dir := filepath.Dir(local); dir != "." {
		if err := c.fs.MkdirAll(dir, 0o755); err != nil {
			return newCacheError("cache_remote_file", remote, fmt.Errorf("%w: %w", ErrStorageFailed, err))
		}
	}
	if err := c.fs.WriteFile(local, data, 0o644); err != nil {
		return newCacheError("cache_remote_file", remote, fmt.Errorf("%w: %w", ErrStorageFailed, err))
	}

	metadata := map[string]string{MetaLocalPath: local}
	if err := c.ExpiringCache.Set(ctx, remote, data, append(opts, WithMetadata(metadata))...); err != nil {
		// The entry never made it into the cache; don't leave the
		// orphaned local file behind.
		if rerr := c.fs.Remove(local); rerr != nil {
			c.logger.Warn(ctx, "failed to remove orphaned local file", "path", local, "error", rerr)
		}
		return err
	}

	c.mu.Lock()
	c.localPaths[remote] = local
	c.mu.Unlock()
	return nil
}

// GetCachedFile returns the local path holding the remote file, or absent
// when the remote is not cached or its entry has expired. A missing local
// file is rematerialized from the cached payload.
func (c *NetworkCache) GetCachedFile(ctx context.Context, remote string) (string, bool, error) {
	ok, err := c.ExpiringCache.Exists(ctx, remote)
	if err != nil || !ok {
		return "", false, err
	}

	local := c.localPath(ctx, remote)
	if local == "" {
		return "", false, nil
	}

	exists, err := c.fs.Exists(local)
	if err != nil {
		return "", false, newCacheError("get_cached_file", remote, fmt.Errorf("%w: %w", ErrStorageFailed, err))
	}
	if !exists {
		data, found, err := c.ExpiringCache.Get(ctx, remote)
		if err != nil || !found {
			return "", false, err
		}
		if err := c.fs.WriteFile(local, data, 0o644); err != nil {
			return "", false, newCacheError("get_cached_file", remote, fmt.Errorf("%w: %w", ErrStorageFailed, err))
		}
	}
	return local, true, nil
}

// localPath resolves the materialized path for a remote, falling back to
// the entry metadata so paths survive a process restart with a persistent
// base cache.
func (c *NetworkCache) localPath(ctx context.Context, remote string) string {
	c.mu.Lock()
	local := c.localPaths[remote]
	c.mu.Unlock()
	if local != "" {
		return local
	}

	ec, ok := c.ExpiringCache.(EntryCache)
	if !ok {
		return ""
	}
	entry, found, err := ec.GetEntry(ctx, remote)
	if err != nil || !found {
		return ""
	}
	local = entry.Metadata[MetaLocalPath]
	if local != "" {
		c.mu.Lock()
		c.localPaths[remote] = local
		c.mu.Unlock()
	}
	return local
}

// IsFileCached reports whether the remote file has a live cache entry.
func (c *NetworkCache) IsFileCached(ctx context.Context, remote string) (bool, error) {
	return c.ExpiringCache.Exists(ctx, remote)
}

// CleanupExpired removes expired entries from the base cache along with
// their materialized local files, returning the number of entries removed.
func (c *NetworkCache) CleanupExpired(ctx context.Context) (int, error) {
	removed, err := c.ExpiringCache.RemoveExpired(ctx)

	for _, remote := range removed {
		c.mu.Lock()
		local := c.localPaths[remote]
		delete(c.localPaths, remote)
		c.mu.Unlock()
		if local == "" {
			continue
		}
		if rerr := c.fs.Remove(local); rerr != nil {
			c.logger.Warn(ctx, "failed to remove expired local file", "path", local, "error", rerr)
		}
	}
	return len(removed), err
}
