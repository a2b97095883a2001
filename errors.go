package cache

import (
	"errors"
	"fmt"
)

// Sentinel errors for the different cache failure modes.
// They can be checked with errors.Is regardless of wrapping.
var (
	// ErrInvalidKey indicates that a cache operation was given an empty or
	// otherwise malformed key.
	ErrInvalidKey = errors.New("invalid cache key")

	// ErrEntryTooLarge indicates that a single entry is larger than the
	// cache's configured byte limit and can never be stored, no matter how
	// many other entries are evicted.
	ErrEntryTooLarge = errors.New("entry exceeds cache size limit")

	// ErrCorrupted indicates that stored data failed checksum verification.
	ErrCorrupted = errors.New("cache entry is corrupted")

	// ErrStorageFailed indicates that an underlying storage operation
	// (filesystem read or write) failed.
	ErrStorageFailed = errors.New("cache storage operation failed")

	// ErrFetchFailed indicates that a remote fetch performed on behalf of
	// the cache failed.
	ErrFetchFailed = errors.New("remote fetch failed")

	// ErrDecodeFailed indicates that payload probing (image decoding)
	// failed for data handed to a specialized cache.
	ErrDecodeFailed = errors.New("payload decode failed")

	// ErrCacheClosed indicates that an operation was attempted on a cache
	// that has already been closed.
	ErrCacheClosed = errors.New("cache is closed")
)

// CacheError provides context about a failed cache operation. It wraps the
// underlying error with the operation name and the key being processed.
//
// CacheError implements the error interface and supports error wrapping, so
// it can be used with errors.Is and errors.As.
type CacheError struct {
	// Op describes the operation that failed (e.g., "set", "cache_remote_file").
	Op string

	// Key is the cache key being processed when the error occurred.
	Key string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *CacheError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %q: %s", e.Op, e.Key, e.Err)
}

// Unwrap returns the underlying error to support errors.Is and errors.As.
func (e *CacheError) Unwrap() error {
	return e.Err
}

// newCacheError wraps err with operation and key context.
func newCacheError(op, key string, err error) *CacheError {
	return &CacheError{Op: op, Key: key, Err: err}
}
