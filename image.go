package cache

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"strconv"
	"sync/atomic"

	// Registered formats for image probing.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/jmgilman/go/fs/core"
	"golang.org/x/sync/errgroup"
)

// Metadata keys attached to entries stored through an ImageCache.
const (
	MetaImageWidth  = "image_width"
	MetaImageHeight = "image_height"
	MetaImageFormat = "image_format"
)

// defaultPreloadWorkers bounds the concurrency of PreloadImages.
const defaultPreloadWorkers = 8

// ImageCache specializes a base cache for image payloads. Stored images are
// probed for format and dimensions, which are recorded as entry metadata.
//
// ImageCache embeds its base cache, so consumers depending only on the base
// Cache contract work unmodified against it.
type ImageCache struct {
	Cache

	fs     core.FS
	logger *Logger
}

// NewImageCache creates an image cache over base. The filesystem is used by
// PreloadImages to load image files.
func NewImageCache(base Cache, fsys core.FS, opts ...StoreOption) (*ImageCache, error) {
	if base == nil {
		return nil, fmt.Errorf("base cache cannot be nil")
	}
	if fsys == nil {
		return nil, fmt.Errorf("filesystem cannot be nil")
	}
	options := applyStoreOptions(opts)
	return &ImageCache{
		Cache:  base,
		fs:     fsys,
		logger: options.logger,
	}, nil
}

// CacheImage stores image data under its path. The data is probed with the
// registered image decoders; data that does not decode as an image is
// rejected with ErrDecodeFailed.
func (c *ImageCache) CacheImage(ctx context.Context, path string, data []byte, opts ...SetOption) error {
	if err := validateKey(path); err != nil {
		return newCacheError("cache_image", path, err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return newCacheError("cache_image", path, fmt.Errorf("%w: %w", ErrDecodeFailed, err))
	}

	metadata := map[string]string{
		MetaImageWidth:  strconv.Itoa(cfg.Width),
		MetaImageHeight: strconv.Itoa(cfg.Height),
		MetaImageFormat: format,
	}
	return c.Cache.Set(ctx, path, data, append(opts, WithMetadata(metadata))...)
}

// GetImage retrieves the image data stored under path.
func (c *ImageCache) GetImage(ctx context.Context, path string) ([]byte, bool, error) {
	return c.Cache.Get(ctx, path)
}

// PreloadImages loads the given image files from the filesystem and caches
// them concurrently. Preloading is best-effort: individual failures are
// logged and skipped, and the number of images cached successfully is
// returned.
func (c *ImageCache) PreloadImages(ctx context.Context, paths []string, opts ...SetOption) int {
	var succeeded atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultPreloadWorkers)
	for _, path := range paths {
		g.Go(func() error {
			data, err := c.fs.ReadFile(path)
			if err != nil {
				c.logger.Warn(ctx, "failed to read image for preload", "path", path, "error", err)
				return nil
			}
			if err := c.CacheImage(ctx, path, data, opts...); err != nil {
				c.logger.Warn(ctx, "failed to preload image", "path", path, "error", err)
				return nil
			}
			succeeded.Add(1)
			return nil
		})
	}
	// Workers only ever return nil; Wait is for completion, not errors.
	_ = g.Wait()

	return int(succeeded.Load())
}
