package adapters

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/maypok86/otter"
)

// CachedAdapter memoises extractions of an inner adapter. Entries are keyed
// by language, path and a digest of the text, so an edited file misses.
// Cached extractions are shared between callers and must not be mutated.
type CachedAdapter struct {
	inner Adapter
	cache otter.Cache[string, *Extraction]
}

// NewCachedAdapter wraps inner with a cache holding up to capacity extractions.
func NewCachedAdapter(inner Adapter, capacity int) (*CachedAdapter, error) {
	cache, err := otter.MustBuilder[string, *Extraction](capacity).
		CollectStats().
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build extraction cache: %w", err)
	}
	return &CachedAdapter{inner: inner, cache: cache}, nil
}

func (c *CachedAdapter) Language() Language {
	return c.inner.Language()
}

func (c *CachedAdapter) Extensions() []string {
	return c.inner.Extensions()
}

// Extract returns the cached extraction for src or delegates to the inner
// adapter. Errors are not cached.
func (c *CachedAdapter) Extract(ctx context.Context, src Source) (*Extraction, error) {
	key := cacheKey(c.inner.Language(), src)
	if ext, ok := c.cache.Get(key); ok {
		return ext, nil
	}

	ext, err := c.inner.Extract(ctx, src)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, ext)
	return ext, nil
}

// Hits returns the number of cache hits so far.
func (c *CachedAdapter) Hits() int64 {
	return c.cache.Stats().Hits()
}

// Misses returns the number of cache misses so far.
func (c *CachedAdapter) Misses() int64 {
	return c.cache.Stats().Misses()
}

// Close releases the cache.
func (c *CachedAdapter) Close() {
	c.cache.Close()
}

func cacheKey(lang Language, src Source) string {
	sum := sha256.Sum256(src.Text)
	return string(lang) + "\x00" + src.Path + "\x00" + src.Rel + "\x00" + hex.EncodeToString(sum[:])
}
