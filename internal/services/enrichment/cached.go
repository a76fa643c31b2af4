package enrichment

import (
	"context"

	"github.com/socialchef/chef/internal/recipe"
)

// ImageCache stores successful lookups by query.
type ImageCache interface {
	Get(ctx context.Context, query string) (*recipe.Image, error)
	Set(ctx context.Context, query string, image *recipe.Image) error
}

// CachedFetcher serves repeated queries from a cache before calling the
// wrapped Fetcher. Only found images are cached.
type CachedFetcher struct {
	next  Fetcher
	cache ImageCache
}

// NewCachedFetcher wraps next with cache. A nil cache returns next unchanged.
func NewCachedFetcher(next Fetcher, cache ImageCache) Fetcher {
	if cache == nil {
		return next
	}
	return &CachedFetcher{next: next, cache: cache}
}

// Fetch implements Fetcher.
func (f *CachedFetcher) Fetch(ctx context.Context, query, id, key string) (*recipe.Image, error) {
	if cached, err := f.cache.Get(ctx, query); err == nil && cached != nil {
		return cached, nil
	}

	image, err := f.next.Fetch(ctx, query, id, key)
	if err != nil || image == nil {
		return image, err
	}

	_ = f.cache.Set(ctx, query, image)
	return image, nil
}
