package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/socialchef/chef/internal/recipe"
)

// ImageCache memoizes image lookups by search query.
type ImageCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewImageCache creates an image cache. A nil client disables it.
func NewImageCache(client *redis.Client, ttl time.Duration) *ImageCache {
	return &ImageCache{
		client: client,
		prefix: "image:",
		ttl:    ttl,
	}
}

// Enabled reports whether lookups reach Redis.
func (c *ImageCache) Enabled() bool {
	return c != nil && c.client != nil
}

func (c *ImageCache) makeKey(query string) string {
	return hashKey(c.prefix, strings.ToLower(strings.TrimSpace(query)))
}

// Get returns the cached image for query, or nil on a miss.
// Redis failures are logged and reported as a miss.
func (c *ImageCache) Get(ctx context.Context, query string) (*recipe.Image, error) {
	if !c.Enabled() {
		return nil, nil
	}

	data, err := c.client.Get(ctx, c.makeKey(query)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		slog.WarnContext(ctx, "Redis image cache get failed", "error", err)
		return nil, nil
	}

	var image recipe.Image
	if err := json.Unmarshal([]byte(data), &image); err != nil {
		slog.WarnContext(ctx, "Failed to unmarshal cached image", "error", err)
		return nil, nil
	}
	return &image, nil
}

// Set stores image under query. Nil images are not cached.
func (c *ImageCache) Set(ctx context.Context, query string, image *recipe.Image) error {
	if !c.Enabled() || image == nil {
		return nil
	}

	data, err := json.Marshal(image)
	if err != nil {
		return err
	}

	if err := c.client.Set(ctx, c.makeKey(query), data, c.ttl).Err(); err != nil {
		slog.WarnContext(ctx, "Redis image cache set failed", "error", err)
	}
	return nil
}
