// Package cache holds the Redis-backed stores: image lookups and job results.
// Every store treats a nil client as disabled.
package cache

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to a redis:// or rediss:// URL, or a plain host:port.
// An empty URL returns a nil client, which disables caching.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		return nil, nil
	}
	if !strings.HasPrefix(redisURL, "redis://") && !strings.HasPrefix(redisURL, "rediss://") {
		return redis.NewClient(&redis.Options{Addr: redisURL}), nil
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return redis.NewClient(opt), nil
}

// hashKey derives a fixed-length key from arbitrary input.
func hashKey(prefix, input string) string {
	hash := sha256.Sum256([]byte(input))
	return fmt.Sprintf("%s%x", prefix, hash)
}
