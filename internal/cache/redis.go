package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/docentsearch/docent-eval/internal/config"
	"github.com/docentsearch/docent-eval/internal/pkg/hash"
)

// RedisCache is a Redis-backed embedding cache shared across runs.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache creates a Redis cache from configuration.
// Returns an error if the connection fails.
func NewRedisCache(cfg config.CacheConfig) (*RedisCache, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &RedisCache{
		client: client,
		prefix: "docent:embed:",
		ttl:    time.Duration(cfg.TTLSec) * time.Second,
	}, nil
}

// Get retrieves an embedding from Redis. Lookup failures are treated as
// misses; the embedding service is the fallback either way.
func (c *RedisCache) Get(ctx context.Context, text string) ([]float32, bool) {
	key := c.prefix + hash.SHA256String(text)

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}

	var emb []float32
	if err := json.Unmarshal(data, &emb); err != nil {
		return nil, false
	}

	return emb, true
}

// Put stores an embedding in Redis with the configured TTL.
func (c *RedisCache) Put(ctx context.Context, text string, embedding []float32) {
	key := c.prefix + hash.SHA256String(text)

	data, err := json.Marshal(embedding)
	if err != nil {
		return
	}

	// Best effort; a failed write just means a future miss.
	c.client.Set(ctx, key, data, c.ttl)
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
