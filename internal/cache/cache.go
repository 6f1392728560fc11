// Package cache provides query-embedding caches keyed by text hash.
package cache

import (
	"context"
	"sync"

	"github.com/docentsearch/docent-eval/internal/config"
	"github.com/docentsearch/docent-eval/internal/pkg/hash"
)

// Cache stores embeddings by text.
type Cache interface {
	// Get retrieves an embedding, reporting whether it was present.
	Get(ctx context.Context, text string) ([]float32, bool)

	// Put stores an embedding.
	Put(ctx context.Context, text string, embedding []float32)

	// Close releases resources.
	Close() error
}

// New creates a cache from configuration. Type "none" returns nil, which
// callers treat as caching disabled.
func New(cfg config.CacheConfig) (Cache, error) {
	switch cfg.Type {
	case "redis":
		return NewRedisCache(cfg)
	case "none":
		return nil, nil
	default:
		return NewMemoryCache(cfg.Size), nil
	}
}

// MemoryCache is an in-memory LRU embedding cache.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string][]float32
	order   []string // LRU order, oldest first
	maxSize int
}

// NewMemoryCache creates a new in-memory cache.
func NewMemoryCache(maxSize int) *MemoryCache {
	if maxSize <= 0 {
		maxSize = 10000
	}

	return &MemoryCache{
		entries: make(map[string][]float32),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
	}
}

// Get retrieves an embedding from the cache.
func (c *MemoryCache) Get(_ context.Context, text string) ([]float32, bool) {
	key := hash.SHA256String(text)

	c.mu.Lock()
	defer c.mu.Unlock()

	emb, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	c.moveToEnd(key)

	// Return a copy to prevent external mutation
	out := make([]float32, len(emb))
	copy(out, emb)
	return out, true
}

// Put stores an embedding, evicting the least recently used entry when full.
func (c *MemoryCache) Put(_ context.Context, text string, embedding []float32) {
	key := hash.SHA256String(text)

	stored := make([]float32, len(embedding))
	copy(stored, embedding)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.entries[key] = stored
		c.moveToEnd(key)
		return
	}

	for len(c.entries) >= c.maxSize && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[key] = stored
	c.order = append(c.order, key)
}

// Len returns the number of cached entries.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close implements Cache.
func (c *MemoryCache) Close() error {
	return nil
}

func (c *MemoryCache) moveToEnd(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			c.order = append(c.order, key)
			return
		}
	}
}
