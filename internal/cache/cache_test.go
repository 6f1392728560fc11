package cache

import (
	"context"
	"fmt"
	"testing"

	"github.com/docentsearch/docent-eval/internal/config"
)

func TestMemoryCache_GetPut(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(10)

	if _, ok := c.Get(ctx, "질문"); ok {
		t.Fatal("empty cache should miss")
	}

	c.Put(ctx, "질문", []float32{1, 2, 3})

	got, ok := c.Get(ctx, "질문")
	if !ok {
		t.Fatal("expected hit")
	}
	if len(got) != 3 || got[0] != 1 {
		t.Errorf("got %v", got)
	}
}

func TestMemoryCache_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(10)
	c.Put(ctx, "질문", []float32{1, 2, 3})

	first, _ := c.Get(ctx, "질문")
	first[0] = 99

	second, _ := c.Get(ctx, "질문")
	if second[0] != 1 {
		t.Errorf("cached value was mutated: %v", second)
	}
}

func TestMemoryCache_EvictsOldest(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(2)

	c.Put(ctx, "a", []float32{1})
	c.Put(ctx, "b", []float32{2})

	// Touch a so b becomes the LRU entry.
	c.Get(ctx, "a")

	c.Put(ctx, "c", []float32{3})

	if _, ok := c.Get(ctx, "b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.Get(ctx, "a"); !ok {
		t.Error("a should survive")
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
}

func TestMemoryCache_OverwriteDoesNotGrow(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(5)

	for i := 0; i < 10; i++ {
		c.Put(ctx, "같은 질문", []float32{float32(i)})
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}

	got, _ := c.Get(ctx, "같은 질문")
	if got[0] != 9 {
		t.Errorf("overwrite should keep the latest value, got %v", got)
	}
}

func TestMemoryCache_ManyEntries(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(100)

	for i := 0; i < 250; i++ {
		c.Put(ctx, fmt.Sprintf("q%d", i), []float32{float32(i)})
	}
	if c.Len() != 100 {
		t.Errorf("Len = %d, want 100", c.Len())
	}

	// The most recent entries survive
	if _, ok := c.Get(ctx, "q249"); !ok {
		t.Error("q249 should be cached")
	}
	if _, ok := c.Get(ctx, "q0"); ok {
		t.Error("q0 should have been evicted")
	}
}

func TestNew_TypeSelection(t *testing.T) {
	c, err := New(config.CacheConfig{Type: "memory", Size: 10})
	if err != nil {
		t.Fatalf("New(memory) error = %v", err)
	}
	if _, ok := c.(*MemoryCache); !ok {
		t.Errorf("New(memory) = %T, want *MemoryCache", c)
	}

	c, err = New(config.CacheConfig{Type: "none"})
	if err != nil {
		t.Fatalf("New(none) error = %v", err)
	}
	if c != nil {
		t.Errorf("New(none) = %v, want nil", c)
	}
}
