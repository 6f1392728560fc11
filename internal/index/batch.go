// Package index builds the Qdrant chunk collection from the corpus.
package index

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// BatchConfig configures batch processing.
type BatchConfig struct {
	// Size is the maximum batch size.
	Size int

	// Workers is the number of parallel workers.
	Workers int
}

// DefaultBatchConfig returns sensible defaults for the embedding API.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		Size:    32,
		Workers: 4,
	}
}

// BatchProcessor processes items in batches with optional parallelism.
type BatchProcessor[T any, R any] struct {
	cfg     BatchConfig
	process func(ctx context.Context, batch []T) ([]R, error)
}

// NewBatchProcessor creates a new batch processor.
func NewBatchProcessor[T any, R any](cfg BatchConfig, process func(ctx context.Context, batch []T) ([]R, error)) *BatchProcessor[T, R] {
	if cfg.Size <= 0 {
		cfg = DefaultBatchConfig()
	}
	return &BatchProcessor[T, R]{
		cfg:     cfg,
		process: process,
	}
}

// Process processes all items and returns the flattened results in input
// order.
func (p *BatchProcessor[T, R]) Process(ctx context.Context, items []T) ([]R, error) {
	if len(items) == 0 {
		return nil, nil
	}

	batches := splitIntoBatches(items, p.cfg.Size)
	results := make([][]R, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	workers := p.cfg.Workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	for i, batch := range batches {
		g.Go(func() error {
			r, err := p.process(gctx, batch)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var flat []R
	for _, r := range results {
		flat = append(flat, r...)
	}
	return flat, nil
}

// splitIntoBatches splits items into batches of the given size.
func splitIntoBatches[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = 1
	}

	var batches [][]T
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, items[i:end])
	}

	return batches
}

// ProgressCallback is called with indexing progress updates.
type ProgressCallback func(Progress)

// Progress represents indexing progress.
type Progress struct {
	Stage   string  `json:"stage"` // embedding, upserting, complete
	Current int     `json:"current"`
	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
}

// ProgressTracker tracks progress across pipeline stages.
type ProgressTracker struct {
	callback ProgressCallback
	mu       sync.Mutex
	current  int
}

// NewProgressTracker creates a new progress tracker.
func NewProgressTracker(callback ProgressCallback) *ProgressTracker {
	return &ProgressTracker{callback: callback}
}

// Advance adds done items to the running count and reports it.
func (t *ProgressTracker) Advance(stage string, done, total int) {
	if t.callback == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.current += done
	p := Progress{
		Stage:   stage,
		Current: t.current,
		Total:   total,
	}
	if total > 0 {
		p.Percent = float64(t.current) / float64(total) * 100
	}
	t.callback(p)
}

// Complete reports completion.
func (t *ProgressTracker) Complete(total int) {
	if t.callback == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.callback(Progress{
		Stage:   "complete",
		Current: total,
		Total:   total,
		Percent: 100,
	})
}
