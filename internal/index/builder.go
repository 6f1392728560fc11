package index

import (
	"context"
	"time"

	"github.com/docentsearch/docent-eval/internal/bus"
	"github.com/docentsearch/docent-eval/internal/chunk"
	"github.com/docentsearch/docent-eval/internal/dataset"
	"github.com/docentsearch/docent-eval/internal/pkg/errors"
	"github.com/docentsearch/docent-eval/internal/pkg/hash"
	"github.com/docentsearch/docent-eval/internal/pkg/logger"
	"github.com/docentsearch/docent-eval/internal/qdrant"
)

// Embedder produces dense embeddings for a batch of texts.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Store is the vector store side of the build pipeline.
type Store interface {
	CreateCollection(ctx context.Context, cfg qdrant.CollectionConfig) error
	UpsertPoints(ctx context.Context, collection string, points []qdrant.Point) error
}

// BuildConfig configures a corpus index build.
type BuildConfig struct {
	// Collection is the target collection name (unprefixed).
	Collection string

	// VectorSize is the embedding dimension.
	VectorSize uint64

	// Recreate drops an existing collection first.
	Recreate bool

	// Batch controls embedding batch size and worker count.
	Batch BatchConfig
}

// BuildResult summarizes a completed build.
type BuildResult struct {
	Collection string        `json:"collection"`
	Indexed    int           `json:"indexed"`
	Duration   time.Duration `json:"duration"`
}

// Builder embeds corpus chunks and upserts them into the vector store.
type Builder struct {
	embedder Embedder
	store    Store
	counter  chunk.TokenCounter
	bus      bus.Bus
	log      *logger.Logger
	progress *ProgressTracker
}

// NewBuilder creates a builder. The bus and progress callback may be nil.
func NewBuilder(embedder Embedder, store Store, counter chunk.TokenCounter, b bus.Bus, log *logger.Logger, progress ProgressCallback) *Builder {
	if log == nil {
		log = logger.Default()
	}
	if counter == nil {
		counter = chunk.NewHeuristicCounter()
	}

	return &Builder{
		embedder: embedder,
		store:    store,
		counter:  counter,
		bus:      b,
		log:      log,
		progress: NewProgressTracker(progress),
	}
}

// Build creates the collection and indexes every chunk. Each batch is
// embedded and upserted by the same worker, so a large corpus never holds
// all its vectors in memory at once.
func (b *Builder) Build(ctx context.Context, cfg BuildConfig, chunks []dataset.Chunk) (*BuildResult, error) {
	if cfg.Collection == "" {
		return nil, errors.QdrantError("collection name is required", nil)
	}
	if len(chunks) == 0 {
		return nil, errors.DatasetError("corpus is empty", nil)
	}

	start := time.Now()

	err := b.store.CreateCollection(ctx, qdrant.CollectionConfig{
		Name:          cfg.Collection,
		VectorSize:    cfg.VectorSize,
		OnDiskPayload: true,
		Recreate:      cfg.Recreate,
	})
	if err != nil {
		return nil, errors.QdrantError("failed to create collection", err)
	}

	total := len(chunks)
	indexedAt := time.Now().UTC()

	processor := NewBatchProcessor(cfg.Batch, func(ctx context.Context, batch []dataset.Chunk) ([]string, error) {
		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		vectors, err := b.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, errors.EmbeddingError("failed to embed batch", err)
		}
		b.progress.Advance("embedding", 0, total)

		points := make([]qdrant.Point, len(batch))
		ids := make([]string, len(batch))
		for i, c := range batch {
			points[i] = qdrant.Point{
				ID:     hash.UUIDFrom(c.ChunkID),
				Vector: vectors[i],
				Payload: qdrant.PointPayload{
					ChunkID:       c.ChunkID,
					Source:        c.Source,
					Text:          c.Text,
					ParentChunkID: c.ParentChunkID,
					TokenCount:    b.counter.Count(c.Text),
					IndexedAt:     indexedAt,
				},
			}
			ids[i] = c.ChunkID
		}

		if err := b.store.UpsertPoints(ctx, cfg.Collection, points); err != nil {
			return nil, errors.QdrantError("failed to upsert batch", err)
		}
		b.progress.Advance("upserting", len(batch), total)

		return ids, nil
	})

	indexed, err := processor.Process(ctx, chunks)
	if err != nil {
		return nil, err
	}
	b.progress.Complete(total)

	result := &BuildResult{
		Collection: cfg.Collection,
		Indexed:    len(indexed),
		Duration:   time.Since(start),
	}

	b.log.Info("index build complete",
		"collection", result.Collection,
		"indexed", result.Indexed,
		"duration", result.Duration.String())

	if b.bus != nil {
		event := bus.NewEvent(bus.TopicIndexCompleted, cfg.Collection, result)
		if err := b.bus.Publish(ctx, bus.TopicIndexCompleted, event); err != nil {
			b.log.WithError(err).Warn("failed to publish index event")
		}
	}

	return result, nil
}
