// Package qdrant provides a wrapper around the Qdrant Go client with
// simplified APIs for the history-chunk collection.
package qdrant

import (
	"time"
)

// CollectionConfig defines the configuration for creating a collection.
type CollectionConfig struct {
	// Name is the collection name (prefixed on the server).
	Name string

	// VectorSize is the dense embedding dimension.
	VectorSize uint64

	// OnDiskPayload stores payload on disk to save RAM.
	OnDiskPayload bool

	// Recreate drops an existing collection first.
	Recreate bool
}

// DefaultCollectionConfig returns sensible defaults for a Korean-history
// chunk collection.
func DefaultCollectionConfig(name string) CollectionConfig {
	return CollectionConfig{
		Name:          name,
		VectorSize:    768, // ko-sroberta
		OnDiskPayload: true,
	}
}

// Point represents a chunk to upsert.
type Point struct {
	// ID is the point UUID (derived from the chunk ID).
	ID string

	// Vector is the dense embedding.
	Vector []float32

	// Payload is the chunk metadata.
	Payload PointPayload
}

// PointPayload contains the retrievable chunk data.
type PointPayload struct {
	ChunkID       string    `json:"chunk_id"`
	Source        string    `json:"source"`
	Text          string    `json:"text"`
	ParentChunkID string    `json:"parent_chunk_id,omitempty"`
	TokenCount    int       `json:"token_count"`
	IndexedAt     time.Time `json:"indexed_at"`
}

// SearchRequest defines parameters for a dense search.
type SearchRequest struct {
	// Vector is the query embedding.
	Vector []float32

	// Limit is the maximum number of results to return.
	Limit uint64
}

// SearchResult represents a single search result.
type SearchResult struct {
	// ChunkID is the corpus chunk identifier from the payload.
	ChunkID string

	// Score is the similarity score.
	Score float32

	// Text is the chunk text.
	Text string

	// Source is the corpus series the chunk came from.
	Source string
}
