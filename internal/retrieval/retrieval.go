// Package retrieval runs first-stage dense retrieval for evaluation queries.
package retrieval

import (
	"context"
	"fmt"

	"github.com/docentsearch/docent-eval/internal/cache"
	"github.com/docentsearch/docent-eval/internal/pkg/errors"
	"github.com/docentsearch/docent-eval/internal/pkg/retry"
	"github.com/docentsearch/docent-eval/internal/qdrant"
)

// Candidate is a retrieved chunk with its rank position.
type Candidate struct {
	// ChunkID is the corpus chunk identifier.
	ChunkID string `json:"chunk_id"`

	// Score is the similarity score from the vector store.
	Score float64 `json:"score"`

	// Rank is the dense 0-based position in the result list.
	Rank int `json:"rank"`

	// Text is the chunk text, used as reranker input.
	Text string `json:"text,omitempty"`

	// Source is the corpus series the chunk came from.
	Source string `json:"source,omitempty"`
}

// Embedder produces a query embedding.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Searcher runs a dense vector search against a collection.
type Searcher interface {
	DenseSearch(ctx context.Context, collection string, req qdrant.SearchRequest) ([]qdrant.SearchResult, error)
}

// Retriever embeds a query and searches the chunk collection.
type Retriever struct {
	embedder   Embedder
	searcher   Searcher
	cache      cache.Cache
	collection string
	retry      retry.Config
}

// NewRetriever creates a retriever. The cache may be nil to disable
// embedding reuse across repeated queries.
func NewRetriever(embedder Embedder, searcher Searcher, c cache.Cache, collection string) *Retriever {
	return &Retriever{
		embedder:   embedder,
		searcher:   searcher,
		cache:      c,
		collection: collection,
		retry:      retry.DefaultConfig(),
	}
}

// Retrieve returns up to k candidates for the query text, ranked by
// descending similarity score.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]Candidate, error) {
	if query == "" {
		return nil, errors.RetrievalError("query text is empty", nil)
	}
	if k <= 0 {
		return nil, errors.RetrievalError(fmt.Sprintf("invalid retrieve k %d", k), nil)
	}

	vector, err := r.embedQuery(ctx, query)
	if err != nil {
		return nil, errors.EmbeddingError("failed to embed query", err)
	}

	var results []qdrant.SearchResult
	err = retry.Do(ctx, r.retry, func(ctx context.Context) error {
		var searchErr error
		results, searchErr = r.searcher.DenseSearch(ctx, r.collection, qdrant.SearchRequest{
			Vector: vector,
			Limit:  uint64(k),
		})
		return searchErr
	})
	if err != nil {
		return nil, errors.RetrievalError("dense search failed", err)
	}

	candidates := make([]Candidate, 0, len(results))
	for i, res := range results {
		candidates = append(candidates, Candidate{
			ChunkID: res.ChunkID,
			Score:   float64(res.Score),
			Rank:    i,
			Text:    res.Text,
			Source:  res.Source,
		})
	}

	return candidates, nil
}

// embedQuery returns the query embedding, consulting the cache first.
func (r *Retriever) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if r.cache != nil {
		if vector, ok := r.cache.Get(ctx, query); ok {
			return vector, nil
		}
	}

	var vector []float32
	err := retry.Do(ctx, r.retry, func(ctx context.Context) error {
		var embedErr error
		vector, embedErr = r.embedder.EmbedQuery(ctx, query)
		return embedErr
	})
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		r.cache.Put(ctx, query, vector)
	}

	return vector, nil
}
