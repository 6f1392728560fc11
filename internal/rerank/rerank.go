// Package rerank reorders retrieval candidates with a cross-encoder score.
package rerank

import (
	"context"
	"fmt"
	"sort"

	"github.com/docentsearch/docent-eval/internal/pkg/errors"
	"github.com/docentsearch/docent-eval/internal/pkg/retry"
	"github.com/docentsearch/docent-eval/internal/retrieval"
)

// Scorer scores documents against a query. Scores come back in the same
// order as the input documents.
type Scorer interface {
	Score(ctx context.Context, query string, documents []string) ([]float64, error)
}

// Reranker reorders candidates by cross-encoder relevance.
type Reranker struct {
	scorer Scorer
	retry  retry.Config
}

// NewReranker creates a reranker around the given scorer.
func NewReranker(scorer Scorer) *Reranker {
	return &Reranker{
		scorer: scorer,
		retry:  retry.DefaultConfig(),
	}
}

// Rerank scores the candidates against the query and returns the top k in
// descending score order. Ties keep the original retrieval order. The input
// slice is not modified.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []retrieval.Candidate, k int) ([]retrieval.Candidate, error) {
	if k <= 0 {
		return nil, errors.RerankError(fmt.Sprintf("invalid rerank k %d", k), nil)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	documents := make([]string, len(candidates))
	for i, c := range candidates {
		documents[i] = c.Text
	}

	var scores []float64
	err := retry.Do(ctx, r.retry, func(ctx context.Context) error {
		var scoreErr error
		scores, scoreErr = r.scorer.Score(ctx, query, documents)
		return scoreErr
	})
	if err != nil {
		return nil, errors.RerankError("cross-encoder scoring failed", err)
	}
	if len(scores) != len(candidates) {
		return nil, errors.RerankError(
			fmt.Sprintf("scorer returned %d scores for %d candidates", len(scores), len(candidates)), nil)
	}

	reranked := make([]retrieval.Candidate, len(candidates))
	copy(reranked, candidates)
	for i := range reranked {
		reranked[i].Score = scores[i]
	}

	// Stable sort keeps first-stage order for equal scores.
	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].Score > reranked[j].Score
	})

	if k < len(reranked) {
		reranked = reranked[:k]
	}
	for i := range reranked {
		reranked[i].Rank = i
	}

	return reranked, nil
}
