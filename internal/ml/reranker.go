package ml

import (
	"context"
	"fmt"

	"github.com/docentsearch/docent-eval/internal/config"
	"github.com/docentsearch/docent-eval/internal/pkg/errors"
	"github.com/docentsearch/docent-eval/internal/pkg/logger"
)

// Reranker scores query-document pairs via the cross-encoder service.
type Reranker struct {
	client *Client
	model  string
	log    *logger.Logger
}

// NewReranker creates a new reranker client.
func NewReranker(cfg config.MLConfig, log *logger.Logger) *Reranker {
	return &Reranker{
		client: NewClient(cfg.RerankURL, cfg),
		model:  cfg.RerankModel,
		log:    log,
	}
}

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// Score returns a relevance score per document, in original document order.
// All documents are requested back so callers control truncation.
func (r *Reranker) Score(ctx context.Context, query string, documents []string) ([]float64, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	var resp rerankResponse
	err := r.client.postJSON(ctx, "/v1/rerank", rerankRequest{
		Model:     r.model,
		Query:     query,
		Documents: documents,
		TopN:      len(documents),
	}, &resp)
	if err != nil {
		return nil, err
	}

	if len(resp.Results) != len(documents) {
		return nil, errors.RerankError(
			fmt.Sprintf("score count mismatch: sent %d documents, got %d scores", len(documents), len(resp.Results)), nil)
	}

	scores := make([]float64, len(documents))
	seen := make([]bool, len(documents))
	for _, res := range resp.Results {
		if res.Index < 0 || res.Index >= len(documents) {
			return nil, errors.RerankError(
				fmt.Sprintf("score index %d out of range", res.Index), nil)
		}
		if seen[res.Index] {
			return nil, errors.RerankError(
				fmt.Sprintf("duplicate score for index %d", res.Index), nil)
		}
		seen[res.Index] = true
		scores[res.Index] = res.RelevanceScore
	}

	return scores, nil
}
