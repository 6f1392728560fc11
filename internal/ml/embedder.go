package ml

import (
	"context"
	"fmt"

	"github.com/docentsearch/docent-eval/internal/config"
	"github.com/docentsearch/docent-eval/internal/pkg/errors"
	"github.com/docentsearch/docent-eval/internal/pkg/logger"
)

// Embedder generates dense embeddings via the embedding service.
type Embedder struct {
	client    *Client
	model     string
	dim       int
	batchSize int
	log       *logger.Logger
}

// NewEmbedder creates a new embedder client.
func NewEmbedder(cfg config.MLConfig, log *logger.Logger) *Embedder {
	batchSize := cfg.EmbedBatchSize
	if batchSize <= 0 {
		batchSize = 32
	}

	return &Embedder{
		client:    NewClient(cfg.EmbedURL, cfg),
		model:     cfg.EmbedModel,
		dim:       cfg.EmbedDim,
		batchSize: batchSize,
		log:       log,
	}
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed generates embeddings for texts, batching requests.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	all := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += e.batchSize {
		end := i + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := e.embedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
	}

	return all, nil
}

// EmbedQuery generates a single query embedding.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) != 1 {
		return nil, errors.EmbeddingError(
			fmt.Sprintf("expected 1 embedding, got %d", len(embeddings)), nil)
	}
	return embeddings[0], nil
}

func (e *Embedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var resp embedResponse
	err := e.client.postJSON(ctx, "/v1/embeddings", embedRequest{
		Model: e.model,
		Input: texts,
	}, &resp)
	if err != nil {
		return nil, err
	}

	if len(resp.Data) != len(texts) {
		return nil, errors.EmbeddingError(
			fmt.Sprintf("embedding count mismatch: sent %d texts, got %d vectors", len(texts), len(resp.Data)), nil)
	}

	// Responses may arrive out of order; place by index.
	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, errors.EmbeddingError(
				fmt.Sprintf("embedding index %d out of range", d.Index), nil)
		}
		if e.dim > 0 && len(d.Embedding) != e.dim {
			return nil, errors.EmbeddingError(
				fmt.Sprintf("embedding dimension %d, expected %d", len(d.Embedding), e.dim), nil)
		}
		out[d.Index] = d.Embedding
	}

	return out, nil
}
