package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/docentsearch/docent-eval/internal/cache"
	apperrors "github.com/docentsearch/docent-eval/internal/pkg/errors"
	"github.com/docentsearch/docent-eval/internal/qdrant"
)

type fakeEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

type fakeSearcher struct {
	results []qdrant.SearchResult
	err     error

	gotCollection string
	gotLimit      uint64
}

func (f *fakeSearcher) DenseSearch(_ context.Context, collection string, req qdrant.SearchRequest) ([]qdrant.SearchResult, error) {
	f.gotCollection = collection
	f.gotLimit = req.Limit
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func TestRetrieve(t *testing.T) {
	searcher := &fakeSearcher{
		results: []qdrant.SearchResult{
			{ChunkID: "goryeo_012", Score: 0.91, Text: "고려 태조", Source: "goryeosa"},
			{ChunkID: "silla_003", Score: 0.85, Text: "신라 진흥왕", Source: "samguk_sagi"},
			{ChunkID: "joseon_101", Score: 0.61},
		},
	}
	embedder := &fakeEmbedder{vector: []float32{0.1, 0.2}}

	r := NewRetriever(embedder, searcher, nil, "history_chunks")

	candidates, err := r.Retrieve(context.Background(), "고려를 건국한 사람은?", 50)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}

	if len(candidates) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(candidates))
	}

	if searcher.gotCollection != "history_chunks" {
		t.Errorf("expected collection 'history_chunks', got %s", searcher.gotCollection)
	}
	if searcher.gotLimit != 50 {
		t.Errorf("expected limit 50, got %d", searcher.gotLimit)
	}

	// Ranks are 0-based and follow result order.
	for i, c := range candidates {
		if c.Rank != i {
			t.Errorf("candidate %d: expected rank %d, got %d", i, i, c.Rank)
		}
	}

	if candidates[0].ChunkID != "goryeo_012" {
		t.Errorf("expected first candidate 'goryeo_012', got %s", candidates[0].ChunkID)
	}
	if candidates[0].Score != 0.91 {
		t.Errorf("expected score 0.91, got %f", candidates[0].Score)
	}
}

func TestRetrieveEmptyQuery(t *testing.T) {
	r := NewRetriever(&fakeEmbedder{}, &fakeSearcher{}, nil, "history_chunks")

	_, err := r.Retrieve(context.Background(), "", 10)
	if err == nil {
		t.Fatal("expected error for empty query")
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %T", err)
	}
	if appErr.Code != apperrors.CodeRetrieval {
		t.Errorf("expected code %s, got %s", apperrors.CodeRetrieval, appErr.Code)
	}
}

func TestRetrieveInvalidK(t *testing.T) {
	r := NewRetriever(&fakeEmbedder{}, &fakeSearcher{}, nil, "history_chunks")

	if _, err := r.Retrieve(context.Background(), "질문", 0); err == nil {
		t.Fatal("expected error for k = 0")
	}
}

func TestRetrieveEmbedError(t *testing.T) {
	embedder := &fakeEmbedder{err: errors.New("model unavailable")}
	r := NewRetriever(embedder, &fakeSearcher{}, nil, "history_chunks")

	_, err := r.Retrieve(context.Background(), "질문", 10)
	if err == nil {
		t.Fatal("expected error when embedding fails")
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %T", err)
	}
	if appErr.Code != apperrors.CodeEmbedding {
		t.Errorf("expected code %s, got %s", apperrors.CodeEmbedding, appErr.Code)
	}
}

func TestRetrieveUsesCache(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0.5}}
	searcher := &fakeSearcher{}
	c := cache.NewMemoryCache(10)

	r := NewRetriever(embedder, searcher, c, "history_chunks")

	ctx := context.Background()
	if _, err := r.Retrieve(ctx, "같은 질문", 10); err != nil {
		t.Fatalf("first retrieve failed: %v", err)
	}
	if _, err := r.Retrieve(ctx, "같은 질문", 10); err != nil {
		t.Fatalf("second retrieve failed: %v", err)
	}

	if embedder.calls != 1 {
		t.Errorf("expected 1 embed call with cache, got %d", embedder.calls)
	}
}

func TestRetrieveNoResults(t *testing.T) {
	r := NewRetriever(&fakeEmbedder{vector: []float32{0.1}}, &fakeSearcher{}, nil, "history_chunks")

	candidates, err := r.Retrieve(context.Background(), "색인되지 않은 질문", 10)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("expected no candidates, got %d", len(candidates))
	}
}
