package rerank

import (
	"context"
	"errors"
	"testing"

	apperrors "github.com/docentsearch/docent-eval/internal/pkg/errors"
	"github.com/docentsearch/docent-eval/internal/retrieval"
)

type fakeScorer struct {
	scores []float64
	err    error

	gotQuery string
	gotDocs  []string
}

func (f *fakeScorer) Score(_ context.Context, query string, documents []string) ([]float64, error) {
	f.gotQuery = query
	f.gotDocs = documents
	if f.err != nil {
		return nil, f.err
	}
	return f.scores, nil
}

func candidatesFixture() []retrieval.Candidate {
	return []retrieval.Candidate{
		{ChunkID: "a", Score: 0.9, Rank: 0, Text: "문서 A"},
		{ChunkID: "b", Score: 0.8, Rank: 1, Text: "문서 B"},
		{ChunkID: "c", Score: 0.7, Rank: 2, Text: "문서 C"},
		{ChunkID: "d", Score: 0.6, Rank: 3, Text: "문서 D"},
	}
}

func TestRerank(t *testing.T) {
	scorer := &fakeScorer{scores: []float64{0.1, 0.9, 0.5, 0.3}}
	r := NewReranker(scorer)

	reranked, err := r.Rerank(context.Background(), "질문", candidatesFixture(), 4)
	if err != nil {
		t.Fatalf("Rerank failed: %v", err)
	}

	wantOrder := []string{"b", "c", "d", "a"}
	for i, want := range wantOrder {
		if reranked[i].ChunkID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, reranked[i].ChunkID)
		}
		if reranked[i].Rank != i {
			t.Errorf("position %d: expected rank %d, got %d", i, i, reranked[i].Rank)
		}
	}

	if reranked[0].Score != 0.9 {
		t.Errorf("expected rerank score 0.9, got %f", reranked[0].Score)
	}

	if len(scorer.gotDocs) != 4 {
		t.Errorf("expected 4 documents sent to scorer, got %d", len(scorer.gotDocs))
	}
	if scorer.gotDocs[0] != "문서 A" {
		t.Errorf("expected document text '문서 A', got %s", scorer.gotDocs[0])
	}
}

func TestRerankTruncatesToK(t *testing.T) {
	scorer := &fakeScorer{scores: []float64{0.4, 0.9, 0.5, 0.3}}
	r := NewReranker(scorer)

	reranked, err := r.Rerank(context.Background(), "질문", candidatesFixture(), 2)
	if err != nil {
		t.Fatalf("Rerank failed: %v", err)
	}

	if len(reranked) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(reranked))
	}
	if reranked[0].ChunkID != "b" || reranked[1].ChunkID != "c" {
		t.Errorf("expected [b c], got [%s %s]", reranked[0].ChunkID, reranked[1].ChunkID)
	}
}

func TestRerankStableTies(t *testing.T) {
	// Equal scores keep the first-stage retrieval order.
	scorer := &fakeScorer{scores: []float64{0.5, 0.5, 0.5, 0.5}}
	r := NewReranker(scorer)

	reranked, err := r.Rerank(context.Background(), "질문", candidatesFixture(), 4)
	if err != nil {
		t.Fatalf("Rerank failed: %v", err)
	}

	wantOrder := []string{"a", "b", "c", "d"}
	for i, want := range wantOrder {
		if reranked[i].ChunkID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, reranked[i].ChunkID)
		}
	}
}

func TestRerankInputNotModified(t *testing.T) {
	scorer := &fakeScorer{scores: []float64{0.1, 0.9, 0.5, 0.3}}
	r := NewReranker(scorer)

	input := candidatesFixture()
	if _, err := r.Rerank(context.Background(), "질문", input, 4); err != nil {
		t.Fatalf("Rerank failed: %v", err)
	}

	if input[0].ChunkID != "a" || input[0].Score != 0.9 {
		t.Error("input slice was modified")
	}
}

func TestRerankEmptyCandidates(t *testing.T) {
	r := NewReranker(&fakeScorer{})

	reranked, err := r.Rerank(context.Background(), "질문", nil, 10)
	if err != nil {
		t.Fatalf("Rerank failed: %v", err)
	}
	if len(reranked) != 0 {
		t.Errorf("expected no candidates, got %d", len(reranked))
	}
}

func TestRerankScoreCountMismatch(t *testing.T) {
	scorer := &fakeScorer{scores: []float64{0.1, 0.2}}
	r := NewReranker(scorer)

	_, err := r.Rerank(context.Background(), "질문", candidatesFixture(), 4)
	if err == nil {
		t.Fatal("expected error for score count mismatch")
	}
}

func TestRerankScorerError(t *testing.T) {
	scorer := &fakeScorer{err: errors.New("model unavailable")}
	r := NewReranker(scorer)

	_, err := r.Rerank(context.Background(), "질문", candidatesFixture(), 4)
	if err == nil {
		t.Fatal("expected error when scorer fails")
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %T", err)
	}
	if appErr.Code != apperrors.CodeRerank {
		t.Errorf("expected code %s, got %s", apperrors.CodeRerank, appErr.Code)
	}
}
