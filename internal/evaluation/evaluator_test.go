package evaluation

import (
	"context"
	"errors"
	"testing"

	"github.com/docentsearch/docent-eval/internal/dataset"
	"github.com/docentsearch/docent-eval/internal/retrieval"
)

// fakeRetriever serves canned rankings per question text.
type fakeRetriever struct {
	rankings map[string][]string
	err      error
}

func (f *fakeRetriever) Retrieve(_ context.Context, query string, k int) ([]retrieval.Candidate, error) {
	if f.err != nil {
		return nil, f.err
	}

	ids := f.rankings[query]
	if len(ids) > k {
		ids = ids[:k]
	}

	candidates := make([]retrieval.Candidate, len(ids))
	for i, id := range ids {
		candidates[i] = retrieval.Candidate{ChunkID: id, Score: 1 - float64(i)*0.1, Rank: i, Text: "본문 " + id}
	}
	return candidates, nil
}

// reverseReranker reverses the candidate order, then truncates.
type reverseReranker struct {
	err error
}

func (r *reverseReranker) Rerank(_ context.Context, _ string, candidates []retrieval.Candidate, k int) ([]retrieval.Candidate, error) {
	if r.err != nil {
		return nil, r.err
	}

	reranked := make([]retrieval.Candidate, len(candidates))
	copy(reranked, candidates)
	for i, j := 0, len(reranked)-1; i < j; i, j = i+1, j-1 {
		reranked[i], reranked[j] = reranked[j], reranked[i]
	}
	for i := range reranked {
		reranked[i].Rank = i
	}
	if k < len(reranked) {
		reranked = reranked[:k]
	}
	return reranked, nil
}

// identityReranker keeps the first-stage order.
type identityReranker struct{}

func (identityReranker) Rerank(_ context.Context, _ string, candidates []retrieval.Candidate, k int) ([]retrieval.Candidate, error) {
	reranked := make([]retrieval.Candidate, len(candidates))
	copy(reranked, candidates)
	if k < len(reranked) {
		reranked = reranked[:k]
	}
	return reranked, nil
}

func testParams() Params {
	return Params{RetrieveK: 4, RerankK: 4, TopK: 4}
}

func TestRun(t *testing.T) {
	retriever := &fakeRetriever{rankings: map[string][]string{
		"질문 하나": {"A", "B", "C", "D"},
		"질문 둘":  {"X", "Y", "Z"},
	}}

	e := NewEvaluator(Config{Params: testParams()}, retriever, &reverseReranker{}, nil, nil)

	questions := []dataset.Question{
		{ID: "q001", Text: "질문 하나", GoldIDs: []string{"C"}},
		{ID: "q002", Text: "질문 둘", GoldIDs: []string{"Y"}},
	}

	results, summary, err := e.Run(context.Background(), questions)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	// q001: retrieval [A B C D] gold {C} -> hit, MRR 1/3;
	// reranked [D C B A] -> hit, MRR 1/2.
	r := results[0]
	if r.QuestionID != "q001" {
		t.Errorf("expected results in dataset order, got %s first", r.QuestionID)
	}
	if r.Retrieval.HitRate != 1 || !almostEqual(r.Retrieval.MRR, 1.0/3) {
		t.Errorf("q001 retrieval metrics wrong: %+v", r.Retrieval)
	}
	if r.Rerank.HitRate != 1 || !almostEqual(r.Rerank.MRR, 0.5) {
		t.Errorf("q001 rerank metrics wrong: %+v", r.Rerank)
	}

	if summary.QuestionCount != 2 || summary.EvaluatedCount != 2 {
		t.Errorf("summary counts wrong: %+v", summary)
	}

	// q002 retrieval MRR = 1/2, q001 = 1/3.
	wantMeanMRR := (1.0/3 + 0.5) / 2
	if !almostEqual(summary.Retrieval.MRR, wantMeanMRR) {
		t.Errorf("mean retrieval MRR = %f, want %f", summary.Retrieval.MRR, wantMeanMRR)
	}
}

func TestRunConcurrentPreservesOrder(t *testing.T) {
	rankings := make(map[string][]string)
	questions := make([]dataset.Question, 20)
	for i := range questions {
		id := string(rune('a' + i))
		questions[i] = dataset.Question{ID: id, Text: "질문 " + id, GoldIDs: []string{id}}
		rankings["질문 "+id] = []string{id}
	}

	e := NewEvaluator(Config{Params: testParams(), Concurrency: 8},
		&fakeRetriever{rankings: rankings}, identityReranker{}, nil, nil)

	results, summary, err := e.Run(context.Background(), questions)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for i, r := range results {
		if r.QuestionID != questions[i].ID {
			t.Errorf("position %d: expected %s, got %s", i, questions[i].ID, r.QuestionID)
		}
	}

	if summary.Retrieval.HitRate != 1 {
		t.Errorf("expected mean hit rate 1, got %f", summary.Retrieval.HitRate)
	}
}

func TestRunEmptyGoldExcluded(t *testing.T) {
	retriever := &fakeRetriever{rankings: map[string][]string{"질문": {"A"}}}
	e := NewEvaluator(Config{Params: testParams()}, retriever, identityReranker{}, nil, nil)

	questions := []dataset.Question{
		{ID: "q001", Text: "질문", GoldIDs: []string{"A"}},
		{ID: "q002", Text: "골드 없음", GoldIDs: nil},
	}

	results, summary, err := e.Run(context.Background(), questions)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !results[1].Invalid {
		t.Error("expected question without gold IDs to be flagged invalid")
	}
	if results[1].Retrieval.HitRate != 0 || results[1].Rerank.MRR != 0 {
		t.Error("expected zero metrics for invalid question")
	}

	if summary.InvalidCount != 1 {
		t.Errorf("expected invalid count 1, got %d", summary.InvalidCount)
	}
	if summary.EvaluatedCount != 1 {
		t.Errorf("expected evaluated count 1, got %d", summary.EvaluatedCount)
	}
	// The invalid question's zeros must not drag the mean down.
	if summary.Retrieval.HitRate != 1 {
		t.Errorf("expected mean hit rate 1 over valid questions, got %f", summary.Retrieval.HitRate)
	}
}

func TestRunRetrievalFailureRecorded(t *testing.T) {
	retriever := &fakeRetriever{err: errors.New("qdrant unreachable")}
	e := NewEvaluator(Config{Params: testParams()}, retriever, identityReranker{}, nil, nil)

	questions := []dataset.Question{{ID: "q001", Text: "질문", GoldIDs: []string{"A"}}}

	results, summary, err := e.Run(context.Background(), questions)
	if err != nil {
		t.Fatalf("Run should not fail on per-question errors: %v", err)
	}

	if results[0].Error == "" {
		t.Error("expected per-question error to be recorded")
	}
	if summary.FailedCount != 1 {
		t.Errorf("expected failed count 1, got %d", summary.FailedCount)
	}
	if summary.EvaluatedCount != 0 {
		t.Errorf("expected evaluated count 0, got %d", summary.EvaluatedCount)
	}
}

func TestRunRerankFailureRecorded(t *testing.T) {
	retriever := &fakeRetriever{rankings: map[string][]string{"질문": {"A"}}}
	e := NewEvaluator(Config{Params: testParams()}, retriever, &reverseReranker{err: errors.New("scorer down")}, nil, nil)

	results, _, err := e.Run(context.Background(), []dataset.Question{
		{ID: "q001", Text: "질문", GoldIDs: []string{"A"}},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if results[0].Error == "" {
		t.Error("expected rerank failure to be recorded")
	}
	// First-stage metrics were already computed before the rerank failed.
	if results[0].Retrieval.HitRate != 1 {
		t.Errorf("expected retrieval metrics despite rerank failure, got %+v", results[0].Retrieval)
	}
}

func TestRunRetrieveKWindow(t *testing.T) {
	// Varying retrieve-k changes aggregates only when it moves a gold
	// item across the retrieved window boundary.
	retriever := &fakeRetriever{rankings: map[string][]string{
		"질문": {"A", "B", "C", "D", "E"},
	}}
	questions := []dataset.Question{{ID: "q001", Text: "질문", GoldIDs: []string{"D"}}}

	run := func(retrieveK int) RunSummary {
		params := Params{RetrieveK: retrieveK, RerankK: retrieveK, TopK: 5}
		e := NewEvaluator(Config{Params: params}, retriever, identityReranker{}, nil, nil)
		_, summary, err := e.Run(context.Background(), questions)
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		return summary
	}

	// Gold D sits at position 4; both windows include it.
	if a, b := run(4), run(5); a.Retrieval != b.Retrieval {
		t.Errorf("aggregates differ though gold stayed in the window: %+v vs %+v", a.Retrieval, b.Retrieval)
	}

	// A window of 3 cuts D off entirely.
	if a, b := run(3), run(4); a.Retrieval == b.Retrieval {
		t.Error("expected aggregates to change when gold leaves the window")
	}
}

func TestSummarizeEmpty(t *testing.T) {
	summary := Summarize(nil)
	if summary.QuestionCount != 0 || summary.EvaluatedCount != 0 {
		t.Errorf("expected zero summary, got %+v", summary)
	}
}
