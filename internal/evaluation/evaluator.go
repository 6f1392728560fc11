package evaluation

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/docentsearch/docent-eval/internal/bus"
	"github.com/docentsearch/docent-eval/internal/dataset"
	"github.com/docentsearch/docent-eval/internal/pkg/logger"
	"github.com/docentsearch/docent-eval/internal/retrieval"
)

// Retriever produces the first-stage ranking for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]retrieval.Candidate, error)
}

// Reranker reorders candidates and truncates to k.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []retrieval.Candidate, k int) ([]retrieval.Candidate, error)
}

// Config holds evaluator settings.
type Config struct {
	// Params are the ranking cutoffs for the run.
	Params Params

	// Concurrency bounds the number of questions evaluated in parallel.
	// Values below 1 mean sequential.
	Concurrency int

	// RunID identifies the run in published events.
	RunID string
}

// Evaluator runs the retrieve-rerank-measure pipeline over a question set.
type Evaluator struct {
	retriever Retriever
	reranker  Reranker
	bus       bus.Bus
	log       *logger.Logger
	config    Config
}

// NewEvaluator creates an evaluator. The bus may be nil to disable run
// events.
func NewEvaluator(cfg Config, retriever Retriever, reranker Reranker, b bus.Bus, log *logger.Logger) *Evaluator {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if log == nil {
		log = logger.Default()
	}

	return &Evaluator{
		retriever: retriever,
		reranker:  reranker,
		bus:       b,
		log:       log,
		config:    cfg,
	}
}

// Run evaluates every question and aggregates the per-question metrics.
// Per-question failures are recorded in the results, not returned; the
// error is non-nil only when the run as a whole cannot proceed.
func (e *Evaluator) Run(ctx context.Context, questions []dataset.Question) ([]QuestionResult, RunSummary, error) {
	e.publish(ctx, bus.TopicRunStarted, map[string]any{
		"question_count": len(questions),
		"retrieve_k":     e.config.Params.RetrieveK,
		"rerank_k":       e.config.Params.RerankK,
		"top_k":          e.config.Params.TopK,
	})

	results := make([]QuestionResult, len(questions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.Concurrency)

	for i, q := range questions {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			results[i] = e.evaluateQuestion(gctx, q)

			e.publish(gctx, bus.TopicQuestionCompleted, map[string]any{
				"index":   i,
				"id":      q.ID,
				"invalid": results[i].Invalid,
				"error":   results[i].Error,
			})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, RunSummary{}, err
	}

	summary := Summarize(results)

	e.publish(ctx, bus.TopicRunCompleted, summary)

	return results, summary, nil
}

// evaluateQuestion runs one question through retrieval and reranking and
// computes metrics on both rankings.
func (e *Evaluator) evaluateQuestion(ctx context.Context, q dataset.Question) QuestionResult {
	log := e.log.WithQuestion(q.ID)

	result := QuestionResult{
		QuestionID: q.ID,
		Question:   q.Text,
		GoldIDs:    q.GoldIDs,
	}

	gold := q.GoldSet()
	if len(gold) == 0 {
		log.Warn("question has no gold IDs, skipping")
		result.Invalid = true
		return result
	}

	candidates, err := e.retriever.Retrieve(ctx, q.Text, e.config.Params.RetrieveK)
	if err != nil {
		log.WithError(err).Error("retrieval failed")
		result.Error = err.Error()
		return result
	}

	result.RetrievedIDs = candidateIDs(candidates)
	result.Retrieval = Compute(result.RetrievedIDs, gold, e.config.Params.TopK)

	reranked, err := e.reranker.Rerank(ctx, q.Text, candidates, e.config.Params.RerankK)
	if err != nil {
		log.WithError(err).Error("reranking failed")
		result.Error = err.Error()
		return result
	}

	result.RerankedIDs = candidateIDs(reranked)
	result.Rerank = Compute(result.RerankedIDs, gold, e.config.Params.TopK)

	log.Debug("question evaluated",
		"retrieval_hit", result.Retrieval.HitRate,
		"rerank_hit", result.Rerank.HitRate)

	return result
}

// Summarize aggregates per-question metrics, averaging over the questions
// that were neither invalid nor failed.
func Summarize(results []QuestionResult) RunSummary {
	summary := RunSummary{
		QuestionCount: len(results),
	}

	for _, r := range results {
		switch {
		case r.Invalid:
			summary.InvalidCount++
		case r.Error != "":
			summary.FailedCount++
		default:
			summary.EvaluatedCount++
			addMetrics(&summary.Retrieval, r.Retrieval)
			addMetrics(&summary.Rerank, r.Rerank)
		}
	}

	if summary.EvaluatedCount > 0 {
		n := float64(summary.EvaluatedCount)
		divMetrics(&summary.Retrieval, n)
		divMetrics(&summary.Rerank, n)
	}

	return summary
}

func addMetrics(dst *Metrics, src Metrics) {
	dst.HitRate += src.HitRate
	dst.MRR += src.MRR
	dst.NDCG += src.NDCG
	dst.Recall += src.Recall
	dst.Precision += src.Precision
	dst.AP += src.AP
}

func divMetrics(m *Metrics, n float64) {
	m.HitRate /= n
	m.MRR /= n
	m.NDCG /= n
	m.Recall /= n
	m.Precision /= n
	m.AP /= n
}

func candidateIDs(candidates []retrieval.Candidate) []string {
	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ChunkID
	}
	return ids
}

// publish emits a run event, ignoring publish failures. Event delivery is
// best effort and never blocks the evaluation.
func (e *Evaluator) publish(ctx context.Context, topic string, payload any) {
	if e.bus == nil {
		return
	}
	if err := e.bus.Publish(ctx, topic, bus.NewEvent(topic, e.config.RunID, payload)); err != nil {
		e.log.WithError(err).Warn("failed to publish run event", "topic", topic)
	}
}
