package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/docentsearch/docent-eval/internal/bus"
	"github.com/docentsearch/docent-eval/internal/cache"
	"github.com/docentsearch/docent-eval/internal/config"
	"github.com/docentsearch/docent-eval/internal/evaluation"
	"github.com/docentsearch/docent-eval/internal/ml"
	"github.com/docentsearch/docent-eval/internal/qdrant"
	"github.com/docentsearch/docent-eval/internal/report"
	"github.com/docentsearch/docent-eval/internal/rerank"
	"github.com/docentsearch/docent-eval/internal/retrieval"
)

func evaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Run a batch retrieval-quality evaluation",
		Long: `Evaluate retrieval and reranking quality over a question set.

For each question the pipeline embeds the query, retrieves the top
retrieve-k chunks from Qdrant, reranks them down to rerank-k, and computes
Hit@k, MRR and nDCG for both stages at the top-k cutoff. Artifacts
(metrics.json, retrieval_detail.csv, meta.json, summary.md) are written to
a timestamped directory under the output dir.

Examples:
  docent-eval evaluate --queries eval/questions.json
  docent-eval evaluate --queries eval/questions.yaml --run-name rerank-v2
  docent-eval evaluate --queries q.json --retrieve-k 100 --top-k 5`,
		RunE: runEvaluate,
	}

	cmd.Flags().StringP("queries", "q", "", "question set file (JSON or YAML)")
	cmd.Flags().String("eval-dataset", "", "question set file (alias for --queries)")
	cmd.Flags().StringP("output-dir", "o", "", "run output directory (overrides config)")
	cmd.Flags().String("run-name", "", "run name appended to the output directory")
	cmd.Flags().String("collection", "", "chunk collection name (overrides config)")
	cmd.Flags().Int("retrieve-k", 50, "first-stage retrieval depth")
	cmd.Flags().Int("rerank-k", 10, "reranked list length")
	cmd.Flags().Int("top-k", 10, "metric cutoff")
	cmd.Flags().Int("concurrency", 0, "questions evaluated in parallel (overrides config)")

	return cmd
}

func runEvaluate(cmd *cobra.Command, _ []string) error {
	queriesPath, _ := cmd.Flags().GetString("queries")
	if queriesPath == "" {
		queriesPath, _ = cmd.Flags().GetString("eval-dataset")
	}
	if queriesPath == "" {
		return fmt.Errorf("--queries (or --eval-dataset) is required")
	}
	runName, _ := cmd.Flags().GetString("run-name")
	configPath, _ := cmd.Flags().GetString("config")

	cfg, log, err := loadSetup(cmd)
	if err != nil {
		return err
	}

	// Flag overrides
	if cmd.Flags().Changed("output-dir") {
		cfg.Eval.OutputDir, _ = cmd.Flags().GetString("output-dir")
	}
	if cmd.Flags().Changed("collection") {
		cfg.Qdrant.Collection, _ = cmd.Flags().GetString("collection")
	}
	if cmd.Flags().Changed("retrieve-k") {
		cfg.Eval.RetrieveK, _ = cmd.Flags().GetInt("retrieve-k")
	}
	if cmd.Flags().Changed("rerank-k") {
		cfg.Eval.RerankK, _ = cmd.Flags().GetInt("rerank-k")
	}
	if cmd.Flags().Changed("top-k") {
		cfg.Eval.TopK, _ = cmd.Flags().GetInt("top-k")
	}
	if cmd.Flags().Changed("concurrency") {
		cfg.Eval.Concurrency, _ = cmd.Flags().GetInt("concurrency")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	questions, err := loadQuestions(queriesPath)
	if err != nil {
		return fmt.Errorf("failed to load questions: %w", err)
	}
	log.Info("Loaded question set", "path", queriesPath, "questions", len(questions))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	qc, err := newQdrantClient(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = qc.Close() }()

	embCache, err := cache.New(cfg.Cache)
	if err != nil {
		return fmt.Errorf("failed to create embedding cache: %w", err)
	}
	if embCache != nil {
		defer func() { _ = embCache.Close() }()
	}

	eventBus, err := bus.New(cfg.Bus)
	if err != nil {
		return fmt.Errorf("failed to create event bus: %w", err)
	}
	if eventBus != nil {
		defer func() { _ = eventBus.Close() }()
	}

	embedder := ml.NewEmbedder(cfg.ML, log)
	scorer := ml.NewReranker(cfg.ML, log)
	retriever := retrieval.NewRetriever(embedder, qc, embCache, cfg.Qdrant.Collection)
	reranker := rerank.NewReranker(scorer)

	runID := runName
	if runID == "" {
		runID = time.Now().Format("20060102_150405")
	}

	params := evaluation.Params{
		RetrieveK: cfg.Eval.RetrieveK,
		RerankK:   cfg.Eval.RerankK,
		TopK:      cfg.Eval.TopK,
	}
	evaluator := evaluation.NewEvaluator(evaluation.Config{
		Params:      params,
		Concurrency: cfg.Eval.Concurrency,
		RunID:       runID,
	}, retriever, reranker, eventBus, log)

	start := time.Now()
	results, summary, err := evaluator.Run(ctx, questions)
	if err != nil {
		return fmt.Errorf("evaluation run failed: %w", err)
	}

	writer, err := report.NewWriter(cfg.Eval.OutputDir, runName)
	if err != nil {
		return err
	}

	meta := report.Meta{
		Timestamp:   time.Now().Format(time.RFC3339),
		RunName:     runName,
		ConfigPath:  configPath,
		QueriesPath: queriesPath,
		ModelVersions: map[string]string{
			"embed":  cfg.ML.EmbedModel,
			"rerank": cfg.ML.RerankModel,
		},
		Parameters: params,
	}
	if err := writer.Write(results, summary, meta); err != nil {
		return err
	}

	log.Info("Evaluation run completed",
		"run", runID,
		"questions", summary.QuestionCount,
		"evaluated", summary.EvaluatedCount,
		"failed", summary.FailedCount,
		"duration", time.Since(start).Round(time.Millisecond),
	)

	printSummary(summary, cfg.Eval.TopK, writer.Dir())
	return nil
}

func printSummary(summary evaluation.RunSummary, topK int, dir string) {
	fmt.Printf("Evaluated %d/%d questions (%d invalid, %d failed)\n",
		summary.EvaluatedCount, summary.QuestionCount,
		summary.InvalidCount, summary.FailedCount)
	fmt.Printf("            %10s %10s %10s\n",
		fmt.Sprintf("hit@%d", topK), "mrr", fmt.Sprintf("ndcg@%d", topK))
	fmt.Printf("  retrieval %10.4f %10.4f %10.4f\n",
		summary.Retrieval.HitRate, summary.Retrieval.MRR, summary.Retrieval.NDCG)
	fmt.Printf("  rerank    %10.4f %10.4f %10.4f\n",
		summary.Rerank.HitRate, summary.Rerank.MRR, summary.Rerank.NDCG)
	fmt.Printf("Artifacts written to %s\n", dir)
}

func newQdrantClient(cfg *config.Config) (*qdrant.Client, error) {
	qcfg := qdrant.DefaultClientConfig()
	qcfg.Host = cfg.Qdrant.Host
	if cfg.Qdrant.Port > 0 {
		qcfg.Port = cfg.Qdrant.Port
	}
	qcfg.APIKey = cfg.Qdrant.APIKey
	qcfg.UseTLS = cfg.Qdrant.UseTLS

	qc, err := qdrant.NewClient(qcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
	}
	return qc, nil
}
