package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/docentsearch/docent-eval/internal/bus"
	"github.com/docentsearch/docent-eval/internal/cache"
	"github.com/docentsearch/docent-eval/internal/evaluation"
	"github.com/docentsearch/docent-eval/internal/ml"
	"github.com/docentsearch/docent-eval/internal/rerank"
	"github.com/docentsearch/docent-eval/internal/retrieval"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the evaluation HTTP server",
		Long: `Expose the evaluation pipeline over HTTP:

  POST /v1/evaluation/evaluate   evaluate a batch of inline questions
  POST /v1/evaluation/question   evaluate a single question
  GET  /healthz                  liveness check
  GET  /v1/version               version information`,
		RunE: runServe,
	}

	cmd.Flags().IntP("port", "p", 8080, "HTTP server port")
	cmd.Flags().String("host", "0.0.0.0", "HTTP server host")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadSetup(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("host") {
		cfg.Host, _ = cmd.Flags().GetString("host")
	}

	log.Info("Starting docent-eval server",
		"version", version,
		"addr", cfg.Address(),
	)

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

	evaluator := evaluation.NewEvaluator(evaluation.Config{
		Params: evaluation.Params{
			RetrieveK: cfg.Eval.RetrieveK,
			RerankK:   cfg.Eval.RerankK,
			TopK:      cfg.Eval.TopK,
		},
		Concurrency: cfg.Eval.Concurrency,
		RunID:       "serve",
	}, retriever, reranker, eventBus, log)

	mux := http.NewServeMux()
	evaluation.NewHandler(evaluator).RegisterRoutes(mux)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /v1/version", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"version": version,
			"commit":  commit,
			"built":   date,
		})
	})

	srv := &http.Server{
		Addr:              cfg.Address(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	<-sigCh
	log.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("HTTP shutdown error", "error", err)
	}

	log.Info("Server stopped")
	return nil
}
