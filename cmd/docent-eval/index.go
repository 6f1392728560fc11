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
	"github.com/docentsearch/docent-eval/internal/chunk"
	"github.com/docentsearch/docent-eval/internal/dataset"
	"github.com/docentsearch/docent-eval/internal/index"
	"github.com/docentsearch/docent-eval/internal/ml"
)

func indexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the chunk collection",
	}

	cmd.AddCommand(indexBuildCmd(), indexStatusCmd())
	return cmd
}

func indexBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Embed the corpus and upsert it into Qdrant",
		Long: `Build the chunk collection from a corpus file (JSON array or JSONL).

Each chunk is embedded via the embedding service and upserted with its
chunk_id, source, text and token count as payload. Use --recreate to drop
an existing collection first.

Examples:
  docent-eval index build --corpus data/chunks.jsonl
  docent-eval index build --corpus data/chunks.json --recreate --workers 8`,
		RunE: runIndexBuild,
	}

	cmd.Flags().String("corpus", "", "corpus chunk file (JSON or JSONL)")
	cmd.Flags().String("collection", "", "target collection name (overrides config)")
	cmd.Flags().Bool("recreate", false, "drop and recreate the collection")
	cmd.Flags().Int("batch-size", 0, "embedding batch size (overrides config)")
	cmd.Flags().Int("workers", 4, "parallel embedding workers")
	_ = cmd.MarkFlagRequired("corpus")

	return cmd
}

func runIndexBuild(cmd *cobra.Command, _ []string) error {
	corpusPath, _ := cmd.Flags().GetString("corpus")
	recreate, _ := cmd.Flags().GetBool("recreate")
	workers, _ := cmd.Flags().GetInt("workers")

	cfg, log, err := loadSetup(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("collection") {
		cfg.Qdrant.Collection, _ = cmd.Flags().GetString("collection")
	}
	if cmd.Flags().Changed("batch-size") {
		cfg.ML.EmbedBatchSize, _ = cmd.Flags().GetInt("batch-size")
	}

	chunks, err := dataset.LoadChunks(corpusPath)
	if err != nil {
		return fmt.Errorf("failed to load corpus: %w", err)
	}
	log.Info("Loaded corpus", "path", corpusPath, "chunks", len(chunks))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	qc, err := newQdrantClient(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = qc.Close() }()

	eventBus, err := bus.New(cfg.Bus)
	if err != nil {
		return fmt.Errorf("failed to create event bus: %w", err)
	}
	if eventBus != nil {
		defer func() { _ = eventBus.Close() }()
	}

	embedder := ml.NewEmbedder(cfg.ML, log)
	counter := chunk.NewHeuristicCounter()

	progress := func(p index.Progress) {
		fmt.Fprintf(os.Stderr, "\r%s %d/%d (%.1f%%)", p.Stage, p.Current, p.Total, p.Percent)
		if p.Current >= p.Total {
			fmt.Fprintln(os.Stderr)
		}
	}

	builder := index.NewBuilder(embedder, qc, counter, eventBus, log, progress)
	result, err := builder.Build(ctx, index.BuildConfig{
		Collection: cfg.Qdrant.Collection,
		VectorSize: uint64(cfg.ML.EmbedDim),
		Recreate:   recreate,
		Batch: index.BatchConfig{
			Size:    cfg.ML.EmbedBatchSize,
			Workers: workers,
		},
	}, chunks)
	if err != nil {
		return fmt.Errorf("index build failed: %w", err)
	}

	fmt.Printf("Indexed %d chunks into %s in %s\n",
		result.Indexed, result.Collection, result.Duration.Round(time.Millisecond))
	return nil
}

func indexStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show collection status and point count",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadSetup(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("collection") {
				cfg.Qdrant.Collection, _ = cmd.Flags().GetString("collection")
			}

			qc, err := newQdrantClient(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = qc.Close() }()

			ctx := context.Background()
			info, err := qc.GetCollectionInfo(ctx, cfg.Qdrant.Collection)
			if err != nil {
				return err
			}

			fmt.Printf("collection: %s\n", info.Name)
			fmt.Printf("status:     %s\n", info.Status)
			fmt.Printf("points:     %d\n", info.PointsCount)
			fmt.Printf("segments:   %d\n", info.SegmentsCount)
			return nil
		},
	}

	cmd.Flags().String("collection", "", "collection name (overrides config)")
	return cmd
}
