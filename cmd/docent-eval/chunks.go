package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docentsearch/docent-eval/internal/chunk"
	"github.com/docentsearch/docent-eval/internal/dataset"
)

func chunksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chunks",
		Short: "Analyze and rework the chunk corpus",
		Long: `Corpus maintenance: find chunks that exceed the reranker token limit,
split them into smaller parts, and merge the parts back into the corpus.

The usual flow is:
  docent-eval chunks analyze     --chunk-file data/chunks.jsonl
  docent-eval chunks export-long --chunk-file data/chunks.jsonl -o long.jsonl
  docent-eval chunks rechunk     --long-chunks long.jsonl -o rechunked.jsonl
  docent-eval chunks merge       --chunk-file data/chunks.jsonl \
      --long-chunks long.jsonl --rechunked rechunked.jsonl -o merged.jsonl`,
	}

	cmd.AddCommand(
		chunksAnalyzeCmd(),
		chunksExportLongCmd(),
		chunksRechunkCmd(),
		chunksMergeCmd(),
	)
	return cmd
}

func chunksAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Report token-length distribution and over-limit chunks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			chunkFile, _ := cmd.Flags().GetString("chunk-file")
			output, _ := cmd.Flags().GetString("output")
			topN, _ := cmd.Flags().GetInt("top-n")
			asJSON, _ := cmd.Flags().GetBool("json")

			cfg, log, err := loadSetup(cmd)
			if err != nil {
				return err
			}
			maxTokens := cfg.Chunk.MaxTokens
			if cmd.Flags().Changed("max-tokens") {
				maxTokens, _ = cmd.Flags().GetInt("max-tokens")
			}

			chunks, err := dataset.LoadChunks(chunkFile)
			if err != nil {
				return fmt.Errorf("failed to load corpus: %w", err)
			}

			analysis := chunk.Analyze(chunk.NewHeuristicCounter(), chunks, maxTokens, topN)
			log.Info("Analyzed corpus",
				"chunks", analysis.Stats.Count,
				"over_limit", analysis.OverLimit.Count,
				"max_tokens", maxTokens,
			)

			var out []byte
			if asJSON {
				out, err = json.MarshalIndent(analysis, "", "  ")
				if err != nil {
					return err
				}
				out = append(out, '\n')
			} else {
				out = []byte(analysis.Markdown())
			}

			if output == "" {
				_, err = os.Stdout.Write(out)
				return err
			}
			return os.WriteFile(output, out, 0o644)
		},
	}

	cmd.Flags().String("chunk-file", "", "corpus chunk file (JSON or JSONL)")
	cmd.Flags().StringP("output", "o", "", "write the report here instead of stdout")
	cmd.Flags().Int("max-tokens", 512, "token limit chunks are checked against")
	cmd.Flags().Int("top-n", 20, "number of longest chunks to list")
	cmd.Flags().Bool("json", false, "emit the analysis as JSON instead of markdown")
	_ = cmd.MarkFlagRequired("chunk-file")

	return cmd
}

func chunksExportLongCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export-long",
		Short: "Export chunks exceeding the token limit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			chunkFile, _ := cmd.Flags().GetString("chunk-file")
			output, _ := cmd.Flags().GetString("output")

			cfg, log, err := loadSetup(cmd)
			if err != nil {
				return err
			}
			maxTokens := cfg.Chunk.MaxTokens
			if cmd.Flags().Changed("max-tokens") {
				maxTokens, _ = cmd.Flags().GetInt("max-tokens")
			}

			chunks, err := dataset.LoadChunks(chunkFile)
			if err != nil {
				return fmt.Errorf("failed to load corpus: %w", err)
			}

			long := chunk.FilterLong(chunk.NewHeuristicCounter(), chunks, maxTokens)
			log.Info("Exported long chunks",
				"total", len(chunks),
				"long", len(long),
				"max_tokens", maxTokens,
			)

			if err := writeLongChunks(output, long); err != nil {
				return err
			}
			fmt.Printf("Wrote %d long chunks to %s\n", len(long), output)
			return nil
		},
	}

	cmd.Flags().String("chunk-file", "", "corpus chunk file (JSON or JSONL)")
	cmd.Flags().StringP("output", "o", "long_chunks.jsonl", "long-chunk export file (JSONL)")
	cmd.Flags().Int("max-tokens", 512, "token limit chunks are checked against")
	_ = cmd.MarkFlagRequired("chunk-file")

	return cmd
}

func chunksRechunkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rechunk",
		Short: "Split exported long chunks into smaller parts",
		Long: `Split each long chunk on paragraph and sentence boundaries, regrouping
the pieces toward the target token count without exceeding the maximum.
Children are named <parent>_partNN and carry the parent chunk ID.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			longFile, _ := cmd.Flags().GetString("long-chunks")
			output, _ := cmd.Flags().GetString("output")

			cfg, log, err := loadSetup(cmd)
			if err != nil {
				return err
			}
			target := cfg.Chunk.TargetTokens
			maxTokens := cfg.Chunk.MaxTokens
			if cmd.Flags().Changed("target-tokens") {
				target, _ = cmd.Flags().GetInt("target-tokens")
			}
			if cmd.Flags().Changed("max-tokens") {
				maxTokens, _ = cmd.Flags().GetInt("max-tokens")
			}
			if target > maxTokens {
				return fmt.Errorf("target-tokens (%d) must not exceed max-tokens (%d)", target, maxTokens)
			}

			long, err := loadLongChunks(longFile)
			if err != nil {
				return err
			}

			parents := make([]dataset.Chunk, 0, len(long))
			for _, lc := range long {
				parents = append(parents, dataset.Chunk{ChunkID: lc.ChunkID, Text: lc.Text})
			}

			children := chunk.Rechunk(chunk.NewHeuristicCounter(), parents, target, maxTokens)
			log.Info("Rechunked long chunks",
				"parents", len(parents),
				"children", len(children),
				"target_tokens", target,
				"max_tokens", maxTokens,
			)

			if err := dataset.WriteChunksJSONL(output, children); err != nil {
				return err
			}
			fmt.Printf("Wrote %d rechunked parts to %s\n", len(children), output)
			return nil
		},
	}

	cmd.Flags().String("long-chunks", "", "long-chunk export file from 'chunks export-long'")
	cmd.Flags().StringP("output", "o", "rechunked.jsonl", "rechunked output file (JSONL)")
	cmd.Flags().Int("target-tokens", 380, "target token count per part")
	cmd.Flags().Int("max-tokens", 512, "hard token limit per part")
	_ = cmd.MarkFlagRequired("long-chunks")

	return cmd
}

func chunksMergeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Replace rechunked parents with their parts in the corpus",
		RunE: func(cmd *cobra.Command, _ []string) error {
			chunkFile, _ := cmd.Flags().GetString("chunk-file")
			longFile, _ := cmd.Flags().GetString("long-chunks")
			rechunkedFile, _ := cmd.Flags().GetString("rechunked")
			output, _ := cmd.Flags().GetString("output")

			_, log, err := loadSetup(cmd)
			if err != nil {
				return err
			}

			original, err := dataset.LoadChunks(chunkFile)
			if err != nil {
				return fmt.Errorf("failed to load corpus: %w", err)
			}
			long, err := loadLongChunks(longFile)
			if err != nil {
				return err
			}
			rechunked, err := dataset.LoadChunks(rechunkedFile)
			if err != nil {
				return fmt.Errorf("failed to load rechunked chunks: %w", err)
			}

			longIDs := make(map[string]struct{}, len(long))
			for _, lc := range long {
				longIDs[lc.ChunkID] = struct{}{}
			}

			merged := chunk.Merge(original, longIDs, rechunked)
			log.Info("Merged rechunked corpus",
				"original", len(original),
				"replaced", len(longIDs),
				"added", len(rechunked),
				"merged", len(merged),
			)

			if err := dataset.WriteChunksJSONL(output, merged); err != nil {
				return err
			}
			fmt.Printf("Wrote %d chunks to %s\n", len(merged), output)
			return nil
		},
	}

	cmd.Flags().String("chunk-file", "", "original corpus chunk file")
	cmd.Flags().String("long-chunks", "", "long-chunk export file")
	cmd.Flags().String("rechunked", "", "rechunked parts file (JSONL)")
	cmd.Flags().StringP("output", "o", "merged.jsonl", "merged corpus output file (JSONL)")
	_ = cmd.MarkFlagRequired("chunk-file")
	_ = cmd.MarkFlagRequired("long-chunks")
	_ = cmd.MarkFlagRequired("rechunked")

	return cmd
}

// writeLongChunks writes one JSON object per line, the format the rechunk
// step consumes.
func writeLongChunks(path string, long []chunk.LongChunk) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	for _, lc := range long {
		if err := enc.Encode(lc); err != nil {
			_ = f.Close()
			return fmt.Errorf("failed to write long chunks: %w", err)
		}
	}
	return f.Close()
}

func loadLongChunks(path string) ([]chunk.LongChunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read long chunks: %w", err)
	}
	defer func() { _ = f.Close() }()

	var long []chunk.LongChunk
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var lc chunk.LongChunk
		if err := json.Unmarshal([]byte(line), &lc); err != nil {
			return nil, fmt.Errorf("failed to parse long chunks: %w", err)
		}
		long = append(long, lc)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read long chunks: %w", err)
	}
	return long, nil
}
