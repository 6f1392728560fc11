package chunk

import (
	"github.com/docentsearch/docent-eval/internal/dataset"
)

// LongChunk is an over-limit chunk exported for rechunking.
type LongChunk struct {
	ChunkID     string `json:"chunk_id"`
	TokenLength int    `json:"token_length"`
	Text        string `json:"text"`
}

// FilterLong returns the chunks whose estimated token length exceeds
// maxTokens, in corpus order.
func FilterLong(counter TokenCounter, chunks []dataset.Chunk, maxTokens int) []LongChunk {
	var long []LongChunk
	for _, c := range chunks {
		tokenLen := counter.Count(c.Text)
		if tokenLen <= maxTokens {
			continue
		}
		long = append(long, LongChunk{
			ChunkID:     c.ChunkID,
			TokenLength: tokenLen,
			Text:        c.Text,
		})
	}
	return long
}

// Merge replaces the rechunked parents in the corpus with their children.
// Originals listed in longIDs are dropped; rechunked children are appended,
// inheriting the parent's source when they carry none of their own.
func Merge(original []dataset.Chunk, longIDs map[string]struct{}, rechunked []dataset.Chunk) []dataset.Chunk {
	sourceByID := make(map[string]string, len(original))
	for _, c := range original {
		sourceByID[c.ChunkID] = c.Source
	}

	merged := make([]dataset.Chunk, 0, len(original)+len(rechunked))
	for _, c := range original {
		if _, ok := longIDs[c.ChunkID]; ok {
			continue
		}
		merged = append(merged, c)
	}

	for _, c := range rechunked {
		if c.Source == "" && c.ParentChunkID != "" {
			c.Source = sourceByID[c.ParentChunkID]
		}
		if c.Source == "" {
			c.Source = "unknown"
		}
		merged = append(merged, c)
	}

	return merged
}
