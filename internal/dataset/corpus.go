package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/docentsearch/docent-eval/internal/pkg/errors"
)

// Chunk is one retrievable unit of the corpus.
type Chunk struct {
	ChunkID       string `json:"chunk_id"`
	Source        string `json:"source,omitempty"`
	Text          string `json:"text"`
	ParentChunkID string `json:"parent_chunk_id,omitempty"`
}

// LoadChunks reads the chunk corpus from a JSON array or a JSONL file,
// decided by extension.
func LoadChunks(path string) ([]Chunk, error) {
	if strings.EqualFold(filepath.Ext(path), ".jsonl") {
		return loadChunksJSONL(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.DatasetError(fmt.Sprintf("reading %s", path), err)
	}

	var chunks []Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, errors.DatasetError(fmt.Sprintf("parsing %s", path), err)
	}

	return chunks, nil
}

func loadChunksJSONL(path string) ([]Chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.DatasetError(fmt.Sprintf("reading %s", path), err)
	}
	defer f.Close()

	var chunks []Chunk
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var c Chunk
		if err := json.Unmarshal([]byte(text), &c); err != nil {
			return nil, errors.DatasetError(fmt.Sprintf("parsing %s line %d", path, line), err)
		}
		chunks = append(chunks, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.DatasetError(fmt.Sprintf("reading %s", path), err)
	}

	return chunks, nil
}

// WriteChunksJSONL writes chunks as JSONL, one record per line.
func WriteChunksJSONL(path string, chunks []Chunk) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.DatasetError(fmt.Sprintf("creating directory for %s", path), err)
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.DatasetError(fmt.Sprintf("creating %s", path), err)
	}

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, c := range chunks {
		if err := enc.Encode(c); err != nil {
			f.Close()
			return errors.DatasetError(fmt.Sprintf("writing %s", path), err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return errors.DatasetError(fmt.Sprintf("flushing %s", path), err)
	}

	return f.Close()
}

// ChunkIndex maps chunk IDs to chunks for fast lookup.
func ChunkIndex(chunks []Chunk) map[string]Chunk {
	idx := make(map[string]Chunk, len(chunks))
	for _, c := range chunks {
		idx[c.ChunkID] = c
	}
	return idx
}
