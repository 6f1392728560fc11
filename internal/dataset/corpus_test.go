package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadChunks_JSONArray(t *testing.T) {
	path := writeFile(t, "all_chunks.json", `[
		{"chunk_id": "silhok_00001", "source": "silhok", "text": "조선왕조실록은 조선 시대의 공식 기록이다."},
		{"chunk_id": "silhok_00002", "source": "silhok", "text": "세종은 집현전을 설치하였다."}
	]`)

	chunks, err := LoadChunks(path)
	if err != nil {
		t.Fatalf("LoadChunks() error = %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("len = %d, want 2", len(chunks))
	}
	if chunks[0].ChunkID != "silhok_00001" {
		t.Errorf("ChunkID = %s", chunks[0].ChunkID)
	}
}

func TestLoadChunks_JSONL(t *testing.T) {
	path := writeFile(t, "rechunked.jsonl",
		`{"chunk_id": "silhok_00003_part01", "parent_chunk_id": "silhok_00003", "text": "첫 부분"}

{"chunk_id": "silhok_00003_part02", "parent_chunk_id": "silhok_00003", "text": "둘째 부분"}
`)

	chunks, err := LoadChunks(path)
	if err != nil {
		t.Fatalf("LoadChunks() error = %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("len = %d, want 2 (blank lines skipped)", len(chunks))
	}
	if chunks[1].ParentChunkID != "silhok_00003" {
		t.Errorf("ParentChunkID = %s", chunks[1].ParentChunkID)
	}
}

func TestWriteChunksJSONL_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "chunks.jsonl")

	in := []Chunk{
		{ChunkID: "a_00001", Source: "a", Text: "가나다"},
		{ChunkID: "a_00001_part01", Source: "a", Text: "가", ParentChunkID: "a_00001"},
	}
	if err := WriteChunksJSONL(path, in); err != nil {
		t.Fatalf("WriteChunksJSONL() error = %v", err)
	}

	out, err := LoadChunks(path)
	if err != nil {
		t.Fatalf("LoadChunks() error = %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("len = %d, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("chunk %d = %+v, want %+v", i, out[i], in[i])
		}
	}
}

func TestLoadChunks_MissingFile(t *testing.T) {
	if _, err := LoadChunks(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestChunkIndex(t *testing.T) {
	chunks := []Chunk{
		{ChunkID: "x_00001", Text: "하나"},
		{ChunkID: "x_00002", Text: "둘"},
	}
	idx := ChunkIndex(chunks)
	if idx["x_00002"].Text != "둘" {
		t.Errorf("idx[x_00002] = %+v", idx["x_00002"])
	}
	if _, ok := idx["x_00003"]; ok {
		t.Error("unexpected entry")
	}
}

func TestWriteChunksJSONL_NoHTMLEscaping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunks.jsonl")
	in := []Chunk{{ChunkID: "a", Text: "1 < 2 & 3"}}
	if err := WriteChunksJSONL(path, in); err != nil {
		t.Fatalf("WriteChunksJSONL() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading: %v", err)
	}
	if !strings.Contains(string(data), "1 < 2 & 3") {
		t.Errorf("output should keep raw text, got %s", data)
	}
}
