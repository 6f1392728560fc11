package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/docentsearch/docent-eval/internal/pkg/errors"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestLoadQuestionsJSON_BareArray(t *testing.T) {
	path := writeFile(t, "eval.json", `[
		{"id": "q_001", "question": "훈민정음을 창제한 왕은 누구인가?", "ground_truth_context_id": "sejong_00012"},
		{"id": "q_002", "question": "임진왜란이 발발한 연도는?", "ground_truth_context_id": ["imjin_00003", "imjin_00004"]}
	]`)

	questions, err := LoadQuestionsJSON(path)
	if err != nil {
		t.Fatalf("LoadQuestionsJSON() error = %v", err)
	}

	if len(questions) != 2 {
		t.Fatalf("len = %d, want 2", len(questions))
	}
	if questions[0].ID != "q_001" {
		t.Errorf("ID = %s, want q_001", questions[0].ID)
	}
	if len(questions[0].GoldIDs) != 1 || questions[0].GoldIDs[0] != "sejong_00012" {
		t.Errorf("GoldIDs = %v", questions[0].GoldIDs)
	}
	if len(questions[1].GoldIDs) != 2 {
		t.Errorf("GoldIDs = %v, want two entries", questions[1].GoldIDs)
	}
}

func TestLoadQuestionsJSON_QueriesWrapper(t *testing.T) {
	path := writeFile(t, "eval.json", `{"queries": [
		{"question": "병자호란의 결과는?", "ground_truth_context_id": "byeongja_00021"}
	]}`)

	questions, err := LoadQuestionsJSON(path)
	if err != nil {
		t.Fatalf("LoadQuestionsJSON() error = %v", err)
	}
	if len(questions) != 1 {
		t.Fatalf("len = %d, want 1", len(questions))
	}
	// Missing ID gets a positional one
	if questions[0].ID != "q001" {
		t.Errorf("ID = %s, want q001", questions[0].ID)
	}
}

func TestLoadQuestionsJSON_MissingRequiredKeys(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing question",
			content: `[{"id": "q_001", "ground_truth_context_id": "x"}]`,
			wantErr: `missing required key "question"`,
		},
		{
			name:    "missing gold",
			content: `[{"id": "q_001", "question": "세종대왕의 업적은?"}]`,
			wantErr: `missing required key "ground_truth_context_id"`,
		},
		{
			name:    "empty file",
			content: `[]`,
			wantErr: "no questions found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "eval.json", tt.content)
			_, err := LoadQuestionsJSON(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
			if !errors.IsDataset(err) {
				t.Errorf("error should carry the dataset code, got %v", err)
			}
		})
	}
}

func TestLoadQuestionsJSON_DuplicateGoldsDeduplicated(t *testing.T) {
	path := writeFile(t, "eval.json",
		`[{"question": "질문", "ground_truth_context_id": ["b_001", "a_001", "b_001"]}]`)

	questions, err := LoadQuestionsJSON(path)
	if err != nil {
		t.Fatalf("LoadQuestionsJSON() error = %v", err)
	}
	golds := questions[0].GoldIDs
	if len(golds) != 2 || golds[0] != "a_001" || golds[1] != "b_001" {
		t.Errorf("GoldIDs = %v, want [a_001 b_001]", golds)
	}
}

func TestLoadQuestionsYAML(t *testing.T) {
	path := writeFile(t, "queries.yaml", `
queries:
  - id: q_001
    question: 강화도 조약의 내용은?
    ground_truth_context_id: ganghwa_00007
  - id: q_002
    question: 갑오개혁의 주요 내용은?
    ground_truth_context_id:
      - gabo_00001
      - gabo_00002
`)

	questions, err := LoadQuestionsYAML(path)
	if err != nil {
		t.Fatalf("LoadQuestionsYAML() error = %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("len = %d, want 2", len(questions))
	}
	if questions[1].GoldIDs[0] != "gabo_00001" {
		t.Errorf("GoldIDs = %v", questions[1].GoldIDs)
	}
}

func TestGoldSet(t *testing.T) {
	q := Question{GoldIDs: []string{"a", "b"}}
	set := q.GoldSet()
	if _, ok := set["a"]; !ok {
		t.Error("set should contain a")
	}
	if _, ok := set["c"]; ok {
		t.Error("set should not contain c")
	}
}
