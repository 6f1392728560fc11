// Package dataset loads evaluation question sets and the chunked corpus.
package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/docentsearch/docent-eval/internal/pkg/errors"
)

// Question is a single evaluation record. Loaded once per run, immutable.
type Question struct {
	// ID identifies the question within a run.
	ID string `json:"id"`

	// Text is the question text.
	Text string `json:"question"`

	// GoldIDs are the relevant document IDs, deduplicated, sorted.
	GoldIDs []string `json:"ground_truth_context_ids"`
}

// GoldSet returns the gold IDs as a set.
func (q Question) GoldSet() map[string]struct{} {
	set := make(map[string]struct{}, len(q.GoldIDs))
	for _, id := range q.GoldIDs {
		set[id] = struct{}{}
	}
	return set
}

// questionRecord is the on-disk shape. The gold field historically held a
// single ID; newer datasets also carry a list. Both are accepted.
type questionRecord struct {
	ID       any             `json:"id" yaml:"id"`
	Question string          `json:"question" yaml:"question"`
	Gold     json.RawMessage `json:"ground_truth_context_id" yaml:"-"`
	GoldYAML any             `json:"-" yaml:"ground_truth_context_id"`
}

// LoadQuestionsJSON reads a question dataset from a JSON file. The file is
// either a bare array of records or an object with a "queries" key.
func LoadQuestionsJSON(path string) ([]Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.DatasetError(fmt.Sprintf("reading %s", path), err)
	}

	var records []questionRecord
	if err := json.Unmarshal(data, &records); err != nil {
		var wrapper struct {
			Queries []questionRecord `json:"queries"`
		}
		if werr := json.Unmarshal(data, &wrapper); werr != nil {
			return nil, errors.DatasetError(fmt.Sprintf("parsing %s", path), err)
		}
		records = wrapper.Queries
	}

	if len(records) == 0 {
		return nil, errors.DatasetError(fmt.Sprintf("no questions found in %s", path), nil)
	}

	questions := make([]Question, 0, len(records))
	for i, rec := range records {
		q, err := rec.toQuestion(i)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}

	return questions, nil
}

// LoadQuestionsYAML reads a question set from a YAML file with a top-level
// "queries" list.
func LoadQuestionsYAML(path string) ([]Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.DatasetError(fmt.Sprintf("reading %s", path), err)
	}

	var payload struct {
		Queries []questionRecord `yaml:"queries"`
	}
	if err := yaml.Unmarshal(data, &payload); err != nil {
		return nil, errors.DatasetError(fmt.Sprintf("parsing %s", path), err)
	}
	if len(payload.Queries) == 0 {
		return nil, errors.DatasetError(fmt.Sprintf("no questions found in %s", path), nil)
	}

	questions := make([]Question, 0, len(payload.Queries))
	for i, rec := range payload.Queries {
		q, err := rec.toQuestion(i)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}

	return questions, nil
}

func (rec questionRecord) toQuestion(idx int) (Question, error) {
	if rec.Question == "" {
		return Question{}, errors.DatasetError(
			fmt.Sprintf("record %d: missing required key \"question\"", idx), nil)
	}

	golds, err := rec.goldIDs()
	if err != nil {
		return Question{}, errors.DatasetError(fmt.Sprintf("record %d: %v", idx, err), nil)
	}
	if len(golds) == 0 {
		return Question{}, errors.DatasetError(
			fmt.Sprintf("record %d: missing required key \"ground_truth_context_id\"", idx), nil)
	}

	return Question{
		ID:      rec.id(idx),
		Text:    rec.Question,
		GoldIDs: golds,
	}, nil
}

func (rec questionRecord) id(idx int) string {
	switch v := rec.ID.(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return fmt.Sprintf("%d", int64(v))
	case int:
		return fmt.Sprintf("%d", v)
	}
	return fmt.Sprintf("q%03d", idx+1)
}

func (rec questionRecord) goldIDs() ([]string, error) {
	// YAML path: already decoded into an any.
	if rec.GoldYAML != nil {
		return goldsFromAny(rec.GoldYAML)
	}
	if len(rec.Gold) == 0 {
		return nil, nil
	}

	var single string
	if err := json.Unmarshal(rec.Gold, &single); err == nil {
		return normalizeGolds([]string{single}), nil
	}

	var many []string
	if err := json.Unmarshal(rec.Gold, &many); err == nil {
		return normalizeGolds(many), nil
	}

	return nil, fmt.Errorf("ground_truth_context_id must be a string or a list of strings")
}

func goldsFromAny(v any) ([]string, error) {
	switch g := v.(type) {
	case string:
		return normalizeGolds([]string{g}), nil
	case []any:
		golds := make([]string, 0, len(g))
		for _, item := range g {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("ground_truth_context_id list must contain strings")
			}
			golds = append(golds, s)
		}
		return normalizeGolds(golds), nil
	default:
		return nil, fmt.Errorf("ground_truth_context_id must be a string or a list of strings")
	}
}

func normalizeGolds(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
