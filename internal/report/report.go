// Package report writes evaluation run artifacts to a timestamped
// directory: metrics.json, retrieval_detail.csv, meta.json and summary.md.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/docentsearch/docent-eval/internal/evaluation"
	"github.com/docentsearch/docent-eval/internal/pkg/errors"
)

const timestampLayout = "20060102_150405"

// Meta records how a run was executed.
type Meta struct {
	Timestamp     string            `json:"timestamp"`
	RunName       string            `json:"run_name,omitempty"`
	ConfigPath    string            `json:"config_path,omitempty"`
	QueriesPath   string            `json:"queries_path,omitempty"`
	ModelVersions map[string]string `json:"model_versions,omitempty"`
	Parameters    evaluation.Params `json:"parameters"`
}

// Writer writes run artifacts into a dedicated directory.
type Writer struct {
	dir string
}

// NewWriter creates the run directory under outputDir. The directory is
// named `<timestamp>` or `<timestamp>_<runName>`; existing directories get
// a numeric suffix rather than being reused.
func NewWriter(outputDir, runName string) (*Writer, error) {
	return newWriterAt(outputDir, runName, time.Now())
}

func newWriterAt(outputDir, runName string, now time.Time) (*Writer, error) {
	name := now.Format(timestampLayout)
	if runName != "" {
		name = name + "_" + runName
	}

	dir, err := createUniqueDir(outputDir, name)
	if err != nil {
		return nil, errors.ReportError("failed to create run directory", err)
	}

	return &Writer{dir: dir}, nil
}

// createUniqueDir creates <base>/<name>, falling back to <name>_1, <name>_2
// and so on when the directory already exists.
func createUniqueDir(base, name string) (string, error) {
	if err := os.MkdirAll(base, 0o755); err != nil {
		return "", err
	}

	for i := 0; ; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s_%d", name, i)
		}

		dir := filepath.Join(base, candidate)
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			return dir, nil
		}
		if !os.IsExist(err) {
			return "", err
		}
		if i >= 1000 {
			return "", fmt.Errorf("could not find a free run directory name for %s", name)
		}
	}
}

// Dir returns the run directory path.
func (w *Writer) Dir() string {
	return w.dir
}

// Write writes all run artifacts.
func (w *Writer) Write(results []evaluation.QuestionResult, summary evaluation.RunSummary, meta Meta) error {
	if err := w.writeMetrics(results, summary); err != nil {
		return err
	}
	if err := w.writeDetailCSV(results); err != nil {
		return err
	}
	if err := w.writeMeta(meta); err != nil {
		return err
	}
	return w.writeSummary(results, summary, meta)
}

// metricsFile is the shape of metrics.json.
type metricsFile struct {
	Aggregate   evaluation.RunSummary       `json:"aggregate"`
	PerQuestion []evaluation.QuestionResult `json:"per_question"`
}

func (w *Writer) writeMetrics(results []evaluation.QuestionResult, summary evaluation.RunSummary) error {
	return w.writeJSON("metrics.json", metricsFile{
		Aggregate:   summary,
		PerQuestion: results,
	})
}

func (w *Writer) writeMeta(meta Meta) error {
	return w.writeJSON("meta.json", meta)
}

func (w *Writer) writeJSON(name string, v any) error {
	f, err := os.Create(filepath.Join(w.dir, name))
	if err != nil {
		return errors.ReportError("failed to create "+name, err)
	}

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		f.Close()
		return errors.ReportError("failed to write "+name, err)
	}

	return f.Close()
}

func (w *Writer) writeDetailCSV(results []evaluation.QuestionResult) error {
	f, err := os.Create(filepath.Join(w.dir, "retrieval_detail.csv"))
	if err != nil {
		return errors.ReportError("failed to create retrieval_detail.csv", err)
	}

	cw := csv.NewWriter(f)
	header := []string{"id", "question", "gold_ids", "retrieved_ids", "reranked_ids", "invalid", "error"}
	if err := cw.Write(header); err != nil {
		f.Close()
		return errors.ReportError("failed to write CSV header", err)
	}

	for _, r := range results {
		row := []string{
			r.QuestionID,
			r.Question,
			strings.Join(r.GoldIDs, ";"),
			strings.Join(r.RetrievedIDs, ";"),
			strings.Join(r.RerankedIDs, ";"),
			fmt.Sprintf("%t", r.Invalid),
			r.Error,
		}
		if err := cw.Write(row); err != nil {
			f.Close()
			return errors.ReportError("failed to write CSV row", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		f.Close()
		return errors.ReportError("failed to flush CSV", err)
	}

	return f.Close()
}

func (w *Writer) writeSummary(results []evaluation.QuestionResult, summary evaluation.RunSummary, meta Meta) error {
	var b strings.Builder

	b.WriteString("# Batch Evaluation Summary\n\n")
	fmt.Fprintf(&b, "- Timestamp: %s\n", meta.Timestamp)
	if meta.RunName != "" {
		fmt.Fprintf(&b, "- Run name: %s\n", meta.RunName)
	}
	fmt.Fprintf(&b, "- Questions: %d (evaluated %d, invalid %d, failed %d)\n",
		summary.QuestionCount, summary.EvaluatedCount, summary.InvalidCount, summary.FailedCount)
	fmt.Fprintf(&b, "- Parameters: retrieve_k=%d rerank_k=%d top_k=%d\n",
		meta.Parameters.RetrieveK, meta.Parameters.RerankK, meta.Parameters.TopK)

	b.WriteString("\n## Aggregated Metrics\n\n")
	b.WriteString("| stage | hit_rate | mrr | ndcg | recall | precision | ap |\n")
	b.WriteString("| --- | --- | --- | --- | --- | --- | --- |\n")
	writeMetricsRow(&b, "retrieval", summary.Retrieval)
	writeMetricsRow(&b, "rerank", summary.Rerank)

	b.WriteString("\n## Per-question Metrics\n\n")
	b.WriteString("| id | retrieval_hit_rate | rerank_hit_rate | retrieval_mrr | rerank_mrr |\n")
	b.WriteString("| --- | --- | --- | --- | --- |\n")
	for _, r := range results {
		if r.Invalid || r.Error != "" {
			continue
		}
		fmt.Fprintf(&b, "| %s | %.4f | %.4f | %.4f | %.4f |\n",
			r.QuestionID, r.Retrieval.HitRate, r.Rerank.HitRate, r.Retrieval.MRR, r.Rerank.MRR)
	}

	var excluded []evaluation.QuestionResult
	for _, r := range results {
		if r.Invalid || r.Error != "" {
			excluded = append(excluded, r)
		}
	}
	if len(excluded) > 0 {
		b.WriteString("\n## Excluded Questions\n\n")
		for _, r := range excluded {
			reason := r.Error
			if r.Invalid {
				reason = "empty gold set"
			}
			fmt.Fprintf(&b, "- %s: %s\n", r.QuestionID, reason)
		}
	}

	path := filepath.Join(w.dir, "summary.md")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return errors.ReportError("failed to write summary.md", err)
	}

	return nil
}

func writeMetricsRow(b *strings.Builder, stage string, m evaluation.Metrics) {
	fmt.Fprintf(b, "| %s | %.4f | %.4f | %.4f | %.4f | %.4f | %.4f |\n",
		stage, m.HitRate, m.MRR, m.NDCG, m.Recall, m.Precision, m.AP)
}
