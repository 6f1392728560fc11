package evaluation

import (
	"encoding/json"
	"net/http"

	"github.com/docentsearch/docent-eval/internal/dataset"
	"github.com/docentsearch/docent-eval/internal/pkg/errors"
)

// Handler provides HTTP handlers for ad-hoc evaluation runs.
type Handler struct {
	evaluator *Evaluator
}

// NewHandler creates a new evaluation handler.
func NewHandler(e *Evaluator) *Handler {
	return &Handler{evaluator: e}
}

// RegisterRoutes registers evaluation routes.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/evaluation/evaluate", h.handleEvaluate)
	mux.HandleFunc("POST /v1/evaluation/question", h.handleEvaluateQuestion)
}

// EvaluateRequest carries an inline question set to evaluate.
type EvaluateRequest struct {
	Questions []struct {
		ID       string   `json:"id"`
		Question string   `json:"question"`
		GoldIDs  []string `json:"ground_truth_context_ids"`
	} `json:"questions"`
}

// EvaluateResponse returns per-question results and the aggregate summary.
type EvaluateResponse struct {
	Results []QuestionResult `json:"results"`
	Summary RunSummary       `json:"summary"`
}

func (h *Handler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, errors.ValidationError("invalid request body"))
		return
	}
	if len(req.Questions) == 0 {
		errors.WriteError(w, errors.ValidationError("questions are required"))
		return
	}

	questions := make([]dataset.Question, len(req.Questions))
	for i, q := range req.Questions {
		questions[i] = dataset.Question{ID: q.ID, Text: q.Question, GoldIDs: q.GoldIDs}
	}

	results, summary, err := h.evaluator.Run(r.Context(), questions)
	if err != nil {
		errors.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(EvaluateResponse{
		Results: results,
		Summary: summary,
	})
}

// QuestionRequest evaluates a single question.
type QuestionRequest struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	GoldIDs  []string `json:"ground_truth_context_ids"`
}

func (h *Handler) handleEvaluateQuestion(w http.ResponseWriter, r *http.Request) {
	var req QuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, errors.ValidationError("invalid request body"))
		return
	}
	if req.Question == "" {
		errors.WriteError(w, errors.ValidationError("question text is required"))
		return
	}

	result := h.evaluator.evaluateQuestion(r.Context(), dataset.Question{
		ID:      req.ID,
		Text:    req.Question,
		GoldIDs: req.GoldIDs,
	})

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}
