package evaluation

// Metrics holds the ranking-quality metrics for a single candidate list.
type Metrics struct {
	HitRate   float64 `json:"hit_rate"`
	MRR       float64 `json:"mrr"`
	NDCG      float64 `json:"ndcg"`
	Recall    float64 `json:"recall"`
	Precision float64 `json:"precision"`
	AP        float64 `json:"ap"`
}

// QuestionResult contains the evaluation outcome for a single question.
type QuestionResult struct {
	// QuestionID identifies the question within the run.
	QuestionID string `json:"id"`

	// Question is the question text.
	Question string `json:"question"`

	// GoldIDs are the relevant chunk IDs.
	GoldIDs []string `json:"gold_ids"`

	// RetrievedIDs is the first-stage ranking, full retrieve-k window.
	RetrievedIDs []string `json:"retrieved_ids"`

	// RerankedIDs is the reranked ranking, truncated to rerank-k.
	RerankedIDs []string `json:"reranked_ids"`

	// Retrieval holds metrics on the first-stage ranking at top-k.
	Retrieval Metrics `json:"retrieval"`

	// Rerank holds metrics on the reranked ranking at top-k.
	Rerank Metrics `json:"rerank"`

	// Invalid marks questions with an empty gold set. Invalid questions
	// carry zero metrics and are excluded from aggregate means.
	Invalid bool `json:"invalid,omitempty"`

	// Error records a per-question failure reason. Failed questions are
	// excluded from aggregate means.
	Error string `json:"error,omitempty"`
}

// RunSummary aggregates metrics across a question set.
type RunSummary struct {
	// QuestionCount is the total number of questions in the dataset.
	QuestionCount int `json:"question_count"`

	// EvaluatedCount is the number of questions included in the means.
	EvaluatedCount int `json:"evaluated_count"`

	// InvalidCount is the number of questions excluded for empty gold sets.
	InvalidCount int `json:"invalid_count"`

	// FailedCount is the number of questions excluded for runtime errors.
	FailedCount int `json:"failed_count"`

	// Retrieval holds mean first-stage metrics over evaluated questions.
	Retrieval Metrics `json:"retrieval"`

	// Rerank holds mean reranked metrics over evaluated questions.
	Rerank Metrics `json:"rerank"`
}

// Params records the ranking parameters a run was executed with.
type Params struct {
	RetrieveK int `json:"retrieve_k"`
	RerankK   int `json:"rerank_k"`
	TopK      int `json:"top_k"`
}
