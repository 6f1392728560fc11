package errors

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	err := New(CodeDataset, "failed to load dataset")
	want := "DATASET_ERROR: failed to load dataset"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	wrapped := Wrap(CodeRetrieval, "search failed", errors.New("connection refused"))
	want = "RETRIEVAL_ERROR: search failed: connection refused"
	if wrapped.Error() != want {
		t.Errorf("Error() = %q, want %q", wrapped.Error(), want)
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := errors.New("boom")
	err := Wrap(CodeQdrant, "query failed", inner)

	if !errors.Is(err, inner) {
		t.Error("errors.Is should find the wrapped error")
	}
}

func TestAppError_HTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{CodeValidation, http.StatusBadRequest},
		{CodeInvalidRequest, http.StatusBadRequest},
		{CodeNotFound, http.StatusNotFound},
		{CodeUnavailable, http.StatusServiceUnavailable},
		{CodeTimeout, http.StatusGatewayTimeout},
		{CodeDataset, http.StatusInternalServerError},
		{CodeRerank, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		err := New(tt.code, "msg")
		if got := err.HTTPStatus(); got != tt.want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func TestWithDetail(t *testing.T) {
	err := ValidationError("bad input").WithDetail("field", "question")
	if err.Details["field"] != "question" {
		t.Errorf("Details[field] = %q, want question", err.Details["field"])
	}
}

func TestIsDataset(t *testing.T) {
	if !IsDataset(DatasetError("nope", nil)) {
		t.Error("IsDataset should be true for dataset errors")
	}
	if IsDataset(errors.New("plain")) {
		t.Error("IsDataset should be false for plain errors")
	}
}

func TestWriteError_AppError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, ValidationError("question text is required"))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Code != CodeValidation {
		t.Errorf("code = %s, want %s", resp.Code, CodeValidation)
	}
}

func TestWriteError_Sanitizes(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, errors.New("secret internal details"))

	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Error == "secret internal details" {
		t.Error("internal error message should not be leaked")
	}
}
