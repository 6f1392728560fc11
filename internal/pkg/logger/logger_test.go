package logger

import (
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.level); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestNew(t *testing.T) {
	for _, format := range []string{"text", "json"} {
		log := New("info", format)
		if log == nil || log.Logger == nil {
			t.Fatalf("New(info, %s) returned nil logger", format)
		}
	}
}

func TestWithHelpers(t *testing.T) {
	log := Default()

	if got := log.WithRun("nightly"); got == nil {
		t.Error("WithRun returned nil")
	}
	if got := log.WithQuestion("q_001"); got == nil {
		t.Error("WithQuestion returned nil")
	}
}
