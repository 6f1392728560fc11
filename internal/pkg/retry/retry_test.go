package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type transientErr struct{}

func (transientErr) Error() string   { return "temporarily unavailable" }
func (transientErr) Transient() bool { return true }

func TestDo_SucceedsFirstTry(t *testing.T) {
	calls := 0
	err := Do(context.Background(), DefaultConfig(), func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_RetriesTransient(t *testing.T) {
	cfg := Config{Attempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}

	calls := 0
	err := Do(context.Background(), cfg, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return transientErr{}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDo_StopsOnPermanentError(t *testing.T) {
	cfg := Config{Attempts: 5, BaseDelay: time.Millisecond}
	permanent := errors.New("bad request")

	calls := 0
	err := Do(context.Background(), cfg, func(ctx context.Context) error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("Do() error = %v, want %v", err, permanent)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	cfg := Config{Attempts: 2, BaseDelay: time.Millisecond}

	calls := 0
	err := Do(context.Background(), cfg, func(ctx context.Context) error {
		calls++
		return transientErr{}
	})
	if err == nil {
		t.Fatal("Do() should return the last error")
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), false},
		{"grpc unavailable", status.Error(codes.Unavailable, "down"), true},
		{"grpc deadline", status.Error(codes.DeadlineExceeded, "slow"), true},
		{"grpc invalid argument", status.Error(codes.InvalidArgument, "bad"), false},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"marker interface", transientErr{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Transient(tt.err); got != tt.want {
				t.Errorf("Transient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
