// Package retry provides a small fixed-attempt retry helper with
// exponential backoff for calls to external services.
package retry

import (
	"context"
	"errors"
	"net"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Config controls retry behavior.
type Config struct {
	// Attempts is the total number of tries, including the first.
	Attempts int

	// BaseDelay is the delay before the first retry; each subsequent
	// retry doubles it.
	BaseDelay time.Duration

	// MaxDelay caps the backoff delay.
	MaxDelay time.Duration
}

// DefaultConfig returns sensible defaults for per-question API calls.
func DefaultConfig() Config {
	return Config{
		Attempts:  3,
		BaseDelay: 250 * time.Millisecond,
		MaxDelay:  5 * time.Second,
	}
}

// Do runs fn until it succeeds, returns a non-transient error, or exhausts
// the configured attempts. The last error is returned.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	if cfg.Attempts <= 0 {
		cfg = DefaultConfig()
	}

	delay := cfg.BaseDelay
	if delay <= 0 {
		delay = DefaultConfig().BaseDelay
	}

	var lastErr error
	for attempt := 0; attempt < cfg.Attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !Transient(lastErr) {
			return lastErr
		}
	}

	return lastErr
}

// Transient reports whether an error is worth retrying: network timeouts,
// context deadline on the inner call, and gRPC Unavailable/DeadlineExceeded/
// ResourceExhausted from the vector store transport.
func Transient(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return true
	}

	var te interface{ Transient() bool }
	if errors.As(err, &te) {
		return te.Transient()
	}

	return false
}
