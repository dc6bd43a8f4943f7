package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

// MaxRetries is the number of attempts made for one LLM call.
const MaxRetries = 3

const maxBackoff = 30 * time.Second

// RetryableError is a transient model failure: rate limiting or a 5xx.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// IsRetryable reports whether err wraps a RetryableError.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// Backoff is the wait before retry number attempt (0-indexed): 1s doubling
// up to 30s, plus up to 50% jitter.
func Backoff(attempt int) time.Duration {
	base := min(time.Second<<min(attempt, 5), maxBackoff)
	return base + time.Duration(rand.Int64N(int64(base)/2))
}

// withRetries calls fn up to MaxRetries times while it fails with a
// RetryableError. A failed sleep (canceled context) ends the loop with the
// sleep's error.
func withRetries(ctx context.Context, log *slog.Logger, sleep func(context.Context, time.Duration) error, fn func() (string, error)) (string, error) {
	var (
		out string
		err error
	)
	for attempt := range MaxRetries {
		if out, err = fn(); err == nil || !IsRetryable(err) || attempt == MaxRetries-1 {
			return out, err
		}
		wait := Backoff(attempt)
		log.Warn("claude call failed, retrying", "attempt", attempt+1, "wait", wait, "error", err)
		if serr := sleep(ctx, wait); serr != nil {
			return "", serr
		}
	}
	return out, err
}
