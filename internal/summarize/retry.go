package summarize

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy governs in-call retries against the provider. This is separate
// from the pipeline's cross-run retry budget: a rate-limited call is retried
// here with backoff before the item is ever marked failed.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
}

// DefaultRetryPolicy returns the policy used for provider calls.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		BackoffFactor:  2.0,
	}
}

// RetryableError marks an error as worth retrying within the same call.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string { return e.Err.Error() }

func (e *RetryableError) Unwrap() error { return e.Err }

// NewRetryableError wraps err so Retry will attempt it again.
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err should trigger another attempt.
func IsRetryable(err error) bool {
	var retryable *RetryableError
	return errors.As(err, &retryable)
}

// Retry executes fn with exponential backoff and jitter. Non-retryable errors
// return immediately; context cancellation aborts the wait.
func Retry(ctx context.Context, policy RetryPolicy, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err
		if !IsRetryable(err) {
			return err
		}

		if attempt == policy.MaxAttempts-1 {
			break
		}

		backoff := float64(policy.InitialBackoff) * math.Pow(policy.BackoffFactor, float64(attempt))
		if backoff > float64(policy.MaxBackoff) {
			backoff = float64(policy.MaxBackoff)
		}
		// Jitter to avoid synchronized retries across runs.
		delay := time.Duration(backoff) + time.Duration(rand.Intn(500))*time.Millisecond

		select {
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("max attempts exceeded (%d): %w", policy.MaxAttempts, lastErr)
}
