package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// Policy defines how retries should be handled.
type Policy struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
	Jitter         bool

	// Retryable decides whether an error triggers another attempt.
	// Defaults to IsRetryable.
	Retryable func(error) bool

	// Sleep waits between attempts. Defaults to a context-aware timer;
	// tests replace it to avoid real delays.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy returns the policy used for flaky upstream APIs:
// 3 retries, 2s base delay doubling per attempt.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:     3,
		InitialBackoff: 2 * time.Second,
		MaxBackoff:     30 * time.Second,
		BackoffFactor:  2.0,
	}
}

// RetryableError wraps an error to indicate it should be retried.
type RetryableError struct {
	Err        error
	RetryAfter time.Duration
}

func (e *RetryableError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%v (retry after %v)", e.Err, e.RetryAfter)
	}
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// ExhaustedError is returned when every attempt failed with a retryable error.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("max retries exceeded (%d attempts): %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// IsRetryable checks if an error should trigger a retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var retryable *RetryableError
	return errors.As(err, &retryable)
}

// Do executes fn with exponential backoff. fn receives the zero-based attempt
// number. Non-retryable errors are returned unchanged; exhausting the retries
// yields an *ExhaustedError wrapping the last error.
func Do(ctx context.Context, policy Policy, fn func(attempt int) error) error {
	retryable := policy.Retryable
	if retryable == nil {
		retryable = IsRetryable
	}
	sleep := policy.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var lastErr error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		if !retryable(err) {
			return err
		}

		// Don't sleep after the last attempt
		if attempt == policy.MaxRetries {
			break
		}

		backoff := Backoff(policy, attempt)
		var retryErr *RetryableError
		if errors.As(err, &retryErr) && retryErr.RetryAfter > 0 {
			backoff = retryErr.RetryAfter
		}

		if err := sleep(ctx, backoff); err != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}
	}

	return &ExhaustedError{Attempts: policy.MaxRetries + 1, Err: lastErr}
}

// Backoff computes the delay before the retry following attempt:
// InitialBackoff * BackoffFactor^attempt, capped at MaxBackoff.
func Backoff(policy Policy, attempt int) time.Duration {
	factor := policy.BackoffFactor
	if factor <= 0 {
		factor = 2.0
	}
	backoff := float64(policy.InitialBackoff) * math.Pow(factor, float64(attempt))

	if policy.MaxBackoff > 0 && backoff > float64(policy.MaxBackoff) {
		backoff = float64(policy.MaxBackoff)
	}

	duration := time.Duration(backoff)

	// +/-10% spread
	if policy.Jitter {
		duration += time.Duration(float64(duration) * 0.1 * (2*rand.Float64() - 1))
	}

	return duration
}

// NewRetryableError creates a new retryable error.
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}

// NewRetryableErrorWithDelay creates a retryable error with a specific retry delay.
func NewRetryableErrorWithDelay(err error, delay time.Duration) error {
	return &RetryableError{Err: err, RetryAfter: delay}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
