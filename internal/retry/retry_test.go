package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

// recordSleeps returns a Sleep stub that records requested delays.
func recordSleeps(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return ctx.Err()
	}
}

func TestDo_Success(t *testing.T) {
	var delays []time.Duration
	policy := DefaultPolicy()
	policy.Sleep = recordSleeps(&delays)

	attempts := 0
	err := Do(context.Background(), policy, func(int) error {
		attempts++
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}

	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
	if len(delays) != 0 {
		t.Errorf("expected no sleeps, got %v", delays)
	}
}

func TestDo_SuccessAfterRetries(t *testing.T) {
	var delays []time.Duration
	policy := DefaultPolicy()
	policy.Sleep = recordSleeps(&delays)

	attempts := 0
	err := Do(context.Background(), policy, func(int) error {
		attempts++
		if attempts < 3 {
			return NewRetryableError(errors.New("temporary error"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}

	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	want := []time.Duration{2 * time.Second, 4 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("expected delays %v, got %v", want, delays)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("delay %d = %v, want %v", i, delays[i], want[i])
		}
	}
}

func TestDo_MaxRetriesExceeded(t *testing.T) {
	var delays []time.Duration
	policy := DefaultPolicy()
	policy.Sleep = recordSleeps(&delays)

	persistent := errors.New("persistent error")
	attempts := 0
	err := Do(context.Background(), policy, func(int) error {
		attempts++
		return NewRetryableError(persistent)
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	if attempts != 4 {
		t.Errorf("expected 4 attempts (initial + 3 retries), got %d", attempts)
	}

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ExhaustedError, got %T", err)
	}
	if exhausted.Attempts != 4 {
		t.Errorf("expected 4 attempts recorded, got %d", exhausted.Attempts)
	}
	if !errors.Is(err, persistent) {
		t.Error("expected exhausted error to wrap the last error")
	}
	if len(delays) != 3 || delays[2] != 8*time.Second {
		t.Errorf("expected 2s/4s/8s delays, got %v", delays)
	}
}

func TestDo_NonRetryableError(t *testing.T) {
	policy := DefaultPolicy()
	policy.Sleep = func(context.Context, time.Duration) error {
		t.Fatal("should not sleep on non-retryable error")
		return nil
	}

	attempts := 0
	err := Do(context.Background(), policy, func(int) error {
		attempts++
		return errors.New("non-retryable error")
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	if attempts != 1 {
		t.Errorf("expected 1 attempt (non-retryable), got %d", attempts)
	}
}

func TestDo_CustomPredicate(t *testing.T) {
	sentinel := errors.New("flaky")
	policy := Policy{
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		Retryable:      func(err error) bool { return errors.Is(err, sentinel) },
		Sleep:          func(context.Context, time.Duration) error { return nil },
	}

	attempts := 0
	err := Do(context.Background(), policy, func(int) error {
		attempts++
		return sentinel
	})

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ExhaustedError, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	policy := DefaultPolicy()
	policy.InitialBackoff = time.Hour

	err := Do(ctx, policy, func(int) error {
		return NewRetryableError(errors.New("temporary"))
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDo_RetryAfterHint(t *testing.T) {
	var delays []time.Duration
	policy := DefaultPolicy()
	policy.MaxRetries = 1
	policy.Sleep = recordSleeps(&delays)

	_ = Do(context.Background(), policy, func(int) error {
		return NewRetryableErrorWithDelay(errors.New("slow down"), 7*time.Second)
	})

	if len(delays) != 1 || delays[0] != 7*time.Second {
		t.Errorf("expected RetryAfter hint to be honored, got %v", delays)
	}
}

func TestBackoff(t *testing.T) {
	policy := Policy{
		InitialBackoff: 2 * time.Second,
		MaxBackoff:     10 * time.Second,
		BackoffFactor:  2.0,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 2 * time.Second},
		{1, 4 * time.Second},
		{2, 8 * time.Second},
		{3, 10 * time.Second},
	}

	for _, tt := range tests {
		if got := Backoff(policy, tt.attempt); got != tt.expected {
			t.Errorf("Backoff(attempt=%d) = %v, want %v", tt.attempt, got, tt.expected)
		}
	}
}

func TestBackoff_Jitter(t *testing.T) {
	policy := Policy{InitialBackoff: time.Second, BackoffFactor: 2.0, Jitter: true}

	for i := 0; i < 20; i++ {
		got := Backoff(policy, 0)
		if got < 900*time.Millisecond || got > 1100*time.Millisecond {
			t.Fatalf("jittered backoff %v outside +/-10%%", got)
		}
	}
}
