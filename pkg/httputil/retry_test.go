package httputil

import (
	"context"
	"errors"
	"testing"
	"time"
)

var fast = Backoff{Attempts: 3, Delay: time.Millisecond}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fast, func() error {
		calls++
		if calls < 3 {
			return Retryable(errors.New("503"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetry_StopsOnPermanentError(t *testing.T) {
	permanent := errors.New("not found")
	calls := 0
	err := Retry(context.Background(), fast, func() error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Errorf("err = %v, want %v", err, permanent)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fast, func() error {
		calls++
		return Retryable(errors.New("timeout"))
	})
	if !IsRetryable(err) {
		t.Errorf("expected the last retryable error, got %v", err)
	}
	if calls != fast.Attempts {
		t.Errorf("calls = %d, want %d", calls, fast.Attempts)
	}
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, Backoff{Attempts: 5, Delay: time.Hour}, func() error {
		return Retryable(errors.New("boom"))
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestRetryable(t *testing.T) {
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should be nil")
	}
	inner := errors.New("inner")
	err := Retryable(inner)
	if !errors.Is(err, inner) {
		t.Error("Retryable should unwrap to the inner error")
	}
	if err.Error() != "inner" {
		t.Errorf("Error() = %q", err.Error())
	}
}
