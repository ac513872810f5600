package helpers

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestErrorTypes(t *testing.T) {
	t.Run("message without cause", func(t *testing.T) {
		err := NewProviderError("watershed unavailable", nil)
		if err.Error() != "watershed unavailable" {
			t.Errorf("Error() = %q; want the bare message", err.Error())
		}
	})

	t.Run("cause is appended and unwrappable", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := NewProviderError("provider offline", cause)
		if err.Error() != "provider offline: connection refused" {
			t.Errorf("Error() = %q; want message: cause", err.Error())
		}
		if !errors.Is(err, cause) {
			t.Errorf("errors.Is(err, cause) = false; want the cause reachable")
		}
	})

	t.Run("wrapped types survive fmt wrapping", func(t *testing.T) {
		inner := NewTimeoutError("worker deadline passed", nil)
		wrapped := fmt.Errorf("run aborted: %w", inner)
		var timeout *TimeoutError
		if !errors.As(wrapped, &timeout) {
			t.Errorf("errors.As through fmt.Errorf failed; want the TimeoutError recovered")
		}
	})
}

func TestIsRunLevel(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"configuration", NewConfigurationError("bad request", nil), true},
		{"provider", NewProviderError("download failed", nil), true},
		{"timeout", NewTimeoutError("deadline", nil), true},
		{"malformed series", NewMalformedSeriesError("single reading", nil), false},
		{"store write", NewStoreWriteError("disk full", nil), false},
		{"plain error", errors.New("anything"), false},
		{"wrapped provider", fmt.Errorf("run: %w", NewProviderError("x", nil)), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsRunLevel(tc.err); got != tc.want {
				t.Errorf("IsRunLevel(%v) = %v; want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestRetryWithBackoff(t *testing.T) {
	t.Run("first success returns immediately", func(t *testing.T) {
		calls := 0
		res, err := RetryWithBackoff("op", 3, time.Millisecond, func() (interface{}, error) {
			calls++
			return "done", nil
		})
		if err != nil || res != "done" {
			t.Fatalf("RetryWithBackoff() = %v, %v; want done, nil", res, err)
		}
		if calls != 1 {
			t.Errorf("fn called %d times; want 1", calls)
		}
	})

	t.Run("recovers after a transient failure", func(t *testing.T) {
		calls := 0
		res, err := RetryWithBackoff("op", 3, time.Millisecond, func() (interface{}, error) {
			calls++
			if calls < 3 {
				return nil, errors.New("transient")
			}
			return 42, nil
		})
		if err != nil || res != 42 {
			t.Fatalf("RetryWithBackoff() = %v, %v; want 42, nil", res, err)
		}
		if calls != 3 {
			t.Errorf("fn called %d times; want 3", calls)
		}
	})

	t.Run("exhausted attempts return the last failure", func(t *testing.T) {
		lastErr := errors.New("still broken")
		calls := 0
		_, err := RetryWithBackoff("op", 2, time.Millisecond, func() (interface{}, error) {
			calls++
			return nil, lastErr
		})
		if !errors.Is(err, lastErr) {
			t.Fatalf("RetryWithBackoff() err = %v; want %v", err, lastErr)
		}
		if calls != 2 {
			t.Errorf("fn called %d times; want 2", calls)
		}
	})
}
