package util

import (
	"context"
	"errors"
	"net/http"
	"os"
	"syscall"
	"testing"
	"time"
)

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil error", err: nil, expected: false},
		{name: "EAGAIN", err: syscall.EAGAIN, expected: true},
		{name: "ETIMEDOUT", err: syscall.ETIMEDOUT, expected: true},
		{name: "ECONNRESET", err: syscall.ECONNRESET, expected: true},
		{name: "ENOENT (not retryable)", err: syscall.ENOENT, expected: false},
		{name: "EPERM (not retryable)", err: syscall.EPERM, expected: false},
		{name: "timeout in message", err: errors.New("connection timeout"), expected: true},
		{name: "connection reset in message", err: errors.New("connection reset by peer"), expected: true},
		{name: "broken pipe in message", err: errors.New("write: broken pipe"), expected: true},
		{name: "generic error (not retryable)", err: errors.New("invalid argument"), expected: false},
		{
			name:     "PathError with ETIMEDOUT",
			err:      &os.PathError{Op: "open", Path: "/test", Err: syscall.ETIMEDOUT},
			expected: true,
		},
		{
			name:     "PathError with ENOENT (not retryable)",
			err:      &os.PathError{Op: "open", Path: "/test", Err: syscall.ENOENT},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsRetryableError(tt.err)
			if result != tt.expected {
				t.Errorf("IsRetryableError(%v) = %v, expected %v", tt.err, result, tt.expected)
			}
		})
	}
}

func TestIsRetryableStatus(t *testing.T) {
	retryable := []int{http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable}
	for _, code := range retryable {
		if !IsRetryableStatus(code) {
			t.Errorf("expected status %d to be retryable", code)
		}
	}
	for _, code := range []int{http.StatusOK, http.StatusNotFound, http.StatusForbidden} {
		if IsRetryableStatus(code) {
			t.Errorf("expected status %d to be non-retryable", code)
		}
	}
}

func TestRetryWithBackoff_ImmediateSuccess(t *testing.T) {
	calls := 0
	result, err := RetryWithBackoff(context.Background(), DefaultRetryConfig(), func() (int, error) {
		calls++
		return 42, nil
	}, "test-op")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != 42 {
		t.Errorf("expected 42, got %d", result)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRetryWithBackoff_EventualSuccess(t *testing.T) {
	cfg := &RetryConfig{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: 5 * time.Millisecond}

	calls := 0
	result, err := RetryWithBackoff(context.Background(), cfg, func() (string, error) {
		calls++
		if calls < 3 {
			return "", syscall.ECONNRESET
		}
		return "ok", nil
	}, "test-op")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "ok" {
		t.Errorf("expected ok, got %q", result)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetryWithBackoff_NonRetryableFailsFast(t *testing.T) {
	cfg := &RetryConfig{MaxAttempts: 5, InitialWait: time.Millisecond, MaxWait: 5 * time.Millisecond}

	calls := 0
	_, err := RetryWithBackoff(context.Background(), cfg, func() (int, error) {
		calls++
		return 0, errors.New("invalid argument")
	}, "test-op")

	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call for non-retryable error, got %d", calls)
	}
}

func TestRetryWithBackoff_Exhaustion(t *testing.T) {
	cfg := &RetryConfig{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: 2 * time.Millisecond}

	calls := 0
	_, err := RetryWithBackoff(context.Background(), cfg, func() (int, error) {
		calls++
		return 0, syscall.ETIMEDOUT
	}, "test-op")

	if err == nil {
		t.Fatal("expected error after exhaustion")
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
	if !errors.Is(err, syscall.ETIMEDOUT) {
		t.Errorf("expected wrapped ETIMEDOUT, got %v", err)
	}
}

func TestRetryWithBackoff_ContextCancelled(t *testing.T) {
	cfg := &RetryConfig{MaxAttempts: 10, InitialWait: 50 * time.Millisecond, MaxWait: time.Second}

	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := RetryWithBackoff(ctx, cfg, func() (int, error) {
		calls++
		return 0, syscall.ECONNREFUSED
	}, "test-op")

	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if calls >= 10 {
		t.Errorf("expected early abort, got %d calls", calls)
	}
}
