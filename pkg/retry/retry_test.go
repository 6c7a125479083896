package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.MaxRetries != 3 {
		t.Errorf("expected MaxRetries=3, got %d", cfg.MaxRetries)
	}
	if cfg.InitialDelay != 200*time.Millisecond {
		t.Errorf("expected InitialDelay=200ms, got %v", cfg.InitialDelay)
	}
	if cfg.MaxDelay != 5*time.Second {
		t.Errorf("expected MaxDelay=5s, got %v", cfg.MaxDelay)
	}
	if cfg.Multiplier != 2.0 {
		t.Errorf("expected Multiplier=2.0, got %f", cfg.Multiplier)
	}
}

func testConfig() *Config {
	return &Config{
		MaxRetries:   3,
		InitialDelay: 5 * time.Millisecond,
		MaxDelay:     50 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDo_Success(t *testing.T) {
	callCount := 0
	err := Do(context.Background(), testConfig(), func() error {
		callCount++
		return nil
	})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
}

func TestDo_SuccessAfterRetries(t *testing.T) {
	callCount := 0
	err := Do(context.Background(), testConfig(), func() error {
		callCount++
		if callCount < 3 {
			return errors.New("connection refused")
		}
		return nil
	})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("expected 3 calls, got %d", callCount)
	}
}

func TestDo_NonRetryableFailsFast(t *testing.T) {
	callCount := 0
	permanent := errors.New("permission denied for function compute_allocations")
	err := Do(context.Background(), testConfig(), func() error {
		callCount++
		return permanent
	})

	if !errors.Is(err, permanent) {
		t.Errorf("expected %v, got %v", permanent, err)
	}
	if callCount != 1 {
		t.Errorf("expected 1 call for a permanent error, got %d", callCount)
	}
}

func TestDo_ExhaustsRetries(t *testing.T) {
	callCount := 0
	err := Do(context.Background(), testConfig(), func() error {
		callCount++
		return errors.New("i/o timeout")
	})

	if err == nil {
		t.Fatal("expected an error after retries were exhausted")
	}
	if callCount != 4 {
		t.Errorf("expected 4 calls (1 + 3 retries), got %d", callCount)
	}
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	callCount := 0
	err := Do(ctx, &Config{
		MaxRetries:   5,
		InitialDelay: time.Hour,
		MaxDelay:     time.Hour,
		Multiplier:   2.0,
	}, func() error {
		callCount++
		cancel()
		return errors.New("connection reset")
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
}

func TestDoWithResult(t *testing.T) {
	callCount := 0
	result, err := DoWithResult(context.Background(), testConfig(), func() (int, error) {
		callCount++
		if callCount < 2 {
			return 0, errors.New("service unavailable")
		}
		return 42, nil
	})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if result != 42 {
		t.Errorf("expected result 42, got %d", result)
	}
	if callCount != 2 {
		t.Errorf("expected 2 calls, got %d", callCount)
	}
}

type transientError struct{ retryable bool }

func (e *transientError) Error() string     { return "declared error" }
func (e *transientError) IsRetryable() bool { return e.retryable }

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"rate limited", errors.New("429 Too Many Requests"), true},
		{"gateway timeout", errors.New("504 gateway timeout"), true},
		{"deadlock", errors.New("deadlock detected"), true},
		{"bad sql", errors.New(`syntax error at or near "FORM"`), false},
		{"auth failure", errors.New("password authentication failed"), false},
		{"declares retryable", &transientError{retryable: true}, true},
		{"declares permanent", &transientError{retryable: false}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
