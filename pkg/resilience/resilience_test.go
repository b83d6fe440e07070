package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetrySucceedsAfterFailures(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), "test-op", RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
	}, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetryExhaustsBudget(t *testing.T) {
	sentinel := errors.New("persistent failure")
	attempts := 0
	err := Retry(context.Background(), "test-op", RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
	}, func() error {
		attempts++
		return sentinel
	})
	if err == nil {
		t.Fatal("Retry() succeeded, want error")
	}
	if !errors.Is(err, sentinel) {
		t.Errorf("error = %v, want wrapped %v", err, sentinel)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetryRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := Retry(ctx, "test-op", RetryConfig{
		MaxAttempts:  10,
		InitialDelay: 50 * time.Millisecond,
	}, func() error {
		attempts++
		cancel()
		return errors.New("fail")
	})
	if err == nil {
		t.Fatal("Retry() succeeded, want cancellation error")
	}
	if attempts > 2 {
		t.Errorf("attempts = %d, want early abort", attempts)
	}
}

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker("test", CircuitBreakerConfig{
		FailureThreshold: 2,
		ResetTimeout:     time.Hour,
	})
	fail := func() error { return errors.New("down") }

	for i := 0; i < 2; i++ {
		if err := cb.Execute(fail); err == nil {
			t.Fatal("Execute() succeeded, want failure")
		}
	}
	if got := cb.GetState(); got != StateOpen {
		t.Fatalf("state = %v, want open", got)
	}

	// While open, calls fail fast without running fn.
	ran := false
	err := cb.Execute(func() error { ran = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("error = %v, want ErrCircuitOpen", err)
	}
	if ran {
		t.Error("fn ran while circuit was open")
	}
}

func TestCircuitBreakerRecoversThroughHalfOpen(t *testing.T) {
	cb := NewCircuitBreaker("test", CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     10 * time.Millisecond,
	})
	if err := cb.Execute(func() error { return errors.New("down") }); err == nil {
		t.Fatal("want failure")
	}
	if got := cb.GetState(); got != StateOpen {
		t.Fatalf("state = %v, want open", got)
	}

	time.Sleep(20 * time.Millisecond)

	// The cool-down has elapsed; a successful probe closes the circuit.
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("probe error = %v", err)
	}
	if got := cb.GetState(); got != StateClosed {
		t.Errorf("state = %v, want closed after recovery", got)
	}
}

func TestCircuitBreakerReset(t *testing.T) {
	cb := NewCircuitBreaker("test", CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Hour})
	cb.Execute(func() error { return errors.New("down") })
	if got := cb.GetState(); got != StateOpen {
		t.Fatalf("state = %v, want open", got)
	}

	cb.Reset()
	if got := cb.GetState(); got != StateClosed {
		t.Errorf("state = %v, want closed after Reset", got)
	}
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Errorf("Execute after Reset error = %v", err)
	}
}
