package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestManagerExecuteSuccessPassesThrough(t *testing.T) {
	m := New()
	err := m.Execute(func() error { return nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestManagerExecuteWithBreakerUsesNamedBreaker(t *testing.T) {
	m := New(WithCircuitBreaker("svc-a", CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Hour}))

	_ = m.ExecuteWithBreaker("svc-a", func() error { return errors.New("fail") })

	stats := m.GetCircuitBreakerStats()
	if stats["svc-a"].State != StateOpen {
		t.Errorf("expected svc-a breaker to open after 1 failure, got %v", stats["svc-a"].State)
	}
	if stats["default"].TotalCalls != 0 {
		t.Errorf("expected the default breaker untouched, got %+v", stats["default"])
	}
}

func TestManagerUnknownBreakerNameFallsBackToDefault(t *testing.T) {
	m := New()
	_ = m.ExecuteWithBreaker("does-not-exist", func() error { return nil })

	stats := m.GetCircuitBreakerStats()
	if stats["default"].TotalCalls != 1 {
		t.Errorf("expected an unknown breaker name to fall back to default, got %+v", stats["default"])
	}
}

func TestManagerExecuteWithContextRespectsCancelledContext(t *testing.T) {
	m := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := m.ExecuteWithContext(ctx, func() error {
		called = true
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if called {
		t.Error("expected fn not to run against an already-cancelled context")
	}
}

func TestManagerResetCircuitBreakerClearsNamedBreaker(t *testing.T) {
	m := New(WithCircuitBreaker("svc-b", CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Hour}))
	_ = m.ExecuteWithBreaker("svc-b", func() error { return errors.New("fail") })

	m.ResetCircuitBreaker("svc-b")

	stats := m.GetCircuitBreakerStats()
	if stats["svc-b"].State != StateClosed {
		t.Errorf("expected svc-b breaker closed after reset, got %v", stats["svc-b"].State)
	}
}

func TestManagerResetAllCircuitBreakersClearsEveryBreaker(t *testing.T) {
	m := New(WithCircuitBreaker("svc-c", CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Hour}))
	_ = m.ExecuteWithBreaker("svc-c", func() error { return errors.New("fail") })
	_ = m.Execute(func() error { return errors.New("fail") })

	m.ResetAllCircuitBreakers()

	stats := m.GetCircuitBreakerStats()
	for name, s := range stats {
		if s.State != StateClosed {
			t.Errorf("expected breaker %q closed after ResetAllCircuitBreakers, got %v", name, s.State)
		}
	}
}

func TestManagerHealthCheckFlagsOpenBreakerAsUnhealthy(t *testing.T) {
	m := New(WithCircuitBreaker("svc-d", CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Hour}))
	_ = m.ExecuteWithBreaker("svc-d", func() error { return errors.New("fail") })

	report := m.HealthCheck()
	if report.Healthy {
		t.Error("expected HealthCheck to report unhealthy with an open circuit breaker")
	}
	if len(report.Issues) == 0 {
		t.Error("expected at least one issue listed for the open breaker")
	}
}

func TestManagerHealthCheckHealthyWhenAllClosed(t *testing.T) {
	m := New()
	report := m.HealthCheck()
	if !report.Healthy {
		t.Errorf("expected a fresh manager to report healthy, got issues: %v", report.Issues)
	}
}

func TestBulkExecutorAllSucceed(t *testing.T) {
	m := New()
	be := m.NewBulkExecutor(false, 0, 4)

	items := []interface{}{1, 2, 3, 4}
	errs, err := be.Execute(items, func(interface{}) error { return nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, e := range errs {
		if e != nil {
			t.Errorf("expected item %d to succeed, got %v", i, e)
		}
	}
}

func TestBulkExecutorFailsWithoutPartialSuccess(t *testing.T) {
	m := New(WithRetryPolicy(&RetryPolicy{MaxAttempts: 1, RetryableErrors: DefaultRetryableErrors}))
	be := m.NewBulkExecutor(false, 0, 4)

	items := []interface{}{1, 2, 3}
	_, err := be.Execute(items, func(item interface{}) error {
		if item == 2 {
			return errors.New("item 2 fails")
		}
		return nil
	})
	if err == nil {
		t.Fatal("expected an error when partial success is disallowed and one item fails")
	}
}

func TestBulkExecutorAllowsPartialSuccessAboveMinRate(t *testing.T) {
	m := New(WithRetryPolicy(&RetryPolicy{MaxAttempts: 1, RetryableErrors: DefaultRetryableErrors}))
	be := m.NewBulkExecutor(true, 0.5, 4)

	items := []interface{}{1, 2, 3, 4}
	_, err := be.Execute(items, func(item interface{}) error {
		if item == 2 {
			return errors.New("fails")
		}
		return nil
	})
	if err != nil {
		t.Errorf("expected a 75%% success rate to clear a 50%% minimum, got %v", err)
	}
}

func TestBulkExecutorRejectsBelowMinSuccessRate(t *testing.T) {
	m := New(WithRetryPolicy(&RetryPolicy{MaxAttempts: 1, RetryableErrors: DefaultRetryableErrors}))
	be := m.NewBulkExecutor(true, 0.9, 4)

	items := []interface{}{1, 2, 3, 4}
	_, err := be.Execute(items, func(item interface{}) error {
		if item == 2 || item == 3 {
			return errors.New("fails")
		}
		return nil
	})
	if err == nil {
		t.Fatal("expected an error when success rate falls below the configured minimum")
	}
}
