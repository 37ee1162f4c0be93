package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testBreaker(clock *time.Time) *CircuitBreaker {
	cb := NewCircuitBreaker("calendar", BreakerConfig{
		FailureThreshold: 3,
		ResetTimeout:     time.Minute,
		MonitoringPeriod: 2 * time.Minute,
	})
	cb.now = func() time.Time { return *clock }
	return cb
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	clock := time.Date(2024, 12, 10, 9, 0, 0, 0, time.UTC)
	cb := testBreaker(&clock)

	for i := 0; i < 3; i++ {
		if err := cb.Allow(); err != nil {
			t.Fatalf("call %d rejected while closed: %v", i, err)
		}
		cb.RecordFailure()
	}

	if got := cb.State(); got != StateOpen {
		t.Fatalf("expected OPEN after threshold, got %s", got)
	}
	if err := cb.Allow(); !errors.Is(err, ErrBreakerOpen) {
		t.Fatalf("expected ErrBreakerOpen, got %v", err)
	}
}

func TestBreakerFailuresOutsideMonitoringPeriodDoNotTrip(t *testing.T) {
	clock := time.Date(2024, 12, 10, 9, 0, 0, 0, time.UTC)
	cb := testBreaker(&clock)

	cb.RecordFailure()
	cb.RecordFailure()

	// Third failure lands outside the monitoring period and restarts the count.
	clock = clock.Add(3 * time.Minute)
	cb.RecordFailure()

	if got := cb.State(); got != StateClosed {
		t.Fatalf("expected CLOSED, got %s", got)
	}
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	clock := time.Date(2024, 12, 10, 9, 0, 0, 0, time.UTC)
	cb := testBreaker(&clock)

	for i := 0; i < 3; i++ {
		cb.RecordFailure()
	}

	clock = clock.Add(61 * time.Second)
	if got := cb.State(); got != StateHalfOpen {
		t.Fatalf("expected HALF_OPEN after reset timeout, got %s", got)
	}

	// Exactly one trial call is allowed.
	if err := cb.Allow(); err != nil {
		t.Fatalf("probe call rejected: %v", err)
	}
	if err := cb.Allow(); !errors.Is(err, ErrBreakerOpen) {
		t.Fatalf("second concurrent probe should be rejected, got %v", err)
	}

	// Probe failure reopens immediately.
	cb.RecordFailure()
	if got := cb.State(); got != StateOpen {
		t.Fatalf("expected OPEN after failed probe, got %s", got)
	}

	// After another timeout, a successful probe closes and resets the count.
	clock = clock.Add(61 * time.Second)
	if err := cb.Allow(); err != nil {
		t.Fatalf("probe call rejected: %v", err)
	}
	cb.RecordSuccess()
	if got := cb.State(); got != StateClosed {
		t.Fatalf("expected CLOSED after successful probe, got %s", got)
	}
}

func TestGuardRetriesBeforeBreakerAccounting(t *testing.T) {
	clock := time.Date(2024, 12, 10, 9, 0, 0, 0, time.UTC)
	cb := testBreaker(&clock)

	g := NewGuard(cb, RetryConfig{Attempts: 3, Delay: time.Millisecond}, time.Second)
	g.sleep = func(time.Duration) {}

	calls := 0
	err := g.Call(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected retried call to succeed, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	// Transient blips absorbed by retry never reach the breaker.
	if got := cb.State(); got != StateClosed {
		t.Fatalf("expected CLOSED, got %s", got)
	}
}

func TestGuardRecordsOnlyFinalOutcome(t *testing.T) {
	clock := time.Date(2024, 12, 10, 9, 0, 0, 0, time.UTC)
	cb := testBreaker(&clock)

	g := NewGuard(cb, RetryConfig{Attempts: 2, Delay: time.Millisecond}, time.Second)
	g.sleep = func(time.Duration) {}

	boom := errors.New("down")
	for i := 0; i < 3; i++ {
		if err := g.Call(context.Background(), func(ctx context.Context) error {
			return boom
		}); !errors.Is(err, boom) {
			t.Fatalf("expected final attempt error, got %v", err)
		}
	}

	// Three exhausted calls = three breaker failures = open.
	if got := cb.State(); got != StateOpen {
		t.Fatalf("expected OPEN, got %s", got)
	}

	// Open breaker rejects without invoking the dependency.
	invoked := false
	err := g.Call(context.Background(), func(ctx context.Context) error {
		invoked = true
		return nil
	})
	if !errors.Is(err, ErrBreakerOpen) {
		t.Fatalf("expected ErrBreakerOpen, got %v", err)
	}
	if invoked {
		t.Fatalf("dependency was invoked while breaker open")
	}
}
