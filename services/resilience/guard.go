package resilience

import (
	"context"
	"time"

	"slotline/utils"

	"go.uber.org/zap"
)

// RetryConfig bounds the inner retry loop around each dependency call.
type RetryConfig struct {
	Attempts int
	Delay    time.Duration
}

// Guard wraps one external dependency with bounded retry inside a circuit
// breaker. Only the final retried outcome feeds breaker accounting, so
// transient blips are absorbed by the retry while sustained outages trip the
// breaker.
type Guard struct {
	breaker *CircuitBreaker
	retry   RetryConfig
	timeout time.Duration

	sleep func(time.Duration)
}

func NewGuard(breaker *CircuitBreaker, retry RetryConfig, timeout time.Duration) *Guard {
	return &Guard{
		breaker: breaker,
		retry:   retry,
		timeout: timeout,
		sleep:   time.Sleep,
	}
}

// Breaker exposes the underlying breaker for state inspection.
func (g *Guard) Breaker() *CircuitBreaker {
	return g.breaker
}

// Call runs fn through the breaker and retry loop. Each attempt gets its own
// timeout; a timed-out attempt counts as a failure like any other.
func (g *Guard) Call(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := g.breaker.Allow(); err != nil {
		return err
	}

	logger := utils.GetLogger()

	var err error
	for attempt := 1; attempt <= g.retry.Attempts; attempt++ {
		err = g.callOnce(ctx, fn)
		if err == nil {
			g.breaker.RecordSuccess()
			return nil
		}
		logger.Warn("external call attempt failed",
			zap.String("dependency", g.breaker.Name()),
			zap.Int("attempt", attempt),
			zap.Error(err))
		if attempt < g.retry.Attempts {
			g.sleep(g.retry.Delay)
		}
	}

	g.breaker.RecordFailure()
	return err
}

func (g *Guard) callOnce(ctx context.Context, fn func(ctx context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return fn(callCtx)
}
