package resilience

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Breaker states.
const (
	StateClosed   = "CLOSED"
	StateOpen     = "OPEN"
	StateHalfOpen = "HALF_OPEN"
)

// ErrBreakerOpen is returned when a call is rejected without reaching the
// dependency.
var ErrBreakerOpen = errors.New("circuit breaker is open")

// BreakerConfig tunes a single dependency's circuit breaker.
type BreakerConfig struct {
	FailureThreshold int
	ResetTimeout     time.Duration
	MonitoringPeriod time.Duration
}

// CircuitBreaker guards one external dependency. It opens after
// FailureThreshold consecutive failures inside MonitoringPeriod, rejects
// calls for ResetTimeout, then allows exactly one half-open trial call.
type CircuitBreaker struct {
	name string
	cfg  BreakerConfig

	mu           sync.Mutex
	state        string
	failures     int
	firstFailure time.Time
	lastFailure  time.Time
	probing      bool

	now func() time.Time
}

func NewCircuitBreaker(name string, cfg BreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		name:  name,
		cfg:   cfg,
		state: StateClosed,
		now:   time.Now,
	}
}

// Name identifies the guarded dependency.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// State returns the current breaker state, applying the OPEN → HALF_OPEN
// transition if the reset timeout has elapsed.
func (cb *CircuitBreaker) State() string {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.refresh()
	return cb.state
}

// Allow reports whether a call may proceed. In HALF_OPEN only the first
// caller gets through; everyone else is rejected until the probe resolves.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.refresh()

	switch cb.state {
	case StateClosed:
		return nil
	case StateHalfOpen:
		if cb.probing {
			return fmt.Errorf("%s: %w", cb.name, ErrBreakerOpen)
		}
		cb.probing = true
		return nil
	default:
		return fmt.Errorf("%s: %w", cb.name, ErrBreakerOpen)
	}
}

// RecordSuccess feeds a successful final outcome into the breaker.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.failures = 0
	cb.probing = false
}

// RecordFailure feeds a failed final outcome into the breaker.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.now()

	if cb.state == StateHalfOpen {
		// Failed probe: straight back to OPEN.
		cb.state = StateOpen
		cb.lastFailure = now
		cb.probing = false
		return
	}

	// Consecutive failures only count inside the monitoring period.
	if cb.failures == 0 || now.Sub(cb.firstFailure) > cb.cfg.MonitoringPeriod {
		cb.failures = 0
		cb.firstFailure = now
	}
	cb.failures++
	cb.lastFailure = now

	if cb.failures >= cb.cfg.FailureThreshold {
		cb.state = StateOpen
	}
}

// refresh moves OPEN to HALF_OPEN once the reset timeout has elapsed.
// Caller must hold cb.mu.
func (cb *CircuitBreaker) refresh() {
	if cb.state == StateOpen && cb.now().Sub(cb.lastFailure) >= cb.cfg.ResetTimeout {
		cb.state = StateHalfOpen
		cb.probing = false
	}
}
