// Package resilience wraps evidence-source reads (S3, Azure, GCS) in a
// circuit breaker plus retry policy so a remote backend's transient
// hiccups don't abort a scan, while a backend that is genuinely down
// stops being hammered with doomed read attempts.
package resilience

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// State is one of a circuit breaker's three states.
type State int32

const (
	// StateClosed lets reads through normally.
	StateClosed State = iota
	// StateOpen rejects every read without touching the backend.
	StateOpen
	// StateHalfOpen lets a bounded number of probe reads through to test
	// whether the backend has recovered.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker guards one evidence backend (an S3 bucket, an Azure
// container, a GCS object) against cascading read failures: once enough
// consecutive reads fail, the breaker opens and rejects further reads
// without touching the backend until resetTimeout has passed.
type CircuitBreaker struct {
	lastFailureTime     time.Time
	lastOpenedAt        time.Time
	onStateChange       func(from, to State)
	name                string
	resetTimeout        time.Duration
	totalSuccesses      int64
	totalFailures       int64
	totalCalls          int64
	mu                  sync.RWMutex
	halfOpenMaxCalls    int32
	halfOpenCalls       int32
	successes           int32
	failures            int32
	state               int32
	consecutiveFailures int32
	maxFailures         int32
}

// CircuitBreakerConfig configures a CircuitBreaker.
type CircuitBreakerConfig struct {
	OnStateChange    func(from, to State)
	Name             string
	ResetTimeout     time.Duration
	MaxFailures      int32
	HalfOpenMaxCalls int32
}

// NewCircuitBreaker builds a breaker, applying sensible defaults for any
// zero-valued field.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 60 * time.Second
	}
	if config.HalfOpenMaxCalls <= 0 {
		config.HalfOpenMaxCalls = 1
	}

	return &CircuitBreaker{
		name:             config.Name,
		maxFailures:      config.MaxFailures,
		resetTimeout:     config.ResetTimeout,
		halfOpenMaxCalls: config.HalfOpenMaxCalls,
		onStateChange:    config.OnStateChange,
		state:            int32(StateClosed),
	}
}

// Execute runs a read through the breaker, recording its outcome.
func (cb *CircuitBreaker) Execute(read func() error) error {
	if !cb.canExecute() {
		return fmt.Errorf("circuit breaker %q is open, evidence backend unavailable", cb.name)
	}

	atomic.AddInt64(&cb.totalCalls, 1)

	err := read()

	if err != nil {
		cb.recordFailure()
	} else {
		cb.recordSuccess()
	}

	return err
}

// canExecute reports whether a read may proceed in the breaker's current
// state, transitioning Open to HalfOpen once resetTimeout has elapsed.
func (cb *CircuitBreaker) canExecute() bool {
	state := State(atomic.LoadInt32(&cb.state))

	switch state {
	case StateClosed:
		return true

	case StateOpen:
		cb.mu.RLock()
		shouldProbe := time.Since(cb.lastFailureTime) > cb.resetTimeout
		cb.mu.RUnlock()

		if shouldProbe {
			cb.transitionTo(StateHalfOpen)
			return true
		}
		return false

	case StateHalfOpen:
		calls := atomic.AddInt32(&cb.halfOpenCalls, 1)
		return calls <= cb.halfOpenMaxCalls

	default:
		return false
	}
}

func (cb *CircuitBreaker) recordFailure() {
	atomic.AddInt64(&cb.totalFailures, 1)
	failures := atomic.AddInt32(&cb.failures, 1)
	atomic.AddInt32(&cb.consecutiveFailures, 1)

	cb.mu.Lock()
	cb.lastFailureTime = time.Now()
	cb.mu.Unlock()

	state := State(atomic.LoadInt32(&cb.state))

	switch state {
	case StateClosed:
		if failures >= cb.maxFailures {
			cb.transitionTo(StateOpen)
		}

	case StateHalfOpen:
		// A failed probe read means the backend has not recovered.
		cb.transitionTo(StateOpen)
	}
}

func (cb *CircuitBreaker) recordSuccess() {
	atomic.AddInt64(&cb.totalSuccesses, 1)
	atomic.StoreInt32(&cb.consecutiveFailures, 0)

	state := State(atomic.LoadInt32(&cb.state))

	switch state {
	case StateHalfOpen:
		successes := atomic.AddInt32(&cb.successes, 1)
		if successes >= cb.halfOpenMaxCalls {
			cb.transitionTo(StateClosed)
		}

	case StateClosed:
		atomic.StoreInt32(&cb.failures, 0)
	}
}

func (cb *CircuitBreaker) transitionTo(newState State) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	oldState := State(atomic.LoadInt32(&cb.state))
	if oldState == newState {
		return
	}

	atomic.StoreInt32(&cb.state, int32(newState))

	switch newState {
	case StateClosed:
		atomic.StoreInt32(&cb.failures, 0)
		atomic.StoreInt32(&cb.successes, 0)
		atomic.StoreInt32(&cb.halfOpenCalls, 0)

	case StateOpen:
		cb.lastOpenedAt = time.Now()
		atomic.StoreInt32(&cb.successes, 0)
		atomic.StoreInt32(&cb.halfOpenCalls, 0)

	case StateHalfOpen:
		atomic.StoreInt32(&cb.failures, 0)
		atomic.StoreInt32(&cb.successes, 0)
		atomic.StoreInt32(&cb.halfOpenCalls, 0)
	}

	if cb.onStateChange != nil {
		cb.onStateChange(oldState, newState)
	}
}

// GetState returns the breaker's current state.
func (cb *CircuitBreaker) GetState() State {
	return State(atomic.LoadInt32(&cb.state))
}

// GetStats returns a snapshot of the breaker's read counters.
func (cb *CircuitBreaker) GetStats() CircuitBreakerStats {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	return CircuitBreakerStats{
		Name:                cb.name,
		State:               State(atomic.LoadInt32(&cb.state)),
		TotalCalls:          atomic.LoadInt64(&cb.totalCalls),
		TotalFailures:       atomic.LoadInt64(&cb.totalFailures),
		TotalSuccesses:      atomic.LoadInt64(&cb.totalSuccesses),
		ConsecutiveFailures: atomic.LoadInt32(&cb.consecutiveFailures),
		LastFailureTime:     cb.lastFailureTime,
		LastOpenedAt:        cb.lastOpenedAt,
	}
}

// Reset forces the breaker back to Closed with its counters zeroed, used
// when an operator confirms a backend has recovered without waiting out
// resetTimeout.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	atomic.StoreInt32(&cb.state, int32(StateClosed))
	atomic.StoreInt32(&cb.failures, 0)
	atomic.StoreInt32(&cb.successes, 0)
	atomic.StoreInt32(&cb.halfOpenCalls, 0)
	atomic.StoreInt32(&cb.consecutiveFailures, 0)
}

// CircuitBreakerStats is a point-in-time snapshot of one breaker's counters.
type CircuitBreakerStats struct {
	LastFailureTime     time.Time
	LastOpenedAt        time.Time
	Name                string
	TotalCalls          int64
	TotalFailures       int64
	TotalSuccesses      int64
	State               State
	ConsecutiveFailures int32
}

// SuccessRate returns TotalSuccesses/TotalCalls, or 0 with no calls yet.
func (s *CircuitBreakerStats) SuccessRate() float64 {
	if s.TotalCalls == 0 {
		return 0
	}
	return float64(s.TotalSuccesses) / float64(s.TotalCalls)
}
