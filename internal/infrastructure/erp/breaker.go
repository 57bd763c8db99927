package erp

import (
	"fmt"
	"sync"
	"time"

	domain "github.com/storefront/backend/internal/domain/erp"
)

// CircuitState represents the state of the circuit breaker
type CircuitState int

const (
	// CircuitClosed allows calls through normally
	CircuitClosed CircuitState = iota
	// CircuitOpen rejects calls immediately until the timeout elapses
	CircuitOpen
	// CircuitHalfOpen admits exactly one trial call
	CircuitHalfOpen
)

// String returns the human-readable name for the circuit state
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker is the short-horizon fast-fail state machine over
// consecutive failures. It is endpoint-agnostic: one breaker guards the
// whole remote system, protecting local resources from hammering a
// clearly-unavailable remote. The long-horizon concern belongs to the
// LockoutGuard.
type CircuitBreaker struct {
	mu sync.Mutex

	threshold int
	timeout   time.Duration

	state         CircuitState
	failureCount  int
	lastFailureAt time.Time
	trialInFlight bool
}

// NewCircuitBreaker creates a closed breaker with the given threshold
// and open-state timeout
func NewCircuitBreaker(threshold int, timeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		threshold: threshold,
		timeout:   timeout,
		state:     CircuitClosed,
	}
}

// Allow reports whether a call may proceed. In the open state it fails
// fast with the remaining wait; once the timeout has elapsed it
// transitions to half-open and admits exactly one trial call.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := time.Now()

	switch cb.state {
	case CircuitClosed:
		return nil

	case CircuitOpen:
		elapsed := now.Sub(cb.lastFailureAt)
		if elapsed < cb.timeout {
			wait := cb.timeout - elapsed
			return fmt.Errorf("%w: retry in %.0f seconds", domain.ErrCircuitOpen, wait.Seconds())
		}
		cb.state = CircuitHalfOpen
		cb.trialInFlight = true
		return nil

	case CircuitHalfOpen:
		if cb.trialInFlight {
			return fmt.Errorf("%w: trial call in flight", domain.ErrCircuitOpen)
		}
		cb.trialInFlight = true
		return nil

	default:
		return fmt.Errorf("%w: unknown state", domain.ErrCircuitOpen)
	}
}

// CancelTrial releases the half-open trial slot without recording an
// outcome. Called when an admitted call aborts before reaching the
// remote (context cancelled during the backoff wait, for instance); the
// slot must be returned or every later call would be rejected as
// "trial call in flight" until the process restarts.
func (cb *CircuitBreaker) CancelTrial() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitHalfOpen {
		cb.trialInFlight = false
	}
}

// RecordSuccess closes the circuit and clears the failure count
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = CircuitClosed
	cb.failureCount = 0
	cb.trialInFlight = false
}

// RecordFailure counts a consecutive failure; at the threshold, or on a
// failed half-open trial, the circuit opens.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount++
	cb.lastFailureAt = time.Now()
	cb.trialInFlight = false

	if cb.state == CircuitHalfOpen || cb.failureCount >= cb.threshold {
		cb.state = CircuitOpen
	}
}

// State returns the current circuit state
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// BreakerSnapshot is a point-in-time view of the breaker for diagnostics
type BreakerSnapshot struct {
	State         string    `json:"state"`
	FailureCount  int       `json:"failure_count"`
	LastFailureAt time.Time `json:"last_failure_at"`
}

// Snapshot returns the current breaker state for diagnostics
func (cb *CircuitBreaker) Snapshot() BreakerSnapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return BreakerSnapshot{
		State:         cb.state.String(),
		FailureCount:  cb.failureCount,
		LastFailureAt: cb.lastFailureAt,
	}
}
