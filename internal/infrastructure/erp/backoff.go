package erp

import (
	"math/rand/v2"
	"sync"
	"time"
)

// jitterFraction spreads retry delays by ±30% to avoid thundering-herd
// retries against the remote.
const jitterFraction = 0.3

// BackoffTracker holds per-endpoint exponential retry delays. A failure
// doubles the stored delay (capped); a success clears it. The delay
// penalizes the NEXT attempt against that endpoint - the gateway awaits
// it before issuing the call, not after the failure.
type BackoffTracker struct {
	mu     sync.Mutex
	base   time.Duration
	max    time.Duration
	delays map[string]time.Duration
}

// NewBackoffTracker creates a tracker with the given base and cap
func NewBackoffTracker(base, max time.Duration) *BackoffTracker {
	return &BackoffTracker{
		base:   base,
		max:    max,
		delays: make(map[string]time.Duration),
	}
}

// Delay returns the jittered delay to wait before the next call to the
// endpoint, or zero when the endpoint has no recorded failures.
func (t *BackoffTracker) Delay(endpoint string) time.Duration {
	t.mu.Lock()
	d, ok := t.delays[endpoint]
	t.mu.Unlock()
	if !ok || d <= 0 {
		return 0
	}
	return jitter(d)
}

// RecordFailure doubles the stored delay for the endpoint, capped at max
func (t *BackoffTracker) RecordFailure(endpoint string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	d, ok := t.delays[endpoint]
	if !ok {
		t.delays[endpoint] = t.base
		return
	}
	d *= 2
	if d > t.max {
		d = t.max
	}
	t.delays[endpoint] = d
}

// RecordSuccess clears the endpoint back to the base delay
func (t *BackoffTracker) RecordSuccess(endpoint string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.delays, endpoint)
}

// SetDelay overrides the stored delay for an endpoint. Used for the
// stricter fixed login throttle instead of the doubled delay.
func (t *BackoffTracker) SetDelay(endpoint string, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if d > t.max {
		d = t.max
	}
	t.delays[endpoint] = d
}

// Snapshot returns a copy of the current delay table for diagnostics
func (t *BackoffTracker) Snapshot() map[string]time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]time.Duration, len(t.delays))
	for k, v := range t.delays {
		out[k] = v
	}
	return out
}

// jitter spreads a delay uniformly within ±jitterFraction
func jitter(d time.Duration) time.Duration {
	spread := 1 + jitterFraction*(2*rand.Float64()-1)
	return time.Duration(float64(d) * spread)
}
