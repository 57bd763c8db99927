package erp

import (
	"fmt"
	"sync"
	"time"

	domain "github.com/storefront/backend/internal/domain/erp"
)

// LockoutGuard is the long-horizon self-protection mechanism. The remote
// system imposes a hard account lockout after repeated its-fault errors
// within an hour; the guard trips first, locally, so that threshold is
// never reached. Only network and critical failures count - auth,
// validation, and rate-limit failures are expected and recoverable.
type LockoutGuard struct {
	mu sync.Mutex

	maxErrors    int
	window       time.Duration
	lockDuration time.Duration

	consecutive uint
	windowStart time.Time
	locked      bool
	releaseAt   time.Time
}

// NewLockoutGuard creates an unlocked guard. maxErrors must be set well
// below the remote's own lockout threshold.
func NewLockoutGuard(maxErrors int, window, lockDuration time.Duration) *LockoutGuard {
	return &LockoutGuard{
		maxErrors:    maxErrors,
		window:       window,
		lockDuration: lockDuration,
	}
}

// Check reports whether calls may proceed. A lock past its release time
// self-clears here, lazily, on the next call attempt.
func (g *LockoutGuard) Check() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.locked {
		return nil
	}

	now := time.Now()
	if now.Before(g.releaseAt) {
		wait := g.releaseAt.Sub(now)
		return fmt.Errorf("%w: retry in %.0f minutes", domain.ErrLockedOut, wait.Minutes())
	}

	g.locked = false
	g.consecutive = 0
	g.windowStart = time.Time{}
	return nil
}

// RecordFailure counts a classified failure toward the lockout. Failures
// whose category does not count (auth, validation, rate_limit) are
// ignored regardless of how many occur.
func (g *LockoutGuard) RecordFailure(category domain.Category) {
	if !category.CountsTowardLockout() {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	if g.windowStart.IsZero() || now.Sub(g.windowStart) > g.window {
		g.windowStart = now
		g.consecutive = 0
	}

	g.consecutive++
	if g.consecutive >= uint(g.maxErrors) {
		g.locked = true
		g.releaseAt = now.Add(g.lockDuration)
	}
}

// RecordSuccess resets the consecutive-failure counter
func (g *LockoutGuard) RecordSuccess() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.consecutive = 0
	g.windowStart = time.Time{}
}

// LockoutSnapshot is a point-in-time view of the guard for diagnostics
type LockoutSnapshot struct {
	Locked            bool      `json:"locked"`
	ConsecutiveErrors uint      `json:"consecutive_errors"`
	WindowStart       time.Time `json:"window_start"`
	ReleaseAt         time.Time `json:"release_at"`
}

// Snapshot returns the current guard state for diagnostics
func (g *LockoutGuard) Snapshot() LockoutSnapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	return LockoutSnapshot{
		Locked:            g.locked,
		ConsecutiveErrors: g.consecutive,
		WindowStart:       g.windowStart,
		ReleaseAt:         g.releaseAt,
	}
}
