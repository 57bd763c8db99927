package erp

import "net/http"

// Category classifies a remote failure. It is the single source of truth
// for which failures may retry, which invalidate a session, and which
// count toward the lockout guard.
type Category string

const (
	// CategoryNetwork indicates the remote could not be reached (no HTTP status)
	CategoryNetwork Category = "network"
	// CategoryAuth indicates the session or credentials were rejected
	CategoryAuth Category = "auth"
	// CategoryValidation indicates the request itself was malformed
	CategoryValidation Category = "validation"
	// CategoryRateLimit indicates the remote is throttling the integration
	CategoryRateLimit Category = "rate_limit"
	// CategoryCritical indicates a remote-side server failure
	CategoryCritical Category = "critical"
)

// String returns the string representation of Category
func (c Category) String() string {
	return string(c)
}

// CountsTowardLockout returns true if failures of this category increment
// the lockout guard. Auth, validation, and rate-limit failures are
// expected and recoverable; counting them would cause false lockouts.
func (c Category) CountsTowardLockout() bool {
	return c == CategoryNetwork || c == CategoryCritical
}

// Classify maps an HTTP status and/or transport error to a failure
// category. A transport error with no status (connection refused,
// timeout) is a network failure. Pure function, no side effects.
func Classify(status int, transportErr error) Category {
	if status == 0 {
		if transportErr != nil {
			return CategoryNetwork
		}
		return CategoryCritical
	}

	switch {
	case status == http.StatusPreconditionFailed, status == http.StatusTooManyRequests:
		return CategoryRateLimit
	case status >= 300 && status < 400:
		// The remote signals precondition/throttle failures on some
		// endpoints with a redirect to its error page.
		return CategoryRateLimit
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return CategoryAuth
	case status == http.StatusBadRequest:
		return CategoryValidation
	case status >= 500:
		return CategoryCritical
	default:
		return CategoryCritical
	}
}
