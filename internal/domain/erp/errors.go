package erp

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Gateway Errors
// ---------------------------------------------------------------------------

var (
	// Protective state errors
	ErrLockedOut   = errors.New("erp: integration locked out to protect remote account")
	ErrCircuitOpen = errors.New("erp: circuit open, remote temporarily unavailable")

	// Remote call errors
	ErrUnavailable     = errors.New("erp: remote system unavailable")
	ErrRequestFailed   = errors.New("erp: remote request failed")
	ErrInvalidResponse = errors.New("erp: invalid remote response")
	ErrAuthFailed      = errors.New("erp: remote authentication failed")
	ErrSessionExpired  = errors.New("erp: remote session expired")
	ErrRateLimited     = errors.New("erp: remote rate limited")

	// Order submission errors
	ErrUnmappedProducts        = errors.New("erp: order contains unmapped products")
	ErrPartialRemoteValidation = errors.New("erp: remote rejected specific order lines")

	// Mapping source errors
	ErrMappingSourceUnavailable = errors.New("erp: product mapping source unavailable")
	ErrMappingNotLoaded         = errors.New("erp: product mapping not loaded")
)

// ---------------------------------------------------------------------------
// RemoteError
// ---------------------------------------------------------------------------

// RemoteError is a classified failure from the remote ERP system.
// Status is the HTTP status code, or 0 when the transport itself failed.
type RemoteError struct {
	Category Category
	Status   int
	Message  string
	Err      error
}

// Error returns the error message
func (e *RemoteError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("erp: %s (HTTP %d): %s", e.Category, e.Status, e.Message)
	}
	return fmt.Sprintf("erp: %s: %s", e.Category, e.Message)
}

// Unwrap returns the underlying error
func (e *RemoteError) Unwrap() error {
	return e.Err
}

// NewRemoteError creates a classified remote error from an HTTP status
func NewRemoteError(status int, message string, err error) *RemoteError {
	return &RemoteError{
		Category: Classify(status, err),
		Status:   status,
		Message:  message,
		Err:      err,
	}
}

// CategoryOf extracts the failure category from an error chain.
// Errors without a RemoteError in the chain are treated as network
// failures (the caller could not reach a classifiable response).
func CategoryOf(err error) Category {
	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		return remoteErr.Category
	}
	return CategoryNetwork
}
