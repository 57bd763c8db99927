package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
)

// Business rule error codes
const (
	// ErrCodeBusinessRule is used for generic business rule violations
	ErrCodeBusinessRule = "ERR_BUSINESS_RULE"
	// ErrCodeUnmappedProducts is used when an order references codes
	// absent from the price book
	ErrCodeUnmappedProducts = "ERR_UNMAPPED_PRODUCTS"
)

// Request throttling error codes
const (
	// ErrCodeRequestTooLarge is used when the request body exceeds the limit
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
	// ErrCodeTooManyRequests is used when a client exceeds its rate limit
	ErrCodeTooManyRequests = "ERR_TOO_MANY_REQUESTS"
)

// Upstream integration error codes
const (
	// ErrCodeUpstreamUnavailable is used when the ERP cannot be reached
	ErrCodeUpstreamUnavailable = "ERR_UPSTREAM_UNAVAILABLE"
	// ErrCodeUpstreamLocked is used while the lockout guard is engaged
	ErrCodeUpstreamLocked = "ERR_UPSTREAM_LOCKED"
	// ErrCodeRateLimited is used when the ERP is throttling us
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:  http.StatusBadRequest,
	ErrCodeInvalidJSON: http.StatusBadRequest,

	ErrCodeNotFound: http.StatusNotFound,
	ErrCodeConflict: http.StatusConflict,

	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeTooManyRequests: http.StatusTooManyRequests,

	ErrCodeBusinessRule:     http.StatusUnprocessableEntity,
	ErrCodeUnmappedProducts: http.StatusUnprocessableEntity,

	ErrCodeUpstreamUnavailable: http.StatusServiceUnavailable,
	ErrCodeUpstreamLocked:      http.StatusServiceUnavailable,
	ErrCodeRateLimited:         http.StatusServiceUnavailable,
}

// HTTPStatusForCode returns the HTTP status for an error code,
// defaulting to 500
func HTTPStatusForCode(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
