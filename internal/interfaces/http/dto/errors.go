package dto

import "net/http"

// Error codes surfaced by the API. Domain error codes pass through unchanged;
// this table decides the HTTP status they map to.
const (
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "INTERNAL_ERROR"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "BAD_REQUEST"
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "NOT_FOUND"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "CONFLICT"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:   http.StatusInternalServerError,
	ErrCodeBadRequest: http.StatusBadRequest,
	ErrCodeNotFound:   http.StatusNotFound,
	ErrCodeConflict:   http.StatusConflict,

	// Uniqueness and concurrency conflicts
	"DUPLICATE_REFERENCE":  http.StatusConflict,
	"ALREADY_EXISTS":       http.StatusConflict,
	"CONCURRENCY_CONFLICT": http.StatusConflict,

	// Lookups
	"PAYMENT_NOT_FOUND": http.StatusNotFound,

	// Business rule violations: the request was well-formed but cannot be
	// applied to the current state
	"PAYMENT_ALREADY_REVERSED":        http.StatusUnprocessableEntity,
	"INVALID_ALLOCATION_TARGET":       http.StatusUnprocessableEntity,
	"INSUFFICIENT_ALLOCATION_TARGETS": http.StatusUnprocessableEntity,
	"INSUFFICIENT_CREDIT":             http.StatusUnprocessableEntity,
	"INVOICE_NOT_FOUND":               http.StatusUnprocessableEntity,
	"INVALID_STATE":                   http.StatusUnprocessableEntity,

	// Input validation
	"INVALID_INPUT":          http.StatusBadRequest,
	"INVALID_AMOUNT":         http.StatusBadRequest,
	"INVALID_REFERENCE_KEY":  http.StatusBadRequest,
	"INVALID_FUNDING_SOURCE": http.StatusBadRequest,
	"INVALID_CUSTOMER":       http.StatusBadRequest,
	"INVALID_INVOICE_NUMBER": http.StatusBadRequest,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Returns 500 Internal Server Error if the error code is not found.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
