package client

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrRetriesExhausted is returned when all retry attempts are exhausted.
	ErrRetriesExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during
	// a backoff wait.
	ErrContextCancelled = errors.New("context cancelled")
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors (excluding 429).
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 rate limit responses.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassTransport represents network/timeout errors.
	ErrorClassTransport ErrorClass = "transport"

	// ErrorClassValidation represents a malformed request descriptor,
	// a programming error in the calling layer.
	ErrorClassValidation ErrorClass = "validation"
)

// APIError represents a classified Notion API failure.
// Message and Code carry the upstream error body verbatim when available.
type APIError struct {
	StatusCode int
	Class      ErrorClass
	Code       string
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("notion %s error: %v", e.Class, e.Err)
	case e.Code != "":
		return fmt.Sprintf("notion %s error (status %d, code %s): %s",
			e.Class, e.StatusCode, e.Code, e.Message)
	default:
		return fmt.Sprintf("notion %s error (status %d): %s",
			e.Class, e.StatusCode, e.Message)
	}
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Retryable reports whether re-attempting the same request may succeed.
func (e *APIError) Retryable() bool {
	return shouldRetry(e.Class)
}

// ValidationError indicates a malformed request descriptor. It is never
// retried and signals a bug in the calling layer, not an upstream fault.
type ValidationError struct {
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s", e.Reason)
}

// Classify returns the error class of err, or "" for nil/unclassified errors.
func Classify(err error) ErrorClass {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Class
	}
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return ErrorClassValidation
	}
	return ""
}

// shouldRetry determines if an error class should be retried.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassRateLimit:
		// Upstream throttling, retry after the advertised delay
		return true
	case ErrorClassServer:
		// Transient upstream fault
		return true
	case ErrorClassTransport:
		// Local/network fault
		return true
	case ErrorClassClient, ErrorClassValidation:
		// Caller must fix input or permissions
		return false
	default:
		return false
	}
}
