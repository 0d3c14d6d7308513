package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors
var (
	// ErrInvalidConfig indicates invalid client configuration
	ErrInvalidConfig = errors.New("invalid api configuration")
	// ErrEmptyEnvelope indicates a success envelope without the expected data
	ErrEmptyEnvelope = errors.New("response envelope carried no data")
)

// NetworkError represents a request that produced no usable response
// (connectivity, timeout or an unreadable body).
type NetworkError struct {
	Op  string
	URL string
	Err error
}

// Error implements the error interface
func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// APIError represents a non-2xx status or a success=false envelope
type APIError struct {
	StatusCode int
	// Message is the server supplied error text, verbatim when present,
	// otherwise a generic description of the status.
	Message string
	// ServerMessage is the error text the server sent, empty when it sent none.
	ServerMessage string
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Message)
}

// IsNotFound checks if the error indicates a not found response
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsUnauthorized checks if the error indicates an authentication failure
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// ValidationError represents malformed local input caught before any request is made
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsNetworkError reports whether err is, or wraps, a *NetworkError
func IsNetworkError(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// AsAPIError returns the *APIError wrapped by err, if any
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsValidationError reports whether err is, or wraps, a *ValidationError
func IsValidationError(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}
