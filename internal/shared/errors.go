package shared

import (
	"errors"
	"fmt"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// API and transport errors
	ErrAPIRequest = fmt.Errorf("API request failed")
	ErrTransport  = fmt.Errorf("transport failure")
	ErrNotFound   = fmt.Errorf("not found")

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// APIError is returned when the remote service answers with a non-success status.
//
// Description carries the human-readable message from the response body when the service supplies one.
type APIError struct {
	Op          string
	StatusCode  int
	Description string
}

func (e *APIError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Description)
	}
	return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
}

// Is reports [ErrAPIRequest] so callers can match without unpacking.
func (e *APIError) Is(target error) bool {
	return target == ErrAPIRequest
}

// TransportError wraps a network-level failure reaching the remote host.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is reports [ErrTransport].
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// StatusCode extracts the HTTP status from an [APIError] anywhere in err's chain, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
