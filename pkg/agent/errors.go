package agent

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrNoURL is returned when the endpoint URL is missing.
	ErrNoURL = errors.New("agent: endpoint URL required")

	// ErrEmptySubmission is returned when there are no messages to send.
	ErrEmptySubmission = errors.New("agent: no messages to submit")
)

// APIError represents an error response from the agent endpoint.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Message is the error message from the endpoint, if it sent one.
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("agent: API error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("agent: API error %d", e.StatusCode)
}

// IsRateLimited returns true if the endpoint rate-limited us (HTTP 429).
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == 429
}

// IsQuotaExceeded returns true on payment/quota failures (HTTP 402).
func (e *APIError) IsQuotaExceeded() bool {
	return e.StatusCode == 402
}

// IsServerError returns true if this is a server-side error (HTTP 5xx).
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}
