package calcom

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors classifying every failure mode of the booking API surface.
// Call sites attach operation detail via APIError; callers match the class
// with errors.Is.
var (
	// ErrValidation indicates malformed input rejected before or by the API.
	ErrValidation = errors.New("validation failed")

	// ErrAuth indicates a bad or revoked API key.
	ErrAuth = errors.New("authentication rejected")

	// ErrConflict indicates the requested slot is not available.
	ErrConflict = errors.New("scheduling conflict")

	// ErrNotFound indicates the referenced booking or event type does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyCancelled indicates a cancel of a booking that was already cancelled.
	ErrAlreadyCancelled = errors.New("booking already cancelled")

	// ErrUnavailable indicates a network failure or a 5xx/429 from the API.
	ErrUnavailable = errors.New("calendar service unavailable")

	// ErrBadResponse indicates a response body or status that could not be interpreted.
	ErrBadResponse = errors.New("unexpected calendar response")
)

// APIError represents a failed Cal.com operation.
type APIError struct {
	// Op is the operation that failed ("list", "create", "cancel", "initialize")
	Op string

	// StatusCode is the HTTP status when the remote produced one
	StatusCode int

	// Message carries the remote-provided or local detail
	Message string

	// Err is the sentinel classifying the failure
	Err error
}

// Error implements the error interface
func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "calcom %s", e.Op)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	return b.String()
}

// Unwrap implements the errors.Unwrap interface
func (e *APIError) Unwrap() error {
	return e.Err
}

// newValidationError builds a local validation failure for op.
func newValidationError(op, msg string) *APIError {
	return &APIError{Op: op, Message: msg, Err: ErrValidation}
}

// classifyStatus maps a response status to the error taxonomy.
// Returns nil for 2xx.
func classifyStatus(op string, status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}

	msg := remoteMessage(body)
	apiErr := &APIError{Op: op, StatusCode: status, Message: msg}

	switch {
	case status == http.StatusBadRequest:
		lower := strings.ToLower(msg)
		switch {
		case strings.Contains(lower, "no_available_users_found_error"):
			// Cal.com reports a busy slot for the calendar owner this way
			apiErr.Err = ErrConflict
		case strings.Contains(lower, "already cancelled"), strings.Contains(lower, "already canceled"):
			apiErr.Err = ErrAlreadyCancelled
		default:
			apiErr.Err = ErrValidation
		}
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		apiErr.Err = ErrAuth
	case status == http.StatusNotFound:
		apiErr.Err = ErrNotFound
	case status == http.StatusConflict:
		apiErr.Err = ErrConflict
	case status == http.StatusTooManyRequests, status >= 500:
		apiErr.Err = ErrUnavailable
	default:
		apiErr.Err = ErrBadResponse
	}

	return apiErr
}

// remoteMessage extracts the "message" field Cal.com error bodies carry,
// falling back to a bounded slice of the raw body.
func remoteMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}

	trimmed := strings.TrimSpace(string(body))
	if len(trimmed) > 200 {
		trimmed = trimmed[:200]
	}
	return trimmed
}
