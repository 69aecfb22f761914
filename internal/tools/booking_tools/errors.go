package booking_tools

import (
	"errors"
	"fmt"

	"github.com/calbot/calbot/internal/calcom"
)

// createFailureText converts a create error into the user-facing phrase
// the assistant relays. The busy-slot wording matters: the system prompt
// teaches the model that it means the calendar owner is busy, not the
// attendee.
func createFailureText(err error) string {
	switch {
	case errors.Is(err, calcom.ErrConflict):
		return "❌ Booking failed: You are not available at this time slot. Please choose a different time when you're free."
	case errors.Is(err, calcom.ErrAuth):
		return "❌ Booking failed: Invalid API key or unauthorized access"
	case errors.Is(err, calcom.ErrNotFound):
		return "❌ Booking failed: Event type not found. Check your CAL_EVENT_TYPE_ID"
	case errors.Is(err, calcom.ErrUnavailable):
		return "❌ Booking failed: Network error - " + errorDetail(err)
	default:
		return "❌ Booking failed: " + errorDetail(err)
	}
}

// cancelFailureText converts a cancel error into the user-facing phrase
// the assistant relays.
func cancelFailureText(id int, err error) string {
	switch {
	case errors.Is(err, calcom.ErrNotFound):
		return fmt.Sprintf("❌ Cancellation failed: Booking %d not found", id)
	case errors.Is(err, calcom.ErrAlreadyCancelled):
		return fmt.Sprintf("❌ Cancellation failed: Booking %d is already cancelled", id)
	case errors.Is(err, calcom.ErrAuth):
		return "❌ Cancellation failed: Invalid API key or unauthorized access"
	case errors.Is(err, calcom.ErrUnavailable):
		return "❌ Cancellation failed: Network error - " + errorDetail(err)
	default:
		return "❌ Cancellation failed: " + errorDetail(err)
	}
}

// listFailureText converts a list error into readable result text.
func listFailureText(err error) string {
	switch {
	case errors.Is(err, calcom.ErrAuth):
		return "Failed to retrieve events: Invalid API key or unauthorized access"
	case errors.Is(err, calcom.ErrUnavailable):
		return "Failed to retrieve events: Network error - " + errorDetail(err)
	default:
		return "Failed to retrieve events: " + errorDetail(err)
	}
}

// errorDetail prefers the remote-provided message over the full wrapped
// error chain.
func errorDetail(err error) string {
	var apiErr *calcom.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
