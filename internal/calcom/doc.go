// Package calcom provides a client for the Cal.com v1 booking API.
//
// This package offers the three booking operations the assistant needs:
//   - Listing all bookings visible to the API key
//   - Creating a booking for the pre-configured event type
//   - Cancelling a booking by id with a reason
//
// Authentication uses a long-lived API key attached as a query parameter
// on every request, following the v1 API convention. There is no session
// or token refresh handling. Because the key rides in the URL, transport
// error strings are redacted before they leave this package.
//
// Error handling:
// Every failure is an *APIError wrapping one of the package sentinels
// (ErrValidation, ErrAuth, ErrConflict, ErrNotFound, ErrAlreadyCancelled,
// ErrUnavailable, ErrBadResponse), so callers classify with errors.Is.
// Input validation happens before any network I/O: a malformed start time
// or an attendee email without an @ never reaches the wire.
//
// Failures classified as ErrUnavailable (network errors, 5xx, 429) are
// retried with exponential backoff, three attempts by default. All other
// failures are permanent.
//
// Example usage:
//
//	client, err := calcom.NewClient(apiKey, eventTypeID)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	booking, err := client.CreateBooking(ctx, calcom.BookingRequest{
//	    StartTime:     "2025-07-11T14:00:00Z",
//	    AttendeeEmail: "jane.doe@example.com",
//	    Title:         "Project Discussion",
//	})
//	if errors.Is(err, calcom.ErrConflict) {
//	    // the calendar owner is busy in that slot
//	}
package calcom
