package calcom

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Defaults for the Cal.com v1 API surface.
const (
	// DefaultBaseURL is the production Cal.com v1 endpoint.
	DefaultBaseURL = "https://api.cal.com/v1"

	// DefaultEventLength is the booking duration applied when computing
	// the end time for a create.
	DefaultEventLength = 30 * time.Minute

	// DefaultCancellationReason is attached when the caller gives none.
	DefaultCancellationReason = "Event cancelled by user"

	defaultTimeout       = 30 * time.Second
	defaultMaxAttempts   = 3
	defaultRetryInterval = 500 * time.Millisecond
)

// Client provides access to the Cal.com v1 booking API.
// The API key travels as a query parameter on every request, so request
// URLs must never be logged; error messages are redacted accordingly.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	apiKey        string
	eventTypeID   int
	eventLength   time.Duration
	maxAttempts   uint
	retryInterval time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// WithHTTPClient overrides the HTTP client, including its timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithEventLength overrides the booking duration used to derive end times.
func WithEventLength(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.eventLength = d
		}
	}
}

// WithMaxAttempts bounds the attempts for retryable failures.
func WithMaxAttempts(n uint) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithRetryInterval overrides the initial backoff interval between attempts.
func WithRetryInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.retryInterval = d
		}
	}
}

// NewClient creates a client for the given API key and pre-configured
// event type. The event type may be zero for deployments that never
// create bookings; CreateBooking rejects the call in that case.
func NewClient(apiKey string, eventTypeID int, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, &APIError{Op: "initialize", Message: "api key cannot be empty", Err: ErrValidation}
	}

	c := &Client{
		httpClient:    &http.Client{Timeout: defaultTimeout},
		baseURL:       DefaultBaseURL,
		apiKey:        apiKey,
		eventTypeID:   eventTypeID,
		eventLength:   DefaultEventLength,
		maxAttempts:   defaultMaxAttempts,
		retryInterval: defaultRetryInterval,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// EventTypeID returns the configured event type identifier.
func (c *Client) EventTypeID() int {
	return c.eventTypeID
}

// EventLength returns the booking duration used for created events.
func (c *Client) EventLength() time.Duration {
	return c.eventLength
}

// ListBookings fetches all bookings visible to the API key.
func (c *Client) ListBookings(ctx context.Context) ([]Booking, error) {
	data, err := c.send(ctx, "list", http.MethodGet, "/bookings", c.query(nil), nil)
	if err != nil {
		return nil, err
	}

	var payload bookingsResponse
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, &APIError{Op: "list", Message: "undecodable bookings payload", Err: ErrBadResponse}
	}

	bookings := make([]Booking, 0, len(payload.Bookings))
	for _, wire := range payload.Bookings {
		bookings = append(bookings, wire.toBooking())
	}

	return bookings, nil
}

// CreateBooking validates the request locally, then creates a booking for
// the configured event type. The end time is the start plus the configured
// event length. No request is issued when validation fails.
func (c *Client) CreateBooking(ctx context.Context, req BookingRequest) (*Booking, error) {
	startAt, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		return nil, newValidationError("create", fmt.Sprintf("start time %q is not an ISO-8601 timestamp", req.StartTime))
	}
	if !strings.Contains(req.AttendeeEmail, "@") {
		return nil, newValidationError("create", fmt.Sprintf("attendee email %q is missing an @", req.AttendeeEmail))
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, newValidationError("create", "meeting title cannot be empty")
	}
	if c.eventTypeID <= 0 {
		return nil, newValidationError("create", "event type id is not configured")
	}

	attendeeName := AttendeeNameFromEmail(req.AttendeeEmail)
	payload := createBookingRequest{
		EventTypeID: c.eventTypeID,
		Start:       startAt.UTC().Format(time.RFC3339),
		End:         startAt.Add(c.eventLength).UTC().Format(time.RFC3339),
		Responses: bookingResponses{
			Name:  attendeeName,
			Email: req.AttendeeEmail,
		},
		Metadata:    map[string]string{},
		TimeZone:    "UTC",
		Language:    "en",
		Title:       req.Title,
		Description: "Booked via API: " + req.Title,
		Status:      "PENDING",
	}

	data, err := c.send(ctx, "create", http.MethodPost, "/bookings", c.query(nil), payload)
	if err != nil {
		return nil, err
	}

	var wire bookingWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, &APIError{Op: "create", Message: "undecodable booking payload", Err: ErrBadResponse}
	}
	if wire.ID == 0 {
		return nil, &APIError{Op: "create", Message: "response carried no booking id", Err: ErrBadResponse}
	}

	booking := wire.toBooking()

	// Normalize so callers always see the requested slot and attendee even
	// when the create response omits fields.
	if booking.StartTime.IsZero() {
		booking.StartTime = startAt.UTC()
	}
	if booking.EndTime.IsZero() {
		booking.EndTime = startAt.Add(c.eventLength).UTC()
	}
	if len(booking.Attendees) == 0 {
		booking.Attendees = []Attendee{{Email: req.AttendeeEmail, Name: attendeeName, TimeZone: "UTC"}}
	}
	if booking.Title == "" {
		booking.Title = req.Title
	}

	return &booking, nil
}

// CancelBooking cancels the booking with the given id. Cancelling a
// booking that was already cancelled fails with ErrAlreadyCancelled;
// an unknown id fails with ErrNotFound.
func (c *Client) CancelBooking(ctx context.Context, id int, reason string) error {
	if id <= 0 {
		return newValidationError("cancel", fmt.Sprintf("booking id %d is not a positive integer", id))
	}
	if strings.TrimSpace(reason) == "" {
		reason = DefaultCancellationReason
	}

	extra := url.Values{}
	extra.Set("cancellationReason", reason)

	_, err := c.send(ctx, "cancel", http.MethodDelete, fmt.Sprintf("/bookings/%d/cancel", id), c.query(extra), nil)
	return err
}

// query returns query values with the API key attached.
func (c *Client) query(extra url.Values) url.Values {
	q := url.Values{}
	q.Set("apiKey", c.apiKey)
	for key, values := range extra {
		for _, v := range values {
			q.Add(key, v)
		}
	}
	return q
}

// send issues one API call with bounded retries. Only failures classified
// as ErrUnavailable (network errors, 5xx, 429) are retried; everything
// else is permanent.
func (c *Client) send(ctx context.Context, op, method, path string, query url.Values, payload any) ([]byte, error) {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, &APIError{Op: op, Message: "encoding request body", Err: ErrValidation}
		}
	}

	endpoint := c.baseURL + path + "?" + query.Encode()

	attempt := func() ([]byte, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return nil, backoff.Permanent(&APIError{Op: op, Message: c.redact(err.Error()), Err: ErrValidation})
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, &APIError{Op: op, Message: c.redact(err.Error()), Err: ErrUnavailable}
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, &APIError{Op: op, Message: "reading response body", Err: ErrUnavailable}
		}

		if err := classifyStatus(op, resp.StatusCode, data); err != nil {
			if errors.Is(err, ErrUnavailable) {
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}

		return data, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryInterval

	data, err := backoff.Retry(ctx, attempt,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(c.maxAttempts),
	)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return nil, apiErr
		}
		return nil, &APIError{Op: op, Message: c.redact(err.Error()), Err: ErrUnavailable}
	}

	return data, nil
}

// redact strips the API key from transport error strings, which embed
// the full request URL including its query.
func (c *Client) redact(s string) string {
	return strings.ReplaceAll(s, c.apiKey, "[redacted]")
}
