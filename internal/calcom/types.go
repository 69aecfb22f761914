package calcom

import (
	"strings"
	"time"
	"unicode"
)

// Booking represents a scheduled event owned by the remote API.
// The local system never stores bookings durably.
type Booking struct {
	// ID is the integer identifier assigned by Cal.com
	ID int

	// UID is the opaque string identifier some endpoints return alongside ID
	UID string

	// Title is the event title
	Title string

	// Description is the free-form event description
	Description string

	// Status is the booking status (ACCEPTED, PENDING, CANCELLED)
	Status string

	// StartTime and EndTime are UTC instants; zero when the wire value
	// was absent or unparseable
	StartTime time.Time
	EndTime   time.Time

	// Location is the meeting location or video link
	Location string

	// Attendees lists the invited parties
	Attendees []Attendee
}

// Attendee represents an invited party on a booking
type Attendee struct {
	Email    string
	Name     string
	TimeZone string
}

// AttendeeEmail returns the first attendee's email, or empty when none.
func (b Booking) AttendeeEmail() string {
	if len(b.Attendees) == 0 {
		return ""
	}
	return b.Attendees[0].Email
}

// BookingRequest carries the caller-supplied fields for a create.
// The event type, end time, attendee name, and locale fields are
// derived by the client.
type BookingRequest struct {
	// StartTime is the ISO-8601 UTC start instant, e.g. "2025-07-11T14:00:00Z"
	StartTime string

	// AttendeeEmail is the other party's address, not the calendar owner's
	AttendeeEmail string

	// Title is the meeting title
	Title string
}

// bookingsResponse is the wire shape of GET /v1/bookings.
type bookingsResponse struct {
	Bookings []bookingWire `json:"bookings"`
}

// bookingWire is the wire shape of a single booking.
type bookingWire struct {
	ID          int            `json:"id"`
	UID         string         `json:"uid"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Status      string         `json:"status"`
	StartTime   string         `json:"startTime"`
	EndTime     string         `json:"endTime"`
	Location    string         `json:"location"`
	Attendees   []attendeeWire `json:"attendees"`
}

type attendeeWire struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	TimeZone string `json:"timeZone"`
}

// toBooking converts a wire booking into the local shape.
// Unparseable timestamps are kept as zero rather than failing the
// whole response.
func (w bookingWire) toBooking() Booking {
	b := Booking{
		ID:          w.ID,
		UID:         w.UID,
		Title:       w.Title,
		Description: w.Description,
		Status:      w.Status,
		Location:    w.Location,
	}

	if t, err := time.Parse(time.RFC3339, w.StartTime); err == nil {
		b.StartTime = t.UTC()
	}
	if t, err := time.Parse(time.RFC3339, w.EndTime); err == nil {
		b.EndTime = t.UTC()
	}

	for _, att := range w.Attendees {
		b.Attendees = append(b.Attendees, Attendee{
			Email:    att.Email,
			Name:     att.Name,
			TimeZone: att.TimeZone,
		})
	}

	return b
}

// createBookingRequest is the wire shape of POST /v1/bookings.
type createBookingRequest struct {
	EventTypeID int               `json:"eventTypeId"`
	Start       string            `json:"start"`
	End         string            `json:"end"`
	Responses   bookingResponses  `json:"responses"`
	Metadata    map[string]string `json:"metadata"`
	TimeZone    string            `json:"timeZone"`
	Language    string            `json:"language"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Status      string            `json:"status"`
}

// bookingResponses carries the attendee identity fields Cal.com expects.
type bookingResponses struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AttendeeNameFromEmail derives a display name from an email local part:
// dots become spaces and each word is capitalized, so "jane.doe@x.com"
// yields "Jane Doe".
func AttendeeNameFromEmail(email string) string {
	local := email
	if at := strings.Index(email, "@"); at >= 0 {
		local = email[:at]
	}

	words := strings.FieldsFunc(strings.ReplaceAll(local, ".", " "), unicode.IsSpace)
	for i, word := range words {
		runes := []rune(strings.ToLower(word))
		if len(runes) > 0 {
			runes[0] = unicode.ToUpper(runes[0])
		}
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
