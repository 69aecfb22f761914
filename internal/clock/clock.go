package clock

import (
	"fmt"
	"time"
)

// Layouts for the guidance block handed to the language model. The
// formatted layout mirrors the long-form en_US date so the model can
// quote it back to users verbatim.
const (
	formattedLayout = "Monday, January 02, 2006 at 03:04 PM UTC"
	dateOnlyLayout  = "2006-01-02"
)

// Source yields the current instant. Tool handlers take a Source so
// tests can pin time instead of sleeping around midnight boundaries.
type Source interface {
	Now() time.Time
}

// SourceFunc adapts a plain function to a Source.
type SourceFunc func() time.Time

// Now implements Source.
func (f SourceFunc) Now() time.Time {
	return f()
}

// System returns a Source backed by the wall clock, normalized to UTC.
func System() Source {
	return SourceFunc(func() time.Time {
		return time.Now().UTC()
	})
}

// Stamp renders the current instant as the multi-line block the
// scheduling model consumes: the ISO timestamp, a human-readable form,
// the bare date, and explicit guidance for resolving relative dates
// like "tomorrow" into future slots.
func Stamp(src Source) string {
	now := src.Now().UTC()
	date := now.Format(dateOnlyLayout)

	return fmt.Sprintf(`Current date and time: %s

Formatted: %s
Date only: %s

IMPORTANT: All meeting bookings must be AFTER this current time.
When user says "tomorrow", add 1 day to %s.
When user says "next week", add 7 days to current date.
Always ensure the booking time is in the future!`,
		now.Format(time.RFC3339),
		now.Format(formattedLayout),
		date,
		date,
	)
}
