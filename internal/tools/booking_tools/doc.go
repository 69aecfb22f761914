// Package booking_tools provides the MCP tools for Cal.com bookings.
//
// Three tools cover the scheduling surface: list_user_events,
// create_calendar_booking, and cancel_calendar_booking. Handlers never
// return Go errors for calendar failures; every failure becomes
// descriptive result text the model can read and relay, phrased the way
// end users expect ("You are not available at this time slot...").
package booking_tools
