package common

// GetAttendeeFromArgs extracts the attendee email from request arguments.
// Returns the empty string when the argument is absent, empty, or not a
// string, which keeps attendee-free tools (list, datetime) out of the
// audit trail's attendee field.
func GetAttendeeFromArgs(args map[string]interface{}) string {
	if email, ok := args["attendee_email"].(string); ok {
		return email
	}
	return ""
}
