package common

import (
	"testing"
)

func TestGetAttendeeFromArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     map[string]interface{}
		expected string
	}{
		{
			name:     "no attendee returns empty",
			args:     map[string]interface{}{},
			expected: "",
		},
		{
			name: "attendee specified returns email",
			args: map[string]interface{}{
				"attendee_email": "jane@example.com",
			},
			expected: "jane@example.com",
		},
		{
			name: "empty attendee returns empty",
			args: map[string]interface{}{
				"attendee_email": "",
			},
			expected: "",
		},
		{
			name: "attendee with other params",
			args: map[string]interface{}{
				"attendee_email": "john@example.com",
				"start_time":     "2025-07-11T14:00:00Z",
			},
			expected: "john@example.com",
		},
		{
			name:     "nil args returns empty",
			args:     nil,
			expected: "",
		},
		{
			name: "non-string attendee type returns empty",
			args: map[string]interface{}{
				"attendee_email": 123,
			},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := GetAttendeeFromArgs(tt.args)
			if result != tt.expected {
				t.Errorf("GetAttendeeFromArgs() = %v, expected %v", result, tt.expected)
			}
		})
	}
}
