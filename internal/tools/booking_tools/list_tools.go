package booking_tools

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/calbot/calbot/internal/calcom"
	"github.com/calbot/calbot/internal/instrumentation"
	"github.com/calbot/calbot/internal/server"
	"github.com/calbot/calbot/internal/tools"
	"github.com/calbot/calbot/internal/tools/common"
)

// RegisterListTools registers the schedule listing tool.
func RegisterListTools(reg *tools.Registry, sc *server.ServerContext) error {
	listEventsTool := mcp.NewTool("list_user_events",
		mcp.WithDescription("Retrieve all scheduled events from the user's Cal.com calendar. Use this when the user wants to see upcoming appointments, check their schedule, or asks 'what meetings do I have?'. Also call this FIRST when cancelling by time or description, to find the booking ID."),
	)

	return reg.Register(listEventsTool, common.InstrumentedToolHandlerWithService(
		"list_user_events", instrumentation.ServiceCalcom, instrumentation.OperationList, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListEvents(ctx, request, sc)
		}))
}

func handleListEvents(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	client, errResult := calendarClient(sc)
	if errResult != nil {
		return errResult, nil
	}

	bookings, err := client.ListBookings(ctx)
	if err != nil {
		return mcp.NewToolResultError(listFailureText(err)), nil
	}

	if len(bookings) == 0 {
		return mcp.NewToolResultText("No scheduled events found."), nil
	}

	// Chronological order so "my 3pm meeting" is easy to find.
	sort.Slice(bookings, func(i, j int) bool {
		return bookings[i].StartTime.Before(bookings[j].StartTime)
	})

	result := fmt.Sprintf("Found %d scheduled event(s):\n\n", len(bookings))
	for i, booking := range bookings {
		result += fmt.Sprintf("%d. %s\n", i+1, titleOrDefault(booking))
		result += fmt.Sprintf("   Booking ID: %d\n", booking.ID)
		result += fmt.Sprintf("   Start: %s\n", timestampOrUnknown(booking.StartTime))
		result += fmt.Sprintf("   End: %s\n", timestampOrUnknown(booking.EndTime))
		result += fmt.Sprintf("   Status: %s\n", booking.Status)
		if email := booking.AttendeeEmail(); email != "" {
			result += fmt.Sprintf("   Attendee: %s\n", email)
		}
		if booking.Location != "" {
			result += fmt.Sprintf("   Location: %s\n", booking.Location)
		}
		result += "\n"
	}

	return mcp.NewToolResultText(result), nil
}

func titleOrDefault(booking calcom.Booking) string {
	if booking.Title == "" {
		return "Event"
	}
	return booking.Title
}

func timestampOrUnknown(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Format(time.RFC3339)
}
