package booking_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/calbot/calbot/internal/calcom"
	"github.com/calbot/calbot/internal/instrumentation"
	"github.com/calbot/calbot/internal/server"
	"github.com/calbot/calbot/internal/tools"
	"github.com/calbot/calbot/internal/tools/common"
)

// RegisterCreateTools registers the booking creation tool.
func RegisterCreateTools(reg *tools.Registry, sc *server.ServerContext) error {
	createBookingTool := mcp.NewTool("create_calendar_booking",
		mcp.WithDescription("Book a new appointment in the Cal.com calendar. Use this when the user wants to schedule a meeting, book an appointment, or set up a call. Meetings have a fixed length; the end time is calculated automatically."),
		mcp.WithString("start_time",
			mcp.Required(),
			mcp.Description("Meeting start in ISO 8601 format, e.g. '2025-07-11T14:00:00Z'. Must be in the future; call get_current_datetime first to resolve relative dates."),
		),
		mcp.WithString("attendee_email",
			mcp.Required(),
			mcp.Description("Email address of the person the user wants to meet with. This is the OTHER party's email, not the user's own."),
		),
		mcp.WithString("meeting_title",
			mcp.Required(),
			mcp.Description("Descriptive title for the meeting, e.g. 'Project Discussion' or 'Client Call'."),
		),
	)

	return reg.Register(createBookingTool, common.InstrumentedToolHandlerWithService(
		"create_calendar_booking", instrumentation.ServiceCalcom, instrumentation.OperationCreate, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleCreateBooking(ctx, request, sc)
		}))
}

func handleCreateBooking(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	startTime, ok := args["start_time"].(string)
	if !ok || startTime == "" {
		return mcp.NewToolResultError("start_time is required"), nil
	}

	attendeeEmail, ok := args["attendee_email"].(string)
	if !ok || attendeeEmail == "" {
		return mcp.NewToolResultError("attendee_email is required"), nil
	}

	meetingTitle, ok := args["meeting_title"].(string)
	if !ok || meetingTitle == "" {
		return mcp.NewToolResultError("meeting_title is required"), nil
	}

	client, errResult := calendarClient(sc)
	if errResult != nil {
		return errResult, nil
	}

	booking, err := client.CreateBooking(ctx, calcom.BookingRequest{
		StartTime:     startTime,
		AttendeeEmail: attendeeEmail,
		Title:         meetingTitle,
	})
	if err != nil {
		return mcp.NewToolResultError(createFailureText(err)), nil
	}

	// Echo the requested start time so the confirmation matches what the
	// user asked for, even when the API normalizes it.
	result := fmt.Sprintf("✅ Event '%s' successfully booked! Booking ID: %d, Start time: %s",
		meetingTitle, booking.ID, startTime)

	return mcp.NewToolResultText(result), nil
}
