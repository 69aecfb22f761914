package booking_tools

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/calbot/calbot/internal/instrumentation"
	"github.com/calbot/calbot/internal/server"
	"github.com/calbot/calbot/internal/tools"
	"github.com/calbot/calbot/internal/tools/common"
)

// defaultCancellationReason is used when the model omits a reason.
const defaultCancellationReason = "Meeting cancelled by user"

// RegisterCancelTools registers the booking cancellation tool.
func RegisterCancelTools(reg *tools.Registry, sc *server.ServerContext) error {
	cancelBookingTool := mcp.NewTool("cancel_calendar_booking",
		mcp.WithDescription("Cancel an existing appointment in the Cal.com calendar. IMPORTANT: to cancel by time or description, FIRST call list_user_events, find the matching booking ID, THEN call this tool with that exact ID."),
		mcp.WithString("booking_identifier",
			mcp.Required(),
			mcp.Description("The exact numeric booking ID from Cal.com, e.g. '12345'. Get this from list_user_events first."),
		),
		mcp.WithString("cancellation_reason",
			mcp.Description("Optional reason for cancellation, e.g. 'Schedule conflict' or 'No longer needed'."),
		),
	)

	return reg.Register(cancelBookingTool, common.InstrumentedToolHandlerWithService(
		"cancel_calendar_booking", instrumentation.ServiceCalcom, instrumentation.OperationCancel, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleCancelBooking(ctx, request, sc)
		}))
}

func handleCancelBooking(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	bookingIdentifier, ok := args["booking_identifier"].(string)
	if !ok || bookingIdentifier == "" {
		return mcp.NewToolResultError("booking_identifier is required"), nil
	}

	reason := defaultCancellationReason
	if reasonVal, ok := args["cancellation_reason"].(string); ok && reasonVal != "" {
		reason = reasonVal
	}

	// Reject non-numeric ids before touching the network.
	bookingID, err := strconv.Atoi(bookingIdentifier)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("❌ Invalid booking ID: '%s'. Please provide a valid numeric booking ID.", bookingIdentifier)), nil
	}

	client, errResult := calendarClient(sc)
	if errResult != nil {
		return errResult, nil
	}

	if err := client.CancelBooking(ctx, bookingID, reason); err != nil {
		return mcp.NewToolResultError(cancelFailureText(bookingID, err)), nil
	}

	result := fmt.Sprintf("✅ Booking %d successfully cancelled. Reason: %s", bookingID, reason)

	return mcp.NewToolResultText(result), nil
}
