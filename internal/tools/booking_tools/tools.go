package booking_tools

import (
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/calbot/calbot/internal/calcom"
	"github.com/calbot/calbot/internal/server"
	"github.com/calbot/calbot/internal/tools"
)

// RegisterBookingTools registers all Cal.com booking tools.
func RegisterBookingTools(reg *tools.Registry, sc *server.ServerContext) error {
	if err := RegisterListTools(reg, sc); err != nil {
		return fmt.Errorf("failed to register list tools: %w", err)
	}
	if err := RegisterCreateTools(reg, sc); err != nil {
		return fmt.Errorf("failed to register create tools: %w", err)
	}
	if err := RegisterCancelTools(reg, sc); err != nil {
		return fmt.Errorf("failed to register cancel tools: %w", err)
	}
	return nil
}

// calendarClient returns the configured Cal.com client, or an error
// result telling the user which credential is missing.
func calendarClient(sc *server.ServerContext) (*calcom.Client, *mcp.CallToolResult) {
	client := sc.Calendar()
	if client == nil {
		return nil, mcp.NewToolResultError("Error: CAL_API_KEY not found in environment variables")
	}
	return client, nil
}
