package datetime_tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/calbot/calbot/internal/clock"
	"github.com/calbot/calbot/internal/server"
	"github.com/calbot/calbot/internal/tools"
	"github.com/calbot/calbot/internal/tools/common"
)

// RegisterDateTimeTools registers the current-time tool.
func RegisterDateTimeTools(reg *tools.Registry, sc *server.ServerContext) error {
	datetimeTool := mcp.NewTool("get_current_datetime",
		mcp.WithDescription("Get the current date and time. ALWAYS use this tool FIRST when booking meetings, so relative dates like 'today', 'tomorrow', or 'next week' resolve to correct future dates. Returns the current instant in ISO format plus formatting guidance."),
	)

	return reg.Register(datetimeTool, common.InstrumentedToolHandler("get_current_datetime", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleCurrentDateTime(ctx, request, sc)
		}))
}

func handleCurrentDateTime(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(clock.Stamp(sc.Clock())), nil
}
