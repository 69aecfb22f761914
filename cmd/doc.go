// Package cmd implements the command-line interface for calbot.
//
// This package provides the following commands:
//   - chat: Start an interactive chat session with the calendar assistant
//   - serve: Start the chat web server with the browser client and REST API
//   - mcp: Expose the calendar tools over MCP (stdio, SSE or streamable HTTP)
//   - check: Verify configuration and Cal.com API connectivity
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for all MCP tools
//
// The chat command is the default command when no subcommand is specified.
package cmd
