// Package datetime_tools provides the MCP tool that tells the assistant
// what time it is.
//
// Language models have no reliable notion of "now", so every scheduling
// conversation starts by reading this tool's output. The result carries
// explicit guidance for resolving relative dates like "tomorrow" into
// future booking slots.
package datetime_tools
