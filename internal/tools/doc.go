// Package tools provides the registry that holds every tool definition
// exposed by the assistant.
//
// Tools are declared once with mcp-go option chains and registered in an
// explicit table. The same table serves three consumers: the MCP server
// (AttachMCP), the LLM function-calling surface (LLMTools), and the
// conversation agent's dispatch loop (Dispatch). Dispatch decodes the
// model-supplied JSON arguments, invokes the handler, and reports every
// failure as descriptive result text so the model can read it and react.
package tools
