package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/tmc/langchaingo/llms"
)

// Entry pairs a tool definition with its handler.
type Entry struct {
	Tool    mcp.Tool
	Handler mcpserver.ToolHandlerFunc
}

// Registry is the explicit table of tools available to the assistant.
// Registration happens once at startup; everything afterwards is read-only.
type Registry struct {
	mu      sync.RWMutex
	entries []Entry
	byName  map[string]int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]int)}
}

// Register adds a tool to the registry. Tool names must be unique.
func (r *Registry) Register(tool mcp.Tool, handler mcpserver.ToolHandlerFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[tool.Name]; exists {
		return fmt.Errorf("tool %q already registered", tool.Name)
	}
	r.byName[tool.Name] = len(r.entries)
	r.entries = append(r.entries, Entry{Tool: tool, Handler: handler})
	return nil
}

// Tools returns the registered tool definitions in registration order.
func (r *Registry) Tools() []mcp.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]mcp.Tool, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Tool
	}
	return out
}

// LLMTools converts the registered tool definitions into the function
// declarations expected by the model's tool-calling API.
func (r *Registry) LLMTools() []llms.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]llms.Tool, len(r.entries))
	for i, e := range r.entries {
		out[i] = llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        e.Tool.Name,
				Description: e.Tool.Description,
				Parameters:  schemaParameters(e.Tool.InputSchema),
			},
		}
	}
	return out
}

// schemaParameters flattens an MCP input schema into the plain JSON schema
// map the OpenAI-style tools API expects.
func schemaParameters(schema mcp.ToolInputSchema) map[string]any {
	schemaType := schema.Type
	if schemaType == "" {
		schemaType = "object"
	}
	properties := schema.Properties
	if properties == nil {
		properties = map[string]any{}
	}
	params := map[string]any{
		"type":       schemaType,
		"properties": properties,
	}
	if len(schema.Required) > 0 {
		params["required"] = schema.Required
	}
	return params
}

// Dispatch runs the named tool with model-supplied JSON arguments and
// returns the flattened result text. Unknown tools, malformed arguments,
// and handler failures all come back as text with isError set so the
// caller can feed them to the model instead of aborting the turn.
func (r *Registry) Dispatch(ctx context.Context, name, argsJSON string) (text string, isError bool) {
	r.mu.RLock()
	idx, ok := r.byName[name]
	var entry Entry
	if ok {
		entry = r.entries[idx]
	}
	r.mu.RUnlock()

	if !ok {
		return fmt.Sprintf("Error: tool %q is not available", name), true
	}

	args := map[string]interface{}{}
	if strings.TrimSpace(argsJSON) != "" {
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			return fmt.Sprintf("Error: invalid arguments for %s: %v", name, err), true
		}
	}

	request := mcp.CallToolRequest{}
	request.Params.Name = name
	request.Params.Arguments = args

	result, err := entry.Handler(ctx, request)
	if err != nil {
		return fmt.Sprintf("Error executing %s: %v", name, err), true
	}
	if result == nil {
		return fmt.Sprintf("Error: tool %s returned no result", name), true
	}
	return ResultText(result), result.IsError
}

// AttachMCP registers every tool on an MCP server for the tool-server mode.
func (r *Registry) AttachMCP(s *mcpserver.MCPServer) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entries {
		s.AddTool(e.Tool, e.Handler)
	}
}

// ResultText flattens the text content blocks of a tool result into a
// single string.
func ResultText(result *mcp.CallToolResult) string {
	var parts []string
	for _, content := range result.Content {
		switch c := content.(type) {
		case mcp.TextContent:
			parts = append(parts, c.Text)
		case *mcp.TextContent:
			parts = append(parts, c.Text)
		}
	}
	return strings.Join(parts, "\n")
}
