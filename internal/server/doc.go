// Package server provides the shared server context, session management,
// and network servers for the calbot application.
//
// # Key Components
//
// ServerContext is the dependency container handed to tool registration and
// the HTTP layer. It holds the Cal.com client, the clock source, the chat
// agent, the session store, and the instrumentation handles. Clients are
// configured once at startup from the environment; tool handlers only read
// from the context.
//
// ChatServer serves the conversational API and the embedded web client:
//   - POST /api/chat runs one agent turn within a session
//   - GET/DELETE /api/sessions/{id} inspect and discard sessions
//   - GET / serves the single-page chat client
//
// MCPHTTPServer hosts the calendar tools over MCP for external agent hosts,
// supporting SSE and streamable HTTP transports.
//
// MetricsServer exposes Prometheus metrics and a health endpoint on a
// separate listener so scraping never competes with chat traffic.
//
// SessionStore scopes conversation history per session. Each session
// serializes its turns: the transcript only ever advances one exchange at a
// time, and concurrent requests for the same session queue behind each other.
package server
