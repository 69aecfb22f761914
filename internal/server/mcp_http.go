package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/calbot/calbot/internal/instrumentation"
)

// MCPHTTPServer exposes an MCP server over HTTP so external agent hosts can
// use the calendar tools directly. Two transports are supported: "sse"
// (Server-Sent Events with a separate message endpoint) and "streamable-http"
// (a single bidirectional endpoint). Authentication against Cal.com happens
// server-side with the configured API key; the MCP endpoints themselves are
// unauthenticated and intended to sit behind a reverse proxy or on localhost.
type MCPHTTPServer struct {
	mcpServer  *mcpserver.MCPServer
	httpServer *http.Server
	serverType string // "sse" or "streamable-http"
	metrics    *instrumentation.Metrics
	logger     *slog.Logger
	addr       string
}

// NewMCPHTTPServer creates an HTTP host for the given MCP server. The metrics
// handle may be nil, in which case requests are served without instrumentation.
func NewMCPHTTPServer(mcpServer *mcpserver.MCPServer, serverType string, metrics *instrumentation.Metrics, logger *slog.Logger) (*MCPHTTPServer, error) {
	if mcpServer == nil {
		return nil, fmt.Errorf("mcp server is required")
	}
	switch serverType {
	case "sse", "streamable-http":
	default:
		return nil, fmt.Errorf("unsupported server type: %s", serverType)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MCPHTTPServer{
		mcpServer:  mcpServer,
		serverType: serverType,
		metrics:    metrics,
		logger:     logger,
	}, nil
}

// Start starts the MCP HTTP server and blocks until it stops.
func (s *MCPHTTPServer) Start(addr string) error {
	return s.StartWithReadySignal(addr, nil)
}

// StartWithReadySignal starts the server and closes ready once the listener
// is accepting connections. Pass nil if no readiness signal is needed.
func (s *MCPHTTPServer) StartWithReadySignal(addr string, ready chan struct{}) error {
	mux := http.NewServeMux()

	switch s.serverType {
	case "sse":
		sseServer := mcpserver.NewSSEServer(s.mcpServer,
			mcpserver.WithSSEEndpoint("/sse"),
			mcpserver.WithMessageEndpoint("/message"),
		)
		mux.Handle("/sse", s.instrument(sseServer))
		mux.Handle("/message", s.instrument(sseServer))

	case "streamable-http":
		streamServer := mcpserver.NewStreamableHTTPServer(s.mcpServer,
			mcpserver.WithEndpointPath("/mcp"),
		)
		mux.Handle("/mcp", s.instrument(streamServer))

	default:
		return fmt.Errorf("unsupported server type: %s", s.serverType)
	}

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		// No WriteTimeout: SSE connections stay open indefinitely.
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.addr = listener.Addr().String()

	s.logger.Info("starting MCP HTTP server",
		slog.String("addr", s.addr),
		slog.String("transport", s.serverType),
	)

	if ready != nil {
		close(ready)
	}
	return s.httpServer.Serve(listener)
}

// Addr returns the address the server is listening on. Useful when the
// configured address was ":0".
func (s *MCPHTTPServer) Addr() string {
	return s.addr
}

// Shutdown gracefully shuts down the server.
func (s *MCPHTTPServer) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// instrument wraps an MCP transport handler with request metrics. The raw
// request path is used as the label since the MCP endpoints are a fixed set.
func (s *MCPHTTPServer) instrument(next http.Handler) http.Handler {
	if s.metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)
		s.metrics.RecordHTTPRequest(r.Context(), r.Method, r.URL.Path, rw.statusCode, time.Since(start))
	})
}
