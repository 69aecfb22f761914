package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/calbot/calbot/internal/instrumentation"
	"github.com/calbot/calbot/internal/server"
	"github.com/calbot/calbot/internal/tools"
)

func newMCPCmd() *cobra.Command {
	var (
		transport      string
		httpAddr       string
		metricsEnabled bool
		metricsAddr    string
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server for AI assistants",
		Long: `Start a Model Context Protocol (MCP) server that exposes the calendar
tools to AI assistants such as Claude Desktop or Cursor.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - sse: Server-Sent Events over HTTP
  - streamable-http: Streamable HTTP transport

The Cal.com API key stays on the server side; connected assistants only
see the tools. Requires CAL_API_KEY and CAL_EVENT_TYPE_ID. OPENAI_API_KEY
is not needed here because the connected assistant brings its own model.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(transport, httpAddr, MetricsConfig{Enabled: metricsEnabled, Addr: metricsAddr})
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport type: stdio, sse or streamable-http")
	cmd.Flags().StringVar(&httpAddr, "http-addr", ":8080", "HTTP server address (for sse and streamable-http transports)")
	cmd.Flags().BoolVar(&metricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port (HTTP transports only). Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Metrics server address (default \":9090\"). Can also use METRICS_ADDR env var.")

	return cmd
}

func runMCP(transport, httpAddr string, metricsConfig MetricsConfig) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if metricsConfig.Addr != "" {
		cfg.Server.MetricsAddr = metricsConfig.Addr
	}
	if metricsConfig.Enabled && os.Getenv("METRICS_ENABLED") == "false" {
		metricsConfig.Enabled = false
	}

	if err := cfg.ValidateCalendar(); err != nil {
		return fmt.Errorf("configuration incomplete: %w", err)
	}

	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(shutdownCtx); err != nil {
			if transport != "stdio" {
				log.Printf("Error during instrumentation shutdown: %v", err)
			}
		}
	}()

	// Start metrics server if enabled and not in stdio mode
	var metricsServer *server.MetricsServer
	if transport != "stdio" && metricsConfig.Enabled && provider.Enabled() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    cfg.Server.MetricsAddr,
			Enabled:                 true,
			InstrumentationProvider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}

		metricsReady := make(chan struct{})
		metricsErr := make(chan error, 1)
		go func() {
			if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && err != http.ErrServerClosed {
				metricsErr <- err
			}
			close(metricsErr)
		}()

		select {
		case <-metricsReady:
			log.Printf("Metrics server started on %s", metricsServer.Addr())
		case err := <-metricsErr:
			return fmt.Errorf("metrics server failed to start: %w", err)
		case <-time.After(5 * time.Second):
			return fmt.Errorf("metrics server startup timed out")
		}
	}

	// Create server context
	serverContext, err := server.NewServerContext(shutdownCtx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}

	// Set metrics and audit logger on server context for tool instrumentation
	var metrics *instrumentation.Metrics
	if provider.Enabled() {
		metrics = provider.Metrics()
		serverContext.SetMetrics(metrics)
		serverContext.SetAuditLogger(instrumentation.NewAuditLoggerWithConfig(nil, instrConfig.AuditLogging))
	}
	defer func() {
		if metricsServer != nil {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer stopCancel()
			if err := metricsServer.Shutdown(stopCtx); err != nil {
				log.Printf("Error during metrics server shutdown: %v", err)
			}
		}
		if err := serverContext.Shutdown(); err != nil {
			if transport != "stdio" {
				log.Printf("Error during server context shutdown: %v", err)
			}
		}
	}()

	// Register tools on the MCP server
	registry := tools.NewRegistry()
	if err := registerAllTools(registry, serverContext); err != nil {
		return err
	}

	mcpSrv := mcpserver.NewMCPServer("calbot", version,
		mcpserver.WithToolCapabilities(true),
	)
	registry.AttachMCP(mcpSrv)

	switch transport {
	case "stdio":
		return runStdioServer(mcpSrv)
	case "sse", "streamable-http":
		return runMCPHTTPServer(shutdownCtx, mcpSrv, transport, httpAddr, metrics, cfg.Server.MetricsAddr, metricsServer != nil)
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, sse, streamable-http)", transport)
	}
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func runMCPHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, transport, addr string, metrics *instrumentation.Metrics, metricsAddr string, metricsRunning bool) error {
	httpServer, err := server.NewMCPHTTPServer(mcpSrv, transport, metrics, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to create MCP HTTP server: %w", err)
	}

	fmt.Printf("Starting calbot MCP server with %s transport on %s\n", transport, addr)
	if transport == "sse" {
		fmt.Printf("  SSE endpoints: /sse, /message\n")
	} else {
		fmt.Printf("  HTTP endpoint: /mcp\n")
	}
	fmt.Printf("  Health endpoint: /healthz\n")
	if metricsRunning {
		fmt.Printf("  Metrics endpoint: %s/metrics\n", metricsAddr)
	}

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.Start(addr); err != nil && err != http.ErrServerClosed {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		fmt.Println("Shutdown signal received, stopping MCP server...")
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer stopCancel()
		if err := httpServer.Shutdown(stopCtx); err != nil {
			return fmt.Errorf("error shutting down MCP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("MCP server stopped with error: %w", err)
		}
		fmt.Println("MCP server stopped normally")
	}

	fmt.Println("MCP server gracefully stopped")
	return nil
}
