package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/calbot/calbot/internal/instrumentation"
	"github.com/calbot/calbot/internal/server"
	"github.com/calbot/calbot/internal/tools"
)

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

func newServeCmd() *cobra.Command {
	var (
		addr           string
		metricsEnabled bool
		metricsAddr    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the chat web server",
		Long: `Start the HTTP server that hosts the conversational calendar assistant.

The server exposes:
  POST /api/chat             Run one conversation turn within a session
  GET  /api/sessions/{id}    Inspect a chat session
  DELETE /api/sessions/{id}  Discard a chat session
  GET  /                     Built-in web chat client
  GET  /healthz, /readyz     Health probes

Sessions are kept in memory and expire after inactivity. Prometheus
metrics are served on a dedicated listener so scraping never competes
with chat traffic.

Requires OPENAI_API_KEY, CAL_API_KEY and CAL_EVENT_TYPE_ID to be set in
the environment or a .env file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(addr, MetricsConfig{Enabled: metricsEnabled, Addr: metricsAddr})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Chat server address (default \":8080\"). Can also use SERVER_ADDR env var.")
	cmd.Flags().BoolVar(&metricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Metrics server address (default \":9090\"). Can also use METRICS_ADDR env var.")

	return cmd
}

func runServe(addr string, metricsConfig MetricsConfig) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if metricsConfig.Addr != "" {
		cfg.Server.MetricsAddr = metricsConfig.Addr
	}
	if metricsConfig.Enabled && os.Getenv("METRICS_ENABLED") == "false" {
		metricsConfig.Enabled = false
	}

	if err := cfg.ValidateChat(); err != nil {
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
			log.Printf("Error during instrumentation shutdown: %v", err)
		}
	}()

	// Start metrics server if enabled
	var metricsServer *server.MetricsServer
	if metricsConfig.Enabled && provider.Enabled() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    cfg.Server.MetricsAddr,
			Enabled:                 true,
			InstrumentationProvider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}

		// Use ready channel to confirm metrics server started successfully
		metricsReady := make(chan struct{})
		metricsErr := make(chan error, 1)
		go func() {
			if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && err != http.ErrServerClosed {
				metricsErr <- err
			}
			close(metricsErr)
		}()

		// Wait for metrics server to be ready or fail
		select {
		case <-metricsReady:
			log.Printf("Metrics server started on %s", metricsServer.Addr())
		case err := <-metricsErr:
			return fmt.Errorf("metrics server failed to start: %w", err)
		case <-time.After(5 * time.Second):
			return fmt.Errorf("metrics server startup timed out")
		}
	}

	// Create server context with the Cal.com client and session store
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
		// Shutdown metrics server first
		if metricsServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				log.Printf("Error during metrics server shutdown: %v", err)
			}
		}
		if err := serverContext.Shutdown(); err != nil {
			log.Printf("Error during server context shutdown: %v", err)
		}
	}()

	// Register tools and build the conversation agent
	registry := tools.NewRegistry()
	if err := registerAllTools(registry, serverContext); err != nil {
		return err
	}

	ag, err := buildAgent(cfg, registry, metrics)
	if err != nil {
		return err
	}
	serverContext.SetAgent(ag)

	chatServer, err := server.NewChatServer(serverContext)
	if err != nil {
		return fmt.Errorf("failed to create chat server: %w", err)
	}

	fmt.Printf("Chat server starting on %s\n", cfg.Server.Addr)
	fmt.Printf("  Web client: http://localhost%s/\n", portSuffix(cfg.Server.Addr))
	fmt.Printf("  Chat API: POST /api/chat\n")
	fmt.Printf("  Health endpoints: /healthz, /readyz\n")
	if metricsServer != nil {
		fmt.Printf("  Metrics endpoint: %s/metrics\n", cfg.Server.MetricsAddr)
	}

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := chatServer.Start(); err != nil && err != http.ErrServerClosed {
			serverDone <- err
		}
	}()

	select {
	case <-shutdownCtx.Done():
		fmt.Println("Shutdown signal received, stopping chat server...")
		chatServer.Health().SetReady(false)
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer stopCancel()
		if err := chatServer.Shutdown(stopCtx); err != nil {
			return fmt.Errorf("error shutting down chat server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("chat server stopped with error: %w", err)
		}
		fmt.Println("Chat server stopped normally")
	}

	fmt.Println("Chat server gracefully stopped")
	return nil
}

// portSuffix extracts the ":port" part of a listen address for display.
func portSuffix(addr string) string {
	if addr == "" {
		return ""
	}
	if addr[0] == ':' {
		return addr
	}
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return addr[i:]
		}
	}
	return ""
}
