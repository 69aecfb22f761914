// Package instrumentation provides comprehensive OpenTelemetry instrumentation
// for the calbot scheduling assistant.
//
// This package enables production-grade observability through:
//   - OpenTelemetry metrics for HTTP requests, model calls, and Cal.com API calls
//   - Distributed tracing for conversation turns and API calls
//   - Prometheus metrics export via /metrics endpoint on dedicated port
//   - OTLP export support for modern observability platforms
//
// # Metrics
//
// The package exposes the following metric categories:
//
// Server/HTTP Metrics:
//   - http_requests_total: Counter of HTTP requests by method, path, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//   - active_sessions: Gauge of active conversation sessions
//
// Remote API Metrics:
//   - remote_api_operations_total: Counter of remote API operations by service, operation, status
//   - remote_api_operation_duration_seconds: Histogram of remote API operation durations
//
// Language Model Metrics:
//   - model_requests_total: Counter of model requests by model name and result
//   - model_retries_total: Counter of reattempted model requests by model name
//
// Tool Metrics:
//   - tool_invocations_total: Counter of tool invocations by tool name and status
//   - tool_duration_seconds: Histogram of tool execution durations
//
// Agent Metrics:
//   - agent_turns_total: Counter of conversation turns by result
//   - agent_tool_iterations: Histogram of tool-calling iterations used per turn
//
// # Tracing
//
// Distributed tracing spans are created for:
//   - HTTP request handling
//   - Tool invocations (tool.<name>)
//   - Remote API calls (<service>.<operation>, e.g. calcom.create)
//   - Language model requests (openai.chat)
//
// # Configuration
//
// Instrumentation can be configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: Metrics exporter type (prometheus, otlp, stdout, default: prometheus)
//   - TRACING_EXPORTER: Tracing exporter type (otlp, stdout, none, default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: calbot)
//
// # Example Usage
//
//	// Initialize instrumentation
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.Config{
//		ServiceName:    "calbot",
//		ServiceVersion: "0.1.0",
//		Enabled:        true,
//	})
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	// Get metrics recorder
//	recorder := provider.Metrics()
//
//	// Record an HTTP request
//	recorder.RecordHTTPRequest(ctx, "POST", "/api/chat", 200, time.Since(start))
//
//	// Record a Cal.com API operation
//	recorder.RecordRemoteOperation(ctx, "calcom", "create", "success", time.Since(start))
//
//	// Record a tool invocation
//	recorder.RecordToolInvocation(ctx, "create_calendar_booking", "success", time.Since(start))
package instrumentation
