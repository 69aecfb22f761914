package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/calbot/calbot/internal/agent"
	"github.com/calbot/calbot/internal/calcom"
	"github.com/calbot/calbot/internal/clock"
	"github.com/calbot/calbot/internal/config"
	"github.com/calbot/calbot/internal/instrumentation"
)

// ServerContext holds the shared state behind every serving mode: the
// configuration, the Cal.com client, the clock, the chat sessions, and
// the instrumentation sinks.
type ServerContext struct {
	ctx      context.Context
	cancel   context.CancelFunc
	cfg      *config.Config
	calendar *calcom.Client
	clk      clock.Source
	sessions *SessionStore
	agent    *agent.Agent
	metrics  *instrumentation.Metrics
	audit    *instrumentation.AuditLogger
	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a new server context. A nil cfg falls back to
// defaults, which leaves the calendar client unconfigured until the
// relevant keys are set.
func NewServerContext(ctx context.Context, cfg *config.Config) (*ServerContext, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	shutdownCtx, cancel := context.WithCancel(ctx)

	sc := &ServerContext{
		ctx:      shutdownCtx,
		cancel:   cancel,
		cfg:      cfg,
		clk:      clock.System(),
		sessions: NewSessionStore(),
	}

	// Create the Cal.com client only when a key is configured. Commands
	// validate the config before anything needs the client, so an
	// unconfigured context is still usable for tests and dry runs.
	if cfg.CalCom.APIKey != "" {
		client, err := calcom.NewClient(cfg.CalCom.APIKey, cfg.CalCom.EventTypeID,
			calcom.WithBaseURL(cfg.CalCom.BaseURL),
			calcom.WithEventLength(cfg.CalCom.EventLength()),
			calcom.WithHTTPClient(&http.Client{Timeout: cfg.CalCom.RequestTimeout()}),
		)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("creating Cal.com client: %w", err)
		}
		sc.calendar = client
	}

	return sc, nil
}

// Context returns the server context.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Config returns the loaded configuration.
func (sc *ServerContext) Config() *config.Config {
	return sc.cfg
}

// Calendar returns the Cal.com client, or nil when no API key is
// configured.
func (sc *ServerContext) Calendar() *calcom.Client {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.calendar
}

// SetCalendar replaces the Cal.com client. Used by tests to point the
// tools at a fake server.
func (sc *ServerContext) SetCalendar(client *calcom.Client) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.calendar = client
}

// Clock returns the time source used by the datetime tool.
func (sc *ServerContext) Clock() clock.Source {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.clk
}

// SetClock replaces the time source. Used by tests to pin the clock.
func (sc *ServerContext) SetClock(src clock.Source) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.clk = src
}

// Sessions returns the chat session store.
func (sc *ServerContext) Sessions() *SessionStore {
	return sc.sessions
}

// Agent returns the conversation agent, or nil before SetAgent.
func (sc *ServerContext) Agent() *agent.Agent {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.agent
}

// SetAgent wires the conversation agent into the context.
func (sc *ServerContext) SetAgent(a *agent.Agent) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.agent = a
}

// Metrics returns the metrics recorder, or nil when instrumentation is
// not configured.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// SetMetrics wires the metrics recorder into the context and the
// session store's active-session gauge.
func (sc *ServerContext) SetMetrics(m *instrumentation.Metrics) {
	sc.mu.Lock()
	sc.metrics = m
	sc.mu.Unlock()
	sc.sessions.SetMetrics(m)
}

// AuditLogger returns the audit logger, or nil when audit logging is
// not configured.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.audit
}

// SetAuditLogger wires the audit logger into the context.
func (sc *ServerContext) SetAuditLogger(al *instrumentation.AuditLogger) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.audit = al
}

// IsShutdown returns whether the server has been shutdown.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context and stops the session store.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.sessions.Stop()
	sc.cancel()
	return nil
}
