package server

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/calbot/calbot/internal/logging"
	"github.com/calbot/calbot/internal/tools"
)

//go:embed web/index.html
var indexHTML []byte

// ChatServer exposes the conversation agent over HTTP: a JSON chat API,
// session management endpoints, health probes, and a small embedded web
// client on the root path.
type ChatServer struct {
	sc         *ServerContext
	router     *mux.Router
	httpServer *http.Server
	health     *HealthChecker
	logger     *slog.Logger
	addr       string
}

// NewChatServer creates a chat server bound to the given server context.
// The context supplies the agent, session store, and configuration.
func NewChatServer(sc *ServerContext) (*ChatServer, error) {
	if sc == nil {
		return nil, fmt.Errorf("server context is required")
	}

	cfg := sc.Config()
	s := &ChatServer{
		sc:     sc,
		router: mux.NewRouter(),
		health: NewHealthChecker(sc),
		logger: slog.Default(),
		addr:   cfg.Server.Addr,
	}
	s.registerRoutes()

	corsMiddleware := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)

	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           handlers.RecoveryHandler()(corsMiddleware(s.router)),
		ReadHeaderTimeout: cfg.Server.ReadTimeout(),
		// Write timeout must cover a full agent turn, which can span
		// several model and Cal.com round trips.
		WriteTimeout: cfg.Server.WriteTimeout(),
		IdleTimeout:  cfg.Server.IdleTimeout(),
	}
	return s, nil
}

func (s *ChatServer) registerRoutes() {
	s.router.Use(s.instrumentationMiddleware)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/chat", s.handleChat).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods(http.MethodDelete)

	s.router.Handle("/healthz", s.health.LivenessHandler()).Methods(http.MethodGet)
	s.router.Handle("/readyz", s.health.ReadinessHandler()).Methods(http.MethodGet)
	s.router.Handle("/healthz/detailed", s.health.DetailedHealthHandler()).Methods(http.MethodGet)

	s.router.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
}

// Health returns the health checker so callers can flip readiness.
func (s *ChatServer) Health() *HealthChecker {
	return s.health
}

// Router returns the underlying router, mainly for tests.
func (s *ChatServer) Router() *mux.Router {
	return s.router
}

// Start starts the chat server in a blocking manner.
func (s *ChatServer) Start() error {
	return s.StartWithReadySignal(nil)
}

// StartWithReadySignal starts the chat server and closes the ready
// channel once the listener is bound.
func (s *ChatServer) StartWithReadySignal(ready chan struct{}) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to bind chat listener on %s: %w", s.addr, err)
	}
	s.addr = listener.Addr().String()

	s.logger.Info("starting chat server", "addr", s.addr)
	if ready != nil {
		close(ready)
	}

	return s.httpServer.Serve(listener)
}

// Shutdown gracefully shuts down the chat server.
func (s *ChatServer) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		s.logger.Info("shutting down chat server")
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// Addr returns the address of the chat server. After a successful start
// this is the bound listener address.
func (s *ChatServer) Addr() string {
	return s.addr
}

func (s *ChatServer) instrumentationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics := s.sc.Metrics()
		if metrics == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)
		metrics.RecordHTTPRequest(r.Context(), r.Method, routeTemplate(r), rw.statusCode, time.Since(start))
	})
}

// chatRequest is the body of POST /api/chat. An empty session_id starts
// a new conversation.
type chatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

// chatToolCall is one entry of the turn's tool trace, shown by the web
// client as the assistant's working steps.
type chatToolCall struct {
	Tool       string `json:"tool"`
	Arguments  string `json:"arguments,omitempty"`
	Result     string `json:"result"`
	IsError    bool   `json:"is_error"`
	DurationMS int64  `json:"duration_ms"`
}

type chatResponse struct {
	SessionID     string         `json:"session_id"`
	Reply         string         `json:"reply"`
	ToolCalls     []chatToolCall `json:"tool_calls,omitempty"`
	HistoryLength int            `json:"history_length"`
}

type sessionResponse struct {
	SessionID     string    `json:"session_id"`
	CreatedAt     time.Time `json:"created_at"`
	HistoryLength int       `json:"history_length"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *ChatServer) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSONError(w, http.StatusBadRequest, "message is required")
		return
	}

	ag := s.sc.Agent()
	if ag == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "chat agent is not configured")
		return
	}

	sess := s.sc.Sessions().GetOrCreate(req.SessionID)

	// Tag the request context so tool audit logs and metrics carry the
	// session identity.
	ctx := tools.ContextWithSession(r.Context(), sess.ID)

	turn, err := sess.RunTurn(ctx, ag, req.Message)
	if err != nil {
		s.logger.Error("Chat turn failed",
			logging.Session(sess.ID),
			logging.Err(err))
		writeJSONError(w, http.StatusBadGateway, "The assistant is temporarily unavailable. Please try again.")
		return
	}

	response := chatResponse{
		SessionID:     sess.ID,
		Reply:         turn.Reply,
		HistoryLength: len(turn.History),
	}
	for _, call := range turn.ToolCalls {
		response.ToolCalls = append(response.ToolCalls, chatToolCall{
			Tool:       call.Tool,
			Arguments:  call.Arguments,
			Result:     call.Result,
			IsError:    call.IsError,
			DurationMS: call.Duration.Milliseconds(),
		})
	}

	writeJSON(w, http.StatusOK, response)
}

func (s *ChatServer) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	sess, ok := s.sc.Sessions().Get(id)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "session not found")
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		SessionID:     sess.ID,
		CreatedAt:     sess.CreatedAt,
		HistoryLength: sess.HistoryLength(),
	})
}

func (s *ChatServer) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if !s.sc.Sessions().Remove(id) {
		writeJSONError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *ChatServer) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
