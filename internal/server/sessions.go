package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"

	"github.com/calbot/calbot/internal/agent"
	"github.com/calbot/calbot/internal/instrumentation"
)

// ChatSession holds the conversational state of one chat client.
type ChatSession struct {
	ID        string
	CreatedAt time.Time

	lastAccess time.Time // guarded by the store's mutex

	// turnMu serializes turns within the session and guards history, so
	// concurrent requests on the same session cannot interleave updates
	turnMu  sync.Mutex
	history []llms.MessageContent
}

// History returns a copy of the session transcript.
func (cs *ChatSession) History() []llms.MessageContent {
	cs.turnMu.Lock()
	defer cs.turnMu.Unlock()

	out := make([]llms.MessageContent, len(cs.history))
	copy(out, cs.history)
	return out
}

// HistoryLength returns the number of messages in the transcript.
func (cs *ChatSession) HistoryLength() int {
	cs.turnMu.Lock()
	defer cs.turnMu.Unlock()
	return len(cs.history)
}

// RunTurn processes one user message through the agent. Turns within a
// session run strictly one at a time; the transcript only advances when
// the turn succeeds.
func (cs *ChatSession) RunTurn(ctx context.Context, ag *agent.Agent, message string) (*agent.Turn, error) {
	cs.turnMu.Lock()
	defer cs.turnMu.Unlock()

	turn, err := ag.HandleTurn(ctx, cs.history, message)
	if err != nil {
		return nil, err
	}
	cs.history = turn.History
	return turn, nil
}

// SessionStore keeps per-session chat state in memory.
// Sessions expire after a period of inactivity; an expired session simply
// starts a fresh conversation on next use.
type SessionStore struct {
	sessions       map[string]*ChatSession
	mu             sync.RWMutex
	cleanupTicker  *time.Ticker
	cleanupDone    chan bool
	sessionTimeout time.Duration
	logger         *slog.Logger
	metrics        *instrumentation.Metrics
}

// NewSessionStore creates a session store with the default 24 hour
// inactivity timeout.
func NewSessionStore() *SessionStore {
	return NewSessionStoreWithLogger(24*time.Hour, slog.Default())
}

// NewSessionStoreWithLogger creates a session store with a custom timeout
// and logger.
func NewSessionStoreWithLogger(timeout time.Duration, logger *slog.Logger) *SessionStore {
	if logger == nil {
		logger = slog.Default()
	}

	s := &SessionStore{
		sessions:       make(map[string]*ChatSession),
		cleanupTicker:  time.NewTicker(10 * time.Minute),
		cleanupDone:    make(chan bool),
		sessionTimeout: timeout,
		logger:         logger,
	}

	// Start cleanup goroutine
	go s.cleanupExpiredSessions()

	return s
}

// SetMetrics wires the active-session gauge.
func (s *SessionStore) SetMetrics(m *instrumentation.Metrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = m
}

// Create starts a fresh session with a new UUID.
func (s *SessionStore) Create() *ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	session := &ChatSession{
		ID:         uuid.NewString(),
		CreatedAt:  now,
		lastAccess: now,
	}
	s.sessions[session.ID] = session

	if s.metrics != nil {
		s.metrics.IncrementActiveSessions(context.Background())
	}
	return session
}

// Get returns the session with the given ID and refreshes its access
// time.
func (s *SessionStore) Get(id string) (*ChatSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	session.lastAccess = time.Now()
	return session, true
}

// GetOrCreate returns the session with the given ID, or a fresh session
// when the ID is empty or unknown. Expired sessions therefore restart the
// conversation under a new ID.
func (s *SessionStore) GetOrCreate(id string) *ChatSession {
	if id != "" {
		if session, ok := s.Get(id); ok {
			return session
		}
	}
	return s.Create()
}

// Remove deletes a session. Returns false when the ID is unknown.
func (s *SessionStore) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)

	if s.metrics != nil {
		s.metrics.DecrementActiveSessions(context.Background())
	}
	return true
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// cleanupExpiredSessions periodically removes sessions idle beyond the
// timeout.
func (s *SessionStore) cleanupExpiredSessions() {
	for {
		select {
		case <-s.cleanupTicker.C:
			s.mu.Lock()
			now := time.Now()
			expiredCount := 0
			for id, session := range s.sessions {
				if now.Sub(session.lastAccess) > s.sessionTimeout {
					delete(s.sessions, id)
					expiredCount++
					if s.metrics != nil {
						s.metrics.DecrementActiveSessions(context.Background())
					}
				}
			}
			s.mu.Unlock()
			if expiredCount > 0 {
				s.logger.Info("Cleaned up expired chat sessions", "count", expiredCount)
			}
		case <-s.cleanupDone:
			return
		}
	}
}

// Stop stops the session cleanup goroutine.
func (s *SessionStore) Stop() {
	if s.cleanupTicker != nil {
		s.cleanupTicker.Stop()
	}
	if s.cleanupDone != nil {
		close(s.cleanupDone)
	}
}
