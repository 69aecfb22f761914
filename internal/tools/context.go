package tools

import "context"

type contextKey string

const sessionKey contextKey = "chatSession"

// ContextWithSession attaches a chat session identifier to the context.
// The chat server sets this before running a turn so tool instrumentation
// can attribute invocations to the session that triggered them.
func ContextWithSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionKey, sessionID)
}

// GetSessionFromContext returns the session identifier set by
// ContextWithSession, if any.
func GetSessionFromContext(ctx context.Context) (string, bool) {
	sessionID, ok := ctx.Value(sessionKey).(string)
	if !ok || sessionID == "" {
		return "", false
	}
	return sessionID, true
}
