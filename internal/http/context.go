package http

import (
	"context"
	"log/slog"

	"github.com/example/family-scheduler/internal/application"
	"github.com/example/family-scheduler/internal/logging"
)

type contextKey string

const (
	principalContextKey contextKey = "principal"
	eventIDContextKey   contextKey = "event_id"
	memberIDContextKey  contextKey = "member_id"
	noteIDContextKey    contextKey = "note_id"
)

// ContextWithPrincipal returns a derived context containing the authenticated principal.
func ContextWithPrincipal(ctx context.Context, principal application.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}

// PrincipalFromContext extracts the authenticated principal from context if available.
func PrincipalFromContext(ctx context.Context) (application.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey).(application.Principal)
	return principal, ok
}

// ContextWithEventID injects the event identifier resolved from the request path.
func ContextWithEventID(ctx context.Context, eventID string) context.Context {
	return context.WithValue(ctx, eventIDContextKey, eventID)
}

// EventIDFromContext extracts an event identifier previously associated with the context.
func EventIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(eventIDContextKey).(string)
	return id, ok
}

// ContextWithMemberID injects the member identifier resolved from the request path.
func ContextWithMemberID(ctx context.Context, memberID string) context.Context {
	return context.WithValue(ctx, memberIDContextKey, memberID)
}

// MemberIDFromContext extracts a member identifier previously associated with the context.
func MemberIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(memberIDContextKey).(string)
	return id, ok
}

// ContextWithNoteID injects the note identifier resolved from the request path.
func ContextWithNoteID(ctx context.Context, noteID string) context.Context {
	return context.WithValue(ctx, noteIDContextKey, noteID)
}

// NoteIDFromContext extracts a note identifier previously associated with the context.
func NoteIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(noteIDContextKey).(string)
	return id, ok
}

// ContextWithLogger attaches a request scoped logger to the context.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.WithLogger(ctx, logger)
}

// LoggerFromContext extracts a request scoped logger from the context, if any.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}
