package httpx

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"openbook/internal/platform/crypto"
)

type contextKey string

const (
	identityKey  contextKey = "identity"
	tokenKey     contextKey = "token"
	requestIDKey contextKey = "requestID"
	loggerKey    contextKey = "logger"
)

// ContextWithIdentity stores the authenticated user and the raw bearer token.
func ContextWithIdentity(ctx context.Context, id crypto.Identity, token string) context.Context {
	ctx = context.WithValue(ctx, identityKey, id)
	return context.WithValue(ctx, tokenKey, token)
}

// IdentityFrom returns the authenticated user, if any.
func IdentityFrom(r *http.Request) (crypto.Identity, bool) {
	id, ok := r.Context().Value(identityKey).(crypto.Identity)
	return id, ok
}

// UserIDFrom retrieves the user ID from the request context.
func UserIDFrom(r *http.Request) string {
	if id, ok := IdentityFrom(r); ok {
		return id.UserID
	}
	return ""
}

// RoleFrom retrieves the user role from the request context.
func RoleFrom(r *http.Request) string {
	if id, ok := IdentityFrom(r); ok {
		return id.Role
	}
	return ""
}

// TokenFrom returns the bearer token the request was authenticated with.
func TokenFrom(r *http.Request) string {
	if v, ok := r.Context().Value(tokenKey).(string); ok {
		return v
	}
	return ""
}

func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFrom(r *http.Request) string {
	if v, ok := r.Context().Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

func contextWithLogger(ctx context.Context, log *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, log)
}

// LoggerFrom returns the request scoped logger set by RequestIDMiddleware,
// or fallback when there is none.
func LoggerFrom(r *http.Request, fallback *zap.Logger) *zap.Logger {
	if l, ok := r.Context().Value(loggerKey).(*zap.Logger); ok {
		return l
	}
	return fallback
}
