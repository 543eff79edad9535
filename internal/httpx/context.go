package httpx

import (
	"context"
	"net/http"
	"time"
)

type contextKey string

const (
	userIDKey    contextKey = "userID"
	tokenKey     contextKey = "token"
	requestIDKey contextKey = "requestID"
	clientIPKey  contextKey = "clientIP"
)

// TokenInfo describes the access token that authenticated the request.
type TokenInfo struct {
	JTI       string
	ExpiresAt time.Time
}

// UserIDFrom retrieves the user ID from the request context.
func UserIDFrom(r *http.Request) string {
	if v, ok := r.Context().Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

// TokenFrom retrieves the access token details from the request context.
func TokenFrom(r *http.Request) (TokenInfo, bool) {
	v, ok := r.Context().Value(tokenKey).(TokenInfo)
	return v, ok
}

// ContextWithUser returns a new context carrying the user ID and token details.
func ContextWithUser(ctx context.Context, userID string, token TokenInfo) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, tokenKey, token)
}

// RequestIDFrom retrieves the request ID from the request context.
func RequestIDFrom(r *http.Request) string {
	if v, ok := r.Context().Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}
