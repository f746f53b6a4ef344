package common

import (
	"context"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRequestID   contextKey = "request_id"
	ContextKeySubmitterID contextKey = "submitter_id"
)

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// RequestIDFromContext extracts the request ID from context
func RequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}

// WithSubmitterID adds the chat user that owns the current flow to the context
func WithSubmitterID(ctx context.Context, submitterID int64) context.Context {
	return context.WithValue(ctx, ContextKeySubmitterID, submitterID)
}

// SubmitterIDFromContext extracts the submitter ID from context
func SubmitterIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ContextKeySubmitterID).(int64)
	return id, ok
}
