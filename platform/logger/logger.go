// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Context key types for storing values in context
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// SessionKey is the context key for the conversation session key
	SessionKey contextKey = "session_key"
	// OrgIDKey is the context key for the organization ID
	OrgIDKey contextKey = "org_id"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithContext returns a logger with context values extracted.
// Supports request_id, session_key, and org_id from context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("request_id", requestID))}
	}

	if sessionKey, ok := ctx.Value(SessionKey).(string); ok && sessionKey != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("session_key", sessionKey))}
	}

	if orgID, ok := ctx.Value(OrgIDKey).(string); ok && orgID != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("org_id", orgID))}
	}

	return newLogger
}

// WithSession returns a logger with the conversation session key attached.
func (l *Logger) WithSession(sessionKey string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("session_key", sessionKey)),
	}
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// DatabaseError logs database errors
func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// RateLimitExceeded logs rate limit events
func (l *Logger) RateLimitExceeded(sessionKey, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("session_key", sessionKey),
		slog.String("path", path),
	)
}

// ToolFailure logs a failed agent tool invocation. Tool failures are returned
// to the model as structured results, so this is the only place they surface.
func (l *Logger) ToolFailure(tool string, err error) {
	l.Warn("tool_failure",
		slog.String("tool", tool),
		slog.String("error", err.Error()),
	)
}

// ChannelError logs a notification channel failure. Channel failures never
// propagate to the caller.
func (l *Logger) ChannelError(channel, kind string, err error) {
	l.Warn("notification_channel_error",
		slog.String("channel", channel),
		slog.String("kind", kind),
		slog.String("error", err.Error()),
	)
}
