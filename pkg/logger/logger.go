package logger

import (
	"context"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey ContextKey = "request_id"
	// UserKey is the context key for the WhatsApp user identifier
	UserKey ContextKey = "whatsapp_user"
	// DocumentKey is the context key for the document being processed
	DocumentKey ContextKey = "document_id"
)

// Config holds logger configuration
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, text
	File   string // optional log file, JSON output, fanned out alongside stdout
}

// Init initializes the global slog logger with the given configuration.
// Returns a cleanup function that closes the log file, if one was opened.
func Init(cfg *Config) func() error {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	cleanup := func() error { return nil }

	if cfg.File != "" {
		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			slog.Error("failed to open log file, using stdout only", "error", err, "file", cfg.File)
		} else {
			fileHandler := slog.NewJSONHandler(file, opts)
			handler = slogmulti.Fanout(handler, fileHandler)
			cleanup = file.Close
		}
	}

	slog.SetDefault(slog.New(handler))
	return cleanup
}

// WithContext returns a logger with context values extracted
func WithContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		logger = logger.With("request_id", requestID)
	}
	if user, ok := ctx.Value(UserKey).(string); ok && user != "" {
		logger = logger.With("whatsapp_user", user)
	}
	if documentID, ok := ctx.Value(DocumentKey).(string); ok && documentID != "" {
		logger = logger.With("document_id", documentID)
	}

	return logger
}

// Info logs at info level with context
func Info(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).Info(msg, args...)
}

// Debug logs at debug level with context
func Debug(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).Debug(msg, args...)
}

// Warn logs at warn level with context
func Warn(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).Warn(msg, args...)
}

// Error logs at error level with context
func Error(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).Error(msg, args...)
}
