package gyro

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with gyro-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// LogInsert logs an insert operation.
func (l *Logger) LogInsert(ctx context.Context, id string, dimension int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "insert failed",
			"id", id,
			"dimension", dimension,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "insert completed",
			"id", id,
			"dimension", dimension,
		)
	}
}

// LogSearch logs a search operation.
func (l *Logger) LogSearch(ctx context.Context, k, resultsFound int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed",
			"k", k,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "search completed",
			"k", k,
			"results", resultsFound,
		)
	}
}

// LogDelete logs a delete operation.
func (l *Logger) LogDelete(ctx context.Context, id string, found bool) {
	l.DebugContext(ctx, "delete completed",
		"id", id,
		"found", found,
	)
}

// LogQuery logs a query plan execution.
func (l *Logger) LogQuery(ctx context.Context, plan string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "query failed",
			"plan", plan,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "query started",
			"plan", plan,
		)
	}
}

// LogUpsertEmbedding logs an embedding lifecycle upsert.
func (l *Logger) LogUpsertEmbedding(ctx context.Context, entityID, version string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "upsert embedding failed",
			"entity_id", entityID,
			"version", version,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "upsert embedding completed",
			"entity_id", entityID,
			"version", version,
		)
	}
}
