package logging

import (
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with harness-specific construction helpers
type Logger struct {
	*slog.Logger
}

// New creates a new logger with the specified level and format.
// Format "json" emits one JSON object per line; anything else uses the
// text handler, which reads better interleaved with harness step output.
func New(level, format string) *Logger {
	return NewWithWriter(os.Stdout, level, format)
}

// NewWithWriter creates a logger writing to w. Tests use this to capture
// output.
func NewWithWriter(w io.Writer, level, format string) *Logger {
	var logLevel slog.Level

	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return &Logger{Logger: slog.New(handler)}
}

// Default returns a logger with default settings
func Default() *Logger {
	return New("info", "text")
}
