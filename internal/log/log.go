// Package log sets up the process-wide slog logger for the rgbview binaries.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	logger *slog.Logger
	once   sync.Once
)

// ParseLevel maps "debug", "info", "warn" or "error" to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch level {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
}

// New builds a logger writing to w. JSON when GO_ENV=production, text
// otherwise.
func New(w io.Writer, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if os.Getenv("GO_ENV") == "production" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Init installs the default logger at level. Unknown levels fall back to
// info. Only the first call has an effect.
func Init(level string) {
	once.Do(func() {
		lvl, _ := ParseLevel(level)
		logger = New(os.Stderr, lvl)
		slog.SetDefault(logger)
	})
}

// L returns the process logger, initializing it at info level if needed.
func L() *slog.Logger {
	Init("info")
	return logger
}

// With returns a logger with the given attributes.
func With(args ...any) *slog.Logger {
	return L().With(args...)
}
