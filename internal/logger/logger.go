package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/revenue-reconciliation/internal/config"
)

// NewLogger creates the JSON logger used by the long-running services
func NewLogger(cfg *config.Config) *slog.Logger {
	return New(cfg.Logging.Level, os.Stdout)
}

// New builds a JSON logger writing to w. Source locations are added at debug level.
func New(levelName string, w io.Writer) *slog.Logger {
	level := ParseLevel(levelName)
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	})
	logger := slog.New(handler)

	logger.Debug("logger initialized", "level", level)
	return logger
}

// ParseLevel maps a level name to slog, defaulting to info
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
