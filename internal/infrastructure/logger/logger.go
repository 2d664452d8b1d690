// Package logger wraps slog with the configuration surface the rest of the
// service uses: level and format from config, JSON or text output, and a
// process-wide default.
package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/AJeffs1/reactive-notebook/internal/config"
)

// Logger is the service-wide structured logger.
type Logger struct {
	*slog.Logger
}

// New builds a logger from logging configuration.
func New(cfg config.LoggingConfig) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return &Logger{Logger: slog.New(handler)}
}

// SetDefault installs l as slog's process-wide default logger.
func SetDefault(l *Logger) {
	slog.SetDefault(l.Logger)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
