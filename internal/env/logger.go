package environment

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"kitsura-miniapp/internal/config"
)

func initLogger(cfg config.Config) (*slog.Logger, error) {
	return NewLogger(cfg, os.Stdout), nil
}

// NewLogger uses a text handler for ENV=local and JSON everywhere else.
func NewLogger(cfg config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Logger.Level),
	}

	var handler slog.Handler
	if cfg.Env == "local" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler)
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
