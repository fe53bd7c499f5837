package log

import (
	"log/slog"
	"os"

	slogctx "github.com/veqryn/slog-context"

	"github.com/eventrelay/eventrelay/internal/config"
)

// InitAsDefault installs the process-wide logger from config. Context
// attributes injected via this package surface on every record.
func InitAsDefault(cfg config.Logger) {
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

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(slogctx.NewHandler(handler, nil)))
}
