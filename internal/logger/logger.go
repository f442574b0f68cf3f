package logger

import (
	"log/slog"
	"os"

	"github.com/jwebster45206/galgame-engine/internal/config"
)

// Setup configures the global slog logger based on environment.
func Setup(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.Environment == "production" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// WithSession adds session identity to logger context.
func WithSession(logger *slog.Logger, scope, userID string) *slog.Logger {
	return logger.With("scope", scope, "user_id", userID)
}
