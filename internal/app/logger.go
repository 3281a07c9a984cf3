package app

import (
	"fmt"
	"log/slog"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/virlhq/virl/modules/workspace"
	"github.com/virlhq/virl/pkg/logger"
)

// NewLogger builds the process logger. Records carry the chi request ID and
// the caller's user ID when the request context has them.
func NewLogger(cfg Config) (*slog.Logger, error) {
	opts := []logger.Option{
		logger.WithEnvironment(cfg.Env, cfg.ServiceName),
		logger.WithContextExtractors(
			logger.RequestIDExtractor(middleware.RequestIDKey),
			logger.ContextValue("user_id", workspace.UserIDKey),
		),
	}
	if cfg.LogLevel != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
		}
		opts = append(opts, logger.WithLevel(level))
	}
	return logger.New(opts...), nil
}
