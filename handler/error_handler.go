package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/virlhq/virl/pkg/logger"
)

// ErrorMapper translates domain errors into HTTPError or ValidationError.
// It returns the input unchanged when it has no mapping.
type ErrorMapper func(error) error

// NewErrorHandler renders errors as JSON and logs them: client errors at
// warn, server errors at error.
func NewErrorHandler(log *slog.Logger, mappers ...ErrorMapper) ErrorHandler[Context] {
	if log == nil {
		log = slog.Default()
	}

	return func(ctx Context, err error) {
		for _, m := range mappers {
			err = m(err)
		}

		status, body := errorEnvelope(err)

		level := slog.LevelError
		if status < http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		r := ctx.Request()
		log.LogAttrs(r.Context(), level, "request error",
			logger.RequestID(middleware.GetReqID(r.Context())),
			logger.Error(err),
			slog.Int("status_code", status),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			logger.Component("error_handler"),
		)

		resp := jsonResponse{status: status, body: body}
		_ = resp.Render(ctx.ResponseWriter(), r)
	}
}
