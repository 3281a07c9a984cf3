package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/virlhq/virl/handler"
	"github.com/virlhq/virl/pkg/httpserver"
	"github.com/virlhq/virl/pkg/logger"
)

// Module registers its routes on a shared router.
type Module interface {
	Register(r chi.Router)
}

// RouterOptions configures the top-level HTTP router.
type RouterOptions struct {
	Logger *slog.Logger
	// Modules are registered in order at the root.
	Modules []Module
	// ReadinessChecks back GET /health/ready.
	ReadinessChecks  []httpserver.Check
	ReadinessTimeout time.Duration
}

// Router builds the service router with request IDs, panic recovery,
// access logging and the health endpoints.
//
//	r := api.Router(api.RouterOptions{
//		Logger:  log,
//		Modules: []api.Module{workspaceModule, billingModule},
//		ReadinessChecks: []httpserver.Check{
//			{Name: "postgres", Fn: pg.Healthcheck(pool)},
//		},
//	})
func Router(opts RouterOptions) chi.Router {
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	timeout := opts.ReadinessTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(log))
	r.Use(middleware.Recoverer)

	r.Get("/health/live", httpserver.LivenessHandler())
	r.Get("/health/ready", httpserver.ReadinessHandler(log, timeout, opts.ReadinessChecks...))

	for _, m := range opts.Modules {
		m.Register(r)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = handler.JSONError(handler.ErrNotFound).Render(w, r)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = handler.JSONError(handler.HTTPError{Code: http.StatusMethodNotAllowed, Key: "method_not_allowed"}).Render(w, r)
	})

	return r
}

func accessLog(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.LogAttrs(r.Context(), slog.LevelInfo, "http request",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Int("status", ww.Status()),
					slog.Int("bytes", ww.BytesWritten()),
					slog.Duration("duration", time.Since(start)),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
