package api_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"

	"github.com/virlhq/virl/modules/api"
	"github.com/virlhq/virl/pkg/httpserver"
	"github.com/virlhq/virl/pkg/logger"
)

type pingModule struct{}

func (pingModule) Register(r chi.Router) {
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(middleware.GetReqID(r.Context())))
	})
}

func TestRouter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(logger.WithOutput(&buf), logger.WithFormat(logger.FormatJSON))

	healthy := true
	r := api.Router(api.RouterOptions{
		Logger:  log,
		Modules: []api.Module{pingModule{}},
		ReadinessChecks: []httpserver.Check{{
			Name: "postgres",
			Fn: func(context.Context) error {
				if healthy {
					return nil
				}
				return errors.New("connection refused")
			},
		}},
	})

	serve := func(method, path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
		return w
	}

	t.Run("module routes get a request id", func(t *testing.T) {
		w := serve(http.MethodGet, "/ping")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Body.String())
		assert.Contains(t, buf.String(), `"path":"/ping"`)
	})

	t.Run("liveness", func(t *testing.T) {
		w := serve(http.MethodGet, "/health/live")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ALIVE", w.Body.String())
	})

	t.Run("readiness follows checks", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, serve(http.MethodGet, "/health/ready").Code)
		healthy = false
		w := serve(http.MethodGet, "/health/ready")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "NOT_READY", w.Body.String())
		healthy = true
	})

	t.Run("unknown route is json", func(t *testing.T) {
		w := serve(http.MethodGet, "/nope")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"error":{"code":"not_found","message":"Not Found"}}`, w.Body.String())
	})

}
