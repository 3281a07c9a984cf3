package binder_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virlhq/virl/binder"
)

func TestBindJSON(t *testing.T) {
	t.Parallel()

	type body struct {
		Name string `json:"name"`
		Size int64  `json:"size"`
	}

	newReq := func(contentType, payload string) *http.Request {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload))
		if contentType != "" {
			r.Header.Set("Content-Type", contentType)
		}
		return r
	}

	t.Run("valid", func(t *testing.T) {
		t.Parallel()
		var got body
		err := binder.BindJSON()(newReq("application/json; charset=utf-8", `{"name":"a.png","size":42}`), &got)
		require.NoError(t, err)
		assert.Equal(t, body{Name: "a.png", Size: 42}, got)
	})

	tests := []struct {
		name        string
		contentType string
		payload     string
		wantErr     error
	}{
		{"missing content type", "", `{}`, binder.ErrMissingContentType},
		{"wrong content type", "text/plain", `{}`, binder.ErrUnsupportedMediaType},
		{"empty body", "application/json", ``, binder.ErrInvalidJSON},
		{"syntax error", "application/json", `{"name":`, binder.ErrInvalidJSON},
		{"type mismatch", "application/json", `{"size":"big"}`, binder.ErrInvalidJSON},
		{"unknown field", "application/json", `{"tier":"pro"}`, binder.ErrInvalidJSON},
		{"trailing data", "application/json", `{"name":"a"} {"name":"b"}`, binder.ErrInvalidJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var got body
			err := binder.BindJSON()(newReq(tt.contentType, tt.payload), &got)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("body too large", func(t *testing.T) {
		t.Parallel()
		var got body
		payload := `{"name":"` + strings.Repeat("x", 100) + `"}`
		err := binder.BindJSON(32)(newReq("application/json", payload), &got)
		require.ErrorIs(t, err, binder.ErrBodyTooLarge)
	})
}

func TestPath(t *testing.T) {
	t.Parallel()

	type params struct {
		WorkspaceID uuid.UUID `path:"id"`
		Slug        string    `path:"slug"`
		Page        int       `path:"page"`
		Ignored     string
	}

	id := uuid.New()
	values := map[string]string{"id": id.String(), "slug": "acme", "page": "2"}
	extract := func(_ *http.Request, name string) string { return values[name] }

	t.Run("binds typed fields", func(t *testing.T) {
		t.Parallel()
		var got params
		require.NoError(t, binder.Path(extract)(httptest.NewRequest(http.MethodGet, "/", nil), &got))
		assert.Equal(t, params{WorkspaceID: id, Slug: "acme", Page: 2}, got)
	})

	t.Run("invalid uuid", func(t *testing.T) {
		t.Parallel()
		bad := func(_ *http.Request, name string) string {
			if name == "id" {
				return "not-a-uuid"
			}
			return ""
		}
		var got params
		err := binder.Path(bad)(httptest.NewRequest(http.MethodGet, "/", nil), &got)
		require.ErrorIs(t, err, binder.ErrInvalidPath)
	})

	t.Run("non pointer target", func(t *testing.T) {
		t.Parallel()
		err := binder.Path(extract)(httptest.NewRequest(http.MethodGet, "/", nil), params{})
		require.ErrorIs(t, err, binder.ErrInvalidPath)
	})
}
