package binder

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
)

// DefaultMaxBodyBytes caps JSON request bodies.
const DefaultMaxBodyBytes int64 = 1 << 20

// BindJSON decodes an application/json body in strict mode: unknown fields
// and trailing data are rejected. An optional limit replaces DefaultMaxBodyBytes.
//
//	r.Post("/workspaces", handler.Wrap(h,
//		handler.WithBinders[handler.Context, createWorkspaceRequest](binder.BindJSON()),
//	))
func BindJSON(limit ...int64) func(r *http.Request, v any) error {
	maxBytes := DefaultMaxBodyBytes
	if len(limit) > 0 && limit[0] > 0 {
		maxBytes = limit[0]
	}

	return func(r *http.Request, v any) error {
		contentType := r.Header.Get("Content-Type")
		if contentType == "" {
			return fmt.Errorf("%w: expected application/json", ErrMissingContentType)
		}
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err != nil || mediaType != "application/json" {
			return fmt.Errorf("%w: got %s, expected application/json", ErrUnsupportedMediaType, contentType)
		}

		decoder := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBytes))
		decoder.DisallowUnknownFields()

		if err := decoder.Decode(v); err != nil {
			var (
				syntaxErr *json.SyntaxError
				typeErr   *json.UnmarshalTypeError
				sizeErr   *http.MaxBytesError
			)
			switch {
			case errors.As(err, &sizeErr):
				return fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, maxBytes)
			case errors.Is(err, io.EOF):
				return fmt.Errorf("%w: empty body", ErrInvalidJSON)
			case errors.As(err, &syntaxErr):
				return fmt.Errorf("%w: syntax error at offset %d", ErrInvalidJSON, syntaxErr.Offset)
			case errors.As(err, &typeErr):
				return fmt.Errorf("%w: field %q must be %s", ErrInvalidJSON, typeErr.Field, typeErr.Type)
			default:
				return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
			}
		}

		var extra json.RawMessage
		if err := decoder.Decode(&extra); !errors.Is(err, io.EOF) {
			var sizeErr *http.MaxBytesError
			if errors.As(err, &sizeErr) {
				return fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, maxBytes)
			}
			return fmt.Errorf("%w: unexpected data after JSON object", ErrInvalidJSON)
		}
		return nil
	}
}
