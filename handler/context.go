package handler

import (
	"context"
	"net/http"
)

// Context is the request-scoped value passed to every HandlerFunc. It carries
// the request's context.Context plus the raw request and response writer.
type Context interface {
	context.Context
	Request() *http.Request
	ResponseWriter() http.ResponseWriter
}

// NewContext wraps w and r. Deadline, cancellation and values come from r.Context().
func NewContext(w http.ResponseWriter, r *http.Request) Context {
	return requestContext{Context: r.Context(), w: w, r: r}
}

type requestContext struct {
	context.Context
	w http.ResponseWriter
	r *http.Request
}

func (c requestContext) Request() *http.Request              { return c.r }
func (c requestContext) ResponseWriter() http.ResponseWriter { return c.w }

// ContextKey is an unexported-by-pointer key for request-scoped values such
// as the caller's user ID.
type ContextKey struct{ name string }

func (k *ContextKey) String() string { return "handler context key " + k.name }

func NewContextKey(name string) *ContextKey {
	return &ContextKey{name: name}
}

// ContextValue returns the value stored under key, or the zero T when it is
// missing or of another type.
func ContextValue[T any](ctx context.Context, key any) T {
	v, _ := ctx.Value(key).(T)
	return v
}
