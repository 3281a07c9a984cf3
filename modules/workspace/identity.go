package workspace

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/virlhq/virl/handler"
)

// UserIDHeader carries the caller's user ID, set by the authenticating gateway
// in front of this service.
const UserIDHeader = "X-User-ID"

// UserIDKey holds the caller ID in request contexts.
var UserIDKey = handler.NewContextKey("user_id")

// RequireUser rejects requests without a valid X-User-ID header and stores
// the caller's ID in the request context.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.Header.Get(UserIDHeader))
		if err != nil || id == uuid.Nil {
			_ = handler.JSONError(handler.ErrUnauthorized).Render(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), id)))
	})
}

func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, UserIDKey, id)
}

// UserID returns the caller set by RequireUser, or uuid.Nil.
func UserID(ctx context.Context) uuid.UUID {
	return handler.ContextValue[uuid.UUID](ctx, UserIDKey)
}
