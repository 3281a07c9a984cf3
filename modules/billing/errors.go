package billing

import (
	"errors"
	"net/http"

	"github.com/virlhq/virl/handler"
	wsapi "github.com/virlhq/virl/modules/workspace"
	"github.com/virlhq/virl/svc/billing"
)

var errDowngradeBlocked = handler.HTTPError{Code: http.StatusConflict, Key: "downgrade_blocked"}

// MapError maps billing errors and defers the rest to the workspace module.
func MapError(err error) error {
	switch {
	case errors.Is(err, billing.ErrInvalidSignature):
		return handler.ErrUnauthorized.WithMessage(err.Error())
	case errors.Is(err, billing.ErrInvalidPayload),
		errors.Is(err, billing.ErrMissingWorkspace),
		errors.Is(err, billing.ErrMissingPeriod),
		errors.Is(err, billing.ErrUnknownPrice):
		return handler.ErrBadRequest.WithMessage(err.Error())
	case errors.Is(err, billing.ErrNotPurchasable):
		return handler.ErrUnprocessableEntity.WithMessage(err.Error())
	case errors.Is(err, billing.ErrCheckoutFailed):
		return handler.ErrBadGateway
	case errors.Is(err, billing.ErrDowngradeBlocked):
		mapped := errDowngradeBlocked.WithMessage(err.Error())
		var de *billing.DowngradeError
		if errors.As(err, &de) {
			mapped = mapped.WithMeta(map[string]any{
				"target":     de.Target,
				"violations": de.Violations,
			})
		}
		return mapped
	}
	return wsapi.MapError(err)
}

// ErrorResponse renders err; a blocked downgrade lists its violations in meta.
func ErrorResponse(err error) handler.Response {
	return handler.JSONError(MapError(err))
}
