package workspace

import (
	"errors"
	"net/http"

	"github.com/virlhq/virl/binder"
	"github.com/virlhq/virl/handler"
	"github.com/virlhq/virl/pkg/planlimits"
	"github.com/virlhq/virl/pkg/storage"
	"github.com/virlhq/virl/svc/workspace"
)

var (
	errLimitExceeded    = handler.HTTPError{Code: http.StatusPaymentRequired, Key: "limit_exceeded"}
	errUnknownTier      = handler.HTTPError{Code: http.StatusUnprocessableEntity, Key: "unknown_tier"}
	errValidationFailed = handler.HTTPError{Code: http.StatusUnprocessableEntity, Key: "validation_failed"}
)

// MapError translates service and binding errors into handler.HTTPError.
// Errors it does not know are returned unchanged and render as 500.
func MapError(err error) error {
	var httpErr handler.HTTPError
	var valErr handler.ValidationError
	if errors.As(err, &httpErr) || errors.As(err, &valErr) {
		return err
	}

	switch {
	case errors.Is(err, workspace.ErrLimitExceeded):
		mapped := errLimitExceeded.WithMessage(err.Error())
		var le *workspace.LimitError
		if errors.As(err, &le) {
			mapped = mapped.WithMeta(map[string]any{
				"metric":  le.Metric,
				"tier":    le.Tier,
				"limit":   le.Limit,
				"current": le.Current,
			})
		}
		return mapped
	case errors.Is(err, planlimits.ErrUnknownTier):
		return errUnknownTier.WithMessage(err.Error())

	case errors.Is(err, workspace.ErrWorkspaceNotFound),
		errors.Is(err, workspace.ErrInvitationNotFound),
		errors.Is(err, workspace.ErrAssetNotFound),
		errors.Is(err, workspace.ErrMemberNotFound),
		errors.Is(err, binder.ErrInvalidPath):
		return handler.ErrNotFound
	case errors.Is(err, workspace.ErrForbidden):
		return handler.ErrForbidden

	case errors.Is(err, workspace.ErrInvalidInput),
		errors.Is(err, planlimits.ErrInvalidArgument),
		errors.Is(err, planlimits.ErrUnknownMetric):
		return errValidationFailed.WithMessage(err.Error())
	case errors.Is(err, binder.ErrInvalidJSON),
		errors.Is(err, binder.ErrMissingContentType):
		return handler.ErrBadRequest.WithMessage(err.Error())
	case errors.Is(err, binder.ErrUnsupportedMediaType):
		return handler.ErrUnsupportedMediaType
	case errors.Is(err, binder.ErrBodyTooLarge):
		return handler.HTTPError{Code: http.StatusRequestEntityTooLarge, Key: "request_entity_too_large"}

	case errors.Is(err, workspace.ErrAlreadyMember),
		errors.Is(err, workspace.ErrInvitationAccepted),
		errors.Is(err, workspace.ErrUploadIncomplete),
		errors.Is(err, workspace.ErrAssetNotReady):
		return handler.ErrConflict.WithMessage(err.Error())
	case errors.Is(err, workspace.ErrInvitationExpired),
		errors.Is(err, workspace.ErrUploadExpired):
		return handler.ErrGone.WithMessage(err.Error())

	case errors.Is(err, storage.ErrServiceUnavailable),
		errors.Is(err, storage.ErrRequestTimeout),
		errors.Is(err, workspace.ErrCounterFailure):
		return handler.ErrServiceUnavailable
	}
	return err
}

// ErrorResponse renders err in the JSON envelope. Limit errors carry the
// metric, tier, limit and current usage in meta.
func ErrorResponse(err error) handler.Response {
	return handler.JSONError(MapError(err))
}
