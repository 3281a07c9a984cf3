package workspace

import (
	"errors"
	"fmt"

	"github.com/virlhq/virl/pkg/planlimits"
)

var (
	ErrWorkspaceNotFound  = errors.New("workspace not found")
	ErrMemberNotFound     = errors.New("member not found")
	ErrInvitationNotFound = errors.New("invitation not found")
	ErrAssetNotFound      = errors.New("asset not found")

	ErrForbidden          = errors.New("forbidden")
	ErrLimitExceeded      = errors.New("plan limit exceeded")
	ErrAlreadyMember      = errors.New("user is already a member")
	ErrInvitationExpired  = errors.New("invitation expired")
	ErrInvitationAccepted = errors.New("invitation already accepted")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUploadIncomplete   = errors.New("uploaded object is missing or size does not match")
	ErrUploadExpired      = errors.New("upload window expired before the object arrived")
	ErrAssetNotReady      = errors.New("asset upload not confirmed")

	ErrStoreFailure   = errors.New("workspace store failure")
	ErrCounterFailure = errors.New("usage counter failure")
)

// LimitError describes which limit blocked an operation. It matches ErrLimitExceeded.
type LimitError struct {
	Metric  planlimits.Metric
	Tier    planlimits.Tier
	Limit   planlimits.Limit
	Current float64
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%s: %s limit %s reached on %s tier (current %g)",
		ErrLimitExceeded, e.Metric, e.Limit, e.Tier, e.Current)
}

func (e *LimitError) Is(target error) bool {
	return target == ErrLimitExceeded
}
