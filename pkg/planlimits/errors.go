package planlimits

import "errors"

var (
	// ErrUnknownTier reports a tier value outside basic, pro and custom.
	// It signals a data-integrity problem in the stored workspace record or plan file.
	ErrUnknownTier = errors.New("unknown plan tier")

	// ErrInvalidTimestamp reports an expiry timestamp that could not be parsed.
	// Callers decide whether to fail open or closed; it is never treated as expired.
	ErrInvalidTimestamp = errors.New("invalid subscription expiry timestamp")

	// ErrInvalidArgument reports a negative or NaN usage value, or a negative override.
	ErrInvalidArgument = errors.New("invalid plan limit argument")

	ErrUnknownMetric            = errors.New("unknown plan metric")
	ErrInvalidPlanConfiguration = errors.New("invalid plan configuration")
	ErrFailedToLoadPlans        = errors.New("failed to load plan table")
)
