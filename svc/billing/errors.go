package billing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/virlhq/virl/pkg/planlimits"
)

var (
	ErrInvalidConfig    = errors.New("invalid billing configuration")
	ErrInvalidSignature = errors.New("webhook signature verification failed")
	ErrInvalidPayload   = errors.New("invalid webhook payload")
	ErrMissingWorkspace = errors.New("webhook has no workspace_id in custom data")
	ErrUnknownPrice     = errors.New("price is not mapped to a tier")
	ErrNotPurchasable   = errors.New("tier cannot be bought through checkout")
	ErrCheckoutFailed   = errors.New("failed to create checkout")
	ErrDowngradeBlocked = errors.New("current usage exceeds target plan limits")
	ErrMissingPeriod    = errors.New("subscription event has no billing period")
)

// DowngradeError lists the metrics whose usage does not fit the target tier.
// It matches ErrDowngradeBlocked.
type DowngradeError struct {
	Target     planlimits.Tier
	Violations map[planlimits.Metric]Violation
}

// Violation is one metric that would be over its limit after a downgrade.
type Violation struct {
	Current float64          `json:"current"`
	Limit   planlimits.Limit `json:"limit"`
}

func (e *DowngradeError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, m := range planlimits.Metrics() {
		if v, ok := e.Violations[m]; ok {
			parts = append(parts, fmt.Sprintf("%s %g > %s", m, v.Current, v.Limit))
		}
	}
	return fmt.Sprintf("%s: %s (%s)", ErrDowngradeBlocked, e.Target, strings.Join(parts, ", "))
}

func (e *DowngradeError) Is(target error) bool {
	return target == ErrDowngradeBlocked
}
