package planlimits

import (
	"fmt"
	"strings"
	"time"
)

// expiryLayouts are tried in order. Timestamps without a zone are read as UTC.
var expiryLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	time.DateOnly,
}

// ParseExpiry parses an ISO-8601 subscription end date. An empty string means
// no end date and returns nil.
func ParseExpiry(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
}

// ResolveActiveTier returns the tier used for limit lookup.
//
// Basic is always active. A paid tier stays in effect only while it has an
// end date that is not before now; a missing end date never means "forever".
func ResolveActiveTier(tier Tier, expiresAt *time.Time, now time.Time) (Tier, error) {
	if !tier.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownTier, tier)
	}
	if tier == TierBasic {
		return TierBasic, nil
	}
	if expiresAt == nil || expiresAt.Before(now) {
		return TierBasic, nil
	}
	return tier, nil
}

// ResolveActiveTierString is ResolveActiveTier for raw stored values.
// The timestamp is parsed before the tier short-circuits, so a malformed value
// is reported even on basic workspaces.
func ResolveActiveTierString(tier, expiresAt string, now time.Time) (Tier, error) {
	t, err := ParseTier(tier)
	if err != nil {
		return "", err
	}
	exp, err := ParseExpiry(expiresAt)
	if err != nil {
		return "", err
	}
	return ResolveActiveTier(t, exp, now)
}
