package planlimits

import (
	"fmt"
	"strings"
)

// Tier is a named subscription level.
type Tier string

const (
	TierBasic  Tier = "basic"
	TierPro    Tier = "pro"
	TierCustom Tier = "custom"
)

// Tiers returns all known tiers ordered by entitlement, lowest first.
func Tiers() []Tier {
	return []Tier{TierBasic, TierPro, TierCustom}
}

// ParseTier converts a stored tier value into a Tier.
// Surrounding whitespace and letter case are ignored; anything else
// outside the three known tiers returns ErrUnknownTier.
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownTier, s)
	}
	return t, nil
}

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	return t.Rank() >= 0
}

// Rank orders tiers by entitlement: basic < pro < custom.
// Unknown tiers rank -1.
func (t Tier) Rank() int {
	switch t {
	case TierBasic:
		return 0
	case TierPro:
		return 1
	case TierCustom:
		return 2
	default:
		return -1
	}
}

// Paid reports whether the tier requires an active subscription period.
func (t Tier) Paid() bool {
	return t == TierPro || t == TierCustom
}

func (t Tier) String() string {
	return string(t)
}

// HighestTier returns the tier with the greatest entitlement, or basic when tiers is empty.
func HighestTier(tiers ...Tier) Tier {
	best := TierBasic
	for _, t := range tiers {
		if t.Rank() > best.Rank() {
			best = t
		}
	}
	return best
}

// Metric names one of the four limited resources.
type Metric string

const (
	MetricWorkspaces    Metric = "workspaces"
	MetricMembers       Metric = "members"
	MetricStorageGB     Metric = "storageGB"
	MetricAIGenerations Metric = "aiGenerationsPerMonth"
)

// Metrics returns all metrics in display order.
func Metrics() []Metric {
	return []Metric{MetricWorkspaces, MetricMembers, MetricStorageGB, MetricAIGenerations}
}

// ParseMetric validates a metric name.
func ParseMetric(s string) (Metric, error) {
	m := Metric(s)
	switch m {
	case MetricWorkspaces, MetricMembers, MetricStorageGB, MetricAIGenerations:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMetric, s)
	}
}

func (m Metric) String() string {
	return string(m)
}
