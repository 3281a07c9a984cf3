package planlimits

import (
	"fmt"
	"math"
)

// BytesPerGB converts storage overrides, which are stored in bytes, to the GB-denominated limit.
const BytesPerGB = 1 << 30

// Limits holds the ceiling for every metric.
type Limits struct {
	Workspaces            Limit `json:"workspaces" yaml:"workspaces"`
	Members               Limit `json:"members" yaml:"members"`
	StorageGB             Limit `json:"storageGB" yaml:"storageGB"`
	AIGenerationsPerMonth Limit `json:"aiGenerationsPerMonth" yaml:"aiGenerationsPerMonth"`
}

// Get returns the limit for a metric.
func (l Limits) Get(m Metric) (Limit, error) {
	switch m {
	case MetricWorkspaces:
		return l.Workspaces, nil
	case MetricMembers:
		return l.Members, nil
	case MetricStorageGB:
		return l.StorageGB, nil
	case MetricAIGenerations:
		return l.AIGenerationsPerMonth, nil
	default:
		return Limit{}, fmt.Errorf("%w: %q", ErrUnknownMetric, m)
	}
}

// IsOver reports whether current usage of m has reached its ceiling.
func (l Limits) IsOver(m Metric, current float64) (bool, error) {
	if err := checkUsage(current); err != nil {
		return false, err
	}
	limit, err := l.Get(m)
	if err != nil {
		return false, err
	}
	return limit.Exceeded(current), nil
}

// Remaining returns the quota left for m, or Unlimited.
func (l Limits) Remaining(m Metric, current float64) (Limit, error) {
	if err := checkUsage(current); err != nil {
		return Limit{}, err
	}
	limit, err := l.Get(m)
	if err != nil {
		return Limit{}, err
	}
	return limit.Remaining(current), nil
}

// Valid reports whether every limit is unlimited or a non-negative number.
func (l Limits) Valid() bool {
	return l.Workspaces.Valid() && l.Members.Valid() && l.StorageGB.Valid() && l.AIGenerationsPerMonth.Valid()
}

// AllUnlimited reports whether no metric is bounded.
func (l Limits) AllUnlimited() bool {
	return l.Workspaces.IsUnlimited() && l.Members.IsUnlimited() &&
		l.StorageGB.IsUnlimited() && l.AIGenerationsPerMonth.IsUnlimited()
}

// Overrides are per-workspace manual adjustments. A nil field defers to the
// tier default; a non-nil field replaces it, including an explicit zero.
type Overrides struct {
	Workspaces            *int64 `json:"custom_workspace_limit,omitempty"`
	Members               *int64 `json:"custom_member_limit,omitempty"`
	StorageBytes          *int64 `json:"custom_storage_limit,omitempty"`
	AIGenerationsPerMonth *int64 `json:"custom_ai_generation_limit,omitempty"`
}

// Empty reports whether no override is set.
func (o Overrides) Empty() bool {
	return o.Workspaces == nil && o.Members == nil && o.StorageBytes == nil && o.AIGenerationsPerMonth == nil
}

// Apply merges the overrides onto base.
func (o Overrides) Apply(base Limits) (Limits, error) {
	out := base
	for _, f := range []struct {
		name   string
		value  *int64
		target *Limit
		scale  float64
	}{
		{"custom_workspace_limit", o.Workspaces, &out.Workspaces, 1},
		{"custom_member_limit", o.Members, &out.Members, 1},
		{"custom_storage_limit", o.StorageBytes, &out.StorageGB, BytesPerGB},
		{"custom_ai_generation_limit", o.AIGenerationsPerMonth, &out.AIGenerationsPerMonth, 1},
	} {
		if f.value == nil {
			continue
		}
		if *f.value < 0 {
			return Limits{}, fmt.Errorf("%w: %s is negative: %d", ErrInvalidArgument, f.name, *f.value)
		}
		*f.target = Finite(float64(*f.value) / f.scale)
	}
	return out, nil
}

func checkUsage(current float64) error {
	if current < 0 || math.IsNaN(current) {
		return fmt.Errorf("%w: usage must be non-negative, got %v", ErrInvalidArgument, current)
	}
	return nil
}
