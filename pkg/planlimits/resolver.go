package planlimits

import (
	"context"
	"errors"
	"fmt"
)

// Resolver answers limit questions against an immutable plan table.
// It is safe for concurrent use.
type Resolver struct {
	table Table
}

// NewResolver validates table and keeps a private copy of it.
func NewResolver(table Table) (*Resolver, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return &Resolver{table: table.Clone()}, nil
}

// NewResolverFromSource loads the table from src and builds a Resolver.
func NewResolverFromSource(ctx context.Context, src Source) (*Resolver, error) {
	table, err := src.Load(ctx)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}
	return NewResolver(table)
}

// MustNewResolver is NewResolver that panics on an invalid table.
func MustNewResolver(table Table) *Resolver {
	r, err := NewResolver(table)
	if err != nil {
		panic(fmt.Sprintf("planlimits: %v", err))
	}
	return r
}

// Plan returns the plan row for tier, including display pricing.
func (r *Resolver) Plan(tier Tier) (Plan, error) {
	plan, ok := r.table[tier]
	if !ok {
		return Plan{}, fmt.Errorf("%w: %q", ErrUnknownTier, tier)
	}
	return plan, nil
}

// Plans returns every plan ordered by tier rank.
func (r *Resolver) Plans() []Plan {
	return r.table.Plans()
}

// Table returns a copy of the plan table.
func (r *Resolver) Table() Table {
	return r.table.Clone()
}

// BaseLimits returns the static limits of tier.
func (r *Resolver) BaseLimits(tier Tier) (Limits, error) {
	plan, err := r.Plan(tier)
	if err != nil {
		return Limits{}, err
	}
	return plan.Limits, nil
}

// EffectiveLimits merges overrides onto the base limits of tier.
// The tier is trusted as given: resolve expiry with ResolveActiveTier first.
func (r *Resolver) EffectiveLimits(tier Tier, overrides *Overrides) (Limits, error) {
	base, err := r.BaseLimits(tier)
	if err != nil {
		return Limits{}, err
	}
	if overrides == nil {
		return base, nil
	}
	return overrides.Apply(base)
}

// IsOverLimit reports whether current usage of metric has reached the tier ceiling.
func (r *Resolver) IsOverLimit(tier Tier, metric Metric, current float64) (bool, error) {
	limits, err := r.BaseLimits(tier)
	if err != nil {
		return false, err
	}
	return limits.IsOver(metric, current)
}

// RemainingQuota returns how much of metric is left on tier, or Unlimited.
func (r *Resolver) RemainingQuota(tier Tier, metric Metric, current float64) (Limit, error) {
	limits, err := r.BaseLimits(tier)
	if err != nil {
		return Limit{}, err
	}
	return limits.Remaining(metric, current)
}
