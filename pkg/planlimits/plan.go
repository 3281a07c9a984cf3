package planlimits

import (
	"errors"
	"fmt"
	"slices"

	"golang.org/x/text/currency"
)

// Money is a display price in the smallest currency unit (paise for INR, cents for USD).
type Money struct {
	Amount   int64  `json:"amount" yaml:"amount"`
	Currency string `json:"currency" yaml:"currency"` // ISO 4217
}

// BillingInterval is the billing frequency shown next to a price.
type BillingInterval string

const (
	BillingIntervalNone    BillingInterval = "none"
	BillingIntervalMonthly BillingInterval = "monthly"
	BillingIntervalAnnual  BillingInterval = "annual"
)

// Plan is one row of the plan table. Price and Interval are display-only.
type Plan struct {
	Tier        Tier            `json:"tier" yaml:"-"`
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
	Limits      Limits          `json:"limits" yaml:"limits"`
	Price       Money           `json:"price" yaml:"price"`
	Interval    BillingInterval `json:"interval" yaml:"interval"`
}

// Table maps every tier to its plan.
type Table map[Tier]Plan

// DefaultTable returns a fresh copy of the built-in plan table.
func DefaultTable() Table {
	return Table{
		TierBasic: {
			Tier:        TierBasic,
			Name:        "Basic",
			Description: "For individual creators getting started",
			Limits: Limits{
				Workspaces:            Finite(1),
				Members:               Finite(3),
				StorageGB:             Finite(5),
				AIGenerationsPerMonth: Finite(30),
			},
			Price:    Money{Amount: 0, Currency: "INR"},
			Interval: BillingIntervalNone,
		},
		TierPro: {
			Tier:        TierPro,
			Name:        "Pro",
			Description: "For growing content teams",
			Limits: Limits{
				Workspaces:            Finite(3),
				Members:               Finite(10),
				StorageGB:             Finite(50),
				AIGenerationsPerMonth: Finite(300),
			},
			Price:    Money{Amount: 99900, Currency: "INR"},
			Interval: BillingIntervalMonthly,
		},
		TierCustom: {
			Tier:        TierCustom,
			Name:        "Custom",
			Description: "Tailored limits for agencies and studios",
			Limits: Limits{
				Workspaces:            Unlimited(),
				Members:               Unlimited(),
				StorageGB:             Unlimited(),
				AIGenerationsPerMonth: Unlimited(),
			},
			Price:    Money{Amount: 0, Currency: "INR"},
			Interval: BillingIntervalNone,
		},
	}
}

// Clone returns a copy of t. Plans hold only value types, so a shallow map copy is deep.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	for tier, plan := range t {
		out[tier] = plan
	}
	return out
}

// Plans returns the plans ordered by tier rank.
func (t Table) Plans() []Plan {
	plans := make([]Plan, 0, len(t))
	for _, tier := range Tiers() {
		if p, ok := t[tier]; ok {
			plans = append(plans, p)
		}
	}
	return plans
}

// Validate checks the table for configuration errors. All problems are reported together.
func (t Table) Validate() error {
	var errs []error
	for tier, plan := range t {
		if !tier.Valid() {
			errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownTier, tier))
			continue
		}
		if plan.Tier != tier {
			errs = append(errs, fmt.Errorf("plan tier mismatch: key %s != plan.Tier %s", tier, plan.Tier))
		}
		if !plan.Limits.Valid() {
			errs = append(errs, fmt.Errorf("plan %s has a negative or non-finite limit", tier))
		}
		if plan.Price.Amount < 0 {
			errs = append(errs, fmt.Errorf("plan %s has a negative price", tier))
		}
		if _, err := currency.ParseISO(plan.Price.Currency); err != nil {
			errs = append(errs, fmt.Errorf("plan %s has invalid currency %q: %w", tier, plan.Price.Currency, err))
		}
		if !slices.Contains([]BillingInterval{BillingIntervalNone, BillingIntervalMonthly, BillingIntervalAnnual}, plan.Interval) {
			errs = append(errs, fmt.Errorf("plan %s has invalid billing interval %q", tier, plan.Interval))
		}
	}
	for _, tier := range Tiers() {
		if _, ok := t[tier]; !ok {
			errs = append(errs, fmt.Errorf("plan %s is missing", tier))
		}
	}
	if custom, ok := t[TierCustom]; ok && !custom.Limits.AllUnlimited() {
		errs = append(errs, errors.New("plan custom must be unlimited on every metric"))
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidPlanConfiguration}, errs...)...)
	}
	return nil
}
