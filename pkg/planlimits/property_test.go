package planlimits_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/virlhq/virl/pkg/planlimits"
)

func drawTier(t *rapid.T) planlimits.Tier {
	return rapid.SampledFrom(planlimits.Tiers()).Draw(t, "tier")
}

func drawMetric(t *rapid.T) planlimits.Metric {
	return rapid.SampledFrom(planlimits.Metrics()).Draw(t, "metric")
}

func drawTime(t *rapid.T, label string) time.Time {
	sec := rapid.Int64Range(0, 4102444800).Draw(t, label) // 1970..2100
	return time.Unix(sec, 0).UTC()
}

func TestProperty_BaseLimitsAreWellFormed(t *testing.T) {
	r := newResolver(t)
	rapid.Check(t, func(t *rapid.T) {
		tier := drawTier(t)
		limits, err := r.BaseLimits(tier)
		require.NoError(t, err)
		assert.True(t, limits.Valid())
		if tier == planlimits.TierCustom {
			assert.True(t, limits.AllUnlimited())
		}
	})
}

func TestProperty_BasicIsAlwaysActive(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var expiresAt *time.Time
		if rapid.Bool().Draw(t, "hasExpiry") {
			e := drawTime(t, "expiry")
			expiresAt = &e
		}
		got, err := planlimits.ResolveActiveTier(planlimits.TierBasic, expiresAt, drawTime(t, "now"))
		require.NoError(t, err)
		assert.Equal(t, planlimits.TierBasic, got)
	})
}

func TestProperty_ActiveTierNeverExceedsStoredTier(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tier := drawTier(t)
		expiry := drawTime(t, "expiry")
		now := drawTime(t, "now")

		got, err := planlimits.ResolveActiveTier(tier, &expiry, now)
		require.NoError(t, err)
		assert.LessOrEqual(t, got.Rank(), tier.Rank())

		if expiry.Before(now) {
			assert.Equal(t, planlimits.TierBasic, got)
		} else {
			assert.Equal(t, tier, got)
		}
	})
}

func TestProperty_OverLimitMatchesRemainingQuota(t *testing.T) {
	r := newResolver(t)
	rapid.Check(t, func(t *rapid.T) {
		tier := drawTier(t)
		metric := drawMetric(t)
		current := float64(rapid.IntRange(0, 1000).Draw(t, "current"))

		over, err := r.IsOverLimit(tier, metric, current)
		require.NoError(t, err)
		remaining, err := r.RemainingQuota(tier, metric, current)
		require.NoError(t, err)

		if remaining.IsUnlimited() {
			assert.False(t, over)
			return
		}
		left, _ := remaining.Value()
		assert.GreaterOrEqual(t, left, 0.0)
		assert.Equal(t, left == 0, over)
	})
}

func TestProperty_NilOverridesFieldsDeferToTier(t *testing.T) {
	r := newResolver(t)
	rapid.Check(t, func(t *rapid.T) {
		tier := drawTier(t)
		base, err := r.BaseLimits(tier)
		require.NoError(t, err)

		var o planlimits.Overrides
		members := rapid.Int64Range(0, math.MaxInt32).Draw(t, "members")
		if rapid.Bool().Draw(t, "setMembers") {
			o.Members = &members
		}

		got, err := r.EffectiveLimits(tier, &o)
		require.NoError(t, err)
		assert.Equal(t, base.Workspaces, got.Workspaces)
		assert.Equal(t, base.StorageGB, got.StorageGB)
		assert.Equal(t, base.AIGenerationsPerMonth, got.AIGenerationsPerMonth)
		if o.Members != nil {
			assert.Equal(t, planlimits.Finite(float64(members)), got.Members)
		} else {
			assert.Equal(t, base.Members, got.Members)
		}
	})
}
