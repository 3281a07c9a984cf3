package planlimits_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virlhq/virl/pkg/planlimits"
)

func TestTable_Validate(t *testing.T) {
	t.Parallel()

	require.NoError(t, planlimits.DefaultTable().Validate())

	tests := []struct {
		name   string
		mutate func(planlimits.Table)
		errMsg string
	}{
		{
			name:   "missing tier",
			mutate: func(tb planlimits.Table) { delete(tb, planlimits.TierPro) },
			errMsg: "plan pro is missing",
		},
		{
			name: "negative limit",
			mutate: func(tb planlimits.Table) {
				p := tb[planlimits.TierBasic]
				p.Limits.Members = planlimits.Finite(-3)
				tb[planlimits.TierBasic] = p
			},
			errMsg: "negative or non-finite limit",
		},
		{
			name: "bounded custom tier",
			mutate: func(tb planlimits.Table) {
				p := tb[planlimits.TierCustom]
				p.Limits.StorageGB = planlimits.Finite(1000)
				tb[planlimits.TierCustom] = p
			},
			errMsg: "custom must be unlimited",
		},
		{
			name: "invalid currency",
			mutate: func(tb planlimits.Table) {
				p := tb[planlimits.TierPro]
				p.Price.Currency = "RUPEES"
				tb[planlimits.TierPro] = p
			},
			errMsg: "invalid currency",
		},
		{
			name: "invalid interval",
			mutate: func(tb planlimits.Table) {
				p := tb[planlimits.TierPro]
				p.Interval = "weekly"
				tb[planlimits.TierPro] = p
			},
			errMsg: "invalid billing interval",
		},
		{
			name: "tier mismatch",
			mutate: func(tb planlimits.Table) {
				p := tb[planlimits.TierPro]
				p.Tier = planlimits.TierBasic
				tb[planlimits.TierPro] = p
			},
			errMsg: "plan tier mismatch",
		},
		{
			name:   "unknown tier key",
			mutate: func(tb planlimits.Table) { tb["gold"] = planlimits.Plan{Tier: "gold"} },
			errMsg: "unknown plan tier",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			table := planlimits.DefaultTable()
			tt.mutate(table)

			err := table.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, planlimits.ErrInvalidPlanConfiguration)
			assert.Contains(t, err.Error(), tt.errMsg)

			_, err = planlimits.NewResolver(table)
			assert.ErrorIs(t, err, planlimits.ErrInvalidPlanConfiguration)
		})
	}
}

func TestTable_Plans_OrderedByRank(t *testing.T) {
	t.Parallel()

	plans := planlimits.DefaultTable().Plans()
	require.Len(t, plans, 3)
	assert.Equal(t, planlimits.TierBasic, plans[0].Tier)
	assert.Equal(t, planlimits.TierPro, plans[1].Tier)
	assert.Equal(t, planlimits.TierCustom, plans[2].Tier)
}

func TestCompareLimits(t *testing.T) {
	t.Parallel()

	table := planlimits.DefaultTable()
	basic := table[planlimits.TierBasic].Limits
	pro := table[planlimits.TierPro].Limits
	custom := table[planlimits.TierCustom].Limits

	t.Run("upgrade", func(t *testing.T) {
		t.Parallel()
		c := planlimits.CompareLimits(basic, pro)
		assert.False(t, c.IsDowngrade())
		assert.Len(t, c.Increased, 4)
		assert.Equal(t, planlimits.LimitChange{From: planlimits.Finite(3), To: planlimits.Finite(10)}, c.Increased[planlimits.MetricMembers])
	})

	t.Run("unlimited to finite is a decrease", func(t *testing.T) {
		t.Parallel()
		c := planlimits.CompareLimits(custom, pro)
		assert.True(t, c.IsDowngrade())
		assert.Len(t, c.Decreased, 4)
		assert.True(t, c.Decreased[planlimits.MetricStorageGB].From.IsUnlimited())
	})

	t.Run("same limits", func(t *testing.T) {
		t.Parallel()
		c := planlimits.CompareLimits(pro, pro)
		assert.Empty(t, c.Increased)
		assert.Empty(t, c.Decreased)
	})
}
