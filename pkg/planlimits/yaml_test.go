package planlimits_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virlhq/virl/pkg/planlimits"
)

const planYAML = `
plans:
  basic:
    name: Starter
    limits: {workspaces: 2, members: 4, storageGB: 2.5, aiGenerationsPerMonth: 40}
    price: {amount: 0, currency: USD}
    interval: none
  pro:
    name: Pro
    description: Teams
    limits: {workspaces: 5, members: 20, storageGB: 100, aiGenerationsPerMonth: 500}
    price: {amount: 1900, currency: USD}
    interval: monthly
  custom:
    name: Custom
    limits: {workspaces: unlimited, members: unlimited, storageGB: unlimited, aiGenerationsPerMonth: unlimited}
    price: {amount: 0, currency: USD}
    interval: none
`

func TestDecodeYAML(t *testing.T) {
	t.Parallel()

	table, err := planlimits.DecodeYAML(strings.NewReader(planYAML))
	require.NoError(t, err)
	require.NoError(t, table.Validate())

	basic := table[planlimits.TierBasic]
	assert.Equal(t, planlimits.TierBasic, basic.Tier)
	assert.Equal(t, "Starter", basic.Name)
	assert.Equal(t, planlimits.Finite(2.5), basic.Limits.StorageGB)

	pro := table[planlimits.TierPro]
	assert.Equal(t, planlimits.Money{Amount: 1900, Currency: "USD"}, pro.Price)
	assert.Equal(t, planlimits.BillingIntervalMonthly, pro.Interval)

	assert.True(t, table[planlimits.TierCustom].Limits.AllUnlimited())
}

func TestEncodeYAML_PreservesPricing(t *testing.T) {
	t.Parallel()

	original, err := planlimits.DecodeYAML(strings.NewReader(planYAML))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, planlimits.EncodeYAML(&buf, original))
	assert.Contains(t, buf.String(), "workspaces: unlimited")

	decoded, err := planlimits.DecodeYAML(&buf)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestDecodeYAML_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"empty file", "", planlimits.ErrInvalidPlanConfiguration},
		{"unknown tier", "plans:\n  enterprise:\n    name: X\n", planlimits.ErrUnknownTier},
		{"unknown field", "plans:\n  basic:\n    seats: 3\n", planlimits.ErrInvalidPlanConfiguration},
		{"bad limit", "plans:\n  basic:\n    limits: {members: lots}\n", planlimits.ErrInvalidPlanConfiguration},
		{"sequence limit", "plans:\n  basic:\n    limits: {members: [1]}\n", planlimits.ErrInvalidPlanConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := planlimits.DecodeYAML(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestYAMLSource(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "plans.yaml")
	require.NoError(t, os.WriteFile(path, []byte(planYAML), 0o600))

	r, err := planlimits.NewResolverFromSource(context.Background(), planlimits.NewYAMLSource(path))
	require.NoError(t, err)

	limits, err := r.BaseLimits(planlimits.TierBasic)
	require.NoError(t, err)
	assert.Equal(t, planlimits.Finite(4), limits.Members)

	_, err = planlimits.NewResolverFromSource(context.Background(), planlimits.NewYAMLSource(filepath.Join(t.TempDir(), "missing.yaml")))
	assert.ErrorIs(t, err, planlimits.ErrFailedToLoadPlans)
}

func TestInMemSource_ReturnsCopies(t *testing.T) {
	t.Parallel()

	src := planlimits.NewInMemSource(planlimits.DefaultTable())

	first, err := src.Load(context.Background())
	require.NoError(t, err)
	delete(first, planlimits.TierPro)

	second, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Contains(t, second, planlimits.TierPro)
}
