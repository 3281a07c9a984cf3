package billing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/virlhq/virl/pkg/email"
	"github.com/virlhq/virl/pkg/planlimits"
	"github.com/virlhq/virl/pkg/storage"
	"github.com/virlhq/virl/svc/billing"
	"github.com/virlhq/virl/svc/workspace"
)

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) CreateCheckout(ctx context.Context, req billing.CheckoutRequest) (*billing.CheckoutLink, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.CheckoutLink), args.Error(1)
}

func (m *MockProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (*billing.Event, error) {
	args := m.Called(ctx, payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Event), args.Error(1)
}

type noopObjects struct{}

func (noopObjects) PresignUpload(context.Context, string, string, int64, time.Duration) (*storage.PresignedRequest, error) {
	return &storage.PresignedRequest{}, nil
}

func (noopObjects) PresignDownload(context.Context, string, time.Duration) (*storage.PresignedRequest, error) {
	return &storage.PresignedRequest{}, nil
}

func (noopObjects) Stat(context.Context, string) (*storage.ObjectInfo, error) {
	return nil, storage.ErrObjectNotFound
}

func (noopObjects) Delete(context.Context, string) error { return nil }

type noopMailer struct{}

func (noopMailer) SendEmail(context.Context, email.SendEmailParams) error { return nil }

var testNow = time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)

type fixture struct {
	provider   *MockProvider
	store      *workspace.MemoryStore
	workspaces *workspace.Service
	svc        *billing.Service
	now        time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		provider: &MockProvider{},
		store:    workspace.NewMemoryStore(),
		now:      testNow,
	}
	clock := func() time.Time { return f.now }
	resolver := planlimits.MustNewResolver(planlimits.DefaultTable())
	f.workspaces = workspace.NewService(resolver, f.store, workspace.NewMemoryCounter(), noopObjects{}, noopMailer{},
		workspace.WithClock(clock))

	svc, err := billing.NewService(f.provider, f.workspaces, resolver, billing.Config{
		PriceIDs:   map[string]string{"pro": "pri_pro_monthly"},
		SuccessURL: "https://app.virl.test/billing/done",
	}, billing.WithClock(clock))
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) workspace(t *testing.T) workspace.Workspace {
	t.Helper()
	ws, err := f.workspaces.CreateWorkspace(context.Background(), uuid.New(), "Acme")
	require.NoError(t, err)
	return ws
}

func TestNewService_ValidatesPrices(t *testing.T) {
	t.Parallel()

	resolver := planlimits.MustNewResolver(planlimits.DefaultTable())
	ws := workspace.NewService(resolver, workspace.NewMemoryStore(), workspace.NewMemoryCounter(), noopObjects{}, noopMailer{})

	tests := []struct {
		name   string
		prices map[string]string
	}{
		{"unknown tier", map[string]string{"enterprise": "pri_1"}},
		{"free tier", map[string]string{"basic": "pri_1"}},
		{"custom tier", map[string]string{"custom": "pri_1"}},
		{"empty price", map[string]string{"pro": ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := billing.NewService(&MockProvider{}, ws, resolver, billing.Config{PriceIDs: tt.prices})
			require.ErrorIs(t, err, billing.ErrInvalidConfig)
		})
	}

	t.Run("missing provider", func(t *testing.T) {
		t.Parallel()
		_, err := billing.NewService(nil, ws, resolver, billing.Config{})
		require.ErrorIs(t, err, billing.ErrInvalidConfig)
	})
}

func TestCheckout(t *testing.T) {
	t.Parallel()

	t.Run("creates checkout for pro", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		ws := f.workspace(t)

		want := &billing.CheckoutLink{URL: "https://pay.paddle.test/txn_1", TransactionID: "txn_1"}
		f.provider.On("CreateCheckout", mock.Anything, billing.CheckoutRequest{
			PriceID:     "pri_pro_monthly",
			WorkspaceID: ws.ID,
			SuccessURL:  "https://app.virl.test/billing/done",
		}).Return(want, nil).Once()

		link, err := f.svc.Checkout(context.Background(), ws.ID, planlimits.TierPro)
		require.NoError(t, err)
		assert.Equal(t, want, link)
		f.provider.AssertExpectations(t)
	})

	t.Run("basic and custom are not purchasable", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		ws := f.workspace(t)

		for _, tier := range []planlimits.Tier{planlimits.TierBasic, planlimits.TierCustom} {
			_, err := f.svc.Checkout(context.Background(), ws.ID, tier)
			require.ErrorIs(t, err, billing.ErrNotPurchasable, tier)
		}
		f.provider.AssertNotCalled(t, "CreateCheckout", mock.Anything, mock.Anything)
	})

	t.Run("unknown tier", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		_, err := f.svc.Checkout(context.Background(), uuid.New(), planlimits.Tier("gold"))
		require.ErrorIs(t, err, planlimits.ErrUnknownTier)
	})

	t.Run("unknown workspace", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		_, err := f.svc.Checkout(context.Background(), uuid.New(), planlimits.TierPro)
		require.ErrorIs(t, err, workspace.ErrWorkspaceNotFound)
	})

	t.Run("provider failure", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		ws := f.workspace(t)
		f.provider.On("CreateCheckout", mock.Anything, mock.Anything).Return(nil, billing.ErrCheckoutFailed).Once()

		_, err := f.svc.Checkout(context.Background(), ws.ID, planlimits.TierPro)
		require.ErrorIs(t, err, billing.ErrCheckoutFailed)
	})
}

func TestHandleWebhook(t *testing.T) {
	t.Parallel()

	periodEnd := testNow.AddDate(0, 1, 0)

	t.Run("active subscription upgrades workspace", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		ws := f.workspace(t)

		f.provider.On("ParseWebhook", mock.Anything, []byte("{}"), "sig").Return(&billing.Event{
			ID:           "evt_1",
			Type:         billing.EventSubscriptionCreated,
			Status:       "active",
			PriceID:      "pri_pro_monthly",
			CustomerID:   "ctm_1",
			WorkspaceID:  ws.ID,
			PeriodEndsAt: &periodEnd,
		}, nil).Once()

		_, err := f.svc.HandleWebhook(context.Background(), []byte("{}"), "sig")
		require.NoError(t, err)

		ent, err := f.workspaces.Entitlements(context.Background(), ws.ID)
		require.NoError(t, err)
		assert.Equal(t, planlimits.TierPro, ent.ActiveTier)
		assert.Equal(t, planlimits.Finite(10), ent.Limits.Members)

		got, err := f.workspaces.Get(context.Background(), ws.ID)
		require.NoError(t, err)
		assert.Equal(t, "ctm_1", got.BillingCustomerID)
	})

	t.Run("cancellation keeps tier until end date", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		ws := f.workspace(t)
		_, err := f.workspaces.UpdateSubscription(context.Background(), ws.ID, planlimits.TierPro, &periodEnd, "ctm_1")
		require.NoError(t, err)

		canceledAt := testNow.Add(72 * time.Hour)
		require.NoError(t, f.svc.Apply(context.Background(), &billing.Event{
			Type:        billing.EventSubscriptionCanceled,
			Status:      "canceled",
			WorkspaceID: ws.ID,
			CanceledAt:  &canceledAt,
		}))

		ent, err := f.workspaces.Entitlements(context.Background(), ws.ID)
		require.NoError(t, err)
		assert.Equal(t, planlimits.TierPro, ent.StoredTier)
		assert.Equal(t, planlimits.TierPro, ent.ActiveTier)
		require.NotNil(t, ent.ExpiresAt)
		assert.True(t, canceledAt.Equal(*ent.ExpiresAt))

		f.now = canceledAt.Add(time.Second)
		ent, err = f.workspaces.Entitlements(context.Background(), ws.ID)
		require.NoError(t, err)
		assert.Equal(t, planlimits.TierBasic, ent.ActiveTier)
	})

	t.Run("cancellation never extends the end date", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		ws := f.workspace(t)
		_, err := f.workspaces.UpdateSubscription(context.Background(), ws.ID, planlimits.TierPro, &periodEnd, "")
		require.NoError(t, err)

		later := periodEnd.AddDate(0, 1, 0)
		require.NoError(t, f.svc.Apply(context.Background(), &billing.Event{
			Type:        billing.EventSubscriptionCanceled,
			WorkspaceID: ws.ID,
			CanceledAt:  &later,
		}))

		got, err := f.workspaces.Get(context.Background(), ws.ID)
		require.NoError(t, err)
		require.NotNil(t, got.SubscriptionEndDate)
		assert.True(t, periodEnd.Equal(*got.SubscriptionEndDate))
	})

	t.Run("past due status is ignored", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		ws := f.workspace(t)

		require.NoError(t, f.svc.Apply(context.Background(), &billing.Event{
			Type:         billing.EventSubscriptionUpdated,
			Status:       "past_due",
			PriceID:      "pri_pro_monthly",
			WorkspaceID:  ws.ID,
			PeriodEndsAt: &periodEnd,
		}))

		got, err := f.workspaces.Get(context.Background(), ws.ID)
		require.NoError(t, err)
		assert.Equal(t, planlimits.TierBasic, got.Tier)
	})

	t.Run("unmapped price", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		ws := f.workspace(t)

		err := f.svc.Apply(context.Background(), &billing.Event{
			Type:         billing.EventSubscriptionUpdated,
			Status:       "active",
			PriceID:      "pri_other",
			WorkspaceID:  ws.ID,
			PeriodEndsAt: &periodEnd,
		})
		require.ErrorIs(t, err, billing.ErrUnknownPrice)
	})

	t.Run("missing workspace or period", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		err := f.svc.Apply(context.Background(), &billing.Event{
			Type: billing.EventSubscriptionCreated, Status: "active", PriceID: "pri_pro_monthly", PeriodEndsAt: &periodEnd,
		})
		require.ErrorIs(t, err, billing.ErrMissingWorkspace)

		err = f.svc.Apply(context.Background(), &billing.Event{
			Type: billing.EventSubscriptionCreated, Status: "active", PriceID: "pri_pro_monthly", WorkspaceID: uuid.New(),
		})
		require.ErrorIs(t, err, billing.ErrMissingPeriod)
	})

	t.Run("other events are acknowledged", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		require.NoError(t, f.svc.Apply(context.Background(), &billing.Event{Type: "transaction.completed"}))
	})

	t.Run("invalid signature", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.provider.On("ParseWebhook", mock.Anything, mock.Anything, "bad").Return(nil, billing.ErrInvalidSignature).Once()

		_, err := f.svc.HandleWebhook(context.Background(), []byte("{}"), "bad")
		require.ErrorIs(t, err, billing.ErrInvalidSignature)
	})
}

func TestCanDowngrade(t *testing.T) {
	t.Parallel()

	end := testNow.AddDate(0, 1, 0)

	t.Run("usage within basic limits", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		ws := f.workspace(t)
		_, err := f.workspaces.UpdateSubscription(context.Background(), ws.ID, planlimits.TierPro, &end, "")
		require.NoError(t, err)

		cmp, err := f.svc.CanDowngrade(context.Background(), ws.ID, planlimits.TierBasic)
		require.NoError(t, err)
		assert.True(t, cmp.IsDowngrade())
		assert.Contains(t, cmp.Decreased, planlimits.MetricMembers)
	})

	t.Run("too many members for basic", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		ws := f.workspace(t)
		_, err := f.workspaces.UpdateSubscription(context.Background(), ws.ID, planlimits.TierPro, &end, "")
		require.NoError(t, err)
		for range 4 {
			_, err := f.workspaces.AddMember(context.Background(), ws.ID, uuid.New(), workspace.RoleMember)
			require.NoError(t, err)
		}

		_, err = f.svc.CanDowngrade(context.Background(), ws.ID, planlimits.TierBasic)
		require.ErrorIs(t, err, billing.ErrDowngradeBlocked)

		var de *billing.DowngradeError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, planlimits.TierBasic, de.Target)
		require.Contains(t, de.Violations, planlimits.MetricMembers)
		assert.Equal(t, float64(5), de.Violations[planlimits.MetricMembers].Current)
		assert.Equal(t, planlimits.Finite(3), de.Violations[planlimits.MetricMembers].Limit)
		assert.NotContains(t, de.Violations, planlimits.MetricWorkspaces)
	})

	t.Run("override raises target limit", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		ws := f.workspace(t)
		_, err := f.workspaces.UpdateSubscription(context.Background(), ws.ID, planlimits.TierPro, &end, "")
		require.NoError(t, err)
		for range 4 {
			_, err := f.workspaces.AddMember(context.Background(), ws.ID, uuid.New(), workspace.RoleMember)
			require.NoError(t, err)
		}
		members := int64(8)
		_, err = f.workspaces.SetOverrides(context.Background(), ws.ID, planlimits.Overrides{Members: &members})
		require.NoError(t, err)

		_, err = f.svc.CanDowngrade(context.Background(), ws.ID, planlimits.TierBasic)
		require.NoError(t, err)
	})

	t.Run("workspace count uses the owner's best remaining tier", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		ctx := context.Background()
		owner := uuid.New()

		first, err := f.workspaces.CreateWorkspace(ctx, owner, "First")
		require.NoError(t, err)
		_, err = f.workspaces.UpdateSubscription(ctx, first.ID, planlimits.TierPro, &end, "")
		require.NoError(t, err)
		second, err := f.workspaces.CreateWorkspace(ctx, owner, "Second")
		require.NoError(t, err)

		_, err = f.svc.CanDowngrade(ctx, first.ID, planlimits.TierBasic)
		var de *billing.DowngradeError
		require.ErrorAs(t, err, &de)
		require.Contains(t, de.Violations, planlimits.MetricWorkspaces)
		assert.Equal(t, float64(2), de.Violations[planlimits.MetricWorkspaces].Current)
		assert.Equal(t, planlimits.Finite(1), de.Violations[planlimits.MetricWorkspaces].Limit)

		_, err = f.workspaces.UpdateSubscription(ctx, second.ID, planlimits.TierPro, &end, "")
		require.NoError(t, err)
		_, err = f.svc.CanDowngrade(ctx, first.ID, planlimits.TierBasic)
		require.NoError(t, err)
	})

	t.Run("unknown target", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		_, err := f.svc.CanDowngrade(context.Background(), uuid.New(), planlimits.Tier("gold"))
		require.ErrorIs(t, err, planlimits.ErrUnknownTier)
	})
}
