package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/virlhq/virl/pkg/logger"
	"github.com/virlhq/virl/pkg/planlimits"
	"github.com/virlhq/virl/svc/workspace"
)

// Workspaces is the part of the workspace service billing writes through.
type Workspaces interface {
	Get(ctx context.Context, id uuid.UUID) (workspace.Workspace, error)
	Entitlements(ctx context.Context, id uuid.UUID) (workspace.Entitlements, error)
	UpdateSubscription(ctx context.Context, id uuid.UUID, tier planlimits.Tier, endDate *time.Time, customerID string) (workspace.Workspace, error)
	WorkspaceAllowance(ctx context.Context, ownerID uuid.UUID, assume map[uuid.UUID]planlimits.Tier) (workspace.WorkspaceAllowance, error)
}

// Service connects checkout and subscription webhooks to workspace tiers.
type Service struct {
	provider   Provider
	workspaces Workspaces
	resolver   *planlimits.Resolver
	prices     map[planlimits.Tier]string
	tiers      map[string]planlimits.Tier
	successURL string
	now        func() time.Time
	log        *slog.Logger
}

type ServiceOption func(*Service)

func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// NewService validates the price map: every key must be a paid tier other
// than custom, and each price ID may map to one tier only.
func NewService(provider Provider, workspaces Workspaces, resolver *planlimits.Resolver, cfg Config, opts ...ServiceOption) (*Service, error) {
	if provider == nil || workspaces == nil || resolver == nil {
		return nil, fmt.Errorf("%w: provider, workspaces and resolver are required", ErrInvalidConfig)
	}

	s := &Service{
		provider:   provider,
		workspaces: workspaces,
		resolver:   resolver,
		prices:     make(map[planlimits.Tier]string, len(cfg.PriceIDs)),
		tiers:      make(map[string]planlimits.Tier, len(cfg.PriceIDs)),
		successURL: cfg.SuccessURL,
		now:        time.Now,
		log:        logger.Discard(),
	}
	for name, priceID := range cfg.PriceIDs {
		tier, err := planlimits.ParseTier(name)
		if err != nil {
			return nil, errors.Join(ErrInvalidConfig, err)
		}
		if !purchasable(tier) || priceID == "" {
			return nil, fmt.Errorf("%w: tier %q cannot have a price", ErrInvalidConfig, tier)
		}
		if other, ok := s.tiers[priceID]; ok {
			return nil, fmt.Errorf("%w: price %q mapped to %s and %s", ErrInvalidConfig, priceID, other, tier)
		}
		s.prices[tier] = priceID
		s.tiers[priceID] = tier
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Custom plans are sold by contract, basic is free.
func purchasable(t planlimits.Tier) bool {
	return t == planlimits.TierPro
}

// Checkout starts a hosted checkout that upgrades the workspace to tier.
func (s *Service) Checkout(ctx context.Context, workspaceID uuid.UUID, tier planlimits.Tier) (*CheckoutLink, error) {
	if !tier.Valid() {
		return nil, fmt.Errorf("%w: %q", planlimits.ErrUnknownTier, tier)
	}
	priceID, ok := s.prices[tier]
	if !ok || !purchasable(tier) {
		return nil, fmt.Errorf("%w: %s", ErrNotPurchasable, tier)
	}

	ws, err := s.workspaces.Get(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	link, err := s.provider.CreateCheckout(ctx, CheckoutRequest{
		PriceID:     priceID,
		WorkspaceID: ws.ID,
		CustomerID:  ws.BillingCustomerID,
		SuccessURL:  s.successURL,
	})
	if err != nil {
		s.log.ErrorContext(ctx, "checkout failed",
			logger.WorkspaceID(ws.ID),
			logger.Tier(tier),
			logger.Error(err),
		)
		return nil, err
	}

	s.log.InfoContext(ctx, "checkout created",
		logger.WorkspaceID(ws.ID),
		logger.Tier(tier),
		slog.String("transaction_id", link.TransactionID),
	)
	return link, nil
}

// HandleWebhook verifies and applies one subscription event. Events the
// service does not act on are acknowledged and ignored.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) (*Event, error) {
	ev, err := s.provider.ParseWebhook(ctx, payload, signature)
	if err != nil {
		s.log.WarnContext(ctx, "rejected billing webhook", logger.Error(err))
		return nil, err
	}
	return ev, s.Apply(ctx, ev)
}

// Apply updates the workspace a verified event belongs to.
//
// Active or trialing subscriptions set the tier and extend the end date to
// the current billing period. Cancellation keeps the tier and sets the end
// date, so the workspace drops to basic once that moment passes.
func (s *Service) Apply(ctx context.Context, ev *Event) error {
	log := s.log.With(
		logger.EventType(string(ev.Type)),
		slog.String("event_id", ev.ID),
		slog.String("subscription_id", ev.SubscriptionID),
	)

	switch ev.Type {
	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionResumed, EventSubscriptionActivate:
		if ev.Status != "active" && ev.Status != "trialing" {
			log.InfoContext(ctx, "ignoring subscription status", slog.String("status", ev.Status))
			return nil
		}
		if ev.WorkspaceID == uuid.Nil {
			return ErrMissingWorkspace
		}
		if ev.PeriodEndsAt == nil {
			return ErrMissingPeriod
		}
		tier, ok := s.tiers[ev.PriceID]
		if !ok {
			log.ErrorContext(ctx, "subscription price is not mapped", slog.String("price_id", ev.PriceID))
			return fmt.Errorf("%w: %q", ErrUnknownPrice, ev.PriceID)
		}
		_, err := s.workspaces.UpdateSubscription(ctx, ev.WorkspaceID, tier, ev.PeriodEndsAt, ev.CustomerID)
		return err

	case EventSubscriptionCanceled:
		if ev.WorkspaceID == uuid.Nil {
			return ErrMissingWorkspace
		}
		ws, err := s.workspaces.Get(ctx, ev.WorkspaceID)
		if err != nil {
			return err
		}
		end := s.now().UTC()
		if ev.CanceledAt != nil {
			end = *ev.CanceledAt
		}
		if ws.SubscriptionEndDate != nil && ws.SubscriptionEndDate.Before(end) {
			end = *ws.SubscriptionEndDate
		}
		_, err = s.workspaces.UpdateSubscription(ctx, ws.ID, ws.Tier, &end, ev.CustomerID)
		return err
	}

	log.DebugContext(ctx, "ignoring billing event")
	return nil
}

// CanDowngrade checks current usage against target's limits with the
// workspace's overrides applied. Usage equal to a limit fits. The workspace
// count is an owner-wide allowance, so it is checked against the best limit
// among the owner's workspaces with this one at target.
func (s *Service) CanDowngrade(ctx context.Context, workspaceID uuid.UUID, target planlimits.Tier) (planlimits.Comparison, error) {
	if !target.Valid() {
		return planlimits.Comparison{}, fmt.Errorf("%w: %q", planlimits.ErrUnknownTier, target)
	}
	ws, err := s.workspaces.Get(ctx, workspaceID)
	if err != nil {
		return planlimits.Comparison{}, err
	}
	ent, err := s.workspaces.Entitlements(ctx, workspaceID)
	if err != nil {
		return planlimits.Comparison{}, err
	}
	targetLimits, err := s.resolver.EffectiveLimits(target, &ws.Overrides)
	if err != nil {
		return planlimits.Comparison{}, err
	}

	cmp := planlimits.CompareLimits(ent.Limits, targetLimits)
	violations := make(map[planlimits.Metric]Violation)
	for _, m := range planlimits.Metrics() {
		if m == planlimits.MetricWorkspaces {
			continue
		}
		current, err := ent.Usage.Value(m)
		if err != nil {
			return planlimits.Comparison{}, err
		}
		limit, err := targetLimits.Get(m)
		if err != nil {
			return planlimits.Comparison{}, err
		}
		if n, finite := limit.Value(); finite && current > n {
			violations[m] = Violation{Current: current, Limit: limit}
		}
	}
	allowance, err := s.workspaces.WorkspaceAllowance(ctx, ws.OwnerID, map[uuid.UUID]planlimits.Tier{ws.ID: target})
	if err != nil {
		return planlimits.Comparison{}, err
	}
	if n, finite := allowance.Limit.Value(); finite && float64(allowance.Current) > n {
		violations[planlimits.MetricWorkspaces] = Violation{Current: float64(allowance.Current), Limit: allowance.Limit}
	}

	if len(violations) > 0 {
		s.log.InfoContext(ctx, "downgrade blocked",
			logger.WorkspaceID(workspaceID),
			logger.Tier(target),
			slog.Int("violations", len(violations)),
		)
		return cmp, &DowngradeError{Target: target, Violations: violations}
	}
	return cmp, nil
}
