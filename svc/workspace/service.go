package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/virlhq/virl/pkg/email"
	"github.com/virlhq/virl/pkg/email/templates"
	"github.com/virlhq/virl/pkg/logger"
	"github.com/virlhq/virl/pkg/planlimits"
	"github.com/virlhq/virl/pkg/storage"
)

type (
	PresignedRequest = storage.PresignedRequest
	ObjectInfo       = storage.ObjectInfo
)

// ObjectStorage is the bucket the service hands out presigned URLs for.
type ObjectStorage interface {
	PresignUpload(ctx context.Context, key, contentType string, size int64, ttl time.Duration) (*PresignedRequest, error)
	PresignDownload(ctx context.Context, key string, ttl time.Duration) (*PresignedRequest, error)
	Stat(ctx context.Context, key string) (*ObjectInfo, error)
	Delete(ctx context.Context, key string) error
}

// Service enforces plan limits on workspace operations.
//
// Limit checks read usage and then act, so two concurrent requests may both
// pass a check that only one of them should. Member inserts close that gap in
// the store and AI generations in the counter; workspace creation, invitations
// and storage reservations are advisory.
type Service struct {
	resolver *planlimits.Resolver
	store    Store
	counter  UsageCounter
	objects  ObjectStorage
	mailer   email.EmailSender
	cfg      Config
	now      func() time.Time
	log      *slog.Logger
}

// NewService panics when a dependency is nil.
func NewService(
	resolver *planlimits.Resolver,
	store Store,
	counter UsageCounter,
	objects ObjectStorage,
	mailer email.EmailSender,
	opts ...ServiceOption,
) *Service {
	switch {
	case resolver == nil:
		panic("workspace: resolver is required")
	case store == nil:
		panic("workspace: store is required")
	case counter == nil:
		panic("workspace: usage counter is required")
	case objects == nil:
		panic("workspace: object storage is required")
	case mailer == nil:
		panic("workspace: email sender is required")
	}

	s := &Service{
		resolver: resolver,
		store:    store,
		counter:  counter,
		objects:  objects,
		mailer:   mailer,
		cfg:      defaultConfig(),
		now:      time.Now,
		log:      logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Component("workspace"))
	return s
}

// Plans returns the plan table in tier order.
func (s *Service) Plans() []planlimits.Plan {
	return s.resolver.Plans()
}

// Resolver exposes the plan resolver to collaborators such as billing.
func (s *Service) Resolver() *planlimits.Resolver {
	return s.resolver
}

// Get returns the workspace with id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Workspace, error) {
	return s.store.GetWorkspace(ctx, id)
}

// RequireMember returns userID's membership or ErrForbidden.
func (s *Service) RequireMember(ctx context.Context, workspaceID, userID uuid.UUID) (Member, error) {
	if _, err := s.store.GetWorkspace(ctx, workspaceID); err != nil {
		return Member{}, err
	}
	m, err := s.store.GetMember(ctx, workspaceID, userID)
	if errors.Is(err, ErrMemberNotFound) {
		return Member{}, ErrForbidden
	}
	return m, err
}

// RequireManager is RequireMember restricted to owners and admins.
func (s *Service) RequireManager(ctx context.Context, workspaceID, userID uuid.UUID) (Member, error) {
	m, err := s.RequireMember(ctx, workspaceID, userID)
	if err != nil {
		return Member{}, err
	}
	if !m.Role.CanManage() {
		return Member{}, ErrForbidden
	}
	return m, nil
}

// limitsFor resolves the active tier at the service clock and applies overrides.
func (s *Service) limitsFor(ws Workspace) (planlimits.Tier, planlimits.Limits, error) {
	active, err := planlimits.ResolveActiveTier(ws.Tier, ws.SubscriptionEndDate, s.now())
	if err != nil {
		return "", planlimits.Limits{}, err
	}
	limits, err := s.resolver.EffectiveLimits(active, &ws.Overrides)
	if err != nil {
		return "", planlimits.Limits{}, err
	}
	return active, limits, nil
}

// Entitlements resolves the active tier, effective limits, usage and remaining
// quota of a workspace.
func (s *Service) Entitlements(ctx context.Context, workspaceID uuid.UUID) (Entitlements, error) {
	ws, err := s.store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return Entitlements{}, err
	}
	active, limits, err := s.limitsFor(ws)
	if err != nil {
		return Entitlements{}, err
	}
	usage, err := s.usage(ctx, ws)
	if err != nil {
		return Entitlements{}, err
	}
	remaining, err := remainingFor(limits, usage)
	if err != nil {
		return Entitlements{}, err
	}

	return Entitlements{
		WorkspaceID: ws.ID,
		StoredTier:  ws.Tier,
		ActiveTier:  active,
		ExpiresAt:   ws.SubscriptionEndDate,
		Limits:      limits,
		Usage:       usage,
		Remaining:   remaining,
		Period:      Period(s.now()),
	}, nil
}

func (s *Service) usage(ctx context.Context, ws Workspace) (Usage, error) {
	owned, err := s.store.ListOwnedWorkspaces(ctx, ws.OwnerID)
	if err != nil {
		return Usage{}, err
	}
	members, err := s.store.CountMembers(ctx, ws.ID)
	if err != nil {
		return Usage{}, err
	}
	storageBytes, err := s.store.StorageUsage(ctx, ws.ID, s.pendingSince())
	if err != nil {
		return Usage{}, err
	}
	ai, err := s.counter.Used(ctx, ws.ID, s.now())
	if err != nil {
		return Usage{}, err
	}
	return Usage{
		Workspaces:    int64(len(owned)),
		Members:       members,
		StorageBytes:  storageBytes,
		AIGenerations: ai,
	}, nil
}

func remainingFor(limits planlimits.Limits, usage Usage) (planlimits.Limits, error) {
	var out planlimits.Limits
	targets := map[planlimits.Metric]*planlimits.Limit{
		planlimits.MetricWorkspaces:    &out.Workspaces,
		planlimits.MetricMembers:       &out.Members,
		planlimits.MetricStorageGB:     &out.StorageGB,
		planlimits.MetricAIGenerations: &out.AIGenerationsPerMonth,
	}
	for m, target := range targets {
		current, err := usage.Value(m)
		if err != nil {
			return planlimits.Limits{}, err
		}
		if *target, err = limits.Remaining(m, current); err != nil {
			return planlimits.Limits{}, err
		}
	}
	return out, nil
}

// CreateWorkspace creates a basic-tier workspace owned by ownerID. The
// workspace count is checked against the most generous active workspace
// limit among the owner's existing workspaces, or the basic limit for a new owner.
func (s *Service) CreateWorkspace(ctx context.Context, ownerID uuid.UUID, name string) (Workspace, error) {
	name = strings.TrimSpace(name)
	if name == "" || ownerID == uuid.Nil {
		return Workspace{}, fmt.Errorf("%w: owner and name are required", ErrInvalidInput)
	}

	allowance, err := s.WorkspaceAllowance(ctx, ownerID, nil)
	if err != nil {
		return Workspace{}, err
	}
	current := float64(allowance.Current)
	if allowance.Limit.Exceeded(current) {
		err := &LimitError{Metric: planlimits.MetricWorkspaces, Tier: allowance.Tier, Limit: allowance.Limit, Current: current}
		s.denied(ctx, err, logger.UserID(ownerID))
		return Workspace{}, err
	}

	now := s.now().UTC()
	ws := Workspace{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Name:      name,
		Tier:      planlimits.TierBasic,
		CreatedAt: now,
		UpdatedAt: now,
	}
	owner := Member{WorkspaceID: ws.ID, UserID: ownerID, Role: RoleOwner, CreatedAt: now}
	if err := s.store.CreateWorkspace(ctx, ws, owner); err != nil {
		s.storeFailed(ctx, "create workspace", err)
		return Workspace{}, err
	}

	s.log.InfoContext(ctx, "workspace created", logger.WorkspaceID(ws.ID), logger.UserID(ownerID))
	return ws, nil
}

// WorkspaceAllowance resolves how many workspaces ownerID may own: the most
// generous active workspace limit among their workspaces, or the basic limit
// for an owner with none. Workspaces listed in assume are evaluated at the
// given tier instead of their active one, with their overrides applied.
func (s *Service) WorkspaceAllowance(ctx context.Context, ownerID uuid.UUID, assume map[uuid.UUID]planlimits.Tier) (WorkspaceAllowance, error) {
	owned, err := s.store.ListOwnedWorkspaces(ctx, ownerID)
	if err != nil {
		return WorkspaceAllowance{}, err
	}

	base, err := s.resolver.BaseLimits(planlimits.TierBasic)
	if err != nil {
		return WorkspaceAllowance{}, err
	}
	out := WorkspaceAllowance{Tier: planlimits.TierBasic, Limit: base.Workspaces, Current: int64(len(owned))}
	for _, ws := range owned {
		var (
			tier   planlimits.Tier
			limits planlimits.Limits
		)
		if assumed, ok := assume[ws.ID]; ok {
			tier = assumed
			limits, err = s.resolver.EffectiveLimits(tier, &ws.Overrides)
		} else {
			tier, limits, err = s.limitsFor(ws)
		}
		if err != nil {
			return WorkspaceAllowance{}, err
		}
		if out.Limit.Less(limits.Workspaces) {
			out.Limit, out.Tier = limits.Workspaces, tier
		}
	}
	return out, nil
}

// AddMember adds userID directly, subject to the member limit.
func (s *Service) AddMember(ctx context.Context, workspaceID, userID uuid.UUID, role Role) (Member, error) {
	if userID == uuid.Nil || (role != RoleAdmin && role != RoleMember) {
		return Member{}, fmt.Errorf("%w: user and an admin or member role are required", ErrInvalidInput)
	}

	ws, err := s.store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return Member{}, err
	}
	active, limits, err := s.limitsFor(ws)
	if err != nil {
		return Member{}, err
	}

	m := Member{WorkspaceID: ws.ID, UserID: userID, Role: role, CreatedAt: s.now().UTC()}
	if err := s.store.AddMember(ctx, m, limits.Members); err != nil {
		return Member{}, s.memberErr(ctx, err, active, ws.ID)
	}
	return m, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// InviteMember records an invitation and emails its link. Members plus pending
// invitations must stay below the member limit. The returned token is shown
// once; only its hash is stored.
func (s *Service) InviteMember(ctx context.Context, workspaceID, inviterID uuid.UUID, address string, role Role) (Invitation, string, error) {
	address = strings.ToLower(strings.TrimSpace(address))
	if validate.Var(address, "required,email") != nil || (role != RoleAdmin && role != RoleMember) {
		return Invitation{}, "", fmt.Errorf("%w: a valid email and an admin or member role are required", ErrInvalidInput)
	}
	if _, err := s.RequireManager(ctx, workspaceID, inviterID); err != nil {
		return Invitation{}, "", err
	}

	ws, err := s.store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return Invitation{}, "", err
	}
	active, limits, err := s.limitsFor(ws)
	if err != nil {
		return Invitation{}, "", err
	}

	now := s.now().UTC()
	members, err := s.store.CountMembers(ctx, ws.ID)
	if err != nil {
		return Invitation{}, "", err
	}
	pending, err := s.store.CountPendingInvitations(ctx, ws.ID, now)
	if err != nil {
		return Invitation{}, "", err
	}
	if current := float64(members + pending); limits.Members.Exceeded(current) {
		err := &LimitError{Metric: planlimits.MetricMembers, Tier: active, Limit: limits.Members, Current: current}
		s.denied(ctx, err, logger.WorkspaceID(ws.ID))
		return Invitation{}, "", err
	}

	token, hash, err := newInvitationToken()
	if err != nil {
		return Invitation{}, "", err
	}
	inv := Invitation{
		ID:          uuid.New(),
		WorkspaceID: ws.ID,
		Email:       address,
		Role:        role,
		TokenHash:   hash,
		InvitedBy:   inviterID,
		ExpiresAt:   now.Add(s.cfg.InvitationTTL),
		CreatedAt:   now,
	}
	if err := s.store.CreateInvitation(ctx, inv); err != nil {
		s.storeFailed(ctx, "create invitation", err)
		return Invitation{}, "", err
	}

	if err := s.sendInvitation(ctx, ws, inv, token); err != nil {
		s.log.ErrorContext(ctx, "failed to send invitation email", logger.WorkspaceID(ws.ID), logger.Error(err))
	}
	return inv, token, nil
}

// AcceptURL is the link an invitee follows to accept.
func (s *Service) AcceptURL(token string) string {
	return strings.TrimSuffix(s.cfg.AppBaseURL, "/") + "/invitations/accept?token=" + url.QueryEscape(token)
}

func (s *Service) sendInvitation(ctx context.Context, ws Workspace, inv Invitation, token string) error {
	body, err := templates.RenderInvitation(templates.Invitation{
		WorkspaceName: ws.Name,
		Role:          string(inv.Role),
		AcceptURL:     s.AcceptURL(token),
		ExpiresAt:     inv.ExpiresAt,
	})
	if err != nil {
		return errors.Join(email.ErrFailedToRenderEmail, err)
	}
	return s.mailer.SendEmail(ctx, email.SendEmailParams{
		SendTo:   inv.Email,
		Subject:  fmt.Sprintf("You're invited to %s on Virl", ws.Name),
		BodyHTML: body,
		Tag:      "workspace-invitation",
	})
}

// AcceptInvitation turns a pending invitation into a membership for userID.
func (s *Service) AcceptInvitation(ctx context.Context, token string, userID uuid.UUID) (Member, error) {
	if token == "" || userID == uuid.Nil {
		return Member{}, fmt.Errorf("%w: token and user are required", ErrInvalidInput)
	}

	inv, err := s.store.GetInvitationByTokenHash(ctx, HashToken(token))
	if err != nil {
		return Member{}, err
	}
	now := s.now().UTC()
	switch {
	case inv.AcceptedAt != nil:
		return Member{}, ErrInvitationAccepted
	case !now.Before(inv.ExpiresAt):
		return Member{}, ErrInvitationExpired
	}

	ws, err := s.store.GetWorkspace(ctx, inv.WorkspaceID)
	if err != nil {
		return Member{}, err
	}
	active, limits, err := s.limitsFor(ws)
	if err != nil {
		return Member{}, err
	}

	m := Member{WorkspaceID: ws.ID, UserID: userID, Role: inv.Role, CreatedAt: now}
	if err := s.store.AcceptInvitation(ctx, inv.ID, m, limits.Members, now); err != nil {
		return Member{}, s.memberErr(ctx, err, active, ws.ID)
	}
	return m, nil
}

// RequestUpload reserves size bytes of storage with a pending asset and
// returns a presigned PUT URL for it.
func (s *Service) RequestUpload(ctx context.Context, workspaceID, userID uuid.UUID, fileName, contentType string, size int64) (UploadTicket, error) {
	if size <= 0 || size > s.cfg.MaxUploadBytes {
		return UploadTicket{}, fmt.Errorf("%w: size must be between 1 and %d bytes", ErrInvalidInput, s.cfg.MaxUploadBytes)
	}
	if _, err := s.RequireMember(ctx, workspaceID, userID); err != nil {
		return UploadTicket{}, err
	}

	ws, err := s.store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return UploadTicket{}, err
	}
	active, limits, err := s.limitsFor(ws)
	if err != nil {
		return UploadTicket{}, err
	}

	used, err := s.store.StorageUsage(ctx, ws.ID, s.pendingSince())
	if err != nil {
		return UploadTicket{}, err
	}
	usedGB := float64(used) / planlimits.BytesPerGB
	remaining, err := limits.Remaining(planlimits.MetricStorageGB, usedGB)
	if err != nil {
		return UploadTicket{}, err
	}
	if left, finite := remaining.Value(); finite && float64(size)/planlimits.BytesPerGB > left {
		err := &LimitError{Metric: planlimits.MetricStorageGB, Tier: active, Limit: limits.StorageGB, Current: usedGB}
		s.denied(ctx, err, logger.WorkspaceID(ws.ID))
		return UploadTicket{}, err
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	asset := Asset{
		ID:          uuid.New(),
		WorkspaceID: ws.ID,
		FileName:    storage.SanitizeFilename(fileName),
		ContentType: contentType,
		SizeBytes:   size,
		Status:      AssetPending,
		UploadedBy:  userID,
		CreatedAt:   s.now().UTC(),
	}
	asset.ObjectKey = storage.ObjectKey(ws.ID.String(), asset.ID.String(), asset.FileName)

	if err := s.store.CreateAsset(ctx, asset); err != nil {
		s.storeFailed(ctx, "create asset", err)
		return UploadTicket{}, err
	}

	req, err := s.objects.PresignUpload(ctx, asset.ObjectKey, asset.ContentType, asset.SizeBytes, s.cfg.UploadURLTTL)
	if err != nil {
		if derr := s.store.DeleteAsset(ctx, asset.ID); derr != nil {
			s.storeFailed(ctx, "release asset reservation", derr)
		}
		return UploadTicket{}, err
	}
	return UploadTicket{Asset: asset, Upload: *req}, nil
}

// pendingSince is the creation time before which a pending asset's upload URL
// has expired.
func (s *Service) pendingSince() time.Time {
	return s.now().Add(-s.cfg.UploadURLTTL)
}

// ConfirmUpload checks the object landed with the reserved size and marks the
// asset ready. A mismatched object releases the reservation, and so does a
// missing one once its upload URL has expired.
func (s *Service) ConfirmUpload(ctx context.Context, workspaceID, assetID uuid.UUID) (Asset, error) {
	asset, err := s.store.GetAsset(ctx, workspaceID, assetID)
	if err != nil {
		return Asset{}, err
	}
	if asset.Status == AssetReady {
		return asset, nil
	}

	info, err := s.objects.Stat(ctx, asset.ObjectKey)
	if errors.Is(err, storage.ErrObjectNotFound) {
		if asset.CreatedAt.Before(s.pendingSince()) {
			if err := s.store.DeleteAsset(ctx, asset.ID); err != nil {
				return Asset{}, err
			}
			s.log.InfoContext(ctx, "released expired upload reservation",
				logger.WorkspaceID(workspaceID),
				slog.Int64("declared", asset.SizeBytes),
			)
			return Asset{}, ErrUploadExpired
		}
		return Asset{}, ErrUploadIncomplete
	}
	if err != nil {
		return Asset{}, err
	}
	if info.Size != asset.SizeBytes {
		s.log.InfoContext(ctx, "discarding upload with unexpected size",
			logger.WorkspaceID(workspaceID),
			slog.Int64("declared", asset.SizeBytes),
			slog.Int64("stored", info.Size),
		)
		if err := s.objects.Delete(ctx, asset.ObjectKey); err != nil {
			return Asset{}, err
		}
		if err := s.store.DeleteAsset(ctx, asset.ID); err != nil {
			return Asset{}, err
		}
		return Asset{}, ErrUploadIncomplete
	}

	if err := s.store.MarkAssetReady(ctx, asset.ID, info.Size); err != nil {
		return Asset{}, err
	}
	asset.Status = AssetReady
	return asset, nil
}

// DownloadURL returns a presigned GET URL for a confirmed asset.
func (s *Service) DownloadURL(ctx context.Context, workspaceID, assetID uuid.UUID) (PresignedRequest, error) {
	asset, err := s.store.GetAsset(ctx, workspaceID, assetID)
	if err != nil {
		return PresignedRequest{}, err
	}
	if asset.Status != AssetReady {
		return PresignedRequest{}, ErrAssetNotReady
	}
	req, err := s.objects.PresignDownload(ctx, asset.ObjectKey, s.cfg.DownloadURLTTL)
	if err != nil {
		return PresignedRequest{}, err
	}
	return *req, nil
}

// ConsumeAIGeneration spends one of this month's AI generations.
func (s *Service) ConsumeAIGeneration(ctx context.Context, workspaceID uuid.UUID) (AIGeneration, error) {
	ws, err := s.store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return AIGeneration{}, err
	}
	active, limits, err := s.limitsFor(ws)
	if err != nil {
		return AIGeneration{}, err
	}

	now := s.now()
	used, err := s.counter.Consume(ctx, ws.ID, now, limits.AIGenerationsPerMonth)
	if err != nil {
		var le *LimitError
		if errors.As(err, &le) {
			le.Tier = active
			s.denied(ctx, le, logger.WorkspaceID(ws.ID))
		} else {
			s.log.ErrorContext(ctx, "ai usage counter failed", logger.WorkspaceID(ws.ID), logger.Error(err))
		}
		return AIGeneration{}, err
	}

	return AIGeneration{
		Used:      used,
		Limit:     limits.AIGenerationsPerMonth,
		Remaining: limits.AIGenerationsPerMonth.Remaining(float64(used)),
		Period:    Period(now),
	}, nil
}

// SetOverrides replaces the per-workspace limit overrides.
func (s *Service) SetOverrides(ctx context.Context, workspaceID uuid.UUID, o planlimits.Overrides) (Workspace, error) {
	ws, err := s.store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return Workspace{}, err
	}
	if _, err := o.Apply(planlimits.Limits{}); err != nil {
		return Workspace{}, err
	}
	if err := s.store.SetOverrides(ctx, ws.ID, o); err != nil {
		s.storeFailed(ctx, "set overrides", err)
		return Workspace{}, err
	}
	ws.Overrides = o
	s.log.InfoContext(ctx, "workspace overrides updated", logger.WorkspaceID(ws.ID))
	return ws, nil
}

// UpdateSubscription records a subscription state change from the billing
// provider. An empty customerID keeps the stored one.
func (s *Service) UpdateSubscription(ctx context.Context, workspaceID uuid.UUID, tier planlimits.Tier, endDate *time.Time, customerID string) (Workspace, error) {
	if !tier.Valid() {
		return Workspace{}, fmt.Errorf("%w: %q", planlimits.ErrUnknownTier, tier)
	}
	ws, err := s.store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return Workspace{}, err
	}
	if customerID == "" {
		customerID = ws.BillingCustomerID
	}
	if err := s.store.UpdateSubscription(ctx, ws.ID, tier, endDate, customerID); err != nil {
		s.storeFailed(ctx, "update subscription", err)
		return Workspace{}, err
	}

	ws.Tier = tier
	ws.SubscriptionEndDate = endDate
	ws.BillingCustomerID = customerID
	s.log.InfoContext(ctx, "workspace subscription updated",
		logger.WorkspaceID(ws.ID),
		logger.Tier(tier),
		slog.Any("subscription_end_date", endDate),
	)
	return ws, nil
}

func (s *Service) memberErr(ctx context.Context, err error, tier planlimits.Tier, workspaceID uuid.UUID) error {
	var le *LimitError
	if errors.As(err, &le) {
		le.Tier = tier
		s.denied(ctx, le, logger.WorkspaceID(workspaceID))
		return le
	}
	if errors.Is(err, ErrStoreFailure) {
		s.storeFailed(ctx, "add member", err)
	}
	return err
}

func (s *Service) denied(ctx context.Context, le *LimitError, attrs ...any) {
	args := append([]any{
		logger.Metric(le.Metric),
		logger.Tier(le.Tier),
		logger.Usage(le.Current, le.Limit.String()),
	}, attrs...)
	s.log.InfoContext(ctx, "plan limit reached", args...)
}

func (s *Service) storeFailed(ctx context.Context, op string, err error) {
	if errors.Is(err, ErrStoreFailure) {
		s.log.ErrorContext(ctx, "workspace store failure", slog.String("op", op), logger.Error(err))
	}
}
