package workspace

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/virlhq/virl/pkg/planlimits"
)

// Store persists workspaces and the usage they are limited on.
// Lookups return the package's not-found sentinels.
type Store interface {
	// CreateWorkspace inserts ws and its owner membership atomically.
	CreateWorkspace(ctx context.Context, ws Workspace, owner Member) error
	GetWorkspace(ctx context.Context, id uuid.UUID) (Workspace, error)
	ListOwnedWorkspaces(ctx context.Context, ownerID uuid.UUID) ([]Workspace, error)
	UpdateSubscription(ctx context.Context, id uuid.UUID, tier planlimits.Tier, endDate *time.Time, customerID string) error
	SetOverrides(ctx context.Context, id uuid.UUID, o planlimits.Overrides) error

	GetMember(ctx context.Context, workspaceID, userID uuid.UUID) (Member, error)
	CountMembers(ctx context.Context, workspaceID uuid.UUID) (int64, error)
	// AddMember inserts m unless the member count has already reached limit.
	// The check and insert are atomic with respect to other AddMember calls.
	AddMember(ctx context.Context, m Member, limit planlimits.Limit) error

	CreateInvitation(ctx context.Context, inv Invitation) error
	CountPendingInvitations(ctx context.Context, workspaceID uuid.UUID, now time.Time) (int64, error)
	GetInvitationByTokenHash(ctx context.Context, tokenHash string) (Invitation, error)
	// AcceptInvitation marks inv accepted and inserts m under the same limit
	// rule as AddMember, in one transaction.
	AcceptInvitation(ctx context.Context, invitationID uuid.UUID, m Member, limit planlimits.Limit, now time.Time) error

	// StorageUsage sums ready assets plus pending assets created at or after
	// pendingSince. Older pending rows are abandoned uploads and hold nothing.
	StorageUsage(ctx context.Context, workspaceID uuid.UUID, pendingSince time.Time) (int64, error)
	CreateAsset(ctx context.Context, a Asset) error
	GetAsset(ctx context.Context, workspaceID, assetID uuid.UUID) (Asset, error)
	MarkAssetReady(ctx context.Context, assetID uuid.UUID, sizeBytes int64) error
	DeleteAsset(ctx context.Context, assetID uuid.UUID) error
}
