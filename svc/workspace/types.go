package workspace

import (
	"time"

	"github.com/google/uuid"

	"github.com/virlhq/virl/pkg/planlimits"
)

// Role is a member's permission level inside a workspace.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	}
	return false
}

// CanManage reports whether the role may invite members and change billing.
func (r Role) CanManage() bool {
	return r == RoleOwner || r == RoleAdmin
}

// Workspace is the billable unit. Tier and SubscriptionEndDate are written by
// billing; the active tier is always derived through planlimits.ResolveActiveTier.
type Workspace struct {
	ID                  uuid.UUID            `json:"id"`
	OwnerID             uuid.UUID            `json:"owner_id"`
	Name                string               `json:"name"`
	Tier                planlimits.Tier      `json:"tier"`
	SubscriptionEndDate *time.Time           `json:"subscription_end_date,omitempty"`
	Overrides           planlimits.Overrides `json:"overrides"`
	BillingCustomerID   string               `json:"-"`
	CreatedAt           time.Time            `json:"created_at"`
	UpdatedAt           time.Time            `json:"updated_at"`
}

type Member struct {
	WorkspaceID uuid.UUID `json:"workspace_id"`
	UserID      uuid.UUID `json:"user_id"`
	Role        Role      `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

type Invitation struct {
	ID          uuid.UUID  `json:"id"`
	WorkspaceID uuid.UUID  `json:"workspace_id"`
	Email       string     `json:"email"`
	Role        Role       `json:"role"`
	TokenHash   string     `json:"-"`
	InvitedBy   uuid.UUID  `json:"invited_by"`
	ExpiresAt   time.Time  `json:"expires_at"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Pending reports whether the invitation can still be accepted at now.
func (i Invitation) Pending(now time.Time) bool {
	return i.AcceptedAt == nil && now.Before(i.ExpiresAt)
}

type AssetStatus string

const (
	AssetPending AssetStatus = "pending"
	AssetReady   AssetStatus = "ready"
)

// Asset is an uploaded file. Pending assets reserve their declared size
// against the storage limit until confirmed or discarded.
type Asset struct {
	ID          uuid.UUID   `json:"id"`
	WorkspaceID uuid.UUID   `json:"workspace_id"`
	ObjectKey   string      `json:"-"`
	FileName    string      `json:"file_name"`
	ContentType string      `json:"content_type"`
	SizeBytes   int64       `json:"size_bytes"`
	Status      AssetStatus `json:"status"`
	UploadedBy  uuid.UUID   `json:"uploaded_by"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Usage is the current consumption of a workspace.
type Usage struct {
	Workspaces    int64 `json:"workspaces"`
	Members       int64 `json:"members"`
	StorageBytes  int64 `json:"storage_bytes"`
	AIGenerations int64 `json:"ai_generations_this_month"`
}

// Value returns usage in the unit the metric is limited in.
func (u Usage) Value(m planlimits.Metric) (float64, error) {
	switch m {
	case planlimits.MetricWorkspaces:
		return float64(u.Workspaces), nil
	case planlimits.MetricMembers:
		return float64(u.Members), nil
	case planlimits.MetricStorageGB:
		return float64(u.StorageBytes) / planlimits.BytesPerGB, nil
	case planlimits.MetricAIGenerations:
		return float64(u.AIGenerations), nil
	}
	return 0, planlimits.ErrUnknownMetric
}

// WorkspaceAllowance is an owner's workspace count and the most generous
// workspace limit among the workspaces they own.
type WorkspaceAllowance struct {
	Tier    planlimits.Tier  `json:"tier"`
	Limit   planlimits.Limit `json:"limit"`
	Current int64            `json:"current"`
}

// Entitlements is the resolved view of what a workspace may use right now.
type Entitlements struct {
	WorkspaceID uuid.UUID         `json:"workspace_id"`
	StoredTier  planlimits.Tier   `json:"stored_tier"`
	ActiveTier  planlimits.Tier   `json:"active_tier"`
	ExpiresAt   *time.Time        `json:"expires_at,omitempty"`
	Limits      planlimits.Limits `json:"limits"`
	Usage       Usage             `json:"usage"`
	Remaining   planlimits.Limits `json:"remaining"`
	Period      string            `json:"period"`
}

// UploadTicket is returned by RequestUpload.
type UploadTicket struct {
	Asset  Asset            `json:"asset"`
	Upload PresignedRequest `json:"upload"`
}

// AIGeneration is the result of consuming one monthly AI generation.
type AIGeneration struct {
	Used      int64            `json:"used"`
	Limit     planlimits.Limit `json:"limit"`
	Remaining planlimits.Limit `json:"remaining"`
	Period    string           `json:"period"`
}
