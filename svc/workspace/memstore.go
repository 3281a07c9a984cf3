package workspace

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/virlhq/virl/pkg/planlimits"
)

// MemoryStore is an in-process Store for tests and local development.
type MemoryStore struct {
	mu          sync.Mutex
	workspaces  map[uuid.UUID]Workspace
	members     map[uuid.UUID]map[uuid.UUID]Member
	invitations map[uuid.UUID]Invitation
	assets      map[uuid.UUID]Asset
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		workspaces:  make(map[uuid.UUID]Workspace),
		members:     make(map[uuid.UUID]map[uuid.UUID]Member),
		invitations: make(map[uuid.UUID]Invitation),
		assets:      make(map[uuid.UUID]Asset),
	}
}

func (s *MemoryStore) CreateWorkspace(_ context.Context, ws Workspace, owner Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.workspaces[ws.ID]; ok {
		return ErrInvalidInput
	}
	s.workspaces[ws.ID] = ws
	s.members[ws.ID] = map[uuid.UUID]Member{owner.UserID: owner}
	return nil
}

func (s *MemoryStore) GetWorkspace(_ context.Context, id uuid.UUID) (Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws, ok := s.workspaces[id]
	if !ok {
		return Workspace{}, ErrWorkspaceNotFound
	}
	return ws, nil
}

func (s *MemoryStore) ListOwnedWorkspaces(_ context.Context, ownerID uuid.UUID) ([]Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Workspace
	for _, ws := range s.workspaces {
		if ws.OwnerID == ownerID {
			out = append(out, ws)
		}
	}
	slices.SortFunc(out, func(a, b Workspace) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (s *MemoryStore) UpdateSubscription(_ context.Context, id uuid.UUID, tier planlimits.Tier, endDate *time.Time, customerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws, ok := s.workspaces[id]
	if !ok {
		return ErrWorkspaceNotFound
	}
	ws.Tier = tier
	ws.SubscriptionEndDate = endDate
	if customerID != "" {
		ws.BillingCustomerID = customerID
	}
	s.workspaces[id] = ws
	return nil
}

func (s *MemoryStore) SetOverrides(_ context.Context, id uuid.UUID, o planlimits.Overrides) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws, ok := s.workspaces[id]
	if !ok {
		return ErrWorkspaceNotFound
	}
	ws.Overrides = o
	s.workspaces[id] = ws
	return nil
}

func (s *MemoryStore) GetMember(_ context.Context, workspaceID, userID uuid.UUID) (Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.members[workspaceID][userID]
	if !ok {
		return Member{}, ErrMemberNotFound
	}
	return m, nil
}

func (s *MemoryStore) CountMembers(_ context.Context, workspaceID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.members[workspaceID])), nil
}

func (s *MemoryStore) AddMember(_ context.Context, m Member, limit planlimits.Limit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addMemberLocked(m, limit)
}

func (s *MemoryStore) addMemberLocked(m Member, limit planlimits.Limit) error {
	if _, ok := s.workspaces[m.WorkspaceID]; !ok {
		return ErrWorkspaceNotFound
	}
	members := s.members[m.WorkspaceID]
	if _, ok := members[m.UserID]; ok {
		return ErrAlreadyMember
	}
	if count := float64(len(members)); limit.Exceeded(count) {
		return &LimitError{Metric: planlimits.MetricMembers, Limit: limit, Current: count}
	}
	if members == nil {
		members = make(map[uuid.UUID]Member)
		s.members[m.WorkspaceID] = members
	}
	members[m.UserID] = m
	return nil
}

func (s *MemoryStore) CreateInvitation(_ context.Context, inv Invitation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.invitations {
		if existing.TokenHash == inv.TokenHash {
			return ErrInvalidInput
		}
	}
	s.invitations[inv.ID] = inv
	return nil
}

func (s *MemoryStore) CountPendingInvitations(_ context.Context, workspaceID uuid.UUID, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, inv := range s.invitations {
		if inv.WorkspaceID == workspaceID && inv.Pending(now) {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) GetInvitationByTokenHash(_ context.Context, tokenHash string) (Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, inv := range s.invitations {
		if inv.TokenHash == tokenHash {
			return inv, nil
		}
	}
	return Invitation{}, ErrInvitationNotFound
}

func (s *MemoryStore) AcceptInvitation(_ context.Context, invitationID uuid.UUID, m Member, limit planlimits.Limit, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invitations[invitationID]
	if !ok {
		return ErrInvitationNotFound
	}
	if inv.AcceptedAt != nil {
		return ErrInvitationAccepted
	}
	if err := s.addMemberLocked(m, limit); err != nil {
		return err
	}
	inv.AcceptedAt = &now
	s.invitations[invitationID] = inv
	return nil
}

func (s *MemoryStore) StorageUsage(_ context.Context, workspaceID uuid.UUID, pendingSince time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total int64
	for _, a := range s.assets {
		if a.WorkspaceID != workspaceID {
			continue
		}
		if a.Status == AssetReady || !a.CreatedAt.Before(pendingSince) {
			total += a.SizeBytes
		}
	}
	return total, nil
}

func (s *MemoryStore) CreateAsset(_ context.Context, a Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.workspaces[a.WorkspaceID]; !ok {
		return ErrWorkspaceNotFound
	}
	s.assets[a.ID] = a
	return nil
}

func (s *MemoryStore) GetAsset(_ context.Context, workspaceID, assetID uuid.UUID) (Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.assets[assetID]
	if !ok || a.WorkspaceID != workspaceID {
		return Asset{}, ErrAssetNotFound
	}
	return a, nil
}

func (s *MemoryStore) MarkAssetReady(_ context.Context, assetID uuid.UUID, sizeBytes int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.assets[assetID]
	if !ok {
		return ErrAssetNotFound
	}
	a.Status = AssetReady
	a.SizeBytes = sizeBytes
	s.assets[assetID] = a
	return nil
}

func (s *MemoryStore) DeleteAsset(_ context.Context, assetID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.assets[assetID]; !ok {
		return ErrAssetNotFound
	}
	delete(s.assets, assetID)
	return nil
}
