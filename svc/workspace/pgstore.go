package workspace

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/virlhq/virl/pkg/pg"
	"github.com/virlhq/virl/pkg/planlimits"
)

// DB is the subset of *pgxpool.Pool used by PGStore.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PGStore is the Postgres Store.
type PGStore struct {
	db DB
}

func NewPGStore(db DB) *PGStore {
	return &PGStore{db: db}
}

const workspaceColumns = `id, owner_id, name, tier, subscription_end_date,
	custom_workspace_limit, custom_member_limit, custom_storage_limit, custom_ai_generation_limit,
	billing_customer_id, created_at, updated_at`

func scanWorkspace(row pgx.Row) (Workspace, error) {
	var (
		ws       Workspace
		tier     string
		customer *string
	)
	err := row.Scan(
		&ws.ID, &ws.OwnerID, &ws.Name, &tier, &ws.SubscriptionEndDate,
		&ws.Overrides.Workspaces, &ws.Overrides.Members, &ws.Overrides.StorageBytes, &ws.Overrides.AIGenerationsPerMonth,
		&customer, &ws.CreatedAt, &ws.UpdatedAt,
	)
	if err != nil {
		return Workspace{}, err
	}
	ws.Tier = planlimits.Tier(tier)
	if customer != nil {
		ws.BillingCustomerID = *customer
	}
	return ws, nil
}

func (s *PGStore) CreateWorkspace(ctx context.Context, ws Workspace, owner Member) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `INSERT INTO workspaces (id, owner_id, name, tier, subscription_end_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		ws.ID, ws.OwnerID, ws.Name, string(ws.Tier), ws.SubscriptionEndDate, ws.CreatedAt)
	if err != nil {
		return storeErr(err, ErrInvalidInput)
	}
	if err := insertMember(ctx, tx, owner); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	return nil
}

func (s *PGStore) GetWorkspace(ctx context.Context, id uuid.UUID) (Workspace, error) {
	ws, err := scanWorkspace(s.db.QueryRow(ctx, `SELECT `+workspaceColumns+` FROM workspaces WHERE id = $1`, id))
	if err != nil {
		return Workspace{}, storeErr(err, ErrWorkspaceNotFound)
	}
	return ws, nil
}

func (s *PGStore) ListOwnedWorkspaces(ctx context.Context, ownerID uuid.UUID) ([]Workspace, error) {
	rows, err := s.db.Query(ctx, `SELECT `+workspaceColumns+` FROM workspaces WHERE owner_id = $1 ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}
	defer rows.Close()

	var out []Workspace
	for rows.Next() {
		ws, err := scanWorkspace(rows)
		if err != nil {
			return nil, errors.Join(ErrStoreFailure, err)
		}
		out = append(out, ws)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}
	return out, nil
}

func (s *PGStore) UpdateSubscription(ctx context.Context, id uuid.UUID, tier planlimits.Tier, endDate *time.Time, customerID string) error {
	tag, err := s.db.Exec(ctx, `UPDATE workspaces
		SET tier = $2, subscription_end_date = $3,
			billing_customer_id = COALESCE(NULLIF($4, ''), billing_customer_id),
			updated_at = NOW()
		WHERE id = $1`, id, string(tier), endDate, customerID)
	if err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrWorkspaceNotFound
	}
	return nil
}

func (s *PGStore) SetOverrides(ctx context.Context, id uuid.UUID, o planlimits.Overrides) error {
	tag, err := s.db.Exec(ctx, `UPDATE workspaces
		SET custom_workspace_limit = $2, custom_member_limit = $3,
			custom_storage_limit = $4, custom_ai_generation_limit = $5, updated_at = NOW()
		WHERE id = $1`, id, o.Workspaces, o.Members, o.StorageBytes, o.AIGenerationsPerMonth)
	if err != nil {
		return storeErr(err, ErrInvalidInput)
	}
	if tag.RowsAffected() == 0 {
		return ErrWorkspaceNotFound
	}
	return nil
}

func (s *PGStore) GetMember(ctx context.Context, workspaceID, userID uuid.UUID) (Member, error) {
	var (
		m    Member
		role string
	)
	err := s.db.QueryRow(ctx, `SELECT workspace_id, user_id, role, created_at
		FROM workspace_members WHERE workspace_id = $1 AND user_id = $2`, workspaceID, userID).
		Scan(&m.WorkspaceID, &m.UserID, &role, &m.CreatedAt)
	if err != nil {
		return Member{}, storeErr(err, ErrMemberNotFound)
	}
	m.Role = Role(role)
	return m, nil
}

func (s *PGStore) CountMembers(ctx context.Context, workspaceID uuid.UUID) (int64, error) {
	return countMembers(ctx, s.db, workspaceID)
}

func (s *PGStore) AddMember(ctx context.Context, m Member, limit planlimits.Limit) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := addMemberTx(ctx, tx, m, limit); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	return nil
}

func (s *PGStore) CreateInvitation(ctx context.Context, inv Invitation) error {
	_, err := s.db.Exec(ctx, `INSERT INTO workspace_invitations
		(id, workspace_id, email, role, token_hash, invited_by, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		inv.ID, inv.WorkspaceID, inv.Email, string(inv.Role), inv.TokenHash, inv.InvitedBy, inv.ExpiresAt, inv.CreatedAt)
	if err != nil {
		return storeErr(err, ErrInvalidInput)
	}
	return nil
}

func (s *PGStore) CountPendingInvitations(ctx context.Context, workspaceID uuid.UUID, now time.Time) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM workspace_invitations
		WHERE workspace_id = $1 AND accepted_at IS NULL AND expires_at > $2`, workspaceID, now).Scan(&n)
	if err != nil {
		return 0, errors.Join(ErrStoreFailure, err)
	}
	return n, nil
}

func (s *PGStore) GetInvitationByTokenHash(ctx context.Context, tokenHash string) (Invitation, error) {
	var (
		inv  Invitation
		role string
	)
	err := s.db.QueryRow(ctx, `SELECT id, workspace_id, email, role, token_hash, invited_by, expires_at, accepted_at, created_at
		FROM workspace_invitations WHERE token_hash = $1`, tokenHash).
		Scan(&inv.ID, &inv.WorkspaceID, &inv.Email, &role, &inv.TokenHash, &inv.InvitedBy, &inv.ExpiresAt, &inv.AcceptedAt, &inv.CreatedAt)
	if err != nil {
		return Invitation{}, storeErr(err, ErrInvitationNotFound)
	}
	inv.Role = Role(role)
	return inv, nil
}

func (s *PGStore) AcceptInvitation(ctx context.Context, invitationID uuid.UUID, m Member, limit planlimits.Limit, now time.Time) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `UPDATE workspace_invitations SET accepted_at = $2
		WHERE id = $1 AND accepted_at IS NULL`, invitationID, now)
	if err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvitationAccepted
	}
	if err := addMemberTx(ctx, tx, m, limit); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	return nil
}

func (s *PGStore) StorageUsage(ctx context.Context, workspaceID uuid.UUID, pendingSince time.Time) (int64, error) {
	var total int64
	err := s.db.QueryRow(ctx, `SELECT COALESCE(SUM(size_bytes), 0)::BIGINT FROM assets
		WHERE workspace_id = $1 AND (status = 'ready' OR created_at >= $2)`, workspaceID, pendingSince).Scan(&total)
	if err != nil {
		return 0, errors.Join(ErrStoreFailure, err)
	}
	return total, nil
}

func (s *PGStore) CreateAsset(ctx context.Context, a Asset) error {
	_, err := s.db.Exec(ctx, `INSERT INTO assets
		(id, workspace_id, object_key, file_name, content_type, size_bytes, status, uploaded_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.WorkspaceID, a.ObjectKey, a.FileName, a.ContentType, a.SizeBytes, string(a.Status), a.UploadedBy, a.CreatedAt)
	if err != nil {
		if pg.IsForeignKeyViolationError(err) {
			return ErrWorkspaceNotFound
		}
		return storeErr(err, ErrInvalidInput)
	}
	return nil
}

func (s *PGStore) GetAsset(ctx context.Context, workspaceID, assetID uuid.UUID) (Asset, error) {
	var (
		a      Asset
		status string
	)
	err := s.db.QueryRow(ctx, `SELECT id, workspace_id, object_key, file_name, content_type, size_bytes, status, uploaded_by, created_at
		FROM assets WHERE id = $1 AND workspace_id = $2`, assetID, workspaceID).
		Scan(&a.ID, &a.WorkspaceID, &a.ObjectKey, &a.FileName, &a.ContentType, &a.SizeBytes, &status, &a.UploadedBy, &a.CreatedAt)
	if err != nil {
		return Asset{}, storeErr(err, ErrAssetNotFound)
	}
	a.Status = AssetStatus(status)
	return a, nil
}

func (s *PGStore) MarkAssetReady(ctx context.Context, assetID uuid.UUID, sizeBytes int64) error {
	tag, err := s.db.Exec(ctx, `UPDATE assets SET status = 'ready', size_bytes = $2 WHERE id = $1`, assetID, sizeBytes)
	if err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAssetNotFound
	}
	return nil
}

func (s *PGStore) DeleteAsset(ctx context.Context, assetID uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM assets WHERE id = $1`, assetID)
	if err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAssetNotFound
	}
	return nil
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func countMembers(ctx context.Context, q querier, workspaceID uuid.UUID) (int64, error) {
	var n int64
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM workspace_members WHERE workspace_id = $1`, workspaceID).Scan(&n); err != nil {
		return 0, errors.Join(ErrStoreFailure, err)
	}
	return n, nil
}

// addMemberTx locks the workspace row so concurrent inserts serialize on the count.
func addMemberTx(ctx context.Context, tx pgx.Tx, m Member, limit planlimits.Limit) error {
	var locked uuid.UUID
	if err := tx.QueryRow(ctx, `SELECT id FROM workspaces WHERE id = $1 FOR UPDATE`, m.WorkspaceID).Scan(&locked); err != nil {
		return storeErr(err, ErrWorkspaceNotFound)
	}

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM workspace_members WHERE workspace_id = $1 AND user_id = $2)`,
		m.WorkspaceID, m.UserID).Scan(&exists); err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	if exists {
		return ErrAlreadyMember
	}

	count, err := countMembers(ctx, tx, m.WorkspaceID)
	if err != nil {
		return err
	}
	if limit.Exceeded(float64(count)) {
		return &LimitError{Metric: planlimits.MetricMembers, Limit: limit, Current: float64(count)}
	}
	return insertMember(ctx, tx, m)
}

func insertMember(ctx context.Context, q querier, m Member) error {
	_, err := q.Exec(ctx, `INSERT INTO workspace_members (workspace_id, user_id, role, created_at) VALUES ($1, $2, $3, $4)`,
		m.WorkspaceID, m.UserID, string(m.Role), m.CreatedAt)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return ErrAlreadyMember
		}
		return storeErr(err, ErrInvalidInput)
	}
	return nil
}

// storeErr maps no-rows to notFound and constraint violations to ErrInvalidInput.
func storeErr(err, notFound error) error {
	switch {
	case pg.IsNotFoundError(err):
		return notFound
	case pg.IsDuplicateKeyError(err), pg.IsCheckViolationError(err), pg.IsForeignKeyViolationError(err):
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	default:
		return errors.Join(ErrStoreFailure, err)
	}
}
