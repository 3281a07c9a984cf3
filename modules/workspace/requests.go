package workspace

import "github.com/google/uuid"

type listPlansRequest struct{}

type createWorkspaceRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type workspaceRequest struct {
	WorkspaceID uuid.UUID `path:"id" validate:"required"`
}

type addMemberRequest struct {
	WorkspaceID uuid.UUID `path:"id" json:"-" validate:"required"`
	UserID      uuid.UUID `json:"user_id" validate:"required"`
	Role        string    `json:"role" validate:"required,oneof=admin member"`
}

type inviteMemberRequest struct {
	WorkspaceID uuid.UUID `path:"id" json:"-" validate:"required"`
	Email       string    `json:"email" validate:"required,email,max=254"`
	Role        string    `json:"role" validate:"required,oneof=admin member"`
}

type acceptInvitationRequest struct {
	Token string `json:"token" validate:"required"`
}

type requestUploadRequest struct {
	WorkspaceID uuid.UUID `path:"id" json:"-" validate:"required"`
	FileName    string    `json:"file_name" validate:"required,max=255"`
	ContentType string    `json:"content_type" validate:"max=255"`
	Size        int64     `json:"size" validate:"gt=0"`
}

type assetRequest struct {
	WorkspaceID uuid.UUID `path:"id" validate:"required"`
	AssetID     uuid.UUID `path:"assetID" validate:"required"`
}
