package workspace

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/virlhq/virl/binder"
	"github.com/virlhq/virl/handler"
	"github.com/virlhq/virl/pkg/logger"
	"github.com/virlhq/virl/svc/workspace"
)

// Module exposes the workspace service over JSON HTTP.
type Module struct {
	svc          *workspace.Service
	errorHandler handler.ErrorHandler[handler.Context]
}

func NewModule(svc *workspace.Service, log *slog.Logger) *Module {
	if log == nil {
		log = logger.Discard()
	}
	return &Module{
		svc:          svc,
		errorHandler: handler.NewErrorHandler(log, MapError),
	}
}

// wrap binds path params and an optional JSON body, validates, then calls h.
func wrap[R any](m *Module, h handler.HandlerFunc[handler.Context, R], binders ...handler.Bind) http.HandlerFunc {
	return handler.Wrap(h,
		handler.WithBinders[handler.Context, R](append([]handler.Bind{binder.Path(chi.URLParam)}, binders...)...),
		handler.WithDecorators(handler.Validated[handler.Context, R]()),
		handler.WithErrorHandler[handler.Context, R](m.errorHandler),
	)
}

// Handle returns the module's routes on a fresh router.
func (m *Module) Handle() http.Handler {
	r := chi.NewRouter()
	m.Register(r)
	return r
}

// Register adds the module's routes to r. Everything except the plan list
// requires an authenticated caller.
func (m *Module) Register(r chi.Router) {
	r.Get("/plans", wrap(m, m.listPlans))

	r.Group(func(r chi.Router) {
		r.Use(RequireUser)

		r.Post("/workspaces", wrap(m, m.createWorkspace, binder.BindJSON()))
		r.Post("/invitations/accept", wrap(m, m.acceptInvitation, binder.BindJSON()))

		r.Route("/workspaces/{id}", func(r chi.Router) {
			r.Get("/entitlements", wrap(m, m.entitlements))
			r.Post("/members", wrap(m, m.addMember, binder.BindJSON()))
			r.Post("/invitations", wrap(m, m.inviteMember, binder.BindJSON()))
			r.Post("/uploads", wrap(m, m.requestUpload, binder.BindJSON()))
			r.Post("/assets/{assetID}/confirm", wrap(m, m.confirmUpload))
			r.Get("/assets/{assetID}/download", wrap(m, m.downloadURL))
			r.Post("/ai-generations", wrap(m, m.consumeAIGeneration))
		})
	})
}

func (m *Module) listPlans(_ handler.Context, _ listPlansRequest) handler.Response {
	return handler.JSON(m.svc.Plans())
}

func (m *Module) createWorkspace(ctx handler.Context, req createWorkspaceRequest) handler.Response {
	ws, err := m.svc.CreateWorkspace(ctx, UserID(ctx), req.Name)
	if err != nil {
		return ErrorResponse(err)
	}
	return handler.JSON(ws, handler.WithJSONStatus(http.StatusCreated))
}

func (m *Module) entitlements(ctx handler.Context, req workspaceRequest) handler.Response {
	if _, err := m.svc.RequireMember(ctx, req.WorkspaceID, UserID(ctx)); err != nil {
		return ErrorResponse(err)
	}
	ent, err := m.svc.Entitlements(ctx, req.WorkspaceID)
	if err != nil {
		return ErrorResponse(err)
	}
	return handler.JSON(ent)
}

func (m *Module) addMember(ctx handler.Context, req addMemberRequest) handler.Response {
	if _, err := m.svc.RequireManager(ctx, req.WorkspaceID, UserID(ctx)); err != nil {
		return ErrorResponse(err)
	}
	member, err := m.svc.AddMember(ctx, req.WorkspaceID, req.UserID, workspace.Role(req.Role))
	if err != nil {
		return ErrorResponse(err)
	}
	return handler.JSON(member, handler.WithJSONStatus(http.StatusCreated))
}

// inviteMember never returns the token; it only travels in the email.
func (m *Module) inviteMember(ctx handler.Context, req inviteMemberRequest) handler.Response {
	inv, _, err := m.svc.InviteMember(ctx, req.WorkspaceID, UserID(ctx), req.Email, workspace.Role(req.Role))
	if err != nil {
		return ErrorResponse(err)
	}
	return handler.JSON(inv, handler.WithJSONStatus(http.StatusCreated))
}

func (m *Module) acceptInvitation(ctx handler.Context, req acceptInvitationRequest) handler.Response {
	member, err := m.svc.AcceptInvitation(ctx, req.Token, UserID(ctx))
	if err != nil {
		return ErrorResponse(err)
	}
	return handler.JSON(member)
}

func (m *Module) requestUpload(ctx handler.Context, req requestUploadRequest) handler.Response {
	ticket, err := m.svc.RequestUpload(ctx, req.WorkspaceID, UserID(ctx), req.FileName, req.ContentType, req.Size)
	if err != nil {
		return ErrorResponse(err)
	}
	return handler.JSON(ticket, handler.WithJSONStatus(http.StatusCreated))
}

func (m *Module) confirmUpload(ctx handler.Context, req assetRequest) handler.Response {
	if _, err := m.svc.RequireMember(ctx, req.WorkspaceID, UserID(ctx)); err != nil {
		return ErrorResponse(err)
	}
	asset, err := m.svc.ConfirmUpload(ctx, req.WorkspaceID, req.AssetID)
	if err != nil {
		return ErrorResponse(err)
	}
	return handler.JSON(asset)
}

func (m *Module) downloadURL(ctx handler.Context, req assetRequest) handler.Response {
	if _, err := m.svc.RequireMember(ctx, req.WorkspaceID, UserID(ctx)); err != nil {
		return ErrorResponse(err)
	}
	presigned, err := m.svc.DownloadURL(ctx, req.WorkspaceID, req.AssetID)
	if err != nil {
		return ErrorResponse(err)
	}
	return handler.JSON(presigned)
}

func (m *Module) consumeAIGeneration(ctx handler.Context, req workspaceRequest) handler.Response {
	if _, err := m.svc.RequireMember(ctx, req.WorkspaceID, UserID(ctx)); err != nil {
		return ErrorResponse(err)
	}
	gen, err := m.svc.ConsumeAIGeneration(ctx, req.WorkspaceID)
	if err != nil {
		return ErrorResponse(err)
	}
	return handler.JSON(gen)
}
