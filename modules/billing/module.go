package billing

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/virlhq/virl/binder"
	"github.com/virlhq/virl/handler"
	wsapi "github.com/virlhq/virl/modules/workspace"
	"github.com/virlhq/virl/pkg/logger"
	"github.com/virlhq/virl/pkg/planlimits"
	"github.com/virlhq/virl/svc/billing"
	"github.com/virlhq/virl/svc/workspace"
)

const maxWebhookBytes = 1 << 20

// Module serves checkout, downgrade checks and the provider webhook.
type Module struct {
	billing      *billing.Service
	workspaces   *workspace.Service
	errorHandler handler.ErrorHandler[handler.Context]
	log          *slog.Logger
}

func NewModule(billingSvc *billing.Service, workspaces *workspace.Service, log *slog.Logger) *Module {
	if log == nil {
		log = logger.Discard()
	}
	return &Module{
		billing:      billingSvc,
		workspaces:   workspaces,
		errorHandler: handler.NewErrorHandler(log, MapError),
		log:          log,
	}
}

type tierRequest struct {
	WorkspaceID uuid.UUID `path:"id" json:"-" validate:"required"`
	Tier        string    `json:"tier" validate:"required"`
}

type webhookRequest struct{}

func wrap[R any](m *Module, h handler.HandlerFunc[handler.Context, R], binders ...handler.Bind) http.HandlerFunc {
	return handler.Wrap(h,
		handler.WithBinders[handler.Context, R](append([]handler.Bind{binder.Path(chi.URLParam)}, binders...)...),
		handler.WithDecorators(handler.Validated[handler.Context, R]()),
		handler.WithErrorHandler[handler.Context, R](m.errorHandler),
	)
}

func (m *Module) Handle() http.Handler {
	r := chi.NewRouter()
	m.Register(r)
	return r
}

// Register adds the webhook, which authenticates by signature, and the
// manager-only checkout routes.
func (m *Module) Register(r chi.Router) {
	r.Post("/billing/webhook", wrap(m, m.webhook))

	r.Group(func(r chi.Router) {
		r.Use(wsapi.RequireUser)
		r.Post("/workspaces/{id}/checkout", wrap(m, m.checkout, binder.BindJSON()))
		r.Post("/workspaces/{id}/downgrade-check", wrap(m, m.downgradeCheck, binder.BindJSON()))
	})
}

func (m *Module) checkout(ctx handler.Context, req tierRequest) handler.Response {
	if _, err := m.workspaces.RequireManager(ctx, req.WorkspaceID, wsapi.UserID(ctx)); err != nil {
		return ErrorResponse(err)
	}
	link, err := m.billing.Checkout(ctx, req.WorkspaceID, planlimits.Tier(req.Tier))
	if err != nil {
		return ErrorResponse(err)
	}
	return handler.JSON(link, handler.WithJSONStatus(http.StatusCreated))
}

func (m *Module) downgradeCheck(ctx handler.Context, req tierRequest) handler.Response {
	if _, err := m.workspaces.RequireManager(ctx, req.WorkspaceID, wsapi.UserID(ctx)); err != nil {
		return ErrorResponse(err)
	}
	cmp, err := m.billing.CanDowngrade(ctx, req.WorkspaceID, planlimits.Tier(req.Tier))
	if err != nil {
		return ErrorResponse(err)
	}
	return handler.JSON(cmp)
}

func (m *Module) webhook(ctx handler.Context, _ webhookRequest) handler.Response {
	r := ctx.Request()
	payload, err := io.ReadAll(http.MaxBytesReader(ctx.ResponseWriter(), r.Body, maxWebhookBytes))
	if err != nil {
		return ErrorResponse(binder.ErrBodyTooLarge)
	}

	ev, err := m.billing.HandleWebhook(ctx, payload, r.Header.Get(billing.SignatureHeader))
	if err != nil {
		if !errors.Is(err, billing.ErrInvalidSignature) {
			m.log.ErrorContext(ctx, "billing webhook not applied", logger.Error(err))
		}
		return ErrorResponse(err)
	}
	return handler.JSON(map[string]any{"received": true, "event_id": ev.ID})
}
