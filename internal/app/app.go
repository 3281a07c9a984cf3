package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/virlhq/virl/internal/db/migrations"
	"github.com/virlhq/virl/modules/api"
	billingapi "github.com/virlhq/virl/modules/billing"
	workspaceapi "github.com/virlhq/virl/modules/workspace"
	"github.com/virlhq/virl/pkg/email"
	"github.com/virlhq/virl/pkg/httpserver"
	"github.com/virlhq/virl/pkg/logger"
	"github.com/virlhq/virl/pkg/pg"
	"github.com/virlhq/virl/pkg/planlimits"
	"github.com/virlhq/virl/pkg/redis"
	"github.com/virlhq/virl/pkg/storage"
	"github.com/virlhq/virl/svc/billing"
	"github.com/virlhq/virl/svc/workspace"
)

// App holds the wired services of a running server.
type App struct {
	Log        *slog.Logger
	Resolver   *planlimits.Resolver
	Pool       *pgxpool.Pool
	Redis      *goredis.Client
	Workspaces *workspace.Service
	// Billing is nil when no Paddle API key is configured.
	Billing *billing.Service
}

// LoadResolver builds the resolver from path, or from the built-in table when
// path is empty.
func LoadResolver(ctx context.Context, path string) (*planlimits.Resolver, error) {
	src := planlimits.NewInMemSource(planlimits.DefaultTable())
	if path != "" {
		src = planlimits.NewYAMLSource(path)
	}
	return planlimits.NewResolverFromSource(ctx, src)
}

// New connects every backing service. On error, whatever was opened is closed.
func New(ctx context.Context, s Settings, log *slog.Logger) (_ *App, err error) {
	a := &App{Log: log}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if a.Resolver, err = LoadResolver(ctx, s.App.PlansFile); err != nil {
		return nil, fmt.Errorf("load plan table: %w", err)
	}
	if a.Pool, err = pg.Connect(ctx, s.Postgres); err != nil {
		return nil, err
	}
	if a.Redis, err = redis.Connect(ctx, s.Redis); err != nil {
		return nil, err
	}

	objects, err := storage.NewS3Storage(ctx, s.Storage)
	if err != nil {
		return nil, err
	}
	mailer, err := email.NewSender(s.Email)
	if err != nil {
		return nil, err
	}
	if !s.Email.Enabled() {
		log.WarnContext(ctx, "postmark is not configured, emails are written to disk",
			slog.String("dir", s.Email.DevOutputDir))
	}

	a.Workspaces = workspace.NewService(
		a.Resolver,
		workspace.NewPGStore(a.Pool),
		workspace.NewRedisCounter(a.Redis, s.Redis.KeyPrefix),
		objects,
		mailer,
		workspace.WithConfig(s.Workspace),
		workspace.WithLogger(log.With(logger.Component("workspace"))),
	)

	if s.Paddle.APIKey == "" {
		log.WarnContext(ctx, "billing is disabled: PADDLE_API_KEY is not set")
		return a, nil
	}
	provider, err := billing.NewPaddleProvider(s.Paddle)
	if err != nil {
		return nil, err
	}
	a.Billing, err = billing.NewService(provider, a.Workspaces, a.Resolver, s.Billing,
		billing.WithLogger(log.With(logger.Component("billing"))))
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Migrate applies the embedded schema migrations.
func (a *App) Migrate(ctx context.Context, cfg pg.Config) error {
	return pg.Migrate(ctx, a.Pool, cfg, migrations.FS, a.Log)
}

// Handler returns the HTTP API with health checks on Postgres and Redis.
func (a *App) Handler() http.Handler {
	modules := []api.Module{workspaceapi.NewModule(a.Workspaces, a.Log)}
	if a.Billing != nil {
		modules = append(modules, billingapi.NewModule(a.Billing, a.Workspaces, a.Log))
	}
	return api.Router(api.RouterOptions{
		Logger:  a.Log,
		Modules: modules,
		ReadinessChecks: []httpserver.Check{
			{Name: "postgres", Fn: pg.Healthcheck(a.Pool)},
			{Name: "redis", Fn: redis.Healthcheck(a.Redis)},
		},
	})
}

// Close releases connections. It is safe on a partially built App.
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			a.Log.Error("failed to close redis", logger.Error(err))
		}
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
}
