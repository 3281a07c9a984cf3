package app

import (
	"github.com/virlhq/virl/pkg/config"
	"github.com/virlhq/virl/pkg/email"
	"github.com/virlhq/virl/pkg/httpserver"
	"github.com/virlhq/virl/pkg/pg"
	"github.com/virlhq/virl/pkg/redis"
	"github.com/virlhq/virl/pkg/storage"
	"github.com/virlhq/virl/svc/billing"
	"github.com/virlhq/virl/svc/workspace"
)

// Config is the process-level configuration.
type Config struct {
	Env         string `env:"APP_ENV" envDefault:"development"`
	ServiceName string `env:"APP_NAME" envDefault:"virl"`
	// LogLevel overrides the environment's default level when set.
	LogLevel string `env:"LOG_LEVEL"`
	// PlansFile replaces the built-in plan table with a YAML file.
	PlansFile string `env:"PLANS_FILE"`
}

// Settings groups every configuration section the server reads.
type Settings struct {
	App       Config
	HTTP      httpserver.Config
	Postgres  pg.Config
	Redis     redis.Config
	Storage   storage.Config
	Email     email.Config
	Workspace workspace.Config
	Paddle    billing.PaddleConfig
	Billing   billing.Config
}

// LoadSettings reads every section from the environment and .env.
func LoadSettings() (Settings, error) {
	var s Settings
	for _, load := range []func() error{
		func() error { return config.Load(&s.App) },
		func() error { return config.Load(&s.HTTP) },
		func() error { return config.Load(&s.Postgres) },
		func() error { return config.Load(&s.Redis) },
		func() error { return config.Load(&s.Storage) },
		func() error { return config.Load(&s.Email) },
		func() error { return config.Load(&s.Workspace) },
		func() error { return config.Load(&s.Paddle) },
		func() error { return config.Load(&s.Billing) },
	} {
		if err := load(); err != nil {
			return Settings{}, err
		}
	}
	return s, nil
}
