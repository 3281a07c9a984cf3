package cli

import (
	"github.com/spf13/cobra"

	"github.com/virlhq/virl/internal/app"
	"github.com/virlhq/virl/internal/db/migrations"
	"github.com/virlhq/virl/pkg/config"
	"github.com/virlhq/virl/pkg/pg"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			var appCfg app.Config
			if err := config.Load(&appCfg); err != nil {
				return err
			}
			var pgCfg pg.Config
			if err := config.Load(&pgCfg); err != nil {
				return err
			}
			log, err := app.NewLogger(appCfg)
			if err != nil {
				return err
			}

			pool, err := pg.Connect(ctx, pgCfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			return pg.Migrate(ctx, pool, pgCfg, migrations.FS, log)
		},
	}
}
