package cli

import (
	"github.com/spf13/cobra"

	"github.com/virlhq/virl/internal/app"
	"github.com/virlhq/virl/pkg/httpserver"
)

func newServeCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			settings, err := app.LoadSettings()
			if err != nil {
				return err
			}
			log, err := app.NewLogger(settings.App)
			if err != nil {
				return err
			}

			a, err := app.New(ctx, settings, log)
			if err != nil {
				return err
			}
			defer a.Close()

			if migrate {
				if err := a.Migrate(ctx, settings.Postgres); err != nil {
					return err
				}
			}

			srv := httpserver.NewFromConfig(settings.HTTP, httpserver.WithLogger(log))
			return srv.Run(ctx, a.Handler())
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply database migrations before serving")

	return cmd
}
