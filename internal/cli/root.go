package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the virl command tree.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:           "virl",
		Short:         "Virl workspace API with plan limit enforcement",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newPlansCmd())
	root.AddCommand(newOverridesCmd())

	return root
}
