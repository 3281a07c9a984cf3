package cli

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/virlhq/virl/pkg/config"
	"github.com/virlhq/virl/pkg/pg"
	"github.com/virlhq/virl/pkg/planlimits"
	"github.com/virlhq/virl/svc/workspace"
)

// overrideFlags maps --workspaces, --members, --storage-bytes and
// --ai-generations onto planlimits.Overrides. Unset flags stay nil.
type overrideFlags struct {
	workspaces, members, storageBytes, aiGenerations int64
}

func (f *overrideFlags) register(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&f.workspaces, "workspaces", 0, "workspace limit override")
	cmd.Flags().Int64Var(&f.members, "members", 0, "member limit override")
	cmd.Flags().Int64Var(&f.storageBytes, "storage-bytes", 0, "storage limit override in bytes")
	cmd.Flags().Int64Var(&f.aiGenerations, "ai-generations", 0, "monthly AI generation limit override")
}

func (f *overrideFlags) build(cmd *cobra.Command) (planlimits.Overrides, error) {
	var o planlimits.Overrides
	set := func(name string, v int64, dst **int64) {
		if cmd.Flags().Changed(name) {
			*dst = &v
		}
	}
	set("workspaces", f.workspaces, &o.Workspaces)
	set("members", f.members, &o.Members)
	set("storage-bytes", f.storageBytes, &o.StorageBytes)
	set("ai-generations", f.aiGenerations, &o.AIGenerationsPerMonth)

	if _, err := o.Apply(planlimits.Limits{}); err != nil {
		return planlimits.Overrides{}, err
	}
	return o, nil
}

func newOverridesCmd() *cobra.Command {
	var flags overrideFlags

	cmd := &cobra.Command{
		Use:   "overrides <workspace-id>",
		Short: "Replace a workspace's custom limits",
		Long: "Replace every custom limit of a workspace. Limits not given are cleared " +
			"and fall back to the tier default; run without limit flags to clear all.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid workspace id %q: %w", args[0], err)
			}
			o, err := flags.build(cmd)
			if err != nil {
				return err
			}

			var pgCfg pg.Config
			if err := config.Load(&pgCfg); err != nil {
				return err
			}
			pool, err := pg.Connect(ctx, pgCfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			store := workspace.NewPGStore(pool)
			if err := store.SetOverrides(ctx, id, o); err != nil {
				return err
			}
			ws, err := store.GetWorkspace(ctx, id)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(ws)
		},
	}
	flags.register(cmd)

	return cmd
}
