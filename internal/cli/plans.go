package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"golang.org/x/text/currency"

	"github.com/virlhq/virl/internal/app"
	"github.com/virlhq/virl/pkg/planlimits"
)

func newPlansCmd() *cobra.Command {
	var (
		file   string
		format string
	)

	cmd := &cobra.Command{
		Use:   "plans",
		Short: "Print the plan table",
		Long:  "Print the built-in plan table, or the one in --file, as a table, JSON or YAML.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := app.LoadResolver(cmd.Context(), file)
			if err != nil {
				return err
			}
			return printPlans(cmd.OutOrStdout(), r.Table(), format)
		},
	}
	cmd.PersistentFlags().StringVarP(&file, "file", "f", "", "YAML plan file (default: built-in table)")
	cmd.Flags().StringVarP(&format, "output", "o", "table", "output format: table, json or yaml")

	cmd.AddCommand(newPlansValidateCmd())
	cmd.AddCommand(newPlansResolveCmd(&file))

	return cmd
}

func newPlansValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a YAML plan file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.LoadResolver(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", args[0])
			return err
		},
	}
}

// newPlansResolveCmd answers "what can this workspace use" for a stored tier,
// end date and override set, the same way the API does.
func newPlansResolveCmd(file *string) *cobra.Command {
	var (
		tier      string
		expiresAt string
		at        string
		overrides overrideFlags
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve the active tier and effective limits",
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := app.LoadResolver(cmd.Context(), *file)
			if err != nil {
				return err
			}

			now := time.Now().UTC()
			if at != "" {
				t, err := planlimits.ParseExpiry(at)
				if err != nil {
					return err
				}
				now = *t
			}
			active, err := planlimits.ResolveActiveTierString(tier, expiresAt, now)
			if err != nil {
				return err
			}
			o, err := overrides.build(cmd)
			if err != nil {
				return err
			}
			limits, err := r.EffectiveLimits(active, &o)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"stored_tier": tier,
				"active_tier": active,
				"at":          now,
				"limits":      limits,
			})
		},
	}
	cmd.Flags().StringVar(&tier, "tier", string(planlimits.TierBasic), "stored tier")
	cmd.Flags().StringVar(&expiresAt, "expires", "", "subscription end date (ISO-8601)")
	cmd.Flags().StringVar(&at, "at", "", "evaluate at this time instead of now (ISO-8601)")
	overrides.register(cmd)

	return cmd
}

func printPlans(w io.Writer, t planlimits.Table, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(t.Plans())
	case "yaml":
		return planlimits.EncodeYAML(w, t)
	case "table":
	default:
		return fmt.Errorf("unknown output format %q", format)
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("TIER", "WORKSPACES", "MEMBERS", "STORAGE GB", "AI / MONTH", "PRICE").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, p := range t.Plans() {
		tbl.Row(
			string(p.Tier),
			p.Limits.Workspaces.String(),
			p.Limits.Members.String(),
			p.Limits.StorageGB.String(),
			p.Limits.AIGenerationsPerMonth.String(),
			formatPrice(p),
		)
	}
	_, err := fmt.Fprintln(w, tbl.String())
	return err
}

// formatPrice renders minor units with the currency's standard scale.
func formatPrice(p planlimits.Plan) string {
	if p.Price.Amount == 0 {
		if p.Tier == planlimits.TierCustom {
			return "contact sales"
		}
		return "free"
	}
	unit, err := currency.ParseISO(p.Price.Currency)
	if err != nil {
		return strconv.FormatInt(p.Price.Amount, 10) + " " + p.Price.Currency
	}
	scale, _ := currency.Standard.Rounding(unit)
	divisor := 1.0
	for range scale {
		divisor *= 10
	}
	price := strconv.FormatFloat(float64(p.Price.Amount)/divisor, 'f', scale, 64) + " " + unit.String()
	if p.Interval != planlimits.BillingIntervalNone {
		price += " / " + string(p.Interval)
	}
	return price
}
