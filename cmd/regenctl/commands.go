package main

import (
	"encoding/json"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/comitanigiacomo/regen-engine/internal/app"
	"github.com/comitanigiacomo/regen-engine/internal/core/domain"
)

func (c *cli) recomputeCmd() *cobra.Command {
	var date, userID string

	cmd := &cobra.Command{
		Use:   "recompute",
		Short: "Recompute daily stats for one user or every recently active user",
		Long: `Recomputes the daily stats document for --date (yesterday by default).

Without --user every user active within ACTIVE_WINDOW_DAYS is processed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if date == "" {
				date, _ = domain.AddDays(domain.DayKey(time.Now()), -1)
			}
			if _, err := domain.ParseDay(date); err != nil {
				return err
			}

			return c.withApp(cmd.Context(), func(a *app.App) error {
				if userID != "" {
					stats, err := a.Stats.CalculateUserDailyStats(cmd.Context(), userID, date)
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), stats)
				}

				report, err := a.Stats.CalculateAllDailyStats(cmd.Context(), date)
				if err != nil {
					return err
				}
				c.logger.Info("recompute finished", zap.String("date", date), zap.Int("processed", report.Processed), zap.Int("failed", report.Failed))
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to recompute (YYYY-MM-DD)")
	cmd.Flags().StringVar(&userID, "user", "", "limit the run to one user id")
	return cmd
}

func (c *cli) backfillCmd() *cobra.Command {
	var userID, from, to string
	var force bool

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Rebuild a user's daily stats over a date range",
		Long: `Computes daily stats for every day between --from and --to inclusive.

Days that already have a document are skipped unless --force is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, d := range []string{from, to} {
				if _, err := domain.ParseDay(d); err != nil {
					return err
				}
			}

			return c.withApp(cmd.Context(), func(a *app.App) error {
				report, err := a.Stats.BackfillUser(cmd.Context(), userID, from, to, force)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	cmd.Flags().StringVar(&from, "from", "", "first day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last day (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&force, "force", false, "recompute days that already have stats")
	for _, name := range []string{"user", "from", "to"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func (c *cli) maintenanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "maintenance",
		Short: "Expire suggestions, complete finished trackers and end trials",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(a *app.App) error {
				report, err := a.Maintenance.Run(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}
}

func (c *cli) seedCatalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-catalog",
		Short: "Insert catalog achievements missing from the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(a *app.App) error {
				added, err := a.SeedCatalog(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]int{"added": added})
			})
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
