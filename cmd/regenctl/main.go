// Command regenctl runs the engine's batch operations against the configured
// database: stats recomputation, backfills, maintenance and catalog seeding.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/comitanigiacomo/regen-engine/internal/app"
	"github.com/comitanigiacomo/regen-engine/internal/config"
	"github.com/comitanigiacomo/regen-engine/internal/logger"
)

// cli carries the state shared by every subcommand.
type cli struct {
	envFile string
	verbose bool

	cfg    *config.Config
	logger *zap.Logger

	open openFunc
}

type openFunc func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app.App, error)

func newRootCmd(open openFunc) *cobra.Command {
	c := &cli{open: open}

	root := &cobra.Command{
		Use:           "regenctl",
		Short:         "Operate the Regen engine from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.envFile)
			if err != nil {
				return err
			}
			zl, err := logger.New(cfg.Env, c.verbose)
			if err != nil {
				return err
			}
			c.cfg, c.logger = cfg, zl
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&c.envFile, "env", ".env", "path to an optional .env file")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		c.recomputeCmd(),
		c.backfillCmd(),
		c.maintenanceCmd(),
		c.seedCatalogCmd(),
	)
	return root
}

// withApp opens the application for the duration of fn.
func (c *cli) withApp(ctx context.Context, fn func(a *app.App) error) error {
	a, err := c.open(ctx, c.cfg, c.logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(app.New).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
