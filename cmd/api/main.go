// Command api serves the Regen engine HTTP API together with its background
// workers and scheduled jobs.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	adapterHTTP "github.com/comitanigiacomo/regen-engine/internal/adapters/handler/http"
	"github.com/comitanigiacomo/regen-engine/internal/app"
	"github.com/comitanigiacomo/regen-engine/internal/config"
	"github.com/comitanigiacomo/regen-engine/internal/core/workers"
	"github.com/comitanigiacomo/regen-engine/internal/logger"
)

const shutdownTimeout = 10 * time.Second

type openFunc func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app.App, error)

func newRootCmd(open openFunc) *cobra.Command {
	var (
		envFile string
		verbose bool
	)

	root := &cobra.Command{
		Use:           "api",
		Short:         "Serve the Regen engine HTTP API",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			startTime := time.Now()

			cfg, err := config.Load(envFile)
			if err != nil {
				return err
			}
			zl, err := logger.New(cfg.Env, verbose)
			if err != nil {
				return err
			}
			defer zl.Sync()

			if !cfg.IsDevelopment() {
				gin.SetMode(gin.ReleaseMode)
			}
			return serve(cmd.Context(), cfg, zl, open, startTime)
		},
	}
	root.Flags().StringVar(&envFile, "env", ".env", "path to an optional .env file")
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	return root
}

func serve(ctx context.Context, cfg *config.Config, zl *zap.Logger, open openFunc, startTime time.Time) error {
	zl.Info("connecting to database", zap.String("host", cfg.DB.Host), zap.String("name", cfg.DB.Name))
	a, err := open(ctx, cfg, zl)
	if err != nil {
		return fmt.Errorf("startup failed: %w", err)
	}
	defer a.Close()

	if added, err := a.SeedCatalog(ctx); err != nil {
		zl.Error("achievement catalog seeding failed", zap.Error(err))
	} else {
		zl.Info("achievement catalog ready", zap.Int("added", added))
	}

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	a.Worker.Start(workerCtx)
	defer func() {
		cancelWorkers()
		a.Worker.Wait()
	}()

	scheduler := workers.NewScheduler(zl)
	if err := a.Schedule(scheduler); err != nil {
		return fmt.Errorf("scheduler setup failed: %w", err)
	}
	scheduler.Start()

	authHandler := adapterHTTP.NewAuthHandler(a.Auth, a.Tokens)
	deps := adapterHTTP.RouterDependencies{
		AuthHandler:           authHandler,
		TrackerHandler:        adapterHTTP.NewTrackerHandler(a.Trackers, a.Streaks),
		EntryHandler:          adapterHTTP.NewEntryHandler(a.Entries, a.Journals),
		StatsHandler:          adapterHTTP.NewStatsHandler(a.Stats),
		AchievementHandler:    adapterHTTP.NewAchievementHandler(a.Achievements),
		RecommendationHandler: adapterHTTP.NewRecommendationHandler(a.Recommendations),
		FeedHandler:           adapterHTTP.NewFeedHandler(a.Feed, a.Interactions),
		ProfileHandler:        adapterHTTP.NewProfileHandler(authHandler, a.Onboarding, a.Notifications, a.Suggestions),
		Tokens:                a.Tokens,
		TrustUserHeader:       cfg.Auth.TrustUserHeader,
		RateLimit:             cfg.Auth.RateLimit,
		DB:                    a.DB,
		Redis:                 a.Redis,
		Logger:                zl,
		StartTime:             startTime,
	}
	if cfg.DevEndpoints {
		zl.Warn("development endpoints enabled")
		deps.DevHandler = adapterHTTP.NewDevHandler(a.Seed)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      adapterHTTP.NewRouter(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		zl.Info("regen engine listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		zl.Info("stop signal received, shutting down")
	case runErr = <-serverErr:
		zl.Error("server error", zap.Error(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("forced shutdown", zap.Error(err))
	}

	select {
	case <-scheduler.Stop().Done():
	case <-shutdownCtx.Done():
		zl.Warn("scheduled jobs still running at shutdown")
	}

	zl.Info("server stopped, draining background jobs")
	return runErr
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
