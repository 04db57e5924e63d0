// Package app wires configuration, storage and services for the API server and
// the regenctl CLI.
package app

import (
	"context"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/comitanigiacomo/regen-engine/internal/adapters/ai"
	"github.com/comitanigiacomo/regen-engine/internal/adapters/cache"
	"github.com/comitanigiacomo/regen-engine/internal/adapters/docstore"
	"github.com/comitanigiacomo/regen-engine/internal/adapters/push"
	"github.com/comitanigiacomo/regen-engine/internal/adapters/repository"
	"github.com/comitanigiacomo/regen-engine/internal/adapters/weather"
	"github.com/comitanigiacomo/regen-engine/internal/catalog"
	"github.com/comitanigiacomo/regen-engine/internal/config"
	"github.com/comitanigiacomo/regen-engine/internal/core/domain"
	"github.com/comitanigiacomo/regen-engine/internal/core/services"
	"github.com/comitanigiacomo/regen-engine/internal/core/workers"
)

// App holds the shared dependencies. Redis is nil when it could not be reached.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *sqlx.DB
	Redis  *redis.Client
	Worker *workers.EventWorker

	Tokens          *services.TokenService
	Auth            *services.AuthService
	Trackers        *services.TrackerService
	Entries         *services.EntryService
	Journals        *services.JournalService
	Stats           *services.StatsService
	Streaks         *services.StreakService
	Achievements    *services.AchievementService
	Recommendations *services.RecommendationService
	Feed            *services.FeedService
	Interactions    *services.FeedInteractionService
	Suggestions     *services.DailySuggestionService
	Onboarding      *services.OnboardingService
	Notifications   *services.NotificationService
	Seed            *services.SeedService
	Maintenance     *services.MaintenanceService
	Events          *services.EventHandlers
}

// New connects to Postgres, migrates the document table and builds every
// service. Redis, the AI model and the push gateway are optional.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	db, err := sqlx.Connect("pgx", cfg.DB.DSN())
	if err != nil {
		return nil, fmt.Errorf("app: connect database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	pg := docstore.NewPostgresStore(db)
	if err := pg.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("app: migrate: %w", err)
	}

	a := &App{Config: cfg, Logger: logger, DB: db}

	var store docstore.Store = pg
	if rdb, err := cache.NewRedisClient(cfg.Redis); err != nil {
		logger.Warn("redis unavailable, running without cache and rate limiting", zap.Error(err))
	} else {
		a.Redis = rdb
		store = docstore.NewCachedStore(pg, rdb, cfg.Redis.CacheTTL, logger, repository.CollAchievements)
	}

	if err := a.build(ctx, store); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context, store docstore.Store) error {
	cfg, logger := a.Config, a.Logger

	templates, err := catalog.Trackers()
	if err != nil {
		return fmt.Errorf("app: load tracker catalog: %w", err)
	}

	userRepo := repository.NewUserRepository(store)
	var trackerRepo domain.TrackerRepository = repository.NewTrackerRepository(store)
	if a.Redis != nil {
		trackerRepo = repository.NewCachedTrackerRepository(trackerRepo, a.Redis, logger)
	}
	entryRepo := repository.NewEntryRepository(store)
	journalRepo := repository.NewJournalRepository(store)
	streakRepo := repository.NewStreakRepository(store)
	statsRepo := repository.NewDailyStatsRepository(store)
	activityRepo := repository.NewActivityRepository(store)
	suggestionRepo := repository.NewSuggestionRepository(store)
	dailyRepo := repository.NewDailySuggestionRepository(store)
	feedRepo := repository.NewFeedRepository(store)

	var generator domain.TextGenerator = ai.Unavailable{}
	if cfg.AI.APIKey != "" {
		g, err := ai.NewGeminiGenerator(ctx, cfg.AI.APIKey, cfg.AI.Model, cfg.AI.Timeout, cfg.AI.RPS)
		if err != nil {
			logger.Warn("gemini client unavailable, using fallbacks", zap.Error(err))
		} else {
			generator = g
		}
	}

	var sender domain.PushSender = push.NewLogSender(logger)
	if cfg.Push.GatewayURL != "" {
		sender = push.NewHTTPSender(cfg.Push.GatewayURL, cfg.Push.APIKey, cfg.Push.RPS)
	}

	var forecast domain.WeatherProvider
	if cfg.WeatherEnabled {
		forecast = weather.NewOpenMeteo("", "")
	}

	a.Worker = workers.NewEventWorker(cfg.Worker.QueueSize, cfg.Worker.Concurrency, logger)

	a.Tokens = services.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL, userRepo)
	a.Auth = services.NewAuthService(userRepo, a.Worker)
	a.Trackers = services.NewTrackerService(trackerRepo)
	a.Entries = services.NewEntryService(entryRepo, trackerRepo, a.Worker, logger)
	a.Journals = services.NewJournalService(journalRepo, a.Worker, logger)
	a.Stats = services.NewStatsService(statsRepo, userRepo, trackerRepo, entryRepo, journalRepo,
		cfg.Stats.ActiveWindowDays, cfg.Stats.RecomputeParallel, logger)
	a.Notifications = services.NewNotificationService(userRepo, sender, logger)
	a.Feed = services.NewFeedService(services.FeedStores{
		Feed:       feedRepo,
		Activities: activityRepo,
		Users:      userRepo,
		Trackers:   trackerRepo,
		Stats:      statsRepo,
	}, generator, forecast, a.Notifications, a.Worker, logger)
	a.Interactions = services.NewFeedInteractionService(feedRepo, repository.NewFeedInteractionRepository(store), userRepo, logger)

	loader := services.NewMetricsLoader(userRepo, streakRepo, trackerRepo, statsRepo)
	a.Achievements = services.NewAchievementService(repository.NewAchievementRepository(store),
		repository.NewUserAchievementRepository(store), activityRepo, userRepo, loader, logger)
	a.Streaks = services.NewStreakService(streakRepo, entryRepo, trackerRepo, a.Feed, a.Achievements, logger)
	a.Onboarding = services.NewOnboardingService(userRepo, trackerRepo, templates, logger)
	a.Recommendations = services.NewRecommendationService(templates, generator, suggestionRepo, logger)
	a.Suggestions = services.NewDailySuggestionService(dailyRepo, userRepo, trackerRepo, generator, logger)
	a.Seed = services.NewSeedService(cfg.DevEndpoints, a.Onboarding, trackerRepo, entryRepo, journalRepo,
		userRepo, a.Stats, a.Streaks, logger)
	a.Maintenance = services.NewMaintenanceService(suggestionRepo, dailyRepo, trackerRepo, userRepo, cfg.Stats.SuggestionTTLDays, logger)

	a.Events = services.NewEventHandlers(a.Stats, a.Streaks, a.Achievements, a.Feed, logger)
	a.Events.Register(a.Worker)
	return nil
}

// SeedCatalog inserts catalog achievements that are not stored yet.
func (a *App) SeedCatalog(ctx context.Context) (int, error) {
	list, err := catalog.Achievements()
	if err != nil {
		return 0, fmt.Errorf("app: load achievement catalog: %w", err)
	}
	return a.Achievements.SeedCatalog(ctx, list)
}

// Schedule registers the recurring jobs on s.
func (a *App) Schedule(s *workers.Scheduler) error {
	jobs := []struct {
		name, spec string
		fn         func(ctx context.Context) error
	}{
		{"daily-stats", workers.ScheduleDailyStats, func(ctx context.Context) error {
			yesterday, _ := domain.AddDays(domain.DayKey(time.Now()), -1)
			report, err := a.Stats.CalculateAllDailyStats(ctx, yesterday)
			if err == nil {
				a.Logger.Info("daily stats recomputed", zap.Int("processed", report.Processed), zap.Int("failed", report.Failed))
			}
			return err
		}},
		{"maintenance", workers.ScheduleMaintenance, func(ctx context.Context) error {
			_, err := a.Maintenance.Run(ctx)
			return err
		}},
		{"morning-feed", workers.ScheduleMorningFeed, func(ctx context.Context) error {
			n, err := a.Feed.QueueMorningPosts(ctx, a.Config.Stats.ActiveWindowDays)
			if err == nil {
				a.Logger.Info("morning posts queued", zap.Int("users", n))
			}
			return err
		}},
	}
	for _, j := range jobs {
		if err := s.Add(j.name, j.spec, j.fn); err != nil {
			return fmt.Errorf("app: schedule %s: %w", j.name, err)
		}
	}
	return nil
}

func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn("redis close failed", zap.Error(err))
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Warn("database close failed", zap.Error(err))
		}
	}
}
