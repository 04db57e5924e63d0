package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/comitanigiacomo/regen-engine/internal/adapters/docstore"
	"github.com/comitanigiacomo/regen-engine/internal/adapters/repository"
	"github.com/comitanigiacomo/regen-engine/internal/catalog"
	"github.com/comitanigiacomo/regen-engine/internal/core/domain"
	"github.com/comitanigiacomo/regen-engine/internal/core/services"
)

// testEnv wires every service over an in-memory document store.
type testEnv struct {
	store *docstore.MemoryStore
	queue *recordingQueue
	push  *stubPushSender
	ai    *stubGenerator

	trackerRepo     *repository.TrackerRepository
	entryRepo       *repository.EntryRepository
	journalRepo     *repository.JournalRepository
	streakRepo      *repository.StreakRepository
	achievementRepo *repository.AchievementRepository
	progressRepo    *repository.UserAchievementRepository
	statsRepo       *repository.DailyStatsRepository
	userRepo        *repository.UserRepository
	feedRepo        *repository.FeedRepository
	activityRepo    *repository.ActivityRepository
	suggestionRepo  *repository.SuggestionRepository
	dailyRepo       *repository.DailySuggestionRepository
	interactionRepo *repository.FeedInteractionRepository

	trackers      *services.TrackerService
	entries       *services.EntryService
	journals      *services.JournalService
	stats         *services.StatsService
	streaks       *services.StreakService
	achievements  *services.AchievementService
	notifications *services.NotificationService
	feed          *services.FeedService
	interactions  *services.FeedInteractionService
	suggestions   *services.DailySuggestionService
	onboarding    *services.OnboardingService
	seed          *services.SeedService
	maintenance   *services.MaintenanceService
	handlers      *services.EventHandlers
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	store := docstore.NewMemoryStore()

	env := &testEnv{
		store: store,
		queue: &recordingQueue{},
		push:  &stubPushSender{},
		ai:    &stubGenerator{text: "Breathe in, breathe out."},

		trackerRepo:     repository.NewTrackerRepository(store),
		entryRepo:       repository.NewEntryRepository(store),
		journalRepo:     repository.NewJournalRepository(store),
		streakRepo:      repository.NewStreakRepository(store),
		achievementRepo: repository.NewAchievementRepository(store),
		progressRepo:    repository.NewUserAchievementRepository(store),
		statsRepo:       repository.NewDailyStatsRepository(store),
		userRepo:        repository.NewUserRepository(store),
		feedRepo:        repository.NewFeedRepository(store),
		activityRepo:    repository.NewActivityRepository(store),
		suggestionRepo:  repository.NewSuggestionRepository(store),
		dailyRepo:       repository.NewDailySuggestionRepository(store),
		interactionRepo: repository.NewFeedInteractionRepository(store),
	}

	templates, err := catalog.Trackers()
	require.NoError(t, err)

	env.trackers = services.NewTrackerService(env.trackerRepo)
	env.entries = services.NewEntryService(env.entryRepo, env.trackerRepo, env.queue, logger)
	env.journals = services.NewJournalService(env.journalRepo, env.queue, logger)
	env.stats = services.NewStatsService(env.statsRepo, env.userRepo, env.trackerRepo, env.entryRepo, env.journalRepo, 30, 3, logger)
	env.notifications = services.NewNotificationService(env.userRepo, env.push, logger)
	env.feed = services.NewFeedService(services.FeedStores{
		Feed:       env.feedRepo,
		Activities: env.activityRepo,
		Users:      env.userRepo,
		Trackers:   env.trackerRepo,
		Stats:      env.statsRepo,
	}, env.ai, stubWeather{conditions: "18.5°C, Clear sky"}, env.notifications, env.queue, logger)
	env.interactions = services.NewFeedInteractionService(env.feedRepo, env.interactionRepo, env.userRepo, logger)
	env.suggestions = services.NewDailySuggestionService(env.dailyRepo, env.userRepo, env.trackerRepo, env.ai, logger)

	loader := services.NewMetricsLoader(env.userRepo, env.streakRepo, env.trackerRepo, env.statsRepo)
	env.achievements = services.NewAchievementService(env.achievementRepo, env.progressRepo, env.activityRepo, env.userRepo, loader, logger)
	env.streaks = services.NewStreakService(env.streakRepo, env.entryRepo, env.trackerRepo, env.feed, env.achievements, logger)
	env.onboarding = services.NewOnboardingService(env.userRepo, env.trackerRepo, templates, logger)
	env.seed = services.NewSeedService(true, env.onboarding, env.trackerRepo, env.entryRepo, env.journalRepo, env.userRepo, env.stats, env.streaks, logger)
	env.maintenance = services.NewMaintenanceService(env.suggestionRepo, env.dailyRepo, env.trackerRepo, env.userRepo, 35, logger)
	env.handlers = services.NewEventHandlers(env.stats, env.streaks, env.achievements, env.feed, logger)

	return env
}

func (e *testEnv) createUser(t *testing.T, email string) *domain.User {
	t.Helper()
	u, err := domain.NewUser(email+"-id", email)
	require.NoError(t, err)
	require.NoError(t, e.userRepo.Create(context.Background(), u))
	return u
}

func (e *testEnv) createTracker(t *testing.T, userID, name, category string) *domain.Tracker {
	t.Helper()
	tr, err := e.trackers.Create(context.Background(), services.CreateTrackerInput{
		UserID:    userID,
		Name:      name,
		Category:  category,
		Target:    10,
		Unit:      "minutes",
		IsOngoing: true,
	})
	require.NoError(t, err)
	return tr
}

func (e *testEnv) seedCatalog(t *testing.T) {
	t.Helper()
	achievements, err := catalog.Achievements()
	require.NoError(t, err)
	_, err = e.achievements.SeedCatalog(context.Background(), achievements)
	require.NoError(t, err)
}

func daysAgo(n int) string {
	return domain.DayKey(time.Now().UTC().AddDate(0, 0, -n))
}

func intPtr(v int) *int { return &v }

func createEntryInput(trackerID, userID, date string) services.CreateEntryInput {
	return services.CreateEntryInput{TrackerID: trackerID, UserID: userID, Date: date, Value: 5}
}
