package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	adapterHTTP "github.com/comitanigiacomo/regen-engine/internal/adapters/handler/http"
	"github.com/comitanigiacomo/regen-engine/internal/adapters/ai"
	"github.com/comitanigiacomo/regen-engine/internal/adapters/docstore"
	"github.com/comitanigiacomo/regen-engine/internal/adapters/push"
	"github.com/comitanigiacomo/regen-engine/internal/adapters/repository"
	"github.com/comitanigiacomo/regen-engine/internal/catalog"
	"github.com/comitanigiacomo/regen-engine/internal/core/domain"
	"github.com/comitanigiacomo/regen-engine/internal/core/services"
	"github.com/comitanigiacomo/regen-engine/internal/core/workers"
)

type jobLog struct {
	mu   sync.Mutex
	jobs []workers.Job
}

func (q *jobLog) Enqueue(job workers.Job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return true
}

func (q *jobLog) Kinds() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	kinds := make([]string, 0, len(q.jobs))
	for _, j := range q.jobs {
		kinds = append(kinds, j.Kind)
	}
	return kinds
}

// testServer is the full router over an in-memory store. Requests may identify
// the caller with X-User-ID.
type testServer struct {
	router   *gin.Engine
	queue    *jobLog
	users    *repository.UserRepository
	trackers *repository.TrackerRepository
	feed     *repository.FeedRepository
	stats    *services.StatsService
	handlers *services.EventHandlers
}

type serverOptions struct {
	devEndpoints bool
}

func newTestServer(t *testing.T, opts ...serverOptions) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var opt serverOptions
	if len(opts) > 0 {
		opt = opts[0]
	}

	logger := zap.NewNop()
	store := docstore.NewMemoryStore()
	queue := &jobLog{}

	userRepo := repository.NewUserRepository(store)
	trackerRepo := repository.NewTrackerRepository(store)
	entryRepo := repository.NewEntryRepository(store)
	journalRepo := repository.NewJournalRepository(store)
	streakRepo := repository.NewStreakRepository(store)
	statsRepo := repository.NewDailyStatsRepository(store)
	activityRepo := repository.NewActivityRepository(store)
	achievementRepo := repository.NewAchievementRepository(store)
	feedRepo := repository.NewFeedRepository(store)

	templates, err := catalog.Trackers()
	require.NoError(t, err)

	generator := ai.Unavailable{}
	tokens := services.NewTokenService("handler-test-secret", "regen-test", time.Hour, userRepo)
	auth := services.NewAuthService(userRepo, queue)
	trackerSvc := services.NewTrackerService(trackerRepo)
	entrySvc := services.NewEntryService(entryRepo, trackerRepo, queue, logger)
	journalSvc := services.NewJournalService(journalRepo, queue, logger)
	statsSvc := services.NewStatsService(statsRepo, userRepo, trackerRepo, entryRepo, journalRepo, 30, 2, logger)
	notifications := services.NewNotificationService(userRepo, push.NewLogSender(logger), logger)
	feed := services.NewFeedService(services.FeedStores{
		Feed:       feedRepo,
		Activities: activityRepo,
		Users:      userRepo,
		Trackers:   trackerRepo,
		Stats:      statsRepo,
	}, generator, nil, notifications, queue, logger)
	loader := services.NewMetricsLoader(userRepo, streakRepo, trackerRepo, statsRepo)
	achievements := services.NewAchievementService(achievementRepo, repository.NewUserAchievementRepository(store), activityRepo, userRepo, loader, logger)
	streaks := services.NewStreakService(streakRepo, entryRepo, trackerRepo, feed, achievements, logger)
	onboarding := services.NewOnboardingService(userRepo, trackerRepo, templates, logger)
	recommendations := services.NewRecommendationService(templates, generator, repository.NewSuggestionRepository(store), logger)
	interactions := services.NewFeedInteractionService(feedRepo, repository.NewFeedInteractionRepository(store), userRepo, logger)
	suggestions := services.NewDailySuggestionService(repository.NewDailySuggestionRepository(store), userRepo, trackerRepo, generator, logger)

	catalogAchievements, err := catalog.Achievements()
	require.NoError(t, err)
	_, err = achievements.SeedCatalog(context.Background(), catalogAchievements)
	require.NoError(t, err)

	authHandler := adapterHTTP.NewAuthHandler(auth, tokens)
	deps := adapterHTTP.RouterDependencies{
		AuthHandler:           authHandler,
		TrackerHandler:        adapterHTTP.NewTrackerHandler(trackerSvc, streaks),
		EntryHandler:          adapterHTTP.NewEntryHandler(entrySvc, journalSvc),
		StatsHandler:          adapterHTTP.NewStatsHandler(statsSvc),
		AchievementHandler:    adapterHTTP.NewAchievementHandler(achievements),
		RecommendationHandler: adapterHTTP.NewRecommendationHandler(recommendations),
		FeedHandler:           adapterHTTP.NewFeedHandler(feed, interactions),
		ProfileHandler:        adapterHTTP.NewProfileHandler(authHandler, onboarding, notifications, suggestions),
		Tokens:                tokens,
		TrustUserHeader:       true,
		Logger:                logger,
		StartTime:             time.Now(),
	}
	if opt.devEndpoints {
		seed := services.NewSeedService(true, onboarding, trackerRepo, entryRepo, journalRepo, userRepo, statsSvc, streaks, logger)
		deps.DevHandler = adapterHTTP.NewDevHandler(seed)
	}

	return &testServer{
		router:   adapterHTTP.NewRouter(deps),
		queue:    queue,
		users:    userRepo,
		trackers: trackerRepo,
		feed:     feedRepo,
		stats:    statsSvc,
		handlers: services.NewEventHandlers(statsSvc, streaks, achievements, feed, logger),
	}
}

func (s *testServer) do(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) createUser(t *testing.T, email string) *domain.User {
	t.Helper()
	u, err := domain.NewUser(email+"-id", email)
	require.NoError(t, err)
	require.NoError(t, s.users.Create(context.Background(), u))
	return u
}

func (s *testServer) createTracker(t *testing.T, userID, name, category string) *domain.Tracker {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/trackers", userID, map[string]any{
		"name":       name,
		"category":   category,
		"target":     10,
		"unit":       "minutes",
		"is_ongoing": true,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var tr domain.Tracker
	decode(t, w, &tr)
	return &tr
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func today() string {
	return domain.DayKey(time.Now())
}

func daysAgo(n int) string {
	return domain.DayKey(time.Now().UTC().AddDate(0, 0, -n))
}
