package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/comitanigiacomo/regen-engine/internal/core/domain"
	"github.com/comitanigiacomo/regen-engine/internal/metrics"
	"go.uber.org/zap"
)

// EvaluationContext carries trigger-specific values. A zero StreakDays means none was given.
type EvaluationContext struct {
	StreakDays int
}

type EvaluationResult struct {
	Evaluated int      `json:"evaluated"`
	Updated   int      `json:"updated"`
	Earned    []string `json:"earned"`
}

// UserAchievementView joins a catalog achievement with the user's progress on it.
type UserAchievementView struct {
	Achievement *domain.Achievement     `json:"achievement"`
	Progress    *domain.UserAchievement `json:"progress"`
}

type LevelView struct {
	Points       int64         `json:"points"`
	Level        domain.Level  `json:"level"`
	Next         *domain.Level `json:"next,omitempty"`
	PointsToNext int64         `json:"points_to_next,omitempty"`
}

type AchievementService struct {
	catalog    domain.AchievementRepository
	progress   domain.UserAchievementRepository
	activities domain.ActivityRepository
	users      domain.UserRepository
	metrics    *MetricsLoader
	logger     *zap.Logger
}

func NewAchievementService(
	catalog domain.AchievementRepository,
	progress domain.UserAchievementRepository,
	activities domain.ActivityRepository,
	users domain.UserRepository,
	loader *MetricsLoader,
	logger *zap.Logger,
) *AchievementService {
	return &AchievementService{
		catalog:    catalog,
		progress:   progress,
		activities: activities,
		users:      users,
		metrics:    loader,
		logger:     logger,
	}
}

// EvaluateAchievements re-evaluates the active achievements a trigger may affect.
func (s *AchievementService) EvaluateAchievements(ctx context.Context, userID string, trigger domain.TriggerType, ec EvaluationContext) (*EvaluationResult, error) {
	types := domain.AchievementTypesFor(trigger)
	if len(types) == 0 {
		return nil, domain.Invalid("unknown trigger type %q", trigger)
	}

	active, err := s.catalog.ListActive(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("achievement service: list catalog: %w", err)
	}
	existing, err := s.progress.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("achievement service: list user achievements: %w", err)
	}

	known := make(map[string]bool, len(active))
	for _, a := range active {
		known[a.ID] = true
	}
	byID := make(map[string]*domain.UserAchievement, len(existing))
	for _, ua := range existing {
		if !known[ua.AchievementID] {
			s.logger.Warn("user achievement references unknown catalog entry",
				zap.String("user_id", userID),
				zap.String("achievement_id", ua.AchievementID),
			)
			continue
		}
		byID[ua.AchievementID] = ua
	}

	wanted := make(map[domain.AchievementType]bool, len(types))
	for _, t := range types {
		wanted[t] = true
	}

	now := time.Now()
	result := &EvaluationResult{Earned: []string{}}
	var m *domain.AchievementMetrics

	for _, a := range active {
		if !wanted[a.Type] {
			continue
		}
		if a.StartDate != nil && now.Before(*a.StartDate) {
			continue
		}
		ua := byID[a.ID]
		if ua != nil && ua.IsEarned() {
			continue
		}

		if m == nil {
			if m, err = s.metrics.Load(ctx, userID, ec); err != nil {
				return nil, fmt.Errorf("achievement service: load metrics: %w", err)
			}
		}

		if ua == nil {
			if ua, err = s.progress.CreateOrGet(ctx, domain.NewUserAchievement(userID, a.ID, now)); err != nil {
				return nil, fmt.Errorf("achievement service: %w", err)
			}
		}

		result.Evaluated++
		changed, earned, err := s.evaluateOne(ctx, a, ua, *m, now)
		if err != nil {
			s.logger.Error("achievement evaluation failed",
				zap.String("user_id", userID),
				zap.String("achievement_id", a.ID),
				zap.Error(err),
			)
			continue
		}
		if changed {
			result.Updated++
		}
		if earned {
			result.Earned = append(result.Earned, a.ID)
		}
	}

	return result, nil
}

// evaluateOne applies the outcome under the version guard. A conflict re-reads the
// record, and a record found EARNED on re-read is left alone so points are awarded once.
func (s *AchievementService) evaluateOne(ctx context.Context, a *domain.Achievement, ua *domain.UserAchievement, m domain.AchievementMetrics, now time.Time) (changed, earned bool, err error) {
	for attempt := 1; ; attempt++ {
		if a.Expired(now) {
			changed, earned = ua.Expire(now), false
		} else {
			changed, earned = ua.Apply(a.Requirement.Evaluate(a.Category, m), now)
		}
		if !changed {
			return false, false, nil
		}

		err = s.progress.Update(ctx, ua)
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrConflict) || attempt == maxVersionAttempts {
			return false, false, err
		}

		if ua, err = s.progress.Get(ctx, ua.UserID, a.ID); err != nil {
			return false, false, err
		}
		if ua.IsEarned() {
			return false, false, nil
		}
	}

	if earned {
		s.onEarned(ctx, a, ua.UserID, now)
	}
	return changed, earned, nil
}

func (s *AchievementService) onEarned(ctx context.Context, a *domain.Achievement, userID string, now time.Time) {
	metrics.AchievementsEarned.WithLabelValues(string(a.Rarity)).Inc()

	activity := domain.NewActivity(userID, domain.ActivityAchievement, "Achievement unlocked: "+a.Title, a.Description, now)
	activity.Icon = a.Icon
	activity.RefID = a.ID
	activity.Points = a.Points
	if err := s.activities.Create(ctx, activity); err != nil {
		s.logger.Warn("failed to write achievement activity", zap.String("user_id", userID), zap.String("achievement_id", a.ID), zap.Error(err))
	}

	if a.Points > 0 {
		err := s.users.Increment(ctx, userID,
			map[string]float64{domain.FieldTotalPoints: float64(a.Points)},
			map[string]any{domain.FieldUpdatedAt: now.UTC()})
		if err != nil {
			s.logger.Warn("failed to award achievement points", zap.String("user_id", userID), zap.String("achievement_id", a.ID), zap.Error(err))
		}
	}

	s.logger.Info("achievement earned",
		zap.String("user_id", userID),
		zap.String("achievement_id", a.ID),
		zap.Int64("points", a.Points),
	)
}

// ListUserAchievements returns every active catalog achievement with the user's
// state, creating LOCKED records for the ones not tracked yet.
func (s *AchievementService) ListUserAchievements(ctx context.Context, userID string) ([]UserAchievementView, error) {
	active, err := s.catalog.ListActive(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("achievement service: list catalog: %w", err)
	}
	existing, err := s.progress.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("achievement service: list user achievements: %w", err)
	}

	byID := make(map[string]*domain.UserAchievement, len(existing))
	for _, ua := range existing {
		byID[ua.AchievementID] = ua
	}

	now := time.Now()
	views := make([]UserAchievementView, 0, len(active))
	for _, a := range active {
		ua, ok := byID[a.ID]
		if !ok {
			if ua, err = s.progress.CreateOrGet(ctx, domain.NewUserAchievement(userID, a.ID, now)); err != nil {
				return nil, fmt.Errorf("achievement service: %w", err)
			}
		}
		views = append(views, UserAchievementView{Achievement: a, Progress: ua})
	}
	return views, nil
}

func (s *AchievementService) GetLevel(ctx context.Context, userID string) (*LevelView, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	level, next := domain.LevelFor(user.TotalPoints)
	view := &LevelView{Points: user.TotalPoints, Level: level, Next: next}
	if next != nil {
		view.PointsToNext = next.MinPoints - user.TotalPoints
	}
	return view, nil
}

// SeedCatalog inserts the catalog achievements that are not stored yet.
func (s *AchievementService) SeedCatalog(ctx context.Context, catalog []*domain.Achievement) (int, error) {
	added, err := s.catalog.Seed(ctx, catalog)
	if err != nil {
		return 0, fmt.Errorf("achievement service: seed catalog: %w", err)
	}
	s.logger.Info("achievement catalog seeded", zap.Int("added", added), zap.Int("catalog_size", len(catalog)))
	return added, nil
}

// MetricsLoader builds the user statistics snapshot achievements are evaluated against.
type MetricsLoader struct {
	users    domain.UserRepository
	streaks  domain.StreakRepository
	trackers domain.TrackerRepository
	stats    domain.DailyStatsRepository
}

func NewMetricsLoader(users domain.UserRepository, streaks domain.StreakRepository, trackers domain.TrackerRepository, stats domain.DailyStatsRepository) *MetricsLoader {
	return &MetricsLoader{users: users, streaks: streaks, trackers: trackers, stats: stats}
}

func (l *MetricsLoader) Load(ctx context.Context, userID string, ec EvaluationContext) (*domain.AchievementMetrics, error) {
	user, err := l.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	m := &domain.AchievementMetrics{
		CurrentStreak:       ec.StreakDays,
		TotalTrackerEntries: user.TotalTrackerEntries,
		TotalJournalEntries: user.TotalJournalEntries,
		TotalValue:          user.TotalTrackerValue,
		WeeklyActivityScore: user.WeeklyActivityScore,
		ActiveCategories:    map[string]bool{},
	}

	streaks, err := l.streaks.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, st := range streaks {
		if st.CurrentStreak > m.CurrentStreak {
			m.CurrentStreak = st.CurrentStreak
		}
	}

	trackers, err := l.trackers.ListByUserID(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	for _, t := range trackers {
		if t.EntryCount > 0 {
			m.ActiveCategories[t.Category] = true
		}
	}

	today := domain.DayKey(time.Now())
	from, _ := domain.AddDays(today, -6)
	days, err := l.stats.ListRange(ctx, userID, from, today)
	if err != nil {
		return nil, err
	}
	var moodSum float64
	var moodDays int
	for _, d := range days {
		if d.AverageMood > 0 {
			moodSum += d.AverageMood
			moodDays++
		}
	}
	if moodDays > 0 {
		m.AverageMood = moodSum / float64(moodDays)
	}

	return m, nil
}
