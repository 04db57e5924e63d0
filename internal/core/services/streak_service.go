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

const maxVersionAttempts = 3

// MilestoneListener receives streak milestones once they are persisted.
type MilestoneListener interface {
	OnStreakMilestone(ctx context.Context, streak *domain.StreakData, milestone int) error
}

// AchievementEvaluator re-evaluates a user's achievements after an event.
type AchievementEvaluator interface {
	EvaluateAchievements(ctx context.Context, userID string, trigger domain.TriggerType, ec EvaluationContext) (*EvaluationResult, error)
}

type StreakService struct {
	streaks      domain.StreakRepository
	entries      domain.EntryRepository
	trackers     domain.TrackerRepository
	milestones   MilestoneListener
	achievements AchievementEvaluator
	logger       *zap.Logger
}

func NewStreakService(
	streaks domain.StreakRepository,
	entries domain.EntryRepository,
	trackers domain.TrackerRepository,
	milestones MilestoneListener,
	achievements AchievementEvaluator,
	logger *zap.Logger,
) *StreakService {
	return &StreakService{
		streaks:      streaks,
		entries:      entries,
		trackers:     trackers,
		milestones:   milestones,
		achievements: achievements,
		logger:       logger,
	}
}

// RecordEntryForStreak applies an entry day to the (user, tracker) streak. A day
// older than the last recorded activity returns ErrOutOfOrderEntry untouched.
// When the gap since the last recorded day is covered by stored entries whose
// updates never ran, the streak is rebuilt from history instead of restarted.
func (s *StreakService) RecordEntryForStreak(ctx context.Context, userID, trackerID, entryDate string) (*domain.StreakData, error) {
	now := time.Now()
	future, err := domain.IsFutureDay(entryDate, now)
	if err != nil {
		return nil, err
	}
	if future {
		return nil, domain.Invalid("entry date %s is in the future", entryDate)
	}

	missed, err := s.hasMissedDays(ctx, userID, trackerID, entryDate)
	if err != nil {
		return nil, err
	}
	if missed {
		s.logger.Info("streak missed entry days, rebuilding from history",
			zap.String("user_id", userID),
			zap.String("tracker_id", trackerID),
			zap.String("date", entryDate),
		)
		return s.rebuild(ctx, userID, trackerID, entryDate)
	}

	var update domain.StreakUpdate
	streak, err := s.withRetry(ctx, domain.NewStreak(userID, trackerID, entryDate, now), func(sd *domain.StreakData, created bool) (bool, error) {
		if created {
			update = domain.StreakUpdate{Changed: true}
			return false, nil
		}
		var rerr error
		update, rerr = sd.RecordDay(entryDate, now)
		return update.Changed, rerr
	})
	if err != nil {
		return nil, err
	}

	if update.Changed {
		s.afterUpdate(ctx, streak, update)
	}
	return streak, nil
}

// hasMissedDays reports whether entries exist strictly between the last recorded
// activity and day, which only happens when their streak updates were lost.
func (s *StreakService) hasMissedDays(ctx context.Context, userID, trackerID, day string) (bool, error) {
	streak, err := s.streaks.Get(ctx, userID, trackerID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("streak service: %w", err)
	}

	gap, err := domain.DayGap(streak.LastActivityDate, day)
	if err != nil || gap < 2 {
		return false, err
	}

	from, err := domain.AddDays(streak.LastActivityDate, 1)
	if err != nil {
		return false, err
	}
	to, err := domain.AddDays(day, -1)
	if err != nil {
		return false, err
	}
	between, err := s.entries.ListByTracker(ctx, trackerID, from, to)
	if err != nil {
		return false, fmt.Errorf("streak service: list entries: %w", err)
	}
	for _, e := range between {
		if e.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

// RebuildStreak recomputes the streak from the tracker's full entry history.
func (s *StreakService) RebuildStreak(ctx context.Context, userID, trackerID string) (*domain.StreakData, error) {
	return s.rebuild(ctx, userID, trackerID)
}

// rebuild recomputes the streak from stored entries plus any extra days that
// are known to exist but may not be visible yet.
func (s *StreakService) rebuild(ctx context.Context, userID, trackerID string, extra ...string) (*domain.StreakData, error) {
	entries, err := s.entries.ListByTracker(ctx, trackerID, "", "")
	if err != nil {
		return nil, fmt.Errorf("streak service: list entries: %w", err)
	}

	days := make([]string, 0, len(entries)+len(extra))
	for _, e := range entries {
		if e.UserID == userID {
			days = append(days, e.Date)
		}
	}
	days = append(days, extra...)

	now := time.Now()
	if len(days) == 0 {
		return s.resetCurrent(ctx, userID, trackerID, now)
	}

	var update domain.StreakUpdate
	streak, err := s.withRetry(ctx, domain.NewStreakFromDays(userID, trackerID, days, now), func(sd *domain.StreakData, created bool) (bool, error) {
		var rerr error
		update, rerr = sd.RebuildFrom(days, now)
		return update.Changed, rerr
	})
	if err != nil {
		return nil, err
	}

	if update.Changed {
		s.afterUpdate(ctx, streak, update)
	}
	return streak, nil
}

func (s *StreakService) resetCurrent(ctx context.Context, userID, trackerID string, now time.Time) (*domain.StreakData, error) {
	for attempt := 1; ; attempt++ {
		streak, err := s.streaks.Get(ctx, userID, trackerID)
		if err != nil {
			return nil, err
		}
		if streak.CurrentStreak == 0 {
			return streak, nil
		}
		streak.CurrentStreak = 0
		streak.CurrentStartDate = ""
		streak.UpdatedAt = now.UTC()

		err = s.streaks.Update(ctx, streak)
		if err == nil {
			return streak, nil
		}
		if !errors.Is(err, domain.ErrConflict) || attempt == maxVersionAttempts {
			return nil, fmt.Errorf("streak service: %w", err)
		}
	}
}

// withRetry loads or creates the streak, applies mutate and persists the result
// under the version guard, reloading and reapplying on conflict.
func (s *StreakService) withRetry(ctx context.Context, initial *domain.StreakData, mutate func(sd *domain.StreakData, created bool) (bool, error)) (*domain.StreakData, error) {
	for attempt := 1; ; attempt++ {
		streak, created, err := s.streaks.CreateOrGet(ctx, initial)
		if err != nil {
			return nil, fmt.Errorf("streak service: %w", err)
		}

		changed, err := mutate(streak, created)
		if err != nil {
			return nil, err
		}
		if !changed {
			return streak, nil
		}

		err = s.streaks.Update(ctx, streak)
		if err == nil {
			return streak, nil
		}
		if !errors.Is(err, domain.ErrConflict) || attempt == maxVersionAttempts {
			return nil, fmt.Errorf("streak service: %w", err)
		}
		s.logger.Debug("streak version conflict, retrying",
			zap.String("streak_id", initial.ID),
			zap.Int("attempt", attempt),
		)
	}
}

func (s *StreakService) afterUpdate(ctx context.Context, streak *domain.StreakData, update domain.StreakUpdate) {
	for _, m := range update.NewMilestones {
		metrics.StreakMilestones.WithLabelValues(fmt.Sprint(m)).Inc()
		if s.milestones == nil {
			continue
		}
		if err := s.milestones.OnStreakMilestone(ctx, streak, m); err != nil {
			s.logger.Warn("milestone side effect failed",
				zap.String("user_id", streak.UserID),
				zap.String("tracker_id", streak.TrackerID),
				zap.Int("milestone", m),
				zap.Error(err),
			)
		}
	}

	if s.achievements == nil {
		return
	}
	_, err := s.achievements.EvaluateAchievements(ctx, streak.UserID, domain.TriggerStreak, EvaluationContext{StreakDays: streak.CurrentStreak})
	if err != nil {
		s.logger.Warn("streak achievement evaluation failed", zap.String("user_id", streak.UserID), zap.Error(err))
	}
}

func (s *StreakService) GetStreak(ctx context.Context, userID, trackerID string) (*domain.StreakData, error) {
	tracker, err := s.trackers.GetByID(ctx, trackerID)
	if err != nil {
		return nil, err
	}
	if tracker.UserID != userID {
		return nil, domain.ErrTrackerNotFound
	}
	return s.streaks.Get(ctx, userID, trackerID)
}

func (s *StreakService) ListByUser(ctx context.Context, userID string) ([]*domain.StreakData, error) {
	return s.streaks.ListByUser(ctx, userID)
}
