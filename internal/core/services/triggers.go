package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/comitanigiacomo/regen-engine/internal/core/domain"
	"github.com/comitanigiacomo/regen-engine/internal/core/workers"
	"go.uber.org/zap"
)

// EventHandlers reacts to document writes the way database triggers would.
type EventHandlers struct {
	stats        *StatsService
	streaks      *StreakService
	achievements *AchievementService
	feed         *FeedService
	logger       *zap.Logger
}

func NewEventHandlers(stats *StatsService, streaks *StreakService, achievements *AchievementService, feed *FeedService, logger *zap.Logger) *EventHandlers {
	return &EventHandlers{
		stats:        stats,
		streaks:      streaks,
		achievements: achievements,
		feed:         feed,
		logger:       logger,
	}
}

// Register binds every job kind to its handler.
func (h *EventHandlers) Register(w *workers.EventWorker) {
	w.Handle(workers.KindEntryCreated, h.OnEntryCreated)
	w.Handle(workers.KindJournalCreated, h.OnJournalCreated)
	w.Handle(workers.KindEntryDeleted, h.OnEntryDeleted)
	w.Handle(workers.KindUserCreated, h.OnUserCreated)
	w.Handle(workers.KindPostGenerate, h.OnPostGenerate)
}

// OnEntryCreated updates counters, then the streak, then tracker achievements.
// A counter failure does not stop the streak update.
func (h *EventHandlers) OnEntryCreated(ctx context.Context, job workers.Job) error {
	var errs []error

	in := domain.StatsIncrement{ActivityType: domain.ActivityTypeTracker, Category: job.Category}
	if err := h.stats.IncrementDailyStats(ctx, job.UserID, job.Date, in); err != nil {
		errs = append(errs, err)
	}
	if err := h.stats.IncrementUserTotals(ctx, job.UserID, domain.ActivityTypeTracker, job.Date, job.Value, 1); err != nil {
		errs = append(errs, err)
	}

	_, err := h.streaks.RecordEntryForStreak(ctx, job.UserID, job.TrackerID, job.Date)
	if errors.Is(err, domain.ErrOutOfOrderEntry) {
		h.logger.Debug("backfilled entry, rebuilding streak",
			zap.String("user_id", job.UserID),
			zap.String("tracker_id", job.TrackerID),
			zap.String("date", job.Date),
		)
		_, err = h.streaks.RebuildStreak(ctx, job.UserID, job.TrackerID)
	}
	if err != nil {
		errs = append(errs, fmt.Errorf("streak: %w", err))
	}

	if _, err := h.achievements.EvaluateAchievements(ctx, job.UserID, domain.TriggerTracker, EvaluationContext{}); err != nil {
		errs = append(errs, fmt.Errorf("achievements: %w", err))
	}
	return errors.Join(errs...)
}

func (h *EventHandlers) OnJournalCreated(ctx context.Context, job workers.Job) error {
	var errs []error

	in := domain.StatsIncrement{ActivityType: domain.ActivityTypeJournal, Category: job.Category}
	if err := h.stats.IncrementDailyStats(ctx, job.UserID, job.Date, in); err != nil {
		errs = append(errs, err)
	}
	if err := h.stats.IncrementUserTotals(ctx, job.UserID, domain.ActivityTypeJournal, job.Date, 0, 1); err != nil {
		errs = append(errs, err)
	}
	if _, err := h.achievements.EvaluateAchievements(ctx, job.UserID, domain.TriggerJournal, EvaluationContext{}); err != nil {
		errs = append(errs, fmt.Errorf("achievements: %w", err))
	}
	return errors.Join(errs...)
}

// OnEntryDeleted reconciles the day's stats and the tracker streak with the remaining entries.
func (h *EventHandlers) OnEntryDeleted(ctx context.Context, job workers.Job) error {
	var errs []error

	if err := h.stats.IncrementUserTotals(ctx, job.UserID, domain.ActivityTypeTracker, job.Date, job.Value, -1); err != nil {
		errs = append(errs, err)
	}
	if _, err := h.stats.CalculateUserDailyStats(ctx, job.UserID, job.Date); err != nil {
		errs = append(errs, err)
	}
	if _, err := h.streaks.RebuildStreak(ctx, job.UserID, job.TrackerID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		errs = append(errs, fmt.Errorf("streak: %w", err))
	}
	return errors.Join(errs...)
}

func (h *EventHandlers) OnUserCreated(ctx context.Context, job workers.Job) error {
	if err := h.feed.CreateWelcomeFeed(ctx, job.UserID); err != nil {
		h.logger.Warn("welcome feed not created", zap.String("user_id", job.UserID), zap.Error(err))
	}
	return nil
}

func (h *EventHandlers) OnPostGenerate(ctx context.Context, job workers.Job) error {
	_, err := h.feed.GeneratePost(ctx, job.UserID, job.PostKind, job.Variant, job.Force)
	return err
}
