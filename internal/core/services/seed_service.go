package services

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"github.com/comitanigiacomo/regen-engine/internal/core/domain"
	"go.uber.org/zap"
)

const (
	DefaultSeedDays = 28
	MaxSeedDays     = 90
)

type SeedReport struct {
	UserID         string `json:"user_id"`
	Days           int    `json:"days"`
	Trackers       int    `json:"trackers"`
	TrackerEntries int    `json:"tracker_entries"`
	JournalEntries int    `json:"journal_entries"`
}

// SeedService fills a development account with plausible history.
type SeedService struct {
	enabled    bool
	onboarding *OnboardingService
	trackers   domain.TrackerRepository
	entries    domain.EntryRepository
	journals   domain.JournalRepository
	users      domain.UserRepository
	stats      *StatsService
	streaks    *StreakService
	logger     *zap.Logger
}

func NewSeedService(
	enabled bool,
	onboarding *OnboardingService,
	trackers domain.TrackerRepository,
	entries domain.EntryRepository,
	journals domain.JournalRepository,
	users domain.UserRepository,
	stats *StatsService,
	streaks *StreakService,
	logger *zap.Logger,
) *SeedService {
	return &SeedService{
		enabled:    enabled,
		onboarding: onboarding,
		trackers:   trackers,
		entries:    entries,
		journals:   journals,
		users:      users,
		stats:      stats,
		streaks:    streaks,
		logger:     logger,
	}
}

// SeedTestData generates deterministic entries for the last days days. Only the
// account owner may seed it, and only when development endpoints are enabled.
func (s *SeedService) SeedTestData(ctx context.Context, callerID, targetUserID string, days int) (*SeedReport, error) {
	if !s.enabled {
		return nil, fmt.Errorf("%w: seeding is disabled", domain.ErrForbidden)
	}
	if callerID == "" || callerID != targetUserID {
		return nil, fmt.Errorf("%w: you can only seed your own data", domain.ErrForbidden)
	}
	if days == 0 {
		days = DefaultSeedDays
	}
	if days < 1 || days > MaxSeedDays {
		return nil, domain.Invalid("days must be between 1 and %d", MaxSeedDays)
	}

	user, err := s.users.GetByID(ctx, targetUserID)
	if err != nil {
		return nil, err
	}

	trackers, err := s.trackers.ListByUserID(ctx, targetUserID, true)
	if err != nil {
		return nil, fmt.Errorf("seed service: list trackers: %w", err)
	}
	if len(trackers) == 0 {
		focus := user.FocusAreas
		if len(focus) == 0 {
			focus = []string{"MIND", "BODY", "SOUL"}
		}
		if trackers, err = s.onboarding.CreateDefaultTrackers(ctx, targetUserID, focus, user.CommitmentLevel); err != nil {
			return nil, err
		}
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(targetUserID))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	now := time.Now().UTC()
	today := domain.DayKey(now)
	from, _ := domain.AddDays(today, -(days - 1))

	var entries []*domain.TrackerEntry
	var journals []*domain.JournalEntry
	perTracker := make(map[string]int)
	var totalValue float64

	for i := 0; i < days; i++ {
		day, _ := domain.AddDays(from, i)
		at, _ := domain.ParseDay(day)
		at = at.Add(time.Duration(7+rng.Intn(14)) * time.Hour)

		for _, t := range trackers {
			if rng.Float64() >= 0.75 {
				continue
			}
			value := math.Round(t.Target * (0.6 + rng.Float64()*0.6))
			if value < 1 {
				value = 1
			}
			e := domain.NewTrackerEntry(t.ID, targetUserID, day, value, at)
			e.Category = t.Category
			mood, energy := 6+rng.Intn(4), 5+rng.Intn(5)
			e.Mood, e.Energy = &mood, &energy
			entries = append(entries, e)
			perTracker[t.ID]++
			totalValue += value
		}

		if rng.Float64() > 0.6 {
			mood := 6 + rng.Intn(4)
			j := domain.NewJournalEntry(targetUserID, day, "Day "+fmt.Sprint(i+1),
				"Consistency is the key to transformation. Today was a good day on my journey.", at)
			j.Category = domain.CategoryJournal
			j.Mood = &mood
			journals = append(journals, j)
		}
	}

	if err := s.entries.CreateMany(ctx, entries); err != nil {
		return nil, fmt.Errorf("seed service: write entries: %w", err)
	}
	if err := s.journals.CreateMany(ctx, journals); err != nil {
		return nil, fmt.Errorf("seed service: write journal entries: %w", err)
	}

	for id, n := range perTracker {
		if err := s.trackers.IncrementEntryCount(ctx, id, n); err != nil {
			s.logger.Warn("seed: entry count not updated", zap.String("tracker_id", id), zap.Error(err))
		}
	}
	err = s.users.Increment(ctx, targetUserID, map[string]float64{
		domain.FieldUserTrackerEntries: float64(len(entries)),
		domain.FieldUserJournalEntries: float64(len(journals)),
		domain.FieldTotalTrackerValue:  totalValue,
	}, map[string]any{domain.FieldLastActiveDate: today})
	if err != nil {
		return nil, fmt.Errorf("seed service: update totals: %w", err)
	}

	if _, err := s.stats.BackfillUser(ctx, targetUserID, from, today, true); err != nil {
		s.logger.Warn("seed: stats backfill failed", zap.String("user_id", targetUserID), zap.Error(err))
	}
	for _, t := range trackers {
		if _, err := s.streaks.RebuildStreak(ctx, targetUserID, t.ID); err != nil {
			s.logger.Debug("seed: streak not rebuilt", zap.String("tracker_id", t.ID), zap.Error(err))
		}
	}

	report := &SeedReport{
		UserID:         targetUserID,
		Days:           days,
		Trackers:       len(trackers),
		TrackerEntries: len(entries),
		JournalEntries: len(journals),
	}
	s.logger.Info("test data seeded",
		zap.String("user_id", targetUserID),
		zap.Int("tracker_entries", report.TrackerEntries),
		zap.Int("journal_entries", report.JournalEntries),
	)
	return report, nil
}
