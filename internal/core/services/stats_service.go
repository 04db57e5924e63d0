package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync/atomic"
	"time"

	"github.com/comitanigiacomo/regen-engine/internal/core/domain"
	"github.com/comitanigiacomo/regen-engine/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const maxBackfillDays = 366

type StatsService struct {
	stats       domain.DailyStatsRepository
	users       domain.UserRepository
	trackerRepo domain.TrackerRepository
	entryRepo   domain.EntryRepository
	journalRepo domain.JournalRepository

	activeWindowDays int
	concurrency      int
	logger           *zap.Logger
}

func NewStatsService(
	stats domain.DailyStatsRepository,
	users domain.UserRepository,
	trackerRepo domain.TrackerRepository,
	entryRepo domain.EntryRepository,
	journalRepo domain.JournalRepository,
	activeWindowDays, concurrency int,
	logger *zap.Logger,
) *StatsService {
	if activeWindowDays < 1 {
		activeWindowDays = 30
	}
	if concurrency < 1 {
		concurrency = 5
	}
	return &StatsService{
		stats:            stats,
		users:            users,
		trackerRepo:      trackerRepo,
		entryRepo:        entryRepo,
		journalRepo:      journalRepo,
		activeWindowDays: activeWindowDays,
		concurrency:      concurrency,
		logger:           logger,
	}
}

// IncrementDailyStats adds one activity to the user's counters for date.
func (s *StatsService) IncrementDailyStats(ctx context.Context, userID, date string, in domain.StatsIncrement) error {
	if _, err := domain.ParseDay(date); err != nil {
		return err
	}
	if err := s.stats.Increment(ctx, userID, date, in.Deltas()); err != nil {
		return fmt.Errorf("stats service: increment daily stats: %w", err)
	}
	return nil
}

// IncrementUserTotals adjusts the profile counters by one activity on date. A
// negative sign reverts a deleted entry. The last active date only moves forward.
func (s *StatsService) IncrementUserTotals(ctx context.Context, userID, activityType, date string, value float64, sign int) error {
	if _, err := domain.ParseDay(date); err != nil {
		return err
	}

	step := float64(sign)
	deltas := map[string]float64{}
	switch activityType {
	case domain.ActivityTypeTracker:
		deltas[domain.FieldUserTrackerEntries] = step
		deltas[domain.FieldTotalTrackerValue] = step * value
	case domain.ActivityTypeJournal:
		deltas[domain.FieldUserJournalEntries] = step
	default:
		return domain.Invalid("unknown activity type %q", activityType)
	}

	set := map[string]any{domain.FieldUpdatedAt: time.Now().UTC()}
	if err := s.users.Increment(ctx, userID, deltas, set); err != nil {
		return fmt.Errorf("stats service: increment user totals: %w", err)
	}
	if sign > 0 {
		return s.advanceLastActive(ctx, userID, date)
	}
	return nil
}

func (s *StatsService) advanceLastActive(ctx context.Context, userID, date string) error {
	_, err := updateUser(ctx, s.users, userID, func(u *domain.User) bool {
		if u.LastActiveDate >= date {
			return false
		}
		u.LastActiveDate = date
		u.UpdatedAt = time.Now().UTC()
		return true
	})
	if err != nil {
		return fmt.Errorf("stats service: update last active date: %w", err)
	}
	return nil
}

// CalculateUserDailyStats recomputes the day's document from the stored entries
// and overwrites it. For the two most recent days it also refreshes the profile's
// weekly activity score and overall streak.
func (s *StatsService) CalculateUserDailyStats(ctx context.Context, userID, date string) (*domain.UserDailyStats, error) {
	stats, err := s.calculate(ctx, userID, date)
	metrics.StatsRecomputations.WithLabelValues(metrics.Result(err)).Inc()
	return stats, err
}

func (s *StatsService) calculate(ctx context.Context, userID, date string) (*domain.UserDailyStats, error) {
	if _, err := domain.ParseDay(date); err != nil {
		return nil, err
	}

	entries, err := s.entryRepo.ListByUser(ctx, userID, "", date)
	if err != nil {
		return nil, fmt.Errorf("stats service: list entries: %w", err)
	}
	journals, err := s.journalRepo.ListByUser(ctx, userID, "", date)
	if err != nil {
		return nil, fmt.Errorf("stats service: list journal entries: %w", err)
	}

	now := time.Now().UTC()
	stats := &domain.UserDailyStats{
		ID:        domain.DailyStatsID(userID, date),
		UserID:    userID,
		Date:      date,
		UpdatedAt: now,
	}

	activeDays := make(map[string]int)
	var day dayAccumulator
	for _, e := range entries {
		activeDays[e.Date]++
		if e.Date != date {
			continue
		}
		stats.TotalTrackerEntries++
		day.add(e.Category, e.Mood, e.Energy, e.Notes != "", e.CreatedAt)
	}
	for _, j := range journals {
		activeDays[j.Date]++
		if j.Date != date {
			continue
		}
		stats.TotalJournalEntries++
		day.add(j.Category, j.Mood, j.Energy, false, j.CreatedAt)
	}

	stats.TotalActivities = stats.TotalTrackerEntries + stats.TotalJournalEntries
	stats.MindMinutes = day.counters[domain.FieldMindMinutes]
	stats.BodyActivities = day.counters[domain.FieldBodyActivities]
	stats.SoulActivities = day.counters[domain.FieldSoulActivities]
	stats.BeautyRoutines = day.counters[domain.FieldBeautyRoutines]
	day.derive(stats)

	weekStart, _ := domain.AddDays(date, -6)
	var weekActivities, weekActiveDays int
	for d, n := range activeDays {
		if d >= weekStart && d <= date {
			weekActivities += n
			weekActiveDays++
		}
	}
	stats.EngagementRate = round2(float64(weekActiveDays) / 7)
	stats.OverallStreak = consecutiveDays(activeDays, date)

	if err := s.stats.Replace(ctx, stats); err != nil {
		return nil, fmt.Errorf("stats service: replace daily stats: %w", err)
	}

	if isRecent(date, now) {
		err := s.users.Increment(ctx, userID, nil, map[string]any{
			domain.FieldWeeklyActivityScore: round2(float64(weekActivities) / 7),
			domain.FieldCurrentStreak:       stats.OverallStreak,
			domain.FieldUpdatedAt:           now,
		})
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("stats service: update profile scores: %w", err)
		}
	}

	return stats, nil
}

type dayAccumulator struct {
	counters   map[string]int64
	categories map[string]bool
	hours      [24]int
	items      int
	quality    int
	moodSum    int
	moodN      int
	energySum  int
	energyN    int
}

func (a *dayAccumulator) add(category string, mood, energy *int, hasNotes bool, createdAt time.Time) {
	if a.counters == nil {
		a.counters = make(map[string]int64)
		a.categories = make(map[string]bool)
	}
	a.items++
	if field, ok := domain.CategoryCounter(category); ok {
		a.counters[field]++
	}
	if category != "" {
		a.categories[category] = true
	}
	if mood != nil {
		a.moodSum += *mood
		a.moodN++
	}
	if energy != nil {
		a.energySum += *energy
		a.energyN++
	}
	if mood != nil || energy != nil || hasNotes {
		a.quality++
	}
	a.hours[createdAt.UTC().Hour()]++
}

func (a *dayAccumulator) derive(stats *domain.UserDailyStats) {
	if a.items == 0 {
		return
	}
	if a.moodN > 0 {
		stats.AverageMood = round2(float64(a.moodSum) / float64(a.moodN))
	}
	if a.energyN > 0 {
		stats.AverageEnergy = round2(float64(a.energySum) / float64(a.energyN))
	}
	stats.CategoryDiversity = len(a.categories)
	stats.DataQualityScore = round2(float64(a.quality) / float64(a.items))

	best := 0
	for h := 1; h < 24; h++ {
		if a.hours[h] > a.hours[best] {
			best = h
		}
	}
	stats.BestHour = &best
}

// consecutiveDays counts active days ending at date.
func consecutiveDays(active map[string]int, date string) int {
	n := 0
	for d := date; active[d] > 0; n++ {
		d, _ = domain.AddDays(d, -1)
	}
	return n
}

func isRecent(date string, now time.Time) bool {
	gap, err := domain.DayGap(date, domain.DayKey(now))
	return err == nil && gap <= 1
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// CalculateAllDailyStats recomputes date for every user active within the window.
// Per-user failures are counted and logged without aborting the run.
func (s *StatsService) CalculateAllDailyStats(ctx context.Context, date string) (*domain.RecalculationReport, error) {
	since, err := domain.AddDays(date, -s.activeWindowDays)
	if err != nil {
		return nil, err
	}
	users, err := s.users.ListActiveSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("stats service: list active users: %w", err)
	}

	var processed, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, u := range users {
		g.Go(func() error {
			if _, err := s.CalculateUserDailyStats(gctx, u.ID, date); err != nil {
				failed.Add(1)
				s.logger.Error("daily stats recompute failed",
					zap.String("user_id", u.ID),
					zap.String("date", date),
					zap.Error(err),
				)
				return nil
			}
			processed.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	report := &domain.RecalculationReport{
		Date:      date,
		Processed: int(processed.Load()),
		Failed:    int(failed.Load()),
	}
	s.logger.Info("daily stats recompute finished",
		zap.String("date", date),
		zap.Int("users", len(users)),
		zap.Int("processed", report.Processed),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

// BackfillUser recomputes every day in [from, to], skipping days that already
// have a document unless force is set.
func (s *StatsService) BackfillUser(ctx context.Context, userID, from, to string, force bool) (*domain.BackfillReport, error) {
	span, err := domain.DayGap(from, to)
	if err != nil {
		return nil, err
	}
	if span < 0 {
		return nil, domain.Invalid("from %s is after to %s", from, to)
	}
	if span >= maxBackfillDays {
		return nil, domain.Invalid("backfill range is limited to %d days", maxBackfillDays)
	}

	report := &domain.BackfillReport{UserID: userID}
	for i := 0; i <= span; i++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		day, _ := domain.AddDays(from, i)

		if !force {
			_, err := s.stats.Get(ctx, userID, day)
			if err == nil {
				report.Skipped++
				continue
			}
			if !errors.Is(err, domain.ErrNotFound) {
				report.Failed++
				continue
			}
		}

		if _, err := s.CalculateUserDailyStats(ctx, userID, day); err != nil {
			report.Failed++
			s.logger.Warn("backfill day failed", zap.String("user_id", userID), zap.String("date", day), zap.Error(err))
			continue
		}
		report.Processed++
	}
	return report, nil
}

func (s *StatsService) GetDailyStats(ctx context.Context, userID, from, to string) ([]*domain.UserDailyStats, error) {
	if from == "" || to == "" {
		return nil, domain.Invalid("from and to are required")
	}
	if err := validateRange(from, to); err != nil {
		return nil, err
	}
	return s.stats.ListRange(ctx, userID, from, to)
}

func (s *StatsService) GetWeeklyStats(ctx context.Context, userID string, startDate, endDate time.Time) (*domain.WeeklyStats, error) {
	startDate = startDate.UTC().Truncate(24 * time.Hour)
	endDate = endDate.UTC().Truncate(24 * time.Hour)
	if endDate.Before(startDate) {
		return nil, domain.Invalid("end date is before start date")
	}

	trackers, err := s.trackerRepo.ListByUserID(ctx, userID, false)
	if err != nil {
		return nil, err
	}

	entries, err := s.entryRepo.ListByUser(ctx, userID, domain.DayKey(startDate), domain.DayKey(endDate))
	if err != nil {
		return nil, err
	}

	entriesMap := make(map[string]map[string]float64)
	entryCounts := make(map[string]int)
	for _, e := range entries {
		entryCounts[e.TrackerID]++
		if _, exists := entriesMap[e.TrackerID]; !exists {
			entriesMap[e.TrackerID] = make(map[string]float64)
		}
		entriesMap[e.TrackerID][e.Date] += e.Value
	}

	stats := &domain.WeeklyStats{
		StartDate:     domain.DayKey(startDate),
		EndDate:       domain.DayKey(endDate),
		TotalTrackers: len(trackers),
		TrackerStats:  make([]domain.TrackerStat, 0, len(trackers)),
	}

	totalDaysPossible := 0
	totalDaysCompleted := 0

	for _, t := range trackers {
		tStat := domain.TrackerStat{
			TrackerID:     t.ID,
			Name:          t.Name,
			Category:      t.Category,
			Target:        t.Target,
			Unit:          t.Unit,
			EntriesCount:  entryCounts[t.ID],
			DailyProgress: make([]float64, 0),
		}

		daysInPeriod := 0
		daysAchieved := 0

		for currentDate := startDate; !currentDate.After(endDate); currentDate = currentDate.AddDate(0, 0, 1) {
			val := entriesMap[t.ID][domain.DayKey(currentDate)]

			tStat.TotalValue += val
			tStat.DailyProgress = append(tStat.DailyProgress, val)

			if val >= t.Target {
				daysAchieved++
				totalDaysCompleted++
			}

			daysInPeriod++
			totalDaysPossible++
		}

		tStat.DaysCompleted = daysAchieved
		if daysInPeriod > 0 {
			tStat.CompletionRate = float64(daysAchieved) / float64(daysInPeriod) * 100
		}

		stats.TrackerStats = append(stats.TrackerStats, tStat)
	}

	sort.SliceStable(stats.TrackerStats, func(i, j int) bool {
		return stats.TrackerStats[i].CompletionRate > stats.TrackerStats[j].CompletionRate
	})

	if totalDaysPossible > 0 {
		stats.OverallRate = float64(totalDaysCompleted) / float64(totalDaysPossible) * 100
	}

	return stats, nil
}
