package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/comitanigiacomo/regen-engine/internal/core/domain"
	"go.uber.org/zap"
)

const (
	maintenanceChunk     = 500
	maxMaintenanceRounds = 100
)

type MaintenanceReport struct {
	SuggestionsDeleted      int      `json:"suggestions_deleted"`
	DailySuggestionsDeleted int      `json:"daily_suggestions_deleted"`
	TrackersCompleted       int      `json:"trackers_completed"`
	TrialsExpired           int      `json:"trials_expired"`
	Errors                  []string `json:"errors,omitempty"`
}

type MaintenanceService struct {
	suggestions       domain.SuggestionRepository
	daily             domain.DailySuggestionRepository
	trackers          domain.TrackerRepository
	users             domain.UserRepository
	suggestionTTLDays int
	logger            *zap.Logger
}

func NewMaintenanceService(suggestions domain.SuggestionRepository, daily domain.DailySuggestionRepository, trackers domain.TrackerRepository, users domain.UserRepository, suggestionTTLDays int, logger *zap.Logger) *MaintenanceService {
	if suggestionTTLDays < 1 {
		suggestionTTLDays = 35
	}
	return &MaintenanceService{
		suggestions:       suggestions,
		daily:             daily,
		trackers:          trackers,
		users:             users,
		suggestionTTLDays: suggestionTTLDays,
		logger:            logger,
	}
}

// Run executes every cleanup step. A failing step is recorded and the rest still run.
func (s *MaintenanceService) Run(ctx context.Context) (*MaintenanceReport, error) {
	now := time.Now().UTC()
	report := &MaintenanceReport{}

	steps := []struct {
		name string
		run  func(context.Context, time.Time) (int, error)
		dst  *int
	}{
		{"suggestions", s.cleanupSuggestions, &report.SuggestionsDeleted},
		{"daily_suggestions", s.cleanupDailySuggestions, &report.DailySuggestionsDeleted},
		{"trackers", s.completeExpiredTrackers, &report.TrackersCompleted},
		{"trials", s.expireTrials, &report.TrialsExpired},
	}

	var errs []error
	for _, step := range steps {
		n, err := step.run(ctx, now)
		*step.dst = n
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", step.name, err))
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", step.name, err))
			s.logger.Error("maintenance step failed", zap.String("step", step.name), zap.Int("count", n), zap.Error(err))
			continue
		}
		s.logger.Info("maintenance step finished", zap.String("step", step.name), zap.Int("count", n))
	}

	return report, errors.Join(errs...)
}

func (s *MaintenanceService) cleanupSuggestions(ctx context.Context, now time.Time) (int, error) {
	cutoff := domain.DayKey(now.AddDate(0, 0, -s.suggestionTTLDays))
	total := 0
	for round := 0; round < maxMaintenanceRounds; round++ {
		n, err := s.suggestions.DeleteOlderThan(ctx, cutoff, maintenanceChunk)
		total += n
		if err != nil {
			return total, err
		}
		if n < maintenanceChunk {
			break
		}
	}
	return total, nil
}

func (s *MaintenanceService) cleanupDailySuggestions(ctx context.Context, now time.Time) (int, error) {
	cutoff := domain.DayKey(now.AddDate(0, 0, -dailySuggestionTTLDays))
	total := 0
	for round := 0; round < maxMaintenanceRounds; round++ {
		n, err := s.daily.DeleteOlderThan(ctx, "", cutoff, maintenanceChunk)
		total += n
		if err != nil {
			return total, err
		}
		if n < maintenanceChunk {
			break
		}
	}
	return total, nil
}

func (s *MaintenanceService) completeExpiredTrackers(ctx context.Context, now time.Time) (int, error) {
	total := 0
	for round := 0; round < maxMaintenanceRounds; round++ {
		expired, err := s.trackers.ListExpired(ctx, now, maintenanceChunk)
		if err != nil {
			return total, err
		}
		if len(expired) == 0 {
			break
		}
		for _, t := range expired {
			t.Complete(now)
		}
		if err := s.trackers.CompleteMany(ctx, expired); err != nil {
			return total, err
		}
		total += len(expired)
		if len(expired) < maintenanceChunk {
			break
		}
	}
	return total, nil
}

func (s *MaintenanceService) expireTrials(ctx context.Context, now time.Time) (int, error) {
	users, err := s.users.ListByStatus(ctx, domain.UserStatusTrial)
	if err != nil {
		return 0, err
	}

	expired := 0
	var errs []error
	for _, u := range users {
		if !u.TrialExpired(now) {
			continue
		}
		changed, err := updateUser(ctx, s.users, u.ID, func(fresh *domain.User) bool {
			if !fresh.TrialExpired(now) {
				return false
			}
			fresh.Status = domain.UserStatusExpired
			fresh.UpdatedAt = now
			return true
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("user %s: %w", u.ID, err))
			continue
		}
		if changed {
			expired++
		}
	}
	return expired, errors.Join(errs...)
}
