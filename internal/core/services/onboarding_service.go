package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/comitanigiacomo/regen-engine/internal/catalog"
	"github.com/comitanigiacomo/regen-engine/internal/core/domain"
	"go.uber.org/zap"
)

var (
	meditationMinutes = map[string]float64{
		domain.CommitmentIntensive: 20,
		domain.CommitmentModerate:  10,
		domain.CommitmentLight:     5,
	}
	exerciseSessions = map[string]float64{
		domain.CommitmentIntensive: 6,
		domain.CommitmentModerate:  4,
		domain.CommitmentLight:     3,
	}
)

type OnboardingInput struct {
	UserID          string
	DisplayName     string
	Location        string
	FocusAreas      []string
	Goals           []string
	CommitmentLevel string
}

type OnboardingResult struct {
	User     *domain.User      `json:"user"`
	Trackers []*domain.Tracker `json:"trackers"`
}

type OnboardingService struct {
	users     domain.UserRepository
	trackers  domain.TrackerRepository
	templates []domain.TrackerTemplate
	logger    *zap.Logger
}

func NewOnboardingService(users domain.UserRepository, trackers domain.TrackerRepository, templates []domain.TrackerTemplate, logger *zap.Logger) *OnboardingService {
	return &OnboardingService{users: users, trackers: trackers, templates: templates, logger: logger}
}

// CompleteOnboarding stores the user's preferences and creates the default trackers.
// Calling it again updates the preferences without duplicating trackers.
func (s *OnboardingService) CompleteOnboarding(ctx context.Context, input OnboardingInput) (*OnboardingResult, error) {
	req := domain.RecommendationRequest{
		FocusAreas:      input.FocusAreas,
		Goals:           input.Goals,
		CommitmentLevel: input.CommitmentLevel,
	}
	if err := req.Normalize(); err != nil {
		return nil, err
	}

	var saved *domain.User
	_, err := updateUser(ctx, s.users, input.UserID, func(u *domain.User) bool {
		u.FocusAreas = req.FocusAreas
		u.Goals = trimAll(req.Goals)
		u.CommitmentLevel = req.CommitmentLevel
		u.OnboardingCompleted = true
		if name := strings.TrimSpace(input.DisplayName); name != "" {
			u.DisplayName = name
		}
		if loc := strings.TrimSpace(input.Location); loc != "" {
			u.Location = loc
		}
		u.UpdatedAt = time.Now().UTC()
		saved = u
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("onboarding service: save preferences: %w", err)
	}

	trackers, err := s.CreateDefaultTrackers(ctx, input.UserID, req.FocusAreas, req.CommitmentLevel)
	if err != nil {
		return nil, err
	}
	return &OnboardingResult{User: saved, Trackers: trackers}, nil
}

// CreateDefaultTrackers creates the starter trackers unless the user already has default ones.
func (s *OnboardingService) CreateDefaultTrackers(ctx context.Context, userID string, focusAreas []string, commitment string) ([]*domain.Tracker, error) {
	existing, err := s.trackers.ListByUserID(ctx, userID, false)
	if err != nil {
		return nil, fmt.Errorf("onboarding service: list trackers: %w", err)
	}
	var defaults []*domain.Tracker
	for _, t := range existing {
		if t.IsDefault {
			defaults = append(defaults, t)
		}
	}
	if len(defaults) > 0 {
		return defaults, nil
	}

	if _, ok := meditationMinutes[commitment]; !ok {
		commitment = domain.CommitmentModerate
	}

	type pick struct {
		id     string
		target float64
	}
	picks := []pick{
		{"mood", 0},
		{"meditation", meditationMinutes[commitment]},
		{"exercise", exerciseSessions[commitment]},
	}
	if slices.Contains(focusAreas, "SOUL") {
		picks = append(picks, pick{"gratitude", 0})
	}
	if slices.Contains(focusAreas, "BEAUTY") {
		picks = append(picks, pick{"skincare", 0})
	}

	now := time.Now()
	created := make([]*domain.Tracker, 0, len(picks))
	for _, p := range picks {
		tpl, ok := catalog.Template(s.templates, p.id)
		if !ok {
			s.logger.Warn("default tracker template missing", zap.String("template_id", p.id))
			continue
		}
		spec := catalog.TrackerSpec(tpl)
		if p.target > 0 {
			spec.Target = p.target
		}

		t, err := domain.NewTracker(userID, spec, now)
		if err != nil {
			return nil, err
		}
		t.IsDefault = true
		if err := s.trackers.Create(ctx, t); err != nil {
			return nil, fmt.Errorf("onboarding service: create %s tracker: %w", p.id, err)
		}
		created = append(created, t)
	}

	s.logger.Info("default trackers created", zap.String("user_id", userID), zap.Int("count", len(created)))
	return created, nil
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
