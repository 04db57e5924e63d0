package services

import (
	"context"
	"fmt"
	"time"

	"github.com/comitanigiacomo/regen-engine/internal/core/domain"
)

type TrackerService struct {
	repo domain.TrackerRepository
}

func NewTrackerService(repo domain.TrackerRepository) *TrackerService {
	return &TrackerService{
		repo: repo,
	}
}

type CreateTrackerInput struct {
	UserID       string
	Name         string
	Description  string
	Category     string
	Type         string
	Target       float64
	Unit         string
	Frequency    string
	Color        string
	Icon         string
	DurationDays int
	IsOngoing    bool
}

type UpdateTrackerInput struct {
	ID           string
	UserID       string
	Name         string
	Description  string
	Category     string
	Type         string
	Target       float64
	Unit         string
	Frequency    string
	Color        string
	Icon         string
	DurationDays int
	IsOngoing    *bool
	Version      int
}

func mergeString(newVal, oldVal string) string {
	if newVal == "" {
		return oldVal
	}
	return newVal
}

func (s *TrackerService) Create(ctx context.Context, input CreateTrackerInput) (*domain.Tracker, error) {
	tracker, err := domain.NewTracker(input.UserID, domain.TrackerSpec{
		Name:         input.Name,
		Description:  input.Description,
		Category:     input.Category,
		Type:         input.Type,
		Target:       input.Target,
		Unit:         input.Unit,
		Frequency:    input.Frequency,
		Color:        input.Color,
		Icon:         input.Icon,
		DurationDays: input.DurationDays,
		IsOngoing:    input.IsOngoing,
	}, time.Now())
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, tracker); err != nil {
		return nil, err
	}

	return tracker, nil
}

func (s *TrackerService) GetByID(ctx context.Context, id, userID string) (*domain.Tracker, error) {
	tracker, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tracker.UserID != userID {
		return nil, domain.ErrTrackerNotFound
	}
	return tracker, nil
}

func (s *TrackerService) ListByUserID(ctx context.Context, userID string, activeOnly bool) ([]*domain.Tracker, error) {
	return s.repo.ListByUserID(ctx, userID, activeOnly)
}

func (s *TrackerService) Update(ctx context.Context, input UpdateTrackerInput) (*domain.Tracker, error) {
	tracker, err := s.GetByID(ctx, input.ID, input.UserID)
	if err != nil {
		return nil, err
	}

	if input.Version > 0 && tracker.Version != input.Version {
		return nil, fmt.Errorf("%w: client v%d vs server v%d", domain.ErrTrackerConflict, input.Version, tracker.Version)
	}

	spec := domain.TrackerSpec{
		Name:         mergeString(input.Name, tracker.Name),
		Description:  mergeString(input.Description, tracker.Description),
		Category:     mergeString(input.Category, tracker.Category),
		Type:         mergeString(input.Type, tracker.Type),
		Target:       tracker.Target,
		Unit:         mergeString(input.Unit, tracker.Unit),
		Frequency:    mergeString(input.Frequency, tracker.Frequency),
		Color:        mergeString(input.Color, tracker.Color),
		Icon:         mergeString(input.Icon, tracker.Icon),
		DurationDays: tracker.DurationDays,
		IsOngoing:    tracker.IsOngoing,
	}
	if input.Target > 0 {
		spec.Target = input.Target
	}
	if input.DurationDays > 0 {
		spec.DurationDays = input.DurationDays
	}
	if input.IsOngoing != nil {
		spec.IsOngoing = *input.IsOngoing
	}

	if err := tracker.Update(spec, time.Now()); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, tracker); err != nil {
		return nil, err
	}
	return tracker, nil
}

func (s *TrackerService) Delete(ctx context.Context, id string, userID string) error {
	if _, err := s.GetByID(ctx, id, userID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
