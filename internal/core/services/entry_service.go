package services

import (
	"context"
	"fmt"
	"time"

	"github.com/comitanigiacomo/regen-engine/internal/core/domain"
	"github.com/comitanigiacomo/regen-engine/internal/core/workers"
	"github.com/comitanigiacomo/regen-engine/internal/metrics"
	"go.uber.org/zap"
)

// JobQueue accepts background jobs without blocking the caller.
type JobQueue interface {
	Enqueue(job workers.Job) bool
}

type EntryService struct {
	repo        domain.EntryRepository
	trackerRepo domain.TrackerRepository
	queue       JobQueue
	logger      *zap.Logger
}

func NewEntryService(repo domain.EntryRepository, trackerRepo domain.TrackerRepository, queue JobQueue, logger *zap.Logger) *EntryService {
	return &EntryService{
		repo:        repo,
		trackerRepo: trackerRepo,
		queue:       queue,
		logger:      logger,
	}
}

type CreateEntryInput struct {
	TrackerID string
	UserID    string
	Date      string
	Value     float64
	Mood      *int
	Energy    *int
	Notes     string
	Duration  *int
	Tags      []string
}

func (s *EntryService) Create(ctx context.Context, input CreateEntryInput) (*domain.TrackerEntry, error) {
	now := time.Now()
	entry := domain.NewTrackerEntry(input.TrackerID, input.UserID, input.Date, input.Value, now)
	entry.Mood = input.Mood
	entry.Energy = input.Energy
	entry.Notes = input.Notes
	entry.Duration = input.Duration
	entry.Tags = input.Tags

	if err := entry.Validate(now); err != nil {
		return nil, err
	}

	tracker, err := s.trackerRepo.GetByID(ctx, entry.TrackerID)
	if err != nil {
		return nil, err
	}
	if tracker.UserID != entry.UserID {
		return nil, domain.ErrTrackerNotFound
	}
	entry.Category = tracker.Category

	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("entry service: %w", err)
	}
	metrics.EntriesCreated.WithLabelValues(domain.ActivityTypeTracker).Inc()

	if err := s.trackerRepo.IncrementEntryCount(ctx, tracker.ID, 1); err != nil {
		s.logger.Warn("failed to increment tracker entry count", zap.String("tracker_id", tracker.ID), zap.Error(err))
	}

	s.queue.Enqueue(workers.Job{
		Kind:      workers.KindEntryCreated,
		UserID:    entry.UserID,
		TrackerID: entry.TrackerID,
		EntryID:   entry.ID,
		Date:      entry.Date,
		Category:  entry.Category,
		Value:     entry.Value,
	})

	return entry, nil
}

func (s *EntryService) GetByID(ctx context.Context, id string, userID string) (*domain.TrackerEntry, error) {
	entry, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry.UserID != userID {
		return nil, domain.ErrEntryNotFound
	}
	return entry, nil
}

func (s *EntryService) ListByTrackerID(ctx context.Context, trackerID, userID, from, to string) ([]*domain.TrackerEntry, error) {
	if err := validateRange(from, to); err != nil {
		return nil, err
	}

	tracker, err := s.trackerRepo.GetByID(ctx, trackerID)
	if err != nil {
		return nil, err
	}
	if tracker.UserID != userID {
		return nil, domain.ErrTrackerNotFound
	}

	return s.repo.ListByTracker(ctx, trackerID, from, to)
}

func (s *EntryService) Delete(ctx context.Context, id string, userID string) error {
	entry, err := s.GetByID(ctx, id, userID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if err := s.trackerRepo.IncrementEntryCount(ctx, entry.TrackerID, -1); err != nil {
		s.logger.Warn("failed to decrement tracker entry count", zap.String("tracker_id", entry.TrackerID), zap.Error(err))
	}

	s.queue.Enqueue(workers.Job{
		Kind:      workers.KindEntryDeleted,
		UserID:    entry.UserID,
		TrackerID: entry.TrackerID,
		EntryID:   entry.ID,
		Date:      entry.Date,
		Category:  entry.Category,
		Value:     entry.Value,
	})

	return nil
}

type JournalService struct {
	repo   domain.JournalRepository
	queue  JobQueue
	logger *zap.Logger
}

func NewJournalService(repo domain.JournalRepository, queue JobQueue, logger *zap.Logger) *JournalService {
	return &JournalService{repo: repo, queue: queue, logger: logger}
}

type CreateJournalInput struct {
	UserID   string
	Date     string
	Title    string
	Content  string
	Category string
	Mood     *int
	Energy   *int
	Tags     []string
}

func (s *JournalService) Create(ctx context.Context, input CreateJournalInput) (*domain.JournalEntry, error) {
	now := time.Now()
	if input.Date == "" {
		input.Date = domain.DayKey(now)
	}

	entry := domain.NewJournalEntry(input.UserID, input.Date, input.Title, input.Content, now)
	entry.Category = input.Category
	if entry.Category == "" {
		entry.Category = domain.CategoryJournal
	}
	entry.Mood = input.Mood
	entry.Energy = input.Energy
	entry.Tags = input.Tags

	if err := entry.Validate(now); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("journal service: %w", err)
	}
	metrics.EntriesCreated.WithLabelValues(domain.ActivityTypeJournal).Inc()

	s.queue.Enqueue(workers.Job{
		Kind:     workers.KindJournalCreated,
		UserID:   entry.UserID,
		EntryID:  entry.ID,
		Date:     entry.Date,
		Category: entry.Category,
	})

	return entry, nil
}

func (s *JournalService) ListByUserID(ctx context.Context, userID, from, to string) ([]*domain.JournalEntry, error) {
	if err := validateRange(from, to); err != nil {
		return nil, err
	}
	return s.repo.ListByUser(ctx, userID, from, to)
}

// validateRange checks optional YYYY-MM-DD bounds and their order.
func validateRange(from, to string) error {
	for _, d := range []string{from, to} {
		if d == "" {
			continue
		}
		if _, err := domain.ParseDay(d); err != nil {
			return err
		}
	}
	if from != "" && to != "" && from > to {
		return domain.Invalid("from %s is after to %s", from, to)
	}
	return nil
}
