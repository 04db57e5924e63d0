package repository

import (
	"context"
	"fmt"

	"github.com/comitanigiacomo/regen-engine/internal/adapters/docstore"
	"github.com/comitanigiacomo/regen-engine/internal/core/domain"
)

var _ domain.StreakRepository = (*StreakRepository)(nil)

type StreakRepository struct {
	store docstore.Store
}

func NewStreakRepository(store docstore.Store) *StreakRepository {
	return &StreakRepository{store: store}
}

func decodeStreak(doc *docstore.Document) (*domain.StreakData, error) {
	s, err := decodeInto[domain.StreakData](doc)
	if err != nil {
		return nil, err
	}
	s.ID = doc.ID
	s.Version = doc.Version
	return s, nil
}

func (r *StreakRepository) CreateOrGet(ctx context.Context, s *domain.StreakData) (*domain.StreakData, bool, error) {
	doc, created, err := r.store.CreateOrGet(ctx, CollTrackerStreaks, s.ID, s)
	if err != nil {
		return nil, false, fmt.Errorf("repository: create streak failed: %w", err)
	}
	stored, err := decodeStreak(doc)
	if err != nil {
		return nil, false, err
	}
	return stored, created, nil
}

func (r *StreakRepository) Get(ctx context.Context, userID, trackerID string) (*domain.StreakData, error) {
	doc, err := r.store.Get(ctx, CollTrackerStreaks, domain.StreakID(userID, trackerID))
	if err != nil {
		return nil, translate(err, domain.ErrStreakNotFound, nil)
	}
	return decodeStreak(doc)
}

func (r *StreakRepository) Update(ctx context.Context, s *domain.StreakData) error {
	doc, err := r.store.Update(ctx, CollTrackerStreaks, s.ID, s, s.Version)
	if err != nil {
		return translate(err, domain.ErrStreakNotFound, domain.ErrStreakConflict)
	}
	s.Version = doc.Version
	return nil
}

func (r *StreakRepository) ListByUser(ctx context.Context, userID string) ([]*domain.StreakData, error) {
	docs, err := r.store.Find(ctx, CollTrackerStreaks, docstore.Query{
		Filters: []docstore.Filter{docstore.Where("user_id", docstore.Eq, userID)},
	})
	if err != nil {
		return nil, fmt.Errorf("repository: list streaks failed: %w", err)
	}
	return decodeAll(docs, decodeStreak)
}
