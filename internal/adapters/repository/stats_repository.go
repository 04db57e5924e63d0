package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/comitanigiacomo/regen-engine/internal/adapters/docstore"
	"github.com/comitanigiacomo/regen-engine/internal/core/domain"
)

var _ domain.DailyStatsRepository = (*DailyStatsRepository)(nil)

type DailyStatsRepository struct {
	store docstore.Store
	now   func() time.Time
}

func NewDailyStatsRepository(store docstore.Store) *DailyStatsRepository {
	return &DailyStatsRepository{store: store, now: time.Now}
}

func (r *DailyStatsRepository) Increment(ctx context.Context, userID, date string, deltas map[string]float64) error {
	id := domain.DailyStatsID(userID, date)
	err := r.store.Increment(ctx, CollUserDailyStats, id, deltas, map[string]any{
		"id":         id,
		"user_id":    userID,
		"date":       date,
		"updated_at": r.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("repository: increment daily stats failed: %w", err)
	}
	return nil
}

func (r *DailyStatsRepository) Replace(ctx context.Context, stats *domain.UserDailyStats) error {
	stats.ID = domain.DailyStatsID(stats.UserID, stats.Date)
	if _, err := r.store.Set(ctx, CollUserDailyStats, stats.ID, stats); err != nil {
		return fmt.Errorf("repository: replace daily stats failed: %w", err)
	}
	return nil
}

func (r *DailyStatsRepository) Get(ctx context.Context, userID, date string) (*domain.UserDailyStats, error) {
	doc, err := r.store.Get(ctx, CollUserDailyStats, domain.DailyStatsID(userID, date))
	if err != nil {
		return nil, translate(err, domain.ErrStatsNotFound, nil)
	}
	return decodeInto[domain.UserDailyStats](doc)
}

func (r *DailyStatsRepository) ListRange(ctx context.Context, userID, from, to string) ([]*domain.UserDailyStats, error) {
	filters := append([]docstore.Filter{docstore.Where("user_id", docstore.Eq, userID)}, dateRange("date", from, to)...)
	docs, err := r.store.Find(ctx, CollUserDailyStats, docstore.Query{Filters: filters, OrderBy: "date"})
	if err != nil {
		return nil, fmt.Errorf("repository: list daily stats failed: %w", err)
	}
	return decodeAll(docs, decodeInto[domain.UserDailyStats])
}
