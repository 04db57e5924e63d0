package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/comitanigiacomo/regen-engine/internal/core/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var _ domain.TrackerRepository = (*CachedTrackerRepository)(nil)

const trackerListTTL = 30 * time.Minute

// CachedTrackerRepository caches each user's tracker list in redis and drops the
// cached list on every write that touches one of the user's trackers.
type CachedTrackerRepository struct {
	next   domain.TrackerRepository
	cache  *redis.Client
	logger *zap.Logger
}

func NewCachedTrackerRepository(next domain.TrackerRepository, cache *redis.Client, logger *zap.Logger) *CachedTrackerRepository {
	return &CachedTrackerRepository{
		next:   next,
		cache:  cache,
		logger: logger,
	}
}

func (r *CachedTrackerRepository) cacheKey(userID string, activeOnly bool) string {
	if activeOnly {
		return fmt.Sprintf("trackers:%s:active", userID)
	}
	return fmt.Sprintf("trackers:%s", userID)
}

func (r *CachedTrackerRepository) invalidate(ctx context.Context, userID string) {
	if err := r.cache.Del(ctx, r.cacheKey(userID, false), r.cacheKey(userID, true)).Err(); err != nil {
		r.logger.Warn("tracker cache invalidation failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func (r *CachedTrackerRepository) ListByUserID(ctx context.Context, userID string, activeOnly bool) ([]*domain.Tracker, error) {
	key := r.cacheKey(userID, activeOnly)

	val, err := r.cache.Get(ctx, key).Result()
	if err == nil {
		var trackers []*domain.Tracker
		if err := json.Unmarshal([]byte(val), &trackers); err == nil {
			return trackers, nil
		}

		r.logger.Warn("corrupted tracker cache entry, cleaning up", zap.String("user_id", userID))
		r.cache.Del(ctx, key)
	} else if err != redis.Nil {
		r.logger.Warn("redis read error", zap.Error(err))
	}

	trackers, err := r.next.ListByUserID(ctx, userID, activeOnly)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(trackers); err == nil {
		if setErr := r.cache.Set(ctx, key, data, trackerListTTL).Err(); setErr != nil {
			r.logger.Warn("redis set error", zap.Error(setErr))
		}
	}

	return trackers, nil
}

func (r *CachedTrackerRepository) GetByID(ctx context.Context, id string) (*domain.Tracker, error) {
	return r.next.GetByID(ctx, id)
}

func (r *CachedTrackerRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*domain.Tracker, error) {
	return r.next.ListExpired(ctx, now, limit)
}

func (r *CachedTrackerRepository) Create(ctx context.Context, t *domain.Tracker) error {
	if err := r.next.Create(ctx, t); err != nil {
		return err
	}
	r.invalidate(ctx, t.UserID)
	return nil
}

func (r *CachedTrackerRepository) Update(ctx context.Context, t *domain.Tracker) error {
	if err := r.next.Update(ctx, t); err != nil {
		return err
	}
	r.invalidate(ctx, t.UserID)
	return nil
}

func (r *CachedTrackerRepository) Delete(ctx context.Context, id string) error {
	t, err := r.next.GetByID(ctx, id)
	if err == nil && t != nil {
		defer r.invalidate(ctx, t.UserID)
	}
	return r.next.Delete(ctx, id)
}

func (r *CachedTrackerRepository) IncrementEntryCount(ctx context.Context, id string, delta int) error {
	t, err := r.next.GetByID(ctx, id)
	if err == nil {
		defer r.invalidate(ctx, t.UserID)
	}
	return r.next.IncrementEntryCount(ctx, id, delta)
}

func (r *CachedTrackerRepository) CompleteMany(ctx context.Context, trackers []*domain.Tracker) error {
	if err := r.next.CompleteMany(ctx, trackers); err != nil {
		return err
	}
	for _, t := range trackers {
		r.invalidate(ctx, t.UserID)
	}
	return nil
}
