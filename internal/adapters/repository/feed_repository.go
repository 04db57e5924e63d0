package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/comitanigiacomo/regen-engine/internal/adapters/docstore"
	"github.com/comitanigiacomo/regen-engine/internal/core/domain"
)

var (
	_ domain.FeedRepository            = (*FeedRepository)(nil)
	_ domain.FeedInteractionRepository = (*FeedInteractionRepository)(nil)
	_ domain.ActivityRepository        = (*ActivityRepository)(nil)
)

func pageQuery(userID string, before time.Time, limit int) docstore.Query {
	filters := []docstore.Filter{docstore.Where("user_id", docstore.Eq, userID)}
	if !before.IsZero() {
		filters = append(filters, docstore.Where("ts", docstore.Lt, before.UnixMilli()))
	}
	return docstore.Query{Filters: filters, OrderBy: "ts", Descending: true, Limit: limit}
}

type FeedRepository struct {
	store docstore.Store
}

func NewFeedRepository(store docstore.Store) *FeedRepository {
	return &FeedRepository{store: store}
}

func (r *FeedRepository) Create(ctx context.Context, item *domain.FeedItem) error {
	if _, err := r.store.Create(ctx, CollFeedItems, item.ID, item); err != nil {
		return fmt.Errorf("repository: create feed item failed: %w", err)
	}
	return nil
}

func (r *FeedRepository) CreateMany(ctx context.Context, items []*domain.FeedItem) error {
	b := docstore.NewBatch()
	for _, item := range items {
		b.Set(CollFeedItems, item.ID, item)
	}
	if err := r.store.Commit(ctx, b); err != nil {
		return fmt.Errorf("repository: create feed items failed: %w", err)
	}
	return nil
}

func (r *FeedRepository) Exists(ctx context.Context, userID, sourceID, dateKey string) (bool, error) {
	docs, err := r.store.Find(ctx, CollFeedItems, docstore.Query{
		Filters: []docstore.Filter{
			docstore.Where("user_id", docstore.Eq, userID),
			docstore.Where("source.id", docstore.Eq, sourceID),
			docstore.Where("date_key", docstore.Eq, dateKey),
		},
		Limit: 1,
	})
	if err != nil {
		return false, fmt.Errorf("repository: check feed item failed: %w", err)
	}
	return len(docs) > 0, nil
}

func (r *FeedRepository) ListByUser(ctx context.Context, userID string, before time.Time, limit int) ([]*domain.FeedItem, error) {
	docs, err := r.store.Find(ctx, CollFeedItems, pageQuery(userID, before, limit))
	if err != nil {
		return nil, fmt.Errorf("repository: list feed items failed: %w", err)
	}
	return decodeAll(docs, decodeInto[domain.FeedItem])
}

func (r *FeedRepository) GetByID(ctx context.Context, id string) (*domain.FeedItem, error) {
	doc, err := r.store.Get(ctx, CollFeedItems, id)
	if err != nil {
		return nil, translate(err, domain.ErrFeedItemNotFound, nil)
	}
	return decodeInto[domain.FeedItem](doc)
}

// FeedInteractionRepository stores likes and comments and keeps the counters on
// the feed item in step with them.
type FeedInteractionRepository struct {
	store docstore.Store
}

func NewFeedInteractionRepository(store docstore.Store) *FeedInteractionRepository {
	return &FeedInteractionRepository{store: store}
}

// ToggleLike pairs every counter step with a like document that was actually
// created or deleted, so concurrent toggles cannot drift the count.
func (r *FeedInteractionRepository) ToggleLike(ctx context.Context, like *domain.FeedLike) (bool, error) {
	_, err := r.store.Create(ctx, CollFeedLikes, like.ID, like)
	switch {
	case err == nil:
		return true, r.step(ctx, like.FeedItemID, domain.FieldLikesCount, 1)
	case !errors.Is(err, docstore.ErrDocumentExists):
		return false, fmt.Errorf("repository: create like failed: %w", err)
	}

	err = r.store.Delete(ctx, CollFeedLikes, like.ID)
	switch {
	case errors.Is(err, docstore.ErrDocumentNotFound):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("repository: delete like failed: %w", err)
	}
	return false, r.step(ctx, like.FeedItemID, domain.FieldLikesCount, -1)
}

func (r *FeedInteractionRepository) step(ctx context.Context, itemID, field string, delta float64) error {
	if err := r.store.Increment(ctx, CollFeedItems, itemID, map[string]float64{field: delta}, nil); err != nil {
		return fmt.Errorf("repository: update %s failed: %w", field, err)
	}
	return nil
}

func (r *FeedInteractionRepository) AddComment(ctx context.Context, c *domain.FeedComment) error {
	b := docstore.NewBatch().
		Set(CollFeedComments, c.ID, c).
		Increment(CollFeedItems, c.FeedItemID, map[string]float64{domain.FieldCommentsCount: 1}, nil)
	if err := r.store.Commit(ctx, b); err != nil {
		return fmt.Errorf("repository: add comment failed: %w", err)
	}
	return nil
}

func (r *FeedInteractionRepository) ListComments(ctx context.Context, feedItemID string, before time.Time, limit int) ([]*domain.FeedComment, error) {
	filters := []docstore.Filter{docstore.Where("feed_item_id", docstore.Eq, feedItemID)}
	if !before.IsZero() {
		filters = append(filters, docstore.Where("ts", docstore.Lt, before.UnixMilli()))
	}
	docs, err := r.store.Find(ctx, CollFeedComments, docstore.Query{
		Filters:    filters,
		OrderBy:    "ts",
		Descending: true,
		Limit:      limit,
	})
	if err != nil {
		return nil, fmt.Errorf("repository: list comments failed: %w", err)
	}
	return decodeAll(docs, decodeInto[domain.FeedComment])
}

type ActivityRepository struct {
	store docstore.Store
}

func NewActivityRepository(store docstore.Store) *ActivityRepository {
	return &ActivityRepository{store: store}
}

func (r *ActivityRepository) Create(ctx context.Context, a *domain.Activity) error {
	if _, err := r.store.Create(ctx, CollActivities, a.ID, a); err != nil {
		return fmt.Errorf("repository: create activity failed: %w", err)
	}
	return nil
}

func (r *ActivityRepository) ListByUser(ctx context.Context, userID string, before time.Time, limit int) ([]*domain.Activity, error) {
	docs, err := r.store.Find(ctx, CollActivities, pageQuery(userID, before, limit))
	if err != nil {
		return nil, fmt.Errorf("repository: list activities failed: %w", err)
	}
	return decodeAll(docs, decodeInto[domain.Activity])
}
