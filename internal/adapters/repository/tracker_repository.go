package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/comitanigiacomo/regen-engine/internal/adapters/docstore"
	"github.com/comitanigiacomo/regen-engine/internal/core/domain"
)

var _ domain.TrackerRepository = (*TrackerRepository)(nil)

type TrackerRepository struct {
	store docstore.Store
}

func NewTrackerRepository(store docstore.Store) *TrackerRepository {
	return &TrackerRepository{store: store}
}

func decodeTracker(doc *docstore.Document) (*domain.Tracker, error) {
	t, err := decodeInto[domain.Tracker](doc)
	if err != nil {
		return nil, err
	}
	t.ID = doc.ID
	t.Version = doc.Version
	return t, nil
}

func (r *TrackerRepository) Create(ctx context.Context, t *domain.Tracker) error {
	doc, err := r.store.Create(ctx, CollTrackers, t.ID, t)
	if err != nil {
		return fmt.Errorf("repository: create tracker failed: %w", err)
	}
	t.Version = doc.Version
	return nil
}

func (r *TrackerRepository) GetByID(ctx context.Context, id string) (*domain.Tracker, error) {
	doc, err := r.store.Get(ctx, CollTrackers, id)
	if err != nil {
		return nil, translate(err, domain.ErrTrackerNotFound, nil)
	}
	return decodeTracker(doc)
}

func (r *TrackerRepository) ListByUserID(ctx context.Context, userID string, activeOnly bool) ([]*domain.Tracker, error) {
	filters := []docstore.Filter{docstore.Where("user_id", docstore.Eq, userID)}
	if activeOnly {
		filters = append(filters, docstore.Where("is_active", docstore.Eq, true))
	}

	docs, err := r.store.Find(ctx, CollTrackers, docstore.Query{Filters: filters})
	if err != nil {
		return nil, fmt.Errorf("repository: list trackers failed: %w", err)
	}
	trackers, err := decodeAll(docs, decodeTracker)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(trackers, func(i, j int) bool {
		return trackers[i].CreatedAt.Before(trackers[j].CreatedAt)
	})
	return trackers, nil
}

func (r *TrackerRepository) Update(ctx context.Context, t *domain.Tracker) error {
	doc, err := r.store.Update(ctx, CollTrackers, t.ID, t, t.Version)
	if err != nil {
		return translate(err, domain.ErrTrackerNotFound, domain.ErrTrackerConflict)
	}
	t.Version = doc.Version
	return nil
}

func (r *TrackerRepository) Delete(ctx context.Context, id string) error {
	return translate(r.store.Delete(ctx, CollTrackers, id), domain.ErrTrackerNotFound, nil)
}

func (r *TrackerRepository) IncrementEntryCount(ctx context.Context, id string, delta int) error {
	if _, err := r.store.Get(ctx, CollTrackers, id); err != nil {
		return translate(err, domain.ErrTrackerNotFound, nil)
	}
	err := r.store.Increment(ctx, CollTrackers, id,
		map[string]float64{"entry_count": float64(delta)},
		map[string]any{"updated_at": time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("repository: increment entry count failed: %w", err)
	}
	return nil
}

func (r *TrackerRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*domain.Tracker, error) {
	docs, err := r.store.Find(ctx, CollTrackers, docstore.Query{
		Filters: []docstore.Filter{
			docstore.Where("is_active", docstore.Eq, true),
			docstore.Where("is_ongoing", docstore.Eq, false),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("repository: list expired trackers failed: %w", err)
	}

	var expired []*domain.Tracker
	for _, doc := range docs {
		t, err := decodeTracker(doc)
		if err != nil {
			return nil, err
		}
		if t.IsExpired(now) {
			expired = append(expired, t)
			if limit > 0 && len(expired) == limit {
				break
			}
		}
	}
	return expired, nil
}

func (r *TrackerRepository) CompleteMany(ctx context.Context, trackers []*domain.Tracker) error {
	b := docstore.NewBatch()
	for _, t := range trackers {
		b.Merge(CollTrackers, t.ID, map[string]any{
			"is_active":    t.IsActive,
			"completed_at": t.CompletedAt,
			"updated_at":   t.UpdatedAt,
		})
	}
	err := docstore.CommitChunked(ctx, r.store, b.Operations())
	if errors.Is(err, docstore.ErrDocumentNotFound) {
		return domain.ErrTrackerNotFound
	}
	return err
}
