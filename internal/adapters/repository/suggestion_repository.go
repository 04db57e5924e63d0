package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/comitanigiacomo/regen-engine/internal/adapters/docstore"
	"github.com/comitanigiacomo/regen-engine/internal/core/domain"
)

var (
	_ domain.SuggestionRepository      = (*SuggestionRepository)(nil)
	_ domain.DailySuggestionRepository = (*DailySuggestionRepository)(nil)
)

type SuggestionRepository struct {
	store docstore.Store
}

func NewSuggestionRepository(store docstore.Store) *SuggestionRepository {
	return &SuggestionRepository{store: store}
}

func (r *SuggestionRepository) Get(ctx context.Context, userID, dateKey string) (*domain.TrackerSuggestion, error) {
	doc, err := r.store.Get(ctx, CollSuggestions, domain.SuggestionID(userID, dateKey))
	if err != nil {
		return nil, translate(err, domain.ErrNotFound, nil)
	}
	return decodeInto[domain.TrackerSuggestion](doc)
}

func (r *SuggestionRepository) Save(ctx context.Context, s *domain.TrackerSuggestion) error {
	s.ID = domain.SuggestionID(s.UserID, s.DateKey)
	if _, err := r.store.Set(ctx, CollSuggestions, s.ID, s); err != nil {
		return fmt.Errorf("repository: save suggestion failed: %w", err)
	}
	return nil
}

func (r *SuggestionRepository) DeleteOlderThan(ctx context.Context, dateKey string, limit int) (int, error) {
	docs, err := r.store.Find(ctx, CollSuggestions, docstore.Query{
		Filters: []docstore.Filter{docstore.Where("date_key", docstore.Lt, dateKey)},
		OrderBy: "date_key",
		Limit:   limit,
	})
	if err != nil {
		return 0, fmt.Errorf("repository: find stale suggestions failed: %w", err)
	}
	if len(docs) == 0 {
		return 0, nil
	}

	b := docstore.NewBatch()
	for _, doc := range docs {
		b.Delete(CollSuggestions, doc.ID)
	}
	if err := docstore.CommitChunked(ctx, r.store, b.Operations()); err != nil {
		return 0, fmt.Errorf("repository: delete stale suggestions failed: %w", err)
	}
	return len(docs), nil
}

type DailySuggestionRepository struct {
	store docstore.Store
}

func NewDailySuggestionRepository(store docstore.Store) *DailySuggestionRepository {
	return &DailySuggestionRepository{store: store}
}

func (r *DailySuggestionRepository) Get(ctx context.Context, userID, dateKey string) (*domain.DailySuggestions, error) {
	doc, err := r.store.Get(ctx, CollDailySuggestions, domain.DailySuggestionsID(userID, dateKey))
	if err != nil {
		return nil, translate(err, domain.ErrNotFound, nil)
	}
	return decodeInto[domain.DailySuggestions](doc)
}

func (r *DailySuggestionRepository) Save(ctx context.Context, s *domain.DailySuggestions) error {
	s.ID = domain.DailySuggestionsID(s.UserID, s.DateKey)
	if _, err := r.store.Set(ctx, CollDailySuggestions, s.ID, s); err != nil {
		return fmt.Errorf("repository: save daily suggestions failed: %w", err)
	}
	return nil
}

func (r *DailySuggestionRepository) Touch(ctx context.Context, userID, dateKey string, at time.Time) error {
	b := docstore.NewBatch().Merge(CollDailySuggestions, domain.DailySuggestionsID(userID, dateKey),
		map[string]any{"last_accessed": at.UTC()})
	if err := r.store.Commit(ctx, b); err != nil {
		return fmt.Errorf("repository: touch daily suggestions failed: %w", err)
	}
	return nil
}

func (r *DailySuggestionRepository) DeleteOlderThan(ctx context.Context, userID, dateKey string, limit int) (int, error) {
	filters := []docstore.Filter{docstore.Where("date_key", docstore.Lt, dateKey)}
	if userID != "" {
		filters = append(filters, docstore.Where("user_id", docstore.Eq, userID))
	}
	docs, err := r.store.Find(ctx, CollDailySuggestions, docstore.Query{Filters: filters, OrderBy: "date_key", Limit: limit})
	if err != nil {
		return 0, fmt.Errorf("repository: find stale daily suggestions failed: %w", err)
	}
	if len(docs) == 0 {
		return 0, nil
	}

	b := docstore.NewBatch()
	for _, doc := range docs {
		b.Delete(CollDailySuggestions, doc.ID)
	}
	if err := docstore.CommitChunked(ctx, r.store, b.Operations()); err != nil {
		return 0, fmt.Errorf("repository: delete stale daily suggestions failed: %w", err)
	}
	return len(docs), nil
}
