package repository

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/comitanigiacomo/regen-engine/internal/adapters/docstore"
	"github.com/comitanigiacomo/regen-engine/internal/core/domain"
)

var (
	_ domain.AchievementRepository     = (*AchievementRepository)(nil)
	_ domain.UserAchievementRepository = (*UserAchievementRepository)(nil)
)

type AchievementRepository struct {
	store docstore.Store
}

func NewAchievementRepository(store docstore.Store) *AchievementRepository {
	return &AchievementRepository{store: store}
}

func (r *AchievementRepository) GetByID(ctx context.Context, id string) (*domain.Achievement, error) {
	doc, err := r.store.Get(ctx, CollAchievements, id)
	if err != nil {
		return nil, translate(err, domain.ErrAchievementNotFound, nil)
	}
	return decodeInto[domain.Achievement](doc)
}

func (r *AchievementRepository) ListActive(ctx context.Context, types []domain.AchievementType) ([]*domain.Achievement, error) {
	docs, err := r.store.Find(ctx, CollAchievements, docstore.Query{
		Filters: []docstore.Filter{docstore.Where("is_active", docstore.Eq, true)},
	})
	if err != nil {
		return nil, fmt.Errorf("repository: list achievements failed: %w", err)
	}

	all, err := decodeAll(docs, decodeInto[domain.Achievement])
	if err != nil {
		return nil, err
	}

	out := all[:0]
	for _, a := range all {
		if len(types) == 0 || slices.Contains(types, a.Type) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *AchievementRepository) Seed(ctx context.Context, catalog []*domain.Achievement) (int, error) {
	added := 0
	for _, a := range catalog {
		_, created, err := r.store.CreateOrGet(ctx, CollAchievements, a.ID, a)
		if err != nil {
			return added, fmt.Errorf("repository: seed achievement %s failed: %w", a.ID, err)
		}
		if created {
			added++
		}
	}
	return added, nil
}

type UserAchievementRepository struct {
	store docstore.Store
}

func NewUserAchievementRepository(store docstore.Store) *UserAchievementRepository {
	return &UserAchievementRepository{store: store}
}

func decodeUserAchievement(doc *docstore.Document) (*domain.UserAchievement, error) {
	ua, err := decodeInto[domain.UserAchievement](doc)
	if err != nil {
		return nil, err
	}
	ua.ID = doc.ID
	ua.Version = doc.Version
	return ua, nil
}

func (r *UserAchievementRepository) CreateOrGet(ctx context.Context, ua *domain.UserAchievement) (*domain.UserAchievement, error) {
	doc, _, err := r.store.CreateOrGet(ctx, CollUserAchievements, ua.ID, ua)
	if err != nil {
		return nil, fmt.Errorf("repository: create user achievement failed: %w", err)
	}
	return decodeUserAchievement(doc)
}

func (r *UserAchievementRepository) Get(ctx context.Context, userID, achievementID string) (*domain.UserAchievement, error) {
	doc, err := r.store.Get(ctx, CollUserAchievements, domain.UserAchievementID(userID, achievementID))
	if err != nil {
		return nil, translate(err, domain.ErrAchievementNotFound, nil)
	}
	return decodeUserAchievement(doc)
}

func (r *UserAchievementRepository) Update(ctx context.Context, ua *domain.UserAchievement) error {
	doc, err := r.store.Update(ctx, CollUserAchievements, ua.ID, ua, ua.Version)
	if err != nil {
		return translate(err, domain.ErrAchievementNotFound, domain.ErrAchievementConflict)
	}
	ua.Version = doc.Version
	return nil
}

func (r *UserAchievementRepository) ListByUser(ctx context.Context, userID string) ([]*domain.UserAchievement, error) {
	docs, err := r.store.Find(ctx, CollUserAchievements, docstore.Query{
		Filters: []docstore.Filter{docstore.Where("user_id", docstore.Eq, userID)},
	})
	if err != nil {
		return nil, fmt.Errorf("repository: list user achievements failed: %w", err)
	}
	return decodeAll(docs, decodeUserAchievement)
}
