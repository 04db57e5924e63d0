package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/comitanigiacomo/regen-engine/internal/adapters/docstore"
	"github.com/comitanigiacomo/regen-engine/internal/core/domain"
)

var _ domain.UserRepository = (*UserRepository)(nil)

const userQueryTimeout = 3 * time.Second

// userRecord persists the password hash that domain.User hides from JSON responses.
type userRecord struct {
	domain.User
	PasswordHash string `json:"password_hash"`
}

type emailIndex struct {
	UserID string `json:"user_id"`
}

type UserRepository struct {
	store docstore.Store
}

func NewUserRepository(store docstore.Store) *UserRepository {
	return &UserRepository{store: store}
}

func decodeUser(doc *docstore.Document) (*domain.User, error) {
	rec, err := decodeInto[userRecord](doc)
	if err != nil {
		return nil, err
	}
	u := rec.User
	u.PasswordHash = rec.PasswordHash
	u.ID = doc.ID
	u.Version = doc.Version
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	ctx, cancel := context.WithTimeout(ctx, userQueryTimeout)
	defer cancel()

	email := strings.ToLower(user.Email)
	if _, err := r.store.Create(ctx, CollUserEmails, email, emailIndex{UserID: user.ID}); err != nil {
		if errors.Is(err, docstore.ErrDocumentExists) {
			return domain.ErrEmailAlreadyExists
		}
		return fmt.Errorf("repository: reserve email failed: %w", err)
	}

	doc, err := r.store.Create(ctx, CollUsers, user.ID, userRecord{User: *user, PasswordHash: user.PasswordHash})
	if err != nil {
		_ = r.store.Delete(ctx, CollUserEmails, email)
		return fmt.Errorf("repository: create user failed: %w", err)
	}
	user.Version = doc.Version
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, userQueryTimeout)
	defer cancel()

	doc, err := r.store.Get(ctx, CollUsers, id)
	if err != nil {
		if errors.Is(err, docstore.ErrDocumentNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("repository: get user by id failed: %w", err)
	}
	return decodeUser(doc)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, userQueryTimeout)
	defer cancel()

	doc, err := r.store.Get(ctx, CollUserEmails, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, docstore.ErrDocumentNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("repository: get user by email failed: %w", err)
	}

	var idx emailIndex
	if err := doc.Decode(&idx); err != nil {
		return nil, fmt.Errorf("repository: %w", err)
	}
	return r.GetByID(ctx, idx.UserID)
}

func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	doc, err := r.store.Update(ctx, CollUsers, user.ID,
		userRecord{User: *user, PasswordHash: user.PasswordHash}, user.Version)
	if err != nil {
		return translate(err, domain.ErrUserNotFound, domain.ErrUserConflict)
	}
	user.Version = doc.Version
	return nil
}

func (r *UserRepository) Increment(ctx context.Context, userID string, deltas map[string]float64, set map[string]any) error {
	if _, err := r.store.Get(ctx, CollUsers, userID); err != nil {
		return translate(err, domain.ErrUserNotFound, nil)
	}

	fields := map[string]any{domain.FieldUpdatedAt: time.Now().UTC()}
	for k, v := range set {
		fields[k] = v
	}
	if err := r.store.Increment(ctx, CollUsers, userID, deltas, fields); err != nil {
		return fmt.Errorf("repository: increment user counters failed: %w", err)
	}
	return nil
}

func (r *UserRepository) ListActiveSince(ctx context.Context, day string) ([]*domain.User, error) {
	docs, err := r.store.Find(ctx, CollUsers, docstore.Query{
		Filters: []docstore.Filter{docstore.Where(domain.FieldLastActiveDate, docstore.Gte, day)},
	})
	if err != nil {
		return nil, fmt.Errorf("repository: list active users failed: %w", err)
	}
	return decodeAll(docs, decodeUser)
}

func (r *UserRepository) ListByStatus(ctx context.Context, status string) ([]*domain.User, error) {
	docs, err := r.store.Find(ctx, CollUsers, docstore.Query{
		Filters: []docstore.Filter{docstore.Where("status", docstore.Eq, status)},
	})
	if err != nil {
		return nil, fmt.Errorf("repository: list users by status failed: %w", err)
	}
	return decodeAll(docs, decodeUser)
}
