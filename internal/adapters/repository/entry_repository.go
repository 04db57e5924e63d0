package repository

import (
	"context"
	"fmt"

	"github.com/comitanigiacomo/regen-engine/internal/adapters/docstore"
	"github.com/comitanigiacomo/regen-engine/internal/core/domain"
)

var (
	_ domain.EntryRepository   = (*EntryRepository)(nil)
	_ domain.JournalRepository = (*JournalRepository)(nil)
)

type EntryRepository struct {
	store docstore.Store
}

func NewEntryRepository(store docstore.Store) *EntryRepository {
	return &EntryRepository{store: store}
}

func (r *EntryRepository) Create(ctx context.Context, e *domain.TrackerEntry) error {
	if _, err := r.store.Create(ctx, CollTrackerEntries, e.ID, e); err != nil {
		return fmt.Errorf("repository: create entry failed: %w", err)
	}
	return nil
}

func (r *EntryRepository) CreateMany(ctx context.Context, entries []*domain.TrackerEntry) error {
	b := docstore.NewBatch()
	for _, e := range entries {
		b.Set(CollTrackerEntries, e.ID, e)
	}
	return docstore.CommitChunked(ctx, r.store, b.Operations())
}

func (r *EntryRepository) GetByID(ctx context.Context, id string) (*domain.TrackerEntry, error) {
	doc, err := r.store.Get(ctx, CollTrackerEntries, id)
	if err != nil {
		return nil, translate(err, domain.ErrEntryNotFound, nil)
	}
	return decodeInto[domain.TrackerEntry](doc)
}

func (r *EntryRepository) Delete(ctx context.Context, id string) error {
	return translate(r.store.Delete(ctx, CollTrackerEntries, id), domain.ErrEntryNotFound, nil)
}

func (r *EntryRepository) ListByTracker(ctx context.Context, trackerID, from, to string) ([]*domain.TrackerEntry, error) {
	return r.list(ctx, "tracker_id", trackerID, from, to)
}

func (r *EntryRepository) ListByUser(ctx context.Context, userID, from, to string) ([]*domain.TrackerEntry, error) {
	return r.list(ctx, "user_id", userID, from, to)
}

func (r *EntryRepository) list(ctx context.Context, field, value, from, to string) ([]*domain.TrackerEntry, error) {
	filters := append([]docstore.Filter{docstore.Where(field, docstore.Eq, value)}, dateRange("date", from, to)...)
	docs, err := r.store.Find(ctx, CollTrackerEntries, docstore.Query{Filters: filters, OrderBy: "date"})
	if err != nil {
		return nil, fmt.Errorf("repository: list entries failed: %w", err)
	}
	return decodeAll(docs, decodeInto[domain.TrackerEntry])
}

type JournalRepository struct {
	store docstore.Store
}

func NewJournalRepository(store docstore.Store) *JournalRepository {
	return &JournalRepository{store: store}
}

func (r *JournalRepository) Create(ctx context.Context, j *domain.JournalEntry) error {
	if _, err := r.store.Create(ctx, CollJournalEntries, j.ID, j); err != nil {
		return fmt.Errorf("repository: create journal entry failed: %w", err)
	}
	return nil
}

func (r *JournalRepository) CreateMany(ctx context.Context, entries []*domain.JournalEntry) error {
	b := docstore.NewBatch()
	for _, j := range entries {
		b.Set(CollJournalEntries, j.ID, j)
	}
	return docstore.CommitChunked(ctx, r.store, b.Operations())
}

func (r *JournalRepository) ListByUser(ctx context.Context, userID, from, to string) ([]*domain.JournalEntry, error) {
	filters := append([]docstore.Filter{docstore.Where("user_id", docstore.Eq, userID)}, dateRange("date", from, to)...)
	docs, err := r.store.Find(ctx, CollJournalEntries, docstore.Query{Filters: filters, OrderBy: "date"})
	if err != nil {
		return nil, fmt.Errorf("repository: list journal entries failed: %w", err)
	}
	return decodeAll(docs, decodeInto[domain.JournalEntry])
}
