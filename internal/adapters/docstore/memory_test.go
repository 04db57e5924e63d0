package docstore_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/comitanigiacomo/regen-engine/internal/adapters/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	UserID string  `json:"user_id"`
	Date   string  `json:"date"`
	Value  float64 `json:"value"`
	Nested struct {
		Kind string `json:"kind"`
	} `json:"nested"`
}

func TestMemoryStore_CRUD(t *testing.T) {
	ctx := context.Background()
	s := docstore.NewMemoryStore()

	t.Run("Create assigns version 1 and rejects duplicates", func(t *testing.T) {
		doc, err := s.Create(ctx, "things", "a", sample{UserID: "u1"})
		require.NoError(t, err)
		assert.Equal(t, 1, doc.Version)

		_, err = s.Create(ctx, "things", "a", sample{UserID: "u2"})
		assert.ErrorIs(t, err, docstore.ErrDocumentExists)
	})

	t.Run("Create generates ids when empty", func(t *testing.T) {
		doc, err := s.Create(ctx, "things", "", sample{})
		require.NoError(t, err)
		assert.NotEmpty(t, doc.ID)
	})

	t.Run("CreateOrGet returns the existing document", func(t *testing.T) {
		doc, created, err := s.CreateOrGet(ctx, "things", "a", sample{UserID: "other"})
		require.NoError(t, err)
		assert.False(t, created)

		var got sample
		require.NoError(t, doc.Decode(&got))
		assert.Equal(t, "u1", got.UserID)
	})

	t.Run("Update enforces the expected version", func(t *testing.T) {
		doc, err := s.Update(ctx, "things", "a", sample{UserID: "u1", Value: 2}, 1)
		require.NoError(t, err)
		assert.Equal(t, 2, doc.Version)

		_, err = s.Update(ctx, "things", "a", sample{UserID: "u1", Value: 3}, 1)
		assert.ErrorIs(t, err, docstore.ErrVersionConflict)

		_, err = s.Update(ctx, "things", "missing", sample{}, 0)
		assert.ErrorIs(t, err, docstore.ErrDocumentNotFound)
	})

	t.Run("Returned documents are copies", func(t *testing.T) {
		doc, err := s.Get(ctx, "things", "a")
		require.NoError(t, err)
		doc.Data[0] = 'X'

		again, err := s.Get(ctx, "things", "a")
		require.NoError(t, err)
		assert.Equal(t, byte('{'), again.Data[0])
	})

	t.Run("Rejects non-object payloads", func(t *testing.T) {
		_, err := s.Set(ctx, "things", "b", []int{1, 2})
		assert.ErrorIs(t, err, docstore.ErrInvalidDocument)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, "things", "a"))
		assert.ErrorIs(t, s.Delete(ctx, "things", "a"), docstore.ErrDocumentNotFound)
		_, err := s.Get(ctx, "things", "a")
		assert.ErrorIs(t, err, docstore.ErrDocumentNotFound)
	})
}

func TestMemoryStore_Find(t *testing.T) {
	ctx := context.Background()
	s := docstore.NewMemoryStore()

	days := []string{"2026-03-03", "2026-03-01", "2026-03-02", "2026-03-05"}
	for i, d := range days {
		v := sample{UserID: "u1", Date: d, Value: float64(i)}
		v.Nested.Kind = "tracker"
		_, err := s.Create(ctx, "entries", fmt.Sprintf("e%d", i), v)
		require.NoError(t, err)
	}
	_, err := s.Create(ctx, "entries", "other", sample{UserID: "u2", Date: "2026-03-02"})
	require.NoError(t, err)

	t.Run("Equality and range filters", func(t *testing.T) {
		docs, err := s.Find(ctx, "entries", docstore.Query{
			Filters: []docstore.Filter{
				docstore.Where("user_id", docstore.Eq, "u1"),
				docstore.Where("date", docstore.Gte, "2026-03-02"),
				docstore.Where("date", docstore.Lte, "2026-03-03"),
			},
			OrderBy: "date",
		})
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, "e2", docs[0].ID)
		assert.Equal(t, "e0", docs[1].ID)
	})

	t.Run("Descending order with limit", func(t *testing.T) {
		docs, err := s.Find(ctx, "entries", docstore.Query{
			Filters:    []docstore.Filter{docstore.Where("user_id", docstore.Eq, "u1")},
			OrderBy:    "value",
			Descending: true,
			Limit:      2,
		})
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, "e3", docs[0].ID)
		assert.Equal(t, "e2", docs[1].ID)
	})

	t.Run("Nested paths", func(t *testing.T) {
		docs, err := s.Find(ctx, "entries", docstore.Query{
			Filters: []docstore.Filter{docstore.Where("nested.kind", docstore.Eq, "tracker")},
		})
		require.NoError(t, err)
		assert.Len(t, docs, 4)
	})

	t.Run("Invalid field path", func(t *testing.T) {
		_, err := s.Find(ctx, "entries", docstore.Query{
			Filters: []docstore.Filter{docstore.Where("data'); drop", docstore.Eq, 1)},
		})
		assert.ErrorIs(t, err, docstore.ErrInvalidField)
	})
}

func TestMemoryStore_IncrementIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := docstore.NewMemoryStore()

	const workers, perWorker = 20, 50
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				err := s.Increment(ctx, "stats", "u1_2026-03-01",
					map[string]float64{"total": 1, "mind": 1},
					map[string]any{"user_id": "u1"})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	doc, err := s.Get(ctx, "stats", "u1_2026-03-01")
	require.NoError(t, err)

	var got struct {
		Total  int64  `json:"total"`
		Mind   int64  `json:"mind"`
		UserID string `json:"user_id"`
	}
	require.NoError(t, doc.Decode(&got))
	assert.Equal(t, int64(workers*perWorker), got.Total)
	assert.Equal(t, int64(workers*perWorker), got.Mind)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, workers*perWorker, doc.Version)
}

func TestMemoryStore_Commit(t *testing.T) {
	ctx := context.Background()

	t.Run("All operations apply together", func(t *testing.T) {
		s := docstore.NewMemoryStore()
		_, err := s.Create(ctx, "users", "u1", map[string]any{"name": "Ann", "points": 5})
		require.NoError(t, err)

		b := docstore.NewBatch().
			Set("feed", "p1", map[string]any{"title": "hello"}).
			Merge("users", "u1", map[string]any{"name": "Anna"}).
			Increment("users", "u1", map[string]float64{"points": 10}, nil)
		require.NoError(t, s.Commit(ctx, b))

		doc, err := s.Get(ctx, "users", "u1")
		require.NoError(t, err)
		assert.JSONEq(t, `{"name":"Anna","points":15}`, string(doc.Data))
		_, err = s.Get(ctx, "feed", "p1")
		assert.NoError(t, err)
	})

	t.Run("A failing operation rolls back the batch", func(t *testing.T) {
		s := docstore.NewMemoryStore()
		b := docstore.NewBatch().
			Set("feed", "p1", map[string]any{"title": "hello"}).
			Merge("users", "missing", map[string]any{"name": "x"})

		err := s.Commit(ctx, b)
		assert.ErrorIs(t, err, docstore.ErrDocumentNotFound)
		_, err = s.Get(ctx, "feed", "p1")
		assert.ErrorIs(t, err, docstore.ErrDocumentNotFound)
	})

	t.Run("Oversized batches are refused", func(t *testing.T) {
		s := docstore.NewMemoryStore()
		b := docstore.NewBatch()
		for i := 0; i <= docstore.MaxBatchSize; i++ {
			b.Set("feed", fmt.Sprintf("p%d", i), map[string]any{"i": i})
		}
		assert.ErrorIs(t, s.Commit(ctx, b), docstore.ErrBatchTooLarge)
	})

	t.Run("CommitChunked splits bulk writes", func(t *testing.T) {
		s := docstore.NewMemoryStore()
		b := docstore.NewBatch()
		total := docstore.MaxBatchSize*2 + 17
		for i := 0; i < total; i++ {
			b.Set("feed", fmt.Sprintf("p%04d", i), map[string]any{"i": i})
		}
		require.NoError(t, docstore.CommitChunked(ctx, s, b.Operations()))

		docs, err := s.Find(ctx, "feed", docstore.Query{})
		require.NoError(t, err)
		assert.Len(t, docs, total)
	})
}
