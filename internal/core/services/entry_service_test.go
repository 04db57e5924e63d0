package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/comitanigiacomo/regen-engine/internal/core/domain"
	"github.com/comitanigiacomo/regen-engine/internal/core/services"
	"github.com/comitanigiacomo/regen-engine/internal/core/workers"
)

func TestEntryService_Create(t *testing.T) {
	ctx := context.Background()
	uid := "user-123"
	tid := "tracker-abc"
	today := domain.DayKey(time.Now())

	tracker := &domain.Tracker{ID: tid, UserID: uid, Category: domain.CategoryBody}

	t.Run("Success: Should validate ownership, copy category, create entry AND enqueue job", func(t *testing.T) {
		entryRepo := new(MockEntryRepo)
		trackerRepo := new(MockTrackerRepo)
		queue := &recordingQueue{}
		svc := services.NewEntryService(entryRepo, trackerRepo, queue, zap.NewNop())

		trackerRepo.On("GetByID", ctx, tid).Return(tracker, nil)
		trackerRepo.On("IncrementEntryCount", ctx, tid, 1).Return(nil)
		entryRepo.On("Create", ctx, mock.MatchedBy(func(e *domain.TrackerEntry) bool {
			return e.TrackerID == tid && e.Category == domain.CategoryBody
		})).Return(nil)

		entry, err := svc.Create(ctx, services.CreateEntryInput{
			TrackerID: tid, UserID: uid, Date: today, Value: 3, Mood: intPtr(7),
		})

		require.NoError(t, err)
		assert.NotEmpty(t, entry.ID)

		jobs := queue.Jobs()
		require.Len(t, jobs, 1)
		assert.Equal(t, workers.KindEntryCreated, jobs[0].Kind)
		assert.Equal(t, today, jobs[0].Date)
		assert.Equal(t, 3.0, jobs[0].Value)
		assert.Equal(t, domain.CategoryBody, jobs[0].Category)

		entryRepo.AssertExpectations(t)
		trackerRepo.AssertExpectations(t)
	})

	t.Run("Security: Should fail if Tracker belongs to another user (IDOR)", func(t *testing.T) {
		entryRepo := new(MockEntryRepo)
		trackerRepo := new(MockTrackerRepo)
		queue := &recordingQueue{}
		svc := services.NewEntryService(entryRepo, trackerRepo, queue, zap.NewNop())

		trackerRepo.On("GetByID", ctx, tid).Return(&domain.Tracker{ID: tid, UserID: "hacker"}, nil)

		_, err := svc.Create(ctx, services.CreateEntryInput{TrackerID: tid, UserID: uid, Date: today, Value: 1})

		assert.ErrorIs(t, err, domain.ErrTrackerNotFound)
		entryRepo.AssertNotCalled(t, "Create")
		assert.Empty(t, queue.Jobs())
	})

	t.Run("Fail: Should reject invalid input before any lookup", func(t *testing.T) {
		tomorrow := domain.DayKey(time.Now().Add(24 * time.Hour))
		cases := []struct {
			name  string
			input services.CreateEntryInput
		}{
			{"future date", services.CreateEntryInput{TrackerID: tid, UserID: uid, Date: tomorrow, Value: 1}},
			{"malformed date", services.CreateEntryInput{TrackerID: tid, UserID: uid, Date: "03/01/2024", Value: 1}},
			{"negative value", services.CreateEntryInput{TrackerID: tid, UserID: uid, Date: today, Value: -1}},
			{"mood out of range", services.CreateEntryInput{TrackerID: tid, UserID: uid, Date: today, Value: 1, Mood: intPtr(11)}},
			{"energy out of range", services.CreateEntryInput{TrackerID: tid, UserID: uid, Date: today, Value: 1, Energy: intPtr(0)}},
			{"missing tracker", services.CreateEntryInput{UserID: uid, Date: today, Value: 1}},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				entryRepo := new(MockEntryRepo)
				trackerRepo := new(MockTrackerRepo)
				svc := services.NewEntryService(entryRepo, trackerRepo, &recordingQueue{}, zap.NewNop())

				_, err := svc.Create(ctx, tc.input)

				assert.ErrorIs(t, err, domain.ErrValidation)
				trackerRepo.AssertNotCalled(t, "GetByID")
			})
		}
	})

	t.Run("Fail: Should fail if Tracker does not exist", func(t *testing.T) {
		entryRepo := new(MockEntryRepo)
		trackerRepo := new(MockTrackerRepo)
		svc := services.NewEntryService(entryRepo, trackerRepo, &recordingQueue{}, zap.NewNop())

		trackerRepo.On("GetByID", ctx, tid).Return(nil, domain.ErrTrackerNotFound)

		_, err := svc.Create(ctx, services.CreateEntryInput{TrackerID: tid, UserID: uid, Date: today, Value: 1})

		assert.ErrorIs(t, err, domain.ErrTrackerNotFound)
		entryRepo.AssertNotCalled(t, "Create")
	})
}

func TestEntryService_Delete(t *testing.T) {
	ctx := context.Background()
	entry := &domain.TrackerEntry{ID: "e1", TrackerID: "t1", UserID: "owner", Date: "2024-03-01", Value: 4}

	t.Run("Success: Should delete owned entry and enqueue reconcile", func(t *testing.T) {
		entryRepo := new(MockEntryRepo)
		trackerRepo := new(MockTrackerRepo)
		queue := &recordingQueue{}
		svc := services.NewEntryService(entryRepo, trackerRepo, queue, zap.NewNop())

		entryRepo.On("GetByID", ctx, "e1").Return(entry, nil)
		entryRepo.On("Delete", ctx, "e1").Return(nil)
		trackerRepo.On("IncrementEntryCount", ctx, "t1", -1).Return(nil)

		require.NoError(t, svc.Delete(ctx, "e1", "owner"))

		jobs := queue.Jobs()
		require.Len(t, jobs, 1)
		assert.Equal(t, workers.KindEntryDeleted, jobs[0].Kind)
		assert.Equal(t, "2024-03-01", jobs[0].Date)
		assert.Equal(t, "t1", jobs[0].TrackerID)
	})

	t.Run("Security: Should return NotFound if user mismatch", func(t *testing.T) {
		entryRepo := new(MockEntryRepo)
		svc := services.NewEntryService(entryRepo, new(MockTrackerRepo), &recordingQueue{}, zap.NewNop())

		entryRepo.On("GetByID", ctx, "e1").Return(entry, nil)

		assert.ErrorIs(t, svc.Delete(ctx, "e1", "intruder"), domain.ErrEntryNotFound)
		entryRepo.AssertNotCalled(t, "Delete")
	})
}

func TestEntryService_ListByTrackerID(t *testing.T) {
	ctx := context.Background()

	t.Run("Success: Should list entries if tracker owned by user", func(t *testing.T) {
		entryRepo := new(MockEntryRepo)
		trackerRepo := new(MockTrackerRepo)
		svc := services.NewEntryService(entryRepo, trackerRepo, &recordingQueue{}, zap.NewNop())

		trackerRepo.On("GetByID", ctx, "t1").Return(&domain.Tracker{ID: "t1", UserID: "owner"}, nil)
		entryRepo.On("ListByTracker", ctx, "t1", "2024-03-01", "2024-03-07").
			Return([]*domain.TrackerEntry{{ID: "e1"}}, nil)

		entries, err := svc.ListByTrackerID(ctx, "t1", "owner", "2024-03-01", "2024-03-07")

		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("Fail: Should reject inverted range", func(t *testing.T) {
		svc := services.NewEntryService(new(MockEntryRepo), new(MockTrackerRepo), &recordingQueue{}, zap.NewNop())

		_, err := svc.ListByTrackerID(ctx, "t1", "owner", "2024-03-07", "2024-03-01")

		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestJournalService_Create(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	entry, err := env.journals.Create(ctx, services.CreateJournalInput{
		UserID:  "writer",
		Title:   "Evening",
		Content: "Calm day.",
		Mood:    intPtr(8),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DayKey(time.Now()), entry.Date)
	assert.Equal(t, domain.CategoryJournal, entry.Category)

	jobs := env.queue.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, workers.KindJournalCreated, jobs[0].Kind)

	_, err = env.journals.Create(ctx, services.CreateJournalInput{UserID: "writer", Content: "  "})
	assert.ErrorIs(t, err, domain.ErrValidation)

	listed, err := env.journals.ListByUserID(ctx, "writer", "", "")
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}
