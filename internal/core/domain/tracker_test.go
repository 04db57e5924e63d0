package domain_test

import (
	"strings"
	"testing"
	"time"

	"github.com/comitanigiacomo/regen-engine/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTracker(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	t.Run("Success: Applies defaults and computes end date", func(t *testing.T) {
		tr, err := domain.NewTracker("u1", domain.TrackerSpec{
			Name:     "  Meditation ",
			Category: "MIND",
			Target:   10,
			Unit:     "minutes",
		}, now)

		require.NoError(t, err)
		assert.NotEmpty(t, tr.ID)
		assert.Equal(t, "Meditation", tr.Name)
		assert.Equal(t, domain.CategoryMind, tr.Category)
		assert.Equal(t, domain.TrackerTypeCount, tr.Type)
		assert.Equal(t, domain.FrequencyDaily, tr.Frequency)
		assert.Equal(t, domain.DefaultTrackerDurationDays, tr.DurationDays)
		assert.True(t, tr.IsActive)
		require.NotNil(t, tr.EndDate)
		assert.Equal(t, now.AddDate(0, 0, 28), *tr.EndDate)
	})

	t.Run("Success: Ongoing trackers have no end date", func(t *testing.T) {
		tr, err := domain.NewTracker("u1", domain.TrackerSpec{
			Name: "Mood", Category: "mood", Type: domain.TrackerTypeBoolean, IsOngoing: true,
		}, now)

		require.NoError(t, err)
		assert.Nil(t, tr.EndDate)
		assert.Equal(t, float64(1), tr.Target)
		assert.False(t, tr.IsExpired(now.AddDate(1, 0, 0)))
	})

	tests := []struct {
		name string
		spec domain.TrackerSpec
	}{
		{"Fail: Empty name", domain.TrackerSpec{Name: " ", Category: "mind", Target: 1}},
		{"Fail: Name too long", domain.TrackerSpec{Name: strings.Repeat("a", 101), Category: "mind", Target: 1}},
		{"Fail: Unknown category", domain.TrackerSpec{Name: "x", Category: "finance", Target: 1}},
		{"Fail: Non-positive target", domain.TrackerSpec{Name: "x", Category: "body", Target: 0}},
		{"Fail: Bad type", domain.TrackerSpec{Name: "x", Category: "body", Target: 1, Type: "timer"}},
		{"Fail: Bad frequency", domain.TrackerSpec{Name: "x", Category: "body", Target: 1, Frequency: "hourly"}},
		{"Fail: Bad color", domain.TrackerSpec{Name: "x", Category: "body", Target: 1, Color: "red"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := domain.NewTracker("u1", tt.spec, now)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}

	t.Run("Fail: Missing user", func(t *testing.T) {
		_, err := domain.NewTracker("", domain.TrackerSpec{Name: "x", Category: "body", Target: 1}, now)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestTracker_ExpiryAndCompletion(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	tr, err := domain.NewTracker("u1", domain.TrackerSpec{Name: "Steps", Category: "body", Target: 8000, DurationDays: 7}, now)
	require.NoError(t, err)

	assert.False(t, tr.IsExpired(now.AddDate(0, 0, 6)))
	assert.True(t, tr.IsExpired(now.AddDate(0, 0, 8)))

	tr.Complete(now.AddDate(0, 0, 8))
	assert.False(t, tr.IsActive)
	assert.NotNil(t, tr.CompletedAt)
	assert.False(t, tr.IsExpired(now.AddDate(0, 0, 9)))
}

func TestTrackerEntry_Validate(t *testing.T) {
	now := time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC)
	mood := func(v int) *int { return &v }

	tests := []struct {
		name    string
		entry   *domain.TrackerEntry
		wantErr bool
	}{
		{"Valid entry today", &domain.TrackerEntry{TrackerID: "t1", UserID: "u1", Date: "2026-03-10", Value: 3}, false},
		{"Valid entry with mood", &domain.TrackerEntry{TrackerID: "t1", UserID: "u1", Date: "2026-03-01", Value: 0, Mood: mood(7)}, false},
		{"Missing tracker", &domain.TrackerEntry{UserID: "u1", Date: "2026-03-10", Value: 1}, true},
		{"Missing user", &domain.TrackerEntry{TrackerID: "t1", Date: "2026-03-10", Value: 1}, true},
		{"Missing date", &domain.TrackerEntry{TrackerID: "t1", UserID: "u1", Value: 1}, true},
		{"Future date", &domain.TrackerEntry{TrackerID: "t1", UserID: "u1", Date: "2026-03-11", Value: 1}, true},
		{"Negative value", &domain.TrackerEntry{TrackerID: "t1", UserID: "u1", Date: "2026-03-10", Value: -1}, true},
		{"Mood out of range", &domain.TrackerEntry{TrackerID: "t1", UserID: "u1", Date: "2026-03-10", Value: 1, Mood: mood(11)}, true},
		{"Multibyte notes at the limit", &domain.TrackerEntry{TrackerID: "t1", UserID: "u1", Date: "2026-03-10", Value: 1, Notes: strings.Repeat("é", 1000)}, false},
		{"Multibyte notes over the limit", &domain.TrackerEntry{TrackerID: "t1", UserID: "u1", Date: "2026-03-10", Value: 1, Notes: strings.Repeat("🌿", 1001)}, true},
		{"Notes too long", &domain.TrackerEntry{TrackerID: "t1", UserID: "u1", Date: "2026-03-10", Value: 1, Notes: strings.Repeat("n", 1001)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entry.Validate(now)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
