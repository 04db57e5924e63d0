package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/regen-engine/internal/core/domain"
	"github.com/comitanigiacomo/regen-engine/internal/core/services"
)

func TestOnboardingService_CompleteOnboarding(t *testing.T) {
	ctx := context.Background()

	t.Run("Success: Light MIND and SOUL focus creates scaled defaults", func(t *testing.T) {
		env := newTestEnv(t)
		user := env.createUser(t, "new@regen.app")

		res, err := env.onboarding.CompleteOnboarding(ctx, services.OnboardingInput{
			UserID:          user.ID,
			DisplayName:     " Alex ",
			Location:        "Milan",
			FocusAreas:      []string{"mind", "Soul"},
			Goals:           []string{" reduce stress ", ""},
			CommitmentLevel: "LIGHT",
		})
		require.NoError(t, err)

		names := make(map[string]*domain.Tracker)
		for _, tr := range res.Trackers {
			names[tr.Name] = tr
			assert.True(t, tr.IsDefault)
			assert.True(t, tr.IsOngoing)
		}
		require.Len(t, names, 4)
		assert.Equal(t, 5.0, names["Meditation"].Target)
		assert.Equal(t, 3.0, names["Exercise"].Target)
		assert.Equal(t, domain.CategorySoul, names["Daily Mood"].Category)
		assert.Contains(t, names, "Gratitude Practice")

		stored, err := env.userRepo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.True(t, stored.OnboardingCompleted)
		assert.Equal(t, "Alex", stored.DisplayName)
		assert.Equal(t, "Milan", stored.Location)
		assert.Equal(t, []string{"MIND", "SOUL"}, stored.FocusAreas)
		assert.Equal(t, []string{"reduce stress"}, stored.Goals)
		assert.Equal(t, domain.CommitmentLight, stored.CommitmentLevel)
	})

	t.Run("Idempotent: A second call does not duplicate trackers", func(t *testing.T) {
		env := newTestEnv(t)
		user := env.createUser(t, "twice@regen.app")
		input := services.OnboardingInput{UserID: user.ID, FocusAreas: []string{"BODY", "BEAUTY"}}

		first, err := env.onboarding.CompleteOnboarding(ctx, input)
		require.NoError(t, err)
		second, err := env.onboarding.CompleteOnboarding(ctx, input)
		require.NoError(t, err)

		assert.Len(t, first.Trackers, 4)
		assert.Len(t, second.Trackers, 4)

		all, err := env.trackerRepo.ListByUserID(ctx, user.ID, false)
		require.NoError(t, err)
		assert.Len(t, all, 4)
	})

	t.Run("Fail: Unknown focus area", func(t *testing.T) {
		env := newTestEnv(t)
		user := env.createUser(t, "odd@regen.app")

		_, err := env.onboarding.CompleteOnboarding(ctx, services.OnboardingInput{UserID: user.ID, FocusAreas: []string{"WEALTH"}})

		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("Fail: Unknown user", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.onboarding.CompleteOnboarding(ctx, services.OnboardingInput{UserID: "ghost", FocusAreas: []string{"MIND"}})

		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})
}
