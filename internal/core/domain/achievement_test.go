package domain_test

import (
	"testing"
	"time"

	"github.com/comitanigiacomo/regen-engine/internal/core/domain"
	"github.com/stretchr/testify/assert"
)

func TestRequirement_Evaluate(t *testing.T) {
	metrics := domain.AchievementMetrics{
		CurrentStreak:       5,
		TotalTrackerEntries: 40,
		TotalJournalEntries: 2,
		WeeklyActivityScore: 80,
		AverageMood:         4.5,
		ActiveCategories:    map[string]bool{"mind": true, "body": true},
	}

	tests := []struct {
		name         string
		category     string
		req          domain.Requirement
		wantEligible bool
		wantProgress float64
		wantCurrent  float64
	}{
		{
			name:         "Streak below target reports partial progress",
			req:          domain.Requirement{Compose: domain.ComposeAny, Rules: []domain.Rule{{Kind: domain.RuleStreakDays, Target: 10}}},
			wantProgress: 50,
			wantCurrent:  5,
		},
		{
			name:         "Streak at target is eligible",
			req:          domain.Requirement{Compose: domain.ComposeAny, Rules: []domain.Rule{{Kind: domain.RuleStreakDays, Target: 5}}},
			wantEligible: true,
			wantProgress: 100,
			wantCurrent:  5,
		},
		{
			name:         "Journal achievements count journal entries",
			category:     domain.CategoryJournal,
			req:          domain.Requirement{Rules: []domain.Rule{{Kind: domain.RuleTotalCount, Target: 25}}},
			wantProgress: 8,
			wantCurrent:  2,
		},
		{
			name:         "Mood average uses the mood metric",
			category:     domain.CategoryMood,
			req:          domain.Requirement{Rules: []domain.Rule{{Kind: domain.RuleAverageValue, Target: 4}}},
			wantEligible: true,
			wantProgress: 100,
			wantCurrent:  4.5,
		},
		{
			name: "Any composition takes the best rule",
			req: domain.Requirement{Compose: domain.ComposeAny, Rules: []domain.Rule{
				{Kind: domain.RuleStreakDays, Target: 50},
				{Kind: domain.RuleTotalCount, Target: 20},
			}},
			wantEligible: true,
			wantProgress: 100,
			wantCurrent:  40,
		},
		{
			name: "All composition requires every category",
			req: domain.Requirement{Compose: domain.ComposeAll, Rules: []domain.Rule{
				{Kind: domain.RuleStreakDays, Target: 5},
				{Kind: domain.RuleCategorySet, Categories: []string{"mind", "body", "soul", "beauty"}},
			}},
			wantEligible: false,
			wantProgress: 50,
			wantCurrent:  2,
		},
		{
			name: "Category set honours min count",
			req: domain.Requirement{Compose: domain.ComposeAll, Rules: []domain.Rule{
				{Kind: domain.RuleCategorySet, Categories: []string{"mind", "body", "soul"}, MinCount: 2},
			}},
			wantEligible: true,
			wantProgress: 100,
			wantCurrent:  2,
		},
		{
			name:        "Empty requirement is never eligible",
			req:         domain.Requirement{},
			wantCurrent: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.req.Evaluate(tt.category, metrics)
			assert.Equal(t, tt.wantEligible, out.Eligible)
			assert.InDelta(t, tt.wantProgress, out.Progress, 0.001)
			assert.InDelta(t, tt.wantCurrent, out.CurrentValue, 0.001)
		})
	}
}

func TestLegacyRequirement_ToRequirement(t *testing.T) {
	legacy := domain.LegacyRequirement{
		StreakDays: 50,
		TotalCount: 10,
		Categories: []string{"mind", "body", "soul", "beauty"},
	}

	req := legacy.ToRequirement()

	assert.Equal(t, domain.ComposeAny, req.Compose)
	assert.Len(t, req.Rules, 2)
	for _, r := range req.Rules {
		assert.NotEqual(t, domain.RuleCategorySet, r.Kind, "legacy categories are not enforced")
	}

	out := req.Evaluate("", domain.AchievementMetrics{TotalTrackerEntries: 10})
	assert.True(t, out.Eligible, "numeric thresholds are alternatives")
}

func TestAchievementTypesFor(t *testing.T) {
	assert.Equal(t, []domain.AchievementType{domain.AchievementStreak}, domain.AchievementTypesFor(domain.TriggerStreak))
	assert.ElementsMatch(t,
		[]domain.AchievementType{domain.AchievementMilestone, domain.AchievementWellness},
		domain.AchievementTypesFor(domain.TriggerGoal))
	assert.Empty(t, domain.AchievementTypesFor("unknown"))
}

func TestLevelFor(t *testing.T) {
	lvl, next := domain.LevelFor(0)
	assert.Equal(t, "Beginner", lvl.Name)
	assert.Equal(t, "Explorer", next.Name)

	lvl, next = domain.LevelFor(650)
	assert.Equal(t, "Dedicated", lvl.Name)
	assert.Equal(t, int64(1000), next.MinPoints)

	lvl, next = domain.LevelFor(9999)
	assert.Equal(t, "Champion", lvl.Name)
	assert.Nil(t, next)
}

func TestUserAchievement_Apply(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("Partial progress moves to in progress", func(t *testing.T) {
		ua := domain.NewUserAchievement("u1", "a1", now)
		changed, earned := ua.Apply(domain.Outcome{Progress: 40, CurrentValue: 2, TargetValue: 5}, now)

		assert.True(t, changed)
		assert.False(t, earned)
		assert.Equal(t, domain.StatusInProgress, ua.Status)
		assert.Nil(t, ua.EarnedAt)
	})

	t.Run("Eligibility earns once and is terminal", func(t *testing.T) {
		ua := domain.NewUserAchievement("u1", "a1", now)
		_, earned := ua.Apply(domain.Outcome{Eligible: true, Progress: 100, CurrentValue: 5}, now)
		assert.True(t, earned)
		assert.Equal(t, domain.StatusEarned, ua.Status)
		earnedAt := *ua.EarnedAt

		later := now.Add(48 * time.Hour)
		changed, earned := ua.Apply(domain.Outcome{Progress: 10, CurrentValue: 1}, later)
		assert.False(t, changed)
		assert.False(t, earned)
		assert.Equal(t, domain.StatusEarned, ua.Status)
		assert.Equal(t, earnedAt, *ua.EarnedAt)

		assert.False(t, ua.Expire(later))
		assert.Equal(t, domain.StatusEarned, ua.Status)
	})

	t.Run("Zero progress leaves locked", func(t *testing.T) {
		ua := domain.NewUserAchievement("u1", "a1", now)
		changed, _ := ua.Apply(domain.Outcome{}, now)
		assert.False(t, changed)
		assert.Equal(t, domain.StatusLocked, ua.Status)
	})

	t.Run("Expired achievements stop updating", func(t *testing.T) {
		ua := domain.NewUserAchievement("u1", "a1", now)
		assert.True(t, ua.Expire(now))
		changed, earned := ua.Apply(domain.Outcome{Eligible: true}, now)
		assert.False(t, changed)
		assert.False(t, earned)
	})
}

func TestAchievementStatus_CanTransition(t *testing.T) {
	assert.True(t, domain.StatusLocked.CanTransition(domain.StatusAvailable))
	assert.True(t, domain.StatusAvailable.CanTransition(domain.StatusInProgress))
	assert.True(t, domain.StatusInProgress.CanTransition(domain.StatusInProgress))
	assert.False(t, domain.StatusEarned.CanTransition(domain.StatusInProgress))
	assert.False(t, domain.StatusExpired.CanTransition(domain.StatusEarned))
	assert.False(t, domain.StatusInProgress.CanTransition(domain.StatusLocked))
}
