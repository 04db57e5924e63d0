package domain

import (
	"time"
)

type AchievementStatus string

const (
	StatusLocked     AchievementStatus = "locked"
	StatusAvailable  AchievementStatus = "available"
	StatusInProgress AchievementStatus = "in_progress"
	StatusEarned     AchievementStatus = "earned"
	StatusExpired    AchievementStatus = "expired"
)

var statusTransitions = map[AchievementStatus][]AchievementStatus{
	StatusLocked:     {StatusAvailable, StatusInProgress, StatusEarned, StatusExpired},
	StatusAvailable:  {StatusInProgress, StatusEarned, StatusExpired},
	StatusInProgress: {StatusInProgress, StatusEarned, StatusExpired},
}

func (s AchievementStatus) CanTransition(to AchievementStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

type UserAchievement struct {
	ID            string            `json:"id"`
	UserID        string            `json:"user_id"`
	AchievementID string            `json:"achievement_id"`
	Status        AchievementStatus `json:"status"`
	Progress      float64           `json:"progress"`
	CurrentValue  float64           `json:"current_value"`
	TargetValue   float64           `json:"target_value"`
	EarnedAt      *time.Time        `json:"earned_at,omitempty"`
	Version       int               `json:"version"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

func UserAchievementID(userID, achievementID string) string {
	return userID + "_" + achievementID
}

func NewUserAchievement(userID, achievementID string, now time.Time) *UserAchievement {
	now = now.UTC()
	return &UserAchievement{
		ID:            UserAchievementID(userID, achievementID),
		UserID:        userID,
		AchievementID: achievementID,
		Status:        StatusLocked,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (u *UserAchievement) IsEarned() bool {
	return u.Status == StatusEarned
}

// Apply folds an evaluation outcome into the user's state and reports whether
// it changed and whether the achievement was earned by this call.
func (u *UserAchievement) Apply(out Outcome, now time.Time) (changed, earned bool) {
	if u.Status == StatusEarned || u.Status == StatusExpired {
		return false, false
	}

	next := u.Status
	switch {
	case out.Eligible:
		next = StatusEarned
	case out.Progress > 0:
		next = StatusInProgress
	}

	if next != u.Status && !u.Status.CanTransition(next) {
		return false, false
	}

	changed = next != u.Status || out.Progress != u.Progress || out.CurrentValue != u.CurrentValue
	if !changed {
		return false, false
	}

	now = now.UTC()
	u.Status = next
	u.Progress = out.Progress
	u.CurrentValue = out.CurrentValue
	u.TargetValue = out.TargetValue
	u.UpdatedAt = now
	if next == StatusEarned {
		u.Progress = 100
		u.EarnedAt = &now
		return true, true
	}
	return true, false
}

// Expire moves an unearned achievement to EXPIRED.
func (u *UserAchievement) Expire(now time.Time) bool {
	if !u.Status.CanTransition(StatusExpired) {
		return false
	}
	u.Status = StatusExpired
	u.UpdatedAt = now.UTC()
	return true
}
