package domain

import (
	"slices"
	"sort"
	"time"
)

// StreakMilestones is the fixed ordered set of streak lengths that are celebrated.
var StreakMilestones = []int{3, 7, 14, 21, 30, 50, 75, 100, 200, 365}

type StreakData struct {
	ID                string    `json:"id"`
	TrackerID         string    `json:"tracker_id"`
	UserID            string    `json:"user_id"`
	CurrentStreak     int       `json:"current_streak"`
	CurrentStartDate  string    `json:"current_start_date"`
	LongestStreak     int       `json:"longest_streak"`
	LongestStartDate  string    `json:"longest_start_date,omitempty"`
	LongestEndDate    string    `json:"longest_end_date,omitempty"`
	LastActivityDate  string    `json:"last_activity_date"`
	MilestonesReached []int     `json:"milestones_reached"`
	Version           int       `json:"version"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// StreakUpdate describes the outcome of applying one entry day to a streak.
type StreakUpdate struct {
	Changed       bool
	NewMilestones []int
}

func StreakID(userID, trackerID string) string {
	return userID + "_" + trackerID
}

func NewStreak(userID, trackerID, day string, now time.Time) *StreakData {
	now = now.UTC()
	return &StreakData{
		ID:                StreakID(userID, trackerID),
		TrackerID:         trackerID,
		UserID:            userID,
		CurrentStreak:     1,
		CurrentStartDate:  day,
		LongestStreak:     1,
		LongestStartDate:  day,
		LongestEndDate:    day,
		LastActivityDate:  day,
		MilestonesReached: []int{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// NewStreakFromDays seeds a streak on the earliest of days, which must not be empty.
func NewStreakFromDays(userID, trackerID string, days []string, now time.Time) *StreakData {
	return NewStreak(userID, trackerID, slices.Min(days), now)
}

// RecordDay applies a qualifying entry on day. Same-day entries leave the streak
// untouched and days before LastActivityDate fail with ErrOutOfOrderEntry.
func (s *StreakData) RecordDay(day string, now time.Time) (StreakUpdate, error) {
	gap, err := DayGap(s.LastActivityDate, day)
	if err != nil {
		return StreakUpdate{}, err
	}

	switch {
	case gap < 0:
		return StreakUpdate{}, ErrOutOfOrderEntry
	case gap == 0:
		return StreakUpdate{}, nil
	case gap == 1:
		s.CurrentStreak++
	default:
		s.CurrentStreak = 1
		s.CurrentStartDate = day
	}

	s.LastActivityDate = day
	if s.CurrentStreak > s.LongestStreak {
		s.LongestStreak = s.CurrentStreak
		s.LongestStartDate = s.CurrentStartDate
		s.LongestEndDate = day
	}
	s.UpdatedAt = now.UTC()

	return StreakUpdate{Changed: true, NewMilestones: s.reachMilestones(s.CurrentStreak)}, nil
}

func (s *StreakData) reachMilestones(length int) []int {
	var reached []int
	for _, m := range StreakMilestones {
		if length < m {
			break
		}
		if !slices.Contains(s.MilestonesReached, m) {
			s.MilestonesReached = append(s.MilestonesReached, m)
			reached = append(reached, m)
		}
	}
	sort.Ints(s.MilestonesReached)
	return reached
}

// NextMilestone returns the next milestone above current, or current+100 past the last one.
func NextMilestone(current int) int {
	for _, m := range StreakMilestones {
		if m > current {
			return m
		}
	}
	return current + 100
}

// RebuildFrom recomputes the streak from every day that has at least one entry.
// Longest streak and reached milestones never shrink.
func (s *StreakData) RebuildFrom(days []string, now time.Time) (StreakUpdate, error) {
	sorted, err := uniqueSortedDays(days)
	if err != nil {
		return StreakUpdate{}, err
	}
	if len(sorted) == 0 {
		return StreakUpdate{}, nil
	}

	before := *s
	runStart := sorted[0]
	runLen := 1
	longest, longestStart, longestEnd := 1, sorted[0], sorted[0]

	for i := 1; i < len(sorted); i++ {
		if sorted[i].Sub(sorted[i-1]) == 24*time.Hour {
			runLen++
		} else {
			runStart = sorted[i]
			runLen = 1
		}
		if runLen > longest {
			longest, longestStart, longestEnd = runLen, runStart, sorted[i]
		}
	}

	s.CurrentStreak = runLen
	s.CurrentStartDate = DayKey(runStart)
	s.LastActivityDate = DayKey(sorted[len(sorted)-1])
	if longest > s.LongestStreak {
		s.LongestStreak = longest
		s.LongestStartDate = DayKey(longestStart)
		s.LongestEndDate = DayKey(longestEnd)
	}
	if s.MilestonesReached == nil {
		s.MilestonesReached = []int{}
	}
	reached := s.reachMilestones(s.LongestStreak)

	changed := before.CurrentStreak != s.CurrentStreak ||
		before.CurrentStartDate != s.CurrentStartDate ||
		before.LastActivityDate != s.LastActivityDate ||
		before.LongestStreak != s.LongestStreak ||
		len(reached) > 0
	if changed {
		s.UpdatedAt = now.UTC()
	}
	return StreakUpdate{Changed: changed, NewMilestones: reached}, nil
}

func uniqueSortedDays(days []string) ([]time.Time, error) {
	seen := make(map[string]bool, len(days))
	var out []time.Time
	for _, d := range days {
		if seen[d] {
			continue
		}
		seen[d] = true
		t, err := ParseDay(d)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}
