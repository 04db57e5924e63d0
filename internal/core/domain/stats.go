package domain

import (
	"strings"
	"time"
)

const (
	ActivityTypeTracker = "tracker"
	ActivityTypeJournal = "journal"
)

// Counter field names of the UserDailyStats document.
const (
	FieldTotalActivities     = "total_activities"
	FieldTotalTrackerEntries = "total_tracker_entries"
	FieldTotalJournalEntries = "total_journal_entries"
	FieldMindMinutes         = "mind_minutes"
	FieldBodyActivities      = "body_activities"
	FieldSoulActivities      = "soul_activities"
	FieldBeautyRoutines      = "beauty_routines"
)

var categoryCounters = map[string]string{
	CategoryMind:   FieldMindMinutes,
	CategoryBody:   FieldBodyActivities,
	CategorySoul:   FieldSoulActivities,
	CategoryBeauty: FieldBeautyRoutines,
}

// CategoryCounter returns the daily counter for a category, matched case-insensitively.
func CategoryCounter(category string) (string, bool) {
	field, ok := categoryCounters[strings.ToLower(strings.TrimSpace(category))]
	return field, ok
}

type UserDailyStats struct {
	ID                  string `json:"id"`
	UserID              string `json:"user_id"`
	Date                string `json:"date"`
	TotalActivities     int64  `json:"total_activities"`
	TotalTrackerEntries int64  `json:"total_tracker_entries"`
	TotalJournalEntries int64  `json:"total_journal_entries"`
	MindMinutes         int64  `json:"mind_minutes"`
	BodyActivities      int64  `json:"body_activities"`
	SoulActivities      int64  `json:"soul_activities"`
	BeautyRoutines      int64  `json:"beauty_routines"`

	AverageMood       float64 `json:"average_mood,omitempty"`
	AverageEnergy     float64 `json:"average_energy,omitempty"`
	CategoryDiversity int     `json:"category_diversity,omitempty"`
	DataQualityScore  float64 `json:"data_quality_score,omitempty"`
	BestHour          *int    `json:"best_hour,omitempty"`
	EngagementRate    float64 `json:"engagement_rate,omitempty"`
	OverallStreak     int     `json:"overall_streak,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

func DailyStatsID(userID, date string) string {
	return userID + "_" + date
}

// StatsIncrement describes one recorded activity for the daily counters.
type StatsIncrement struct {
	ActivityType string
	Category     string
}

// Deltas returns the counter increments for one activity.
func (in StatsIncrement) Deltas() map[string]float64 {
	deltas := map[string]float64{FieldTotalActivities: 1}
	switch in.ActivityType {
	case ActivityTypeTracker:
		deltas[FieldTotalTrackerEntries] = 1
	case ActivityTypeJournal:
		deltas[FieldTotalJournalEntries] = 1
	}
	if field, ok := CategoryCounter(in.Category); ok {
		deltas[field] = 1
	}
	return deltas
}

type WeeklyStats struct {
	StartDate     string        `json:"start_date"`
	EndDate       string        `json:"end_date"`
	TotalTrackers int           `json:"total_trackers"`
	OverallRate   float64       `json:"overall_completion_rate"`
	TrackerStats  []TrackerStat `json:"trackers"`
}

type TrackerStat struct {
	TrackerID      string    `json:"tracker_id"`
	Name           string    `json:"name"`
	Category       string    `json:"category"`
	Target         float64   `json:"target"`
	Unit           string    `json:"unit"`
	TotalValue     float64   `json:"total_value"`
	EntriesCount   int       `json:"entries_count"`
	CompletionRate float64   `json:"completion_rate"`
	DaysCompleted  int       `json:"days_completed"`
	DailyProgress  []float64 `json:"daily_progress"`
}

// RecalculationReport summarises a batch recomputation run.
type RecalculationReport struct {
	Date      string `json:"date"`
	Processed int    `json:"processed"`
	Failed    int    `json:"failed"`
}

type BackfillReport struct {
	UserID    string `json:"user_id"`
	Processed int    `json:"processed"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
}
