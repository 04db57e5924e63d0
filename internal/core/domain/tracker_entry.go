package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const MaxNotesLen = 1000

// TrackerEntry is one logged occurrence of a tracker. Several entries may share a day.
type TrackerEntry struct {
	ID        string   `json:"id"`
	TrackerID string   `json:"tracker_id"`
	UserID    string   `json:"user_id"`
	Date      string   `json:"date"`
	Value     float64  `json:"value"`
	Category  string   `json:"category,omitempty"`
	Mood      *int     `json:"mood,omitempty"`
	Energy    *int     `json:"energy,omitempty"`
	Notes     string   `json:"notes,omitempty"`
	Duration  *int     `json:"duration,omitempty"`
	Tags      []string `json:"tags,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewTrackerEntry(trackerID, userID, date string, value float64, now time.Time) *TrackerEntry {
	now = now.UTC()
	return &TrackerEntry{
		ID:        uuid.NewString(),
		TrackerID: trackerID,
		UserID:    userID,
		Date:      date,
		Value:     value,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (e *TrackerEntry) Validate(now time.Time) error {
	if strings.TrimSpace(e.TrackerID) == "" {
		return Invalid("tracker_id is required")
	}
	if strings.TrimSpace(e.UserID) == "" {
		return Invalid("user_id is required")
	}
	if strings.TrimSpace(e.Date) == "" {
		return Invalid("date is required")
	}
	future, err := IsFutureDay(e.Date, now)
	if err != nil {
		return err
	}
	if future {
		return Invalid("date %s is in the future", e.Date)
	}
	if e.Value < 0 {
		return Invalid("value cannot be negative")
	}
	if err := validateScore("mood", e.Mood); err != nil {
		return err
	}
	if err := validateScore("energy", e.Energy); err != nil {
		return err
	}
	if utf8.RuneCountInString(e.Notes) > MaxNotesLen {
		return Invalid("notes are too long (max %d chars)", MaxNotesLen)
	}
	if e.Duration != nil && *e.Duration < 0 {
		return Invalid("duration cannot be negative")
	}
	return nil
}

func validateScore(field string, v *int) error {
	if v != nil && (*v < 1 || *v > 10) {
		return Invalid("%s must be between 1 and 10", field)
	}
	return nil
}
