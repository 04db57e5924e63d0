package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type JournalEntry struct {
	ID       string   `json:"id"`
	UserID   string   `json:"user_id"`
	Date     string   `json:"date"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Category string   `json:"category,omitempty"`
	Mood     *int     `json:"mood,omitempty"`
	Energy   *int     `json:"energy,omitempty"`
	Tags     []string `json:"tags,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewJournalEntry(userID, date, title, content string, now time.Time) *JournalEntry {
	now = now.UTC()
	return &JournalEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		Date:      date,
		Title:     strings.TrimSpace(title),
		Content:   strings.TrimSpace(content),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (j *JournalEntry) Validate(now time.Time) error {
	if strings.TrimSpace(j.UserID) == "" {
		return Invalid("user_id is required")
	}
	if j.Content == "" {
		return Invalid("content is required")
	}
	future, err := IsFutureDay(j.Date, now)
	if err != nil {
		return err
	}
	if future {
		return Invalid("date %s is in the future", j.Date)
	}
	if err := validateScore("mood", j.Mood); err != nil {
		return err
	}
	return validateScore("energy", j.Energy)
}
