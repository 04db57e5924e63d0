package domain

import (
	"errors"
	"net/mail"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters long")
)

const (
	UserStatusActive  = "active"
	UserStatusTrial   = "trial"
	UserStatusExpired = "expired"

	CommitmentLight     = "light"
	CommitmentModerate  = "moderate"
	CommitmentIntensive = "intensive"
)

// User profile counters updated through atomic increments.
const (
	FieldTotalPoints         = "total_points"
	FieldUserTrackerEntries  = "total_tracker_entries"
	FieldUserJournalEntries  = "total_journal_entries"
	FieldTotalTrackerValue   = "total_tracker_value"
	FieldLastActiveDate      = "last_active_date"
	FieldCurrentStreak       = "current_streak"
	FieldWeeklyActivityScore = "weekly_activity_score"
	FieldUpdatedAt           = "updated_at"
)

type Preferences struct {
	FeedNotifications *bool `json:"feed_notifications,omitempty"`
}

type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	DisplayName  string `json:"display_name,omitempty"`

	FocusAreas          []string    `json:"focus_areas,omitempty"`
	Goals               []string    `json:"goals,omitempty"`
	CommitmentLevel     string      `json:"commitment_level,omitempty"`
	OnboardingCompleted bool        `json:"onboarding_completed"`
	Location            string      `json:"location,omitempty"`
	DeviceTokens        []string    `json:"device_tokens,omitempty"`
	Preferences         Preferences `json:"preferences"`

	Status       string     `json:"status"`
	TrialEndDate *time.Time `json:"trial_end_date,omitempty"`

	TotalPoints         int64   `json:"total_points"`
	TotalTrackerEntries int64   `json:"total_tracker_entries"`
	TotalJournalEntries int64   `json:"total_journal_entries"`
	TotalTrackerValue   float64 `json:"total_tracker_value"`
	CurrentStreak       int     `json:"current_streak"`
	WeeklyActivityScore float64 `json:"weekly_activity_score"`
	LastActiveDate      string  `json:"last_active_date,omitempty"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewUser(id, email string) (*User, error) {
	email = strings.TrimSpace(email)

	if !isValidEmail(email) {
		return nil, ErrInvalidEmail
	}

	now := time.Now().UTC()
	return &User{
		ID:        id,
		Email:     strings.ToLower(email),
		Status:    UserStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (u *User) SetPassword(plainPassword string) error {
	if utf8.RuneCountInString(plainPassword) < 8 {
		return ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plainPassword), 12)
	if err != nil {
		return err
	}

	u.PasswordHash = string(hash)
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (u *User) CheckPassword(plainPassword string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plainPassword))
}

func (u *User) WantsFeedNotifications() bool {
	return u.Preferences.FeedNotifications == nil || *u.Preferences.FeedNotifications
}

func (u *User) AddDeviceToken(token string) bool {
	token = strings.TrimSpace(token)
	if token == "" || slices.Contains(u.DeviceTokens, token) {
		return false
	}
	u.DeviceTokens = append(u.DeviceTokens, token)
	return true
}

// RemoveDeviceTokens drops the given tokens and returns how many were removed.
func (u *User) RemoveDeviceTokens(tokens ...string) int {
	before := len(u.DeviceTokens)
	u.DeviceTokens = slices.DeleteFunc(u.DeviceTokens, func(t string) bool {
		return slices.Contains(tokens, t)
	})
	return before - len(u.DeviceTokens)
}

// TrialExpired reports whether a trial user has passed the trial end date.
func (u *User) TrialExpired(now time.Time) bool {
	return u.Status == UserStatusTrial && u.TrialEndDate != nil && u.TrialEndDate.Before(now)
}

func isValidEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}
