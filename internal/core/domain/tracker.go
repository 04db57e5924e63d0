package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	CategoryMind      = "mind"
	CategoryBody      = "body"
	CategorySoul      = "soul"
	CategoryBeauty    = "beauty"
	CategoryMood      = "mood"
	CategoryLifestyle = "lifestyle"
	CategoryCustom    = "custom"
	CategoryJournal   = "journal"

	TrackerTypeCount    = "count"
	TrackerTypeDuration = "duration"
	TrackerTypeRating   = "rating"
	TrackerTypeScale    = "scale"
	TrackerTypeBoolean  = "boolean"

	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"

	DefaultTrackerDurationDays = 28
	DefaultTrackerIcon         = "default_icon"
	MaxTrackerNameLen          = 100
)

var colorRegex = regexp.MustCompile(`^#([A-Fa-f0-9]{6}|[A-Fa-f0-9]{3})$`)

var trackerCategories = map[string]bool{
	CategoryMind: true, CategoryBody: true, CategorySoul: true, CategoryBeauty: true,
	CategoryMood: true, CategoryLifestyle: true, CategoryCustom: true,
}

type Tracker struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	Name         string     `json:"name"`
	Description  string     `json:"description,omitempty"`
	Category     string     `json:"category"`
	Type         string     `json:"type"`
	Target       float64    `json:"target"`
	Unit         string     `json:"unit"`
	Frequency    string     `json:"frequency"`
	Color        string     `json:"color,omitempty"`
	Icon         string     `json:"icon"`
	DurationDays int        `json:"duration_days"`
	StartDate    time.Time  `json:"start_date"`
	EndDate      *time.Time `json:"end_date,omitempty"`
	IsOngoing    bool       `json:"is_ongoing"`
	IsActive     bool       `json:"is_active"`
	IsDefault    bool       `json:"is_default"`
	EntryCount   int64      `json:"entry_count"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Version      int        `json:"version"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TrackerSpec carries the user-editable tracker fields.
type TrackerSpec struct {
	Name         string
	Description  string
	Category     string
	Type         string
	Target       float64
	Unit         string
	Frequency    string
	Color        string
	Icon         string
	DurationDays int
	IsOngoing    bool
}

func (s *TrackerSpec) normalize() error {
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		return Invalid("tracker name cannot be empty")
	}
	if len(s.Name) > MaxTrackerNameLen {
		return Invalid("tracker name is too long (max %d chars)", MaxTrackerNameLen)
	}

	s.Category = strings.ToLower(strings.TrimSpace(s.Category))
	if !trackerCategories[s.Category] {
		return Invalid("unknown tracker category %q", s.Category)
	}

	switch s.Type {
	case "":
		s.Type = TrackerTypeCount
	case TrackerTypeCount, TrackerTypeDuration, TrackerTypeRating, TrackerTypeScale, TrackerTypeBoolean:
	default:
		return Invalid("invalid tracker type %q", s.Type)
	}

	if s.Type == TrackerTypeBoolean {
		s.Target = 1
	} else if s.Target <= 0 {
		return Invalid("target must be positive")
	}

	switch s.Frequency {
	case "":
		s.Frequency = FrequencyDaily
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
	default:
		return Invalid("invalid frequency %q", s.Frequency)
	}

	if s.Color != "" && !colorRegex.MatchString(s.Color) {
		return Invalid("invalid color format (must be #RRGGBB)")
	}
	if s.Icon == "" {
		s.Icon = DefaultTrackerIcon
	}
	if s.DurationDays < 0 {
		return Invalid("duration cannot be negative")
	}
	if s.DurationDays == 0 {
		s.DurationDays = DefaultTrackerDurationDays
	}
	return nil
}

func NewTracker(userID string, spec TrackerSpec, now time.Time) (*Tracker, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, Invalid("user id is required")
	}
	if err := spec.normalize(); err != nil {
		return nil, err
	}

	now = now.UTC()
	t := &Tracker{
		ID:        uuid.NewString(),
		UserID:    userID,
		StartDate: now,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	t.apply(spec)
	return t, nil
}

func (t *Tracker) apply(spec TrackerSpec) {
	t.Name = spec.Name
	t.Description = strings.TrimSpace(spec.Description)
	t.Category = spec.Category
	t.Type = spec.Type
	t.Target = spec.Target
	t.Unit = spec.Unit
	t.Frequency = spec.Frequency
	t.Color = spec.Color
	t.Icon = spec.Icon
	t.DurationDays = spec.DurationDays
	t.IsOngoing = spec.IsOngoing

	if spec.IsOngoing {
		t.EndDate = nil
	} else {
		end := t.StartDate.AddDate(0, 0, spec.DurationDays)
		t.EndDate = &end
	}
}

func (t *Tracker) Update(spec TrackerSpec, now time.Time) error {
	if err := spec.normalize(); err != nil {
		return err
	}
	t.apply(spec)
	t.UpdatedAt = now.UTC()
	return nil
}

// IsExpired reports whether a time-boxed tracker has run past its end date.
func (t *Tracker) IsExpired(now time.Time) bool {
	return t.IsActive && !t.IsOngoing && t.EndDate != nil && t.EndDate.Before(now)
}

func (t *Tracker) Complete(now time.Time) {
	now = now.UTC()
	t.IsActive = false
	t.CompletedAt = &now
	t.UpdatedAt = now
}
