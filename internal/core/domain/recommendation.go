package domain

import (
	"strings"
	"time"
)

var FocusAreas = []string{"MIND", "BODY", "SOUL", "BEAUTY", "LIFESTYLE"}

// TrackerTemplate is a catalog tracker that can be recommended or created on onboarding.
type TrackerTemplate struct {
	ID        string  `json:"id" yaml:"id"`
	Name      string  `json:"name" yaml:"name"`
	Category  string  `json:"category" yaml:"category"`
	Icon      string  `json:"icon" yaml:"icon"`
	Target    float64 `json:"target" yaml:"target"`
	Unit      string  `json:"unit" yaml:"unit"`
	Frequency string  `json:"frequency" yaml:"frequency"`
}

type RecommendationRequest struct {
	UserID          string   `json:"-"`
	FocusAreas      []string `json:"focus_areas"`
	Goals           []string `json:"goals"`
	CommitmentLevel string   `json:"commitment_level"`
}

// Normalize upper-cases focus areas, defaults the commitment level and validates both.
func (r *RecommendationRequest) Normalize() error {
	if len(r.FocusAreas) == 0 {
		return Invalid("at least one focus area is required")
	}
	for i, fa := range r.FocusAreas {
		fa = strings.ToUpper(strings.TrimSpace(fa))
		known := false
		for _, k := range FocusAreas {
			if fa == k {
				known = true
				break
			}
		}
		if !known {
			return Invalid("unknown focus area %q", fa)
		}
		r.FocusAreas[i] = fa
	}

	r.CommitmentLevel = strings.ToLower(strings.TrimSpace(r.CommitmentLevel))
	switch r.CommitmentLevel {
	case "":
		r.CommitmentLevel = CommitmentModerate
	case CommitmentLight, CommitmentModerate, CommitmentIntensive:
	default:
		return Invalid("invalid commitment level %q", r.CommitmentLevel)
	}
	return nil
}

type Recommendation struct {
	TrackerID    string   `json:"tracker_id"`
	Name         string   `json:"name"`
	Category     string   `json:"category"`
	Reason       string   `json:"reason"`
	Priority     int      `json:"priority"`
	Score        float64  `json:"score"`
	CustomTarget *float64 `json:"custom_target,omitempty"`
}

const (
	SourceAI       = "ai"
	SourceFallback = "fallback"
)

type RecommendationResult struct {
	Recommendations []Recommendation `json:"recommendations"`
	Source          string           `json:"source"`
	Model           string           `json:"model"`
	GeneratedAt     time.Time        `json:"generated_at"`
}

// TrackerSuggestion caches a recommendation result for one user and day.
type TrackerSuggestion struct {
	ID          string               `json:"id"`
	UserID      string               `json:"user_id"`
	DateKey     string               `json:"date_key"`
	RequestHash string               `json:"request_hash"`
	Result      RecommendationResult `json:"result"`
	CreatedAt   time.Time            `json:"created_at"`
}

func SuggestionID(userID, dateKey string) string {
	return userID + "_" + dateKey
}

// DailySuggestion is one short action proposed for the user's day.
type DailySuggestion struct {
	Text string `json:"text"`
	Type string `json:"type"`
	Icon string `json:"icon,omitempty"`
}

type SuggestionProfile struct {
	FocusAreas      []string `json:"focus_areas"`
	GoalCount       int      `json:"goal_count"`
	TrackerCount    int      `json:"tracker_count"`
	CommitmentLevel string   `json:"commitment_level"`
}

// DailySuggestions caches the suggestions generated for one user and UTC day.
type DailySuggestions struct {
	ID           string            `json:"id"`
	UserID       string            `json:"user_id"`
	DateKey      string            `json:"date_key"`
	Suggestions  []DailySuggestion `json:"suggestions"`
	Source       string            `json:"source"`
	Model        string            `json:"model"`
	Profile      SuggestionProfile `json:"user_profile"`
	GeneratedAt  time.Time         `json:"generated_at"`
	LastAccessed time.Time         `json:"last_accessed"`
}

func DailySuggestionsID(userID, dateKey string) string {
	return userID + "_" + dateKey
}
