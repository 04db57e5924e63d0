package domain

import (
	"math"
	"time"
)

type AchievementType string

const (
	AchievementStreak      AchievementType = "streak"
	AchievementMilestone   AchievementType = "milestone"
	AchievementConsistency AchievementType = "consistency"
	AchievementWellness    AchievementType = "wellness"
	AchievementExploration AchievementType = "exploration"
	AchievementSocial      AchievementType = "social"
	AchievementSpecial     AchievementType = "special"
)

type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

type TriggerType string

const (
	TriggerTracker TriggerType = "tracker"
	TriggerJournal TriggerType = "journal"
	TriggerStreak  TriggerType = "streak"
	TriggerGoal    TriggerType = "goal"
)

var triggerTypes = map[TriggerType][]AchievementType{
	TriggerTracker: {AchievementStreak, AchievementConsistency, AchievementMilestone},
	TriggerJournal: {AchievementStreak, AchievementConsistency, AchievementWellness},
	TriggerStreak:  {AchievementStreak},
	TriggerGoal:    {AchievementMilestone, AchievementWellness},
}

// AchievementTypesFor returns the achievement types a trigger may affect.
func AchievementTypesFor(trigger TriggerType) []AchievementType {
	return triggerTypes[trigger]
}

type Achievement struct {
	ID          string          `json:"id" yaml:"id"`
	Title       string          `json:"title" yaml:"title"`
	Description string          `json:"description" yaml:"description"`
	Type        AchievementType `json:"type" yaml:"type"`
	Category    string          `json:"category,omitempty" yaml:"category"`
	Icon        string          `json:"icon" yaml:"icon"`
	Color       string          `json:"color,omitempty" yaml:"color"`
	Requirement Requirement     `json:"requirement" yaml:"requirement"`
	Rarity      Rarity          `json:"rarity" yaml:"rarity"`
	Points      int64           `json:"points" yaml:"points"`
	IsActive    bool            `json:"is_active" yaml:"active"`
	StartDate   *time.Time      `json:"start_date,omitempty" yaml:"startDate"`
	EndDate     *time.Time      `json:"end_date,omitempty" yaml:"endDate"`
}

// Expired reports whether a time-boxed achievement is past its end date.
func (a *Achievement) Expired(now time.Time) bool {
	return a.EndDate != nil && now.After(*a.EndDate)
}

type RuleKind string

const (
	RuleStreakDays   RuleKind = "streak_days"
	RuleTotalCount   RuleKind = "total_count"
	RuleTotalValue   RuleKind = "total_value"
	RuleAverageValue RuleKind = "average_value"
	RuleCategorySet  RuleKind = "category_set"
)

type Composition string

const (
	ComposeAll Composition = "all"
	ComposeAny Composition = "any"
)

// Rule is one requirement term. Target applies to numeric kinds, Categories and
// MinCount to RuleCategorySet.
type Rule struct {
	Kind       RuleKind `json:"kind" yaml:"kind"`
	Target     float64  `json:"target,omitempty" yaml:"target"`
	Categories []string `json:"categories,omitempty" yaml:"categories"`
	MinCount   int      `json:"min_count,omitempty" yaml:"minCount"`
}

type Requirement struct {
	Compose Composition `json:"compose" yaml:"compose"`
	Rules   []Rule      `json:"rules" yaml:"rules"`
}

// AchievementMetrics is the user-level statistics snapshot rules are evaluated against.
type AchievementMetrics struct {
	CurrentStreak       int
	TotalTrackerEntries int64
	TotalJournalEntries int64
	TotalValue          float64
	WeeklyActivityScore float64
	AverageMood         float64
	ActiveCategories    map[string]bool
}

// RuleResult is the measured value of a rule against its target.
type RuleResult struct {
	Current   float64
	Target    float64
	Satisfied bool
}

func (r RuleResult) Progress() float64 {
	if r.Target <= 0 {
		if r.Satisfied {
			return 100
		}
		return 0
	}
	return math.Min(100, 100*r.Current/r.Target)
}

// Evaluate measures the rule for an achievement of the given category.
func (r Rule) Evaluate(category string, m AchievementMetrics) RuleResult {
	var current, target float64
	switch r.Kind {
	case RuleStreakDays:
		current, target = float64(m.CurrentStreak), r.Target
	case RuleTotalCount:
		current, target = float64(m.TotalTrackerEntries), r.Target
		if category == CategoryJournal {
			current = float64(m.TotalJournalEntries)
		}
	case RuleTotalValue:
		current, target = m.TotalValue, r.Target
	case RuleAverageValue:
		current, target = m.WeeklyActivityScore, r.Target
		if category == CategoryMood {
			current = m.AverageMood
		}
	case RuleCategorySet:
		for _, c := range r.Categories {
			if m.ActiveCategories[c] {
				current++
			}
		}
		target = float64(len(r.Categories))
		if r.MinCount > 0 && float64(r.MinCount) < target {
			target = float64(r.MinCount)
		}
	default:
		return RuleResult{}
	}
	return RuleResult{Current: current, Target: target, Satisfied: target > 0 && current >= target}
}

// Outcome is the combined evaluation of a requirement.
type Outcome struct {
	Eligible     bool
	Progress     float64
	CurrentValue float64
	TargetValue  float64
}

// Evaluate combines the rule results. Progress follows the best rule for an "any"
// composition and the weakest rule for "all".
func (req Requirement) Evaluate(category string, m AchievementMetrics) Outcome {
	if len(req.Rules) == 0 {
		return Outcome{}
	}

	all := req.Compose == ComposeAll
	var pick RuleResult
	eligible := all
	for i, rule := range req.Rules {
		res := rule.Evaluate(category, m)
		if all {
			eligible = eligible && res.Satisfied
		} else {
			eligible = eligible || res.Satisfied
		}
		if i == 0 || (all && res.Progress() < pick.Progress()) || (!all && res.Progress() > pick.Progress()) {
			pick = res
		}
	}

	return Outcome{
		Eligible:     eligible,
		Progress:     pick.Progress(),
		CurrentValue: pick.Current,
		TargetValue:  pick.Target,
	}
}

// LegacyRequirement is the older optional-field requirement shape. Its numeric
// thresholds are alternatives and its category fields are not enforced.
type LegacyRequirement struct {
	StreakDays    float64  `json:"streakDays,omitempty"`
	TotalCount    float64  `json:"totalCount,omitempty"`
	TotalValue    float64  `json:"totalValue,omitempty"`
	AverageValue  float64  `json:"averageValue,omitempty"`
	Categories    []string `json:"categories,omitempty"`
	CategoryCount int      `json:"categoryCount,omitempty"`
}

func (l LegacyRequirement) ToRequirement() Requirement {
	req := Requirement{Compose: ComposeAny}
	add := func(kind RuleKind, target float64) {
		if target > 0 {
			req.Rules = append(req.Rules, Rule{Kind: kind, Target: target})
		}
	}
	add(RuleStreakDays, l.StreakDays)
	add(RuleTotalCount, l.TotalCount)
	add(RuleTotalValue, l.TotalValue)
	add(RuleAverageValue, l.AverageValue)
	return req
}

type Level struct {
	Name      string `json:"name"`
	MinPoints int64  `json:"min_points"`
}

var Levels = []Level{
	{"Beginner", 0},
	{"Explorer", 100},
	{"Achiever", 300},
	{"Dedicated", 600},
	{"Master", 1000},
	{"Legend", 1500},
	{"Champion", 2500},
}

// LevelFor returns the highest level reached with points and the next one, if any.
func LevelFor(points int64) (Level, *Level) {
	idx := 0
	for i, l := range Levels {
		if points >= l.MinPoints {
			idx = i
		}
	}
	if idx+1 < len(Levels) {
		next := Levels[idx+1]
		return Levels[idx], &next
	}
	return Levels[idx], nil
}
