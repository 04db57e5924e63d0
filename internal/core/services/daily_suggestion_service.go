package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/comitanigiacomo/regen-engine/internal/core/domain"
	"github.com/comitanigiacomo/regen-engine/internal/metrics"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	maxDailySuggestions      = 4
	dailySuggestionTTLDays   = 7
	dailySuggestionCleanup   = 10
	dailySuggestionMaxTokens = 512
)

var focusSuggestions = map[string]domain.DailySuggestion{
	"MIND":      {Text: "Start your day with 5 minutes of mindful breathing", Type: "mindfulness", Icon: "🧘"},
	"BODY":      {Text: "Take a 10 minute walk after lunch", Type: "movement", Icon: "🚶"},
	"SOUL":      {Text: "Write down three things you are grateful for", Type: "gratitude", Icon: "🙏"},
	"BEAUTY":    {Text: "Give your skin a moment with your evening routine", Type: "self-care", Icon: "✨"},
	"LIFESTYLE": {Text: "Put your phone away for the first hour after waking", Type: "balance", Icon: "📵"},
}

var generalSuggestions = []domain.DailySuggestion{
	{Text: "Drink a glass of water before each meal", Type: "hydration", Icon: "💧"},
	{Text: "Check in with your mood before bed", Type: "reflection", Icon: "🌙"},
	{Text: "Reach out to someone you care about", Type: "connection", Icon: "💬"},
	{Text: "Stretch for five minutes between tasks", Type: "movement", Icon: "🤸"},
}

// DailySuggestionService produces a few short actions for the user's day,
// generated once per user and UTC day and cached.
type DailySuggestionService struct {
	cache    domain.DailySuggestionRepository
	users    domain.UserRepository
	trackers domain.TrackerRepository
	ai       domain.TextGenerator
	logger   *zap.Logger
}

func NewDailySuggestionService(cache domain.DailySuggestionRepository, users domain.UserRepository, trackers domain.TrackerRepository, ai domain.TextGenerator, logger *zap.Logger) *DailySuggestionService {
	return &DailySuggestionService{
		cache:    cache,
		users:    users,
		trackers: trackers,
		ai:       ai,
		logger:   logger,
	}
}

func (s *DailySuggestionService) GetDailySuggestions(ctx context.Context, userID string) (*domain.DailySuggestions, error) {
	now := time.Now().UTC()
	dateKey := domain.DayKey(now)

	cached, err := s.cache.Get(ctx, userID, dateKey)
	switch {
	case err == nil:
		if err := s.cache.Touch(ctx, userID, dateKey, now); err != nil {
			s.logger.Warn("daily suggestions touch failed", zap.String("user_id", userID), zap.Error(err))
		}
		cached.LastAccessed = now
		return cached, nil
	case !errors.Is(err, domain.ErrNotFound):
		s.logger.Warn("daily suggestions cache read failed", zap.String("user_id", userID), zap.Error(err))
	}

	cutoff := domain.DayKey(now.AddDate(0, 0, -dailySuggestionTTLDays))
	if n, err := s.cache.DeleteOlderThan(ctx, userID, cutoff, dailySuggestionCleanup); err != nil {
		s.logger.Warn("daily suggestions cleanup failed", zap.String("user_id", userID), zap.Error(err))
	} else if n > 0 {
		s.logger.Debug("old daily suggestions removed", zap.String("user_id", userID), zap.Int("count", n))
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	trackers, err := s.trackers.ListByUserID(ctx, userID, true)
	if err != nil {
		return nil, fmt.Errorf("daily suggestions: list trackers: %w", err)
	}

	commitment := user.CommitmentLevel
	if commitment == "" {
		commitment = domain.CommitmentModerate
	}
	result := &domain.DailySuggestions{
		UserID:  userID,
		DateKey: dateKey,
		Profile: domain.SuggestionProfile{
			FocusAreas:      append([]string{}, user.FocusAreas...),
			GoalCount:       len(user.Goals),
			TrackerCount:    len(trackers),
			CommitmentLevel: commitment,
		},
		GeneratedAt:  now,
		LastAccessed: now,
	}

	suggestions, err := s.fromAI(ctx, user, trackers, now)
	if err != nil {
		s.logger.Info("ai daily suggestions unavailable, using fallback", zap.String("user_id", userID), zap.Error(err))
		result.Suggestions = FallbackDailySuggestions(user.FocusAreas)
		result.Source = domain.SourceFallback
		result.Model = "default"
	} else {
		result.Suggestions = suggestions
		result.Source = domain.SourceAI
		result.Model = s.ai.Model()
	}
	metrics.AIRequests.WithLabelValues("daily_suggestions", result.Source).Inc()

	if err := s.cache.Save(ctx, result); err != nil {
		s.logger.Warn("daily suggestions cache write failed", zap.String("user_id", userID), zap.Error(err))
	}
	return result, nil
}

func (s *DailySuggestionService) fromAI(ctx context.Context, user *domain.User, trackers []*domain.Tracker, now time.Time) ([]domain.DailySuggestion, error) {
	if s.ai == nil {
		return nil, fmt.Errorf("%w: no text generator configured", domain.ErrExternalService)
	}

	text, err := s.ai.Generate(ctx, buildDailySuggestionPrompt(user, trackers, now), domain.GenerateOptions{
		System:    recommendationSystem,
		JSON:      true,
		MaxTokens: dailySuggestionMaxTokens,
	})
	if err != nil {
		return nil, err
	}

	suggestions, err := parseDailySuggestions(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExternalService, err)
	}
	return suggestions, nil
}

func buildDailySuggestionPrompt(user *domain.User, trackers []*domain.Tracker, now time.Time) string {
	commitment := user.CommitmentLevel
	if commitment == "" {
		commitment = domain.CommitmentModerate
	}
	active := make([]string, 0, len(trackers))
	for _, t := range trackers {
		active = append(active, fmt.Sprintf("%s (%g %s %s)", t.Name, t.Target, t.Unit, t.Frequency))
	}
	day := 1
	if !user.CreatedAt.IsZero() {
		day = int(now.Sub(user.CreatedAt.UTC()).Hours()/24) + 1
	}

	var b strings.Builder
	b.WriteString("Generate 3-4 personalized daily suggestions for a wellness app user:\n\n")
	fmt.Fprintf(&b, "FOCUS AREAS: %s\n", strings.Join(user.FocusAreas, ", "))
	fmt.Fprintf(&b, "GOALS: %s\n", strings.Join(user.Goals, ", "))
	fmt.Fprintf(&b, "COMMITMENT LEVEL: %s\n", commitment)
	fmt.Fprintf(&b, "ACTIVE TRACKERS: %s\n", strings.Join(active, ", "))
	fmt.Fprintf(&b, "CURRENT DAY: %d of their journey\n\n", day)
	b.WriteString(`Respond with JSON:
{"suggestions": [{"text": "Start your day with 5 minutes of mindful breathing", "type": "mindfulness", "icon": "🧘"}]}
`)
	return b.String()
}

func parseDailySuggestions(text string) ([]domain.DailySuggestion, error) {
	if m := codeFence.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	text = strings.TrimSpace(text)
	if !gjson.Valid(text) {
		return nil, errors.New("response is not valid JSON")
	}

	items := gjson.Get(text, "suggestions")
	if !items.IsArray() {
		return nil, errors.New("response has no suggestions array")
	}

	var out []domain.DailySuggestion
	items.ForEach(func(_, item gjson.Result) bool {
		t := strings.TrimSpace(item.Get("text").String())
		if t == "" {
			return true
		}
		kind := strings.TrimSpace(item.Get("type").String())
		if kind == "" {
			kind = "wellness"
		}
		out = append(out, domain.DailySuggestion{Text: t, Type: kind, Icon: item.Get("icon").String()})
		return len(out) < maxDailySuggestions
	})
	if len(out) == 0 {
		return nil, errors.New("response has no usable suggestions")
	}
	return out, nil
}

// FallbackDailySuggestions picks one suggestion per known focus area, in order,
// and tops up with general ones.
func FallbackDailySuggestions(focusAreas []string) []domain.DailySuggestion {
	out := make([]domain.DailySuggestion, 0, maxDailySuggestions)
	seen := make(map[string]bool)
	for _, fa := range focusAreas {
		key := strings.ToUpper(strings.TrimSpace(fa))
		sg, ok := focusSuggestions[key]
		if !ok || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, sg)
		if len(out) == maxDailySuggestions {
			return out
		}
	}
	for _, sg := range generalSuggestions {
		if len(out) == maxDailySuggestions {
			break
		}
		out = append(out, sg)
	}
	return out
}
