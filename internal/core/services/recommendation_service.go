package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/comitanigiacomo/regen-engine/internal/core/domain"
	"github.com/comitanigiacomo/regen-engine/internal/metrics"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	maxAIRecommendations = 8
	defaultPriority      = 5
	recommendationSystem = "You are a wellness coach. Answer with JSON only."
)

var (
	codeFence       = regexp.MustCompile("(?s)^\\s*```(?:json)?\\s*(.*?)\\s*```\\s*$")
	categorySuffix  = regexp.MustCompile(`\s*\([A-Za-z]+\)\s*$`)
	lowEffortUnits  = map[string]bool{"check-in": true, "entry": true}
	recommendCounts = map[string]int{
		domain.CommitmentLight:     5,
		domain.CommitmentModerate:  6,
		domain.CommitmentIntensive: 8,
	}
)

// goalKeywords maps goal keywords to the catalog trackers they favour.
var goalKeywords = []struct {
	words    []string
	trackers []string
}{
	{[]string{"stress"}, []string{"meditation", "mindfulness", "mood", "digital-detox", "prayer-reflection"}},
	{[]string{"anxiety", "calm"}, []string{"meditation", "mindfulness", "mood", "journaling"}},
	{[]string{"sleep", "rest"}, []string{"sleep", "digital-detox", "meditation"}},
	{[]string{"fitness", "exercise", "strength", "energy"}, []string{"exercise", "steps", "stretching", "yoga", "water-intake"}},
	{[]string{"weight", "health", "nutrition", "diet"}, []string{"healthy-meals", "water-intake", "exercise", "steps"}},
	{[]string{"focus", "productivity"}, []string{"focus-session", "reading", "learning", "digital-detox"}},
	{[]string{"learn", "growth", "knowledge"}, []string{"learning", "reading", "creative-time"}},
	{[]string{"happiness", "gratitude", "positivity"}, []string{"gratitude", "affirmations", "acts-of-kindness", "mood"}},
	{[]string{"relationship", "social", "connection", "friends"}, []string{"social-connection", "acts-of-kindness"}},
	{[]string{"confidence", "self-esteem", "self-love"}, []string{"affirmations", "mirror-work", "self-care"}},
	{[]string{"skin", "beauty", "glow", "self-care"}, []string{"skincare", "self-care", "hair-care", "nail-care"}},
	{[]string{"creativity", "creative"}, []string{"creative-time", "journaling"}},
	{[]string{"nature", "outdoor"}, []string{"outdoor-time", "nature-connection"}},
	{[]string{"money", "budget", "finance", "saving"}, []string{"budget-tracking", "spending-check"}},
	{[]string{"spiritual", "faith", "peace"}, []string{"prayer-reflection", "nature-connection", "gratitude"}},
}

type RecommendationService struct {
	templates []domain.TrackerTemplate
	ai        domain.TextGenerator
	cache     domain.SuggestionRepository
	logger    *zap.Logger
}

func NewRecommendationService(templates []domain.TrackerTemplate, ai domain.TextGenerator, cache domain.SuggestionRepository, logger *zap.Logger) *RecommendationService {
	return &RecommendationService{
		templates: templates,
		ai:        ai,
		cache:     cache,
		logger:    logger,
	}
}

// Recommend ranks catalog trackers for the request. The AI path is tried first and
// any failure falls back to deterministic scoring. Results are cached per user and
// day unless refresh is set.
func (s *RecommendationService) Recommend(ctx context.Context, req domain.RecommendationRequest, refresh bool) (*domain.RecommendationResult, error) {
	if err := req.Normalize(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	dateKey := domain.DayKey(now)
	hash := requestHash(req)

	if !refresh && req.UserID != "" {
		cached, err := s.cache.Get(ctx, req.UserID, dateKey)
		if err == nil && cached.RequestHash == hash {
			return &cached.Result, nil
		}
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("suggestion cache read failed", zap.String("user_id", req.UserID), zap.Error(err))
		}
	}

	result := &domain.RecommendationResult{GeneratedAt: now}
	recs, err := s.fromAI(ctx, req)
	if err != nil {
		s.logger.Warn("ai recommendations unavailable, using fallback",
			zap.String("user_id", req.UserID),
			zap.Error(err),
		)
		result.Recommendations = s.Fallback(req)
		result.Source = domain.SourceFallback
		result.Model = "rule-based"
	} else {
		result.Recommendations = recs
		result.Source = domain.SourceAI
		result.Model = s.ai.Model()
	}
	metrics.AIRequests.WithLabelValues("recommendations", result.Source).Inc()

	if req.UserID != "" {
		err := s.cache.Save(ctx, &domain.TrackerSuggestion{
			ID:          domain.SuggestionID(req.UserID, dateKey),
			UserID:      req.UserID,
			DateKey:     dateKey,
			RequestHash: hash,
			Result:      *result,
			CreatedAt:   now,
		})
		if err != nil {
			s.logger.Warn("suggestion cache write failed", zap.String("user_id", req.UserID), zap.Error(err))
		}
	}
	return result, nil
}

func requestHash(req domain.RecommendationRequest) string {
	focus := append([]string(nil), req.FocusAreas...)
	sort.Strings(focus)
	goals := make([]string, len(req.Goals))
	for i, g := range req.Goals {
		goals[i] = strings.ToLower(strings.TrimSpace(g))
	}
	sum := sha256.Sum256([]byte(strings.Join(focus, ",") + "|" + strings.Join(goals, ",") + "|" + req.CommitmentLevel))
	return hex.EncodeToString(sum[:8])
}

func (s *RecommendationService) relevantTemplates(focus []string) []domain.TrackerTemplate {
	wanted := map[string]bool{"LIFESTYLE": true}
	for _, f := range focus {
		wanted[f] = true
	}
	var out []domain.TrackerTemplate
	hasFocus := false
	for _, t := range s.templates {
		if wanted[t.Category] {
			out = append(out, t)
			if t.Category != "LIFESTYLE" {
				hasFocus = true
			}
		}
	}
	if !hasFocus {
		return s.templates
	}
	return out
}

func (s *RecommendationService) fromAI(ctx context.Context, req domain.RecommendationRequest) ([]domain.Recommendation, error) {
	if s.ai == nil {
		return nil, fmt.Errorf("%w: no text generator configured", domain.ErrExternalService)
	}

	relevant := s.relevantTemplates(req.FocusAreas)
	text, err := s.ai.Generate(ctx, buildRecommendationPrompt(req, relevant), domain.GenerateOptions{
		System:    recommendationSystem,
		JSON:      true,
		MaxTokens: 1024,
	})
	if err != nil {
		return nil, err
	}

	recs, err := parseRecommendations(text, relevant)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExternalService, err)
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%w: response matched no catalog tracker", domain.ErrExternalService)
	}
	return recs, nil
}

func buildRecommendationPrompt(req domain.RecommendationRequest, relevant []domain.TrackerTemplate) string {
	var b strings.Builder
	b.WriteString("As a wellness expert, recommend the best habit trackers for a user with these goals and preferences:\n\n")
	fmt.Fprintf(&b, "Focus Areas: %s\n", strings.Join(req.FocusAreas, ", "))
	fmt.Fprintf(&b, "Goals: %s\n", strings.Join(req.Goals, ", "))
	fmt.Fprintf(&b, "Commitment Level: %s (light=10-15min daily, moderate=20-30min daily, intensive=30+min daily)\n\n", req.CommitmentLevel)
	b.WriteString("Available Trackers:\n")
	for _, t := range relevant {
		fmt.Fprintf(&b, "- %s (%s): %g %s %s\n", t.Name, t.Category, t.Target, t.Unit, t.Frequency)
	}
	b.WriteString(`
Recommend 5-8 trackers that best align with their goals. For each one give the tracker name exactly
as listed above, a brief reason, a priority from 1 to 10 (10 is highest) and optionally a custom target.

Respond with JSON:
{"recommendations": [{"trackerName": "exact tracker name", "reason": "why it helps", "priority": 8, "customTarget": 10}]}
`)
	return b.String()
}

// parseRecommendations matches the model's tracker names against the catalog,
// exactly first, then by containment, then by keyword.
func parseRecommendations(text string, relevant []domain.TrackerTemplate) ([]domain.Recommendation, error) {
	if m := codeFence.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	text = strings.TrimSpace(text)
	if !gjson.Valid(text) {
		return nil, errors.New("response is not valid JSON")
	}

	items := gjson.Get(text, "recommendations")
	if !items.IsArray() {
		return nil, errors.New("response has no recommendations array")
	}

	seen := make(map[string]bool)
	var recs []domain.Recommendation
	items.ForEach(func(_, item gjson.Result) bool {
		name := categorySuffix.ReplaceAllString(strings.TrimSpace(item.Get("trackerName").String()), "")
		tpl, ok := matchTemplate(name, relevant)
		if !ok || seen[tpl.ID] {
			return true
		}
		seen[tpl.ID] = true

		priority := defaultPriority
		if p := item.Get("priority"); p.Exists() && p.Int() >= 1 && p.Int() <= 10 {
			priority = int(p.Int())
		}
		rec := domain.Recommendation{
			TrackerID: tpl.ID,
			Name:      tpl.Name,
			Category:  tpl.Category,
			Reason:    item.Get("reason").String(),
			Priority:  priority,
			Score:     float64(priority * 10),
		}
		if ct := item.Get("customTarget"); ct.Type == gjson.Number && ct.Float() > 0 {
			v := ct.Float()
			rec.CustomTarget = &v
		}
		recs = append(recs, rec)
		return len(recs) < maxAIRecommendations
	})

	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Priority > recs[j].Priority })
	return recs, nil
}

func matchTemplate(name string, templates []domain.TrackerTemplate) (domain.TrackerTemplate, bool) {
	lower := strings.ToLower(name)
	if lower == "" {
		return domain.TrackerTemplate{}, false
	}
	for _, t := range templates {
		if strings.ToLower(t.Name) == lower {
			return t, true
		}
	}
	for _, t := range templates {
		tn := strings.ToLower(t.Name)
		if strings.Contains(tn, lower) || strings.Contains(lower, tn) {
			return t, true
		}
	}
	for _, t := range templates {
		for _, word := range strings.FieldsFunc(strings.ToLower(t.Name), isNameSeparator) {
			if len(word) > 3 && strings.Contains(lower, word) {
				return t, true
			}
		}
		if strings.Contains(lower, strings.ReplaceAll(t.ID, "-", " ")) {
			return t, true
		}
	}
	return domain.TrackerTemplate{}, false
}

func isNameSeparator(r rune) bool {
	return r == ' ' || r == '/' || r == '-'
}

type scoredTemplate struct {
	tpl     domain.TrackerTemplate
	score   float64
	reasons []string
}

// Fallback scores the whole catalog deterministically. Ties keep catalog order.
func (s *RecommendationService) Fallback(req domain.RecommendationRequest) []domain.Recommendation {
	focus := make(map[string]bool, len(req.FocusAreas))
	for _, f := range req.FocusAreas {
		focus[f] = true
	}

	keywordHits := make(map[string][]string)
	for _, goal := range req.Goals {
		g := strings.ToLower(goal)
		for _, kw := range goalKeywords {
			for _, w := range kw.words {
				if !strings.Contains(g, w) {
					continue
				}
				for _, id := range kw.trackers {
					keywordHits[id] = append(keywordHits[id], w)
				}
				break
			}
		}
	}

	scored := make([]scoredTemplate, 0, len(s.templates))
	for _, t := range s.templates {
		st := scoredTemplate{tpl: t}
		if focus[t.Category] {
			st.score += 50
			st.reasons = append(st.reasons, fmt.Sprintf("matches your %s focus", t.Category))
		}
		if t.Category == "LIFESTYLE" {
			st.score += 5
			st.reasons = append(st.reasons, "supports everyday balance")
		}
		for _, w := range keywordHits[t.ID] {
			st.score += 30
			st.reasons = append(st.reasons, "helps with "+w)
		}
		if t.ID == "mood" {
			st.score += 40
			st.reasons = append(st.reasons, "a quick universal daily check-in")
		}
		if req.CommitmentLevel == domain.CommitmentLight && isLowEffort(t) {
			st.score += 5
			st.reasons = append(st.reasons, "easy to fit into a light routine")
		}
		if st.score > 0 {
			scored = append(scored, st)
		}
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	n := recommendCounts[req.CommitmentLevel]
	if n == 0 {
		n = recommendCounts[domain.CommitmentModerate]
	}
	if len(scored) < n {
		n = len(scored)
	}

	recs := make([]domain.Recommendation, 0, n)
	for rank, st := range scored[:n] {
		reason := strings.Join(st.reasons, "; ")
		if reason != "" {
			reason = strings.ToUpper(reason[:1]) + reason[1:]
		}
		recs = append(recs, domain.Recommendation{
			TrackerID: st.tpl.ID,
			Name:      st.tpl.Name,
			Category:  st.tpl.Category,
			Reason:    reason,
			Priority:  max(10-rank, 1),
			Score:     st.score,
		})
	}
	return recs
}

func isLowEffort(t domain.TrackerTemplate) bool {
	if lowEffortUnits[t.Unit] {
		return true
	}
	return t.Unit == "minutes" && t.Target <= 10
}
