package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/comitanigiacomo/regen-engine/internal/core/domain"
	"github.com/comitanigiacomo/regen-engine/internal/core/workers"
	"github.com/comitanigiacomo/regen-engine/internal/metrics"
	"go.uber.org/zap"
)

const (
	DefaultFeedLimit = 20
	MaxFeedLimit     = 100

	PostMotivational = domain.FeedTypeMotivational
	PostAction       = domain.FeedTypeAction
	PostInsight      = domain.FeedTypeInsight
	PostSummary      = domain.FeedTypeSummary

	VariantMorning = "morning"

	feedAuthor = "Regen Team"

	fallbackMotivation = "Keep pushing forward. Every step counts."
	fallbackInsight    = "Consistency is key. Try to align your sleep schedule with your hydration habits."
)

// FeedStores groups the repositories the feed reads and writes.
type FeedStores struct {
	Feed       domain.FeedRepository
	Activities domain.ActivityRepository
	Users      domain.UserRepository
	Trackers   domain.TrackerRepository
	Stats      domain.DailyStatsRepository
}

type FeedService struct {
	stores   FeedStores
	ai       domain.TextGenerator
	weather  domain.WeatherProvider
	notifier Notifier
	queue    JobQueue
	logger   *zap.Logger
}

func NewFeedService(stores FeedStores, ai domain.TextGenerator, weather domain.WeatherProvider, notifier Notifier, queue JobQueue, logger *zap.Logger) *FeedService {
	return &FeedService{
		stores:   stores,
		ai:       ai,
		weather:  weather,
		notifier: notifier,
		queue:    queue,
		logger:   logger,
	}
}

// ComposeFeed merges posts and activities newest first. Ties on createdAt are ordered by id.
func (s *FeedService) ComposeFeed(ctx context.Context, userID string, limit int, before time.Time) ([]domain.FeedEntry, error) {
	if limit <= 0 {
		limit = DefaultFeedLimit
	}
	if limit > MaxFeedLimit {
		limit = MaxFeedLimit
	}
	if before.IsZero() {
		before = time.Now().Add(time.Second)
	}

	posts, err := s.stores.Feed.ListByUser(ctx, userID, before, limit)
	if err != nil {
		return nil, fmt.Errorf("feed service: list posts: %w", err)
	}
	activities, err := s.stores.Activities.ListByUser(ctx, userID, before, limit)
	if err != nil {
		return nil, fmt.Errorf("feed service: list activities: %w", err)
	}

	entries := make([]domain.FeedEntry, 0, len(posts)+len(activities))
	for _, p := range posts {
		entries = append(entries, domain.FeedEntry{Kind: "post", Post: p, CreatedAt: p.CreatedAt})
	}
	for _, a := range activities {
		entries = append(entries, domain.FeedEntry{Kind: "activity", Activity: a, CreatedAt: a.CreatedAt})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		}
		return entries[i].ID() < entries[j].ID()
	})

	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// CreateWelcomeFeed writes the guide posts for a new user in one batch and queues
// the first generated posts.
func (s *FeedService) CreateWelcomeFeed(ctx context.Context, userID string) error {
	user, err := s.stores.Users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	name := user.DisplayName
	if name == "" {
		name = strings.Split(user.Email, "@")[0]
	}

	now := time.Now()
	guides := []struct {
		title, subtitle, body string
		tags                  []string
	}{
		{
			title:    fmt.Sprintf("Welcome to Regen, %s!", name),
			subtitle: "Your Journey Begins",
			body:     "We're glad you're here. Regen helps you balance Mind, Body, Soul and Beauty through small, consistent actions. This feed is your personal dashboard for growth.",
			tags:     []string{"welcome", "guide"},
		},
		{
			title:    "How It Works: Actions & Insights",
			subtitle: "AI-Powered Coaching",
			body:     "Every day you'll receive personalised Actions to help you build habits and Insights that analyse your progress. The more you track, the smarter your coach becomes.",
			tags:     []string{"guide", "tips"},
		},
		{
			title:    "Your Living Feed: More Than Just Posts",
			subtitle: "A Dynamic Journal of You",
			body:     "This feed reflects your journey. It adapts to your mood, celebrates your wins and evolves as you grow.",
			tags:     []string{"guide", "philosophy"},
		},
	}

	items := make([]*domain.FeedItem, 0, len(guides))
	for i, g := range guides {
		item := domain.NewFeedItem(userID, domain.FeedTypeSystem, g.title, g.body,
			domain.FeedSource{Kind: "system", ID: fmt.Sprintf("welcome-%d", i+1)},
			now.Add(-time.Duration(i)*time.Second))
		item.Subtitle = g.subtitle
		item.Author = feedAuthor
		item.Tags = g.tags
		items = append(items, item)
	}

	if err := s.stores.Feed.CreateMany(ctx, items); err != nil {
		return fmt.Errorf("feed service: write welcome posts: %w", err)
	}

	for _, kind := range []string{PostMotivational, PostAction, PostInsight} {
		s.queue.Enqueue(workers.Job{Kind: workers.KindPostGenerate, UserID: userID, PostKind: kind, Force: true})
	}
	return nil
}

// GeneratePost creates one generated post. It returns nil without error when the
// post already exists for today and force is not set, or when there is nothing to post about.
func (s *FeedService) GeneratePost(ctx context.Context, userID, kind, variant string, force bool) (*domain.FeedItem, error) {
	user, err := s.stores.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	today := domain.DayKey(now)

	var draft *postDraft
	switch kind {
	case PostMotivational:
		draft = s.motivationalDraft(user, variant, today)
	case PostAction:
		if draft, err = s.actionDraft(ctx, user, today); err != nil {
			return nil, err
		}
	case PostInsight:
		draft = s.insightDraft(ctx, user, today)
	case PostSummary:
		draft = s.summaryDraft(ctx, user, today)
	default:
		return nil, domain.Invalid("unknown post kind %q", kind)
	}
	if draft == nil {
		return nil, nil
	}

	if !force {
		exists, err := s.stores.Feed.Exists(ctx, userID, draft.source.ID, today)
		if err != nil {
			return nil, fmt.Errorf("feed service: dedupe check: %w", err)
		}
		if exists {
			s.logger.Debug("post already exists", zap.String("user_id", userID), zap.String("source_id", draft.source.ID))
			return nil, nil
		}
	}

	if draft.body == "" {
		if draft.location != "" && s.weather != nil {
			draft.prompt += fmt.Sprintf(" Current weather in %s: %s.", draft.location, s.currentWeather(ctx, draft.location))
		}
		draft.body = s.generateText(ctx, kind, draft.prompt, draft.fallback)
	}

	item := domain.NewFeedItem(userID, kind, draft.title, draft.body, draft.source, now)
	item.Subtitle = draft.subtitle
	item.ActionLink = draft.actionLink
	if err := s.stores.Feed.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("feed service: create post: %w", err)
	}

	s.push(ctx, userID, draft.pushTitle, item.Body, map[string]string{"type": kind, "post_id": item.ID})
	return item, nil
}

type postDraft struct {
	title      string
	subtitle   string
	body       string
	prompt     string
	fallback   string
	source     domain.FeedSource
	actionLink string
	pushTitle  string
	location   string
}

func (s *FeedService) motivationalDraft(user *domain.User, variant, today string) *postDraft {
	if variant == "" {
		variant = "inspiration"
	}
	prompt := fmt.Sprintf("Give me a %s motivational quote for someone focused on wellness.", variant)
	if user.DisplayName != "" {
		prompt += fmt.Sprintf(" Address them as %s.", user.DisplayName)
	}

	d := &postDraft{
		title:     "Motivation",
		subtitle:  "Daily Inspiration",
		prompt:    prompt,
		fallback:  fallbackMotivation,
		source:    domain.FeedSource{Kind: "generated", ID: fmt.Sprintf("motivational-%s-%s", variant, today)},
		pushTitle: "New Motivation 🌟",
		location:  user.Location,
	}
	if variant == VariantMorning {
		d.title = "Good Morning"
		d.pushTitle = "Good Morning ☀️"
	}
	return d
}

func (s *FeedService) actionDraft(ctx context.Context, user *domain.User, today string) (*postDraft, error) {
	trackers, err := s.stores.Trackers.ListByUserID(ctx, user.ID, true)
	if err != nil {
		return nil, fmt.Errorf("feed service: list trackers: %w", err)
	}
	if len(trackers) == 0 {
		return nil, nil
	}

	pick := trackers[0]
	for _, t := range trackers[1:] {
		if t.EntryCount < pick.EntryCount {
			pick = t
		}
	}

	return &postDraft{
		title:      "Action Item",
		subtitle:   pick.Name,
		prompt:     fmt.Sprintf("Give a short, actionable tip for maintaining a '%s' habit.", pick.Name),
		fallback:   fmt.Sprintf("Don't forget to log your %s today!", pick.Name),
		source:     domain.FeedSource{Kind: "tracker-check", ID: fmt.Sprintf("action-%s-%s", pick.ID, today)},
		actionLink: "/tracker/" + pick.ID,
		pushTitle:  "New Action Plan ⚡",
	}, nil
}

func (s *FeedService) insightDraft(ctx context.Context, user *domain.User, today string) *postDraft {
	from, _ := domain.AddDays(today, -6)
	days, err := s.stores.Stats.ListRange(ctx, user.ID, from, today)
	if err != nil {
		s.logger.Warn("insight stats unavailable", zap.String("user_id", user.ID), zap.Error(err))
	}

	var total, active int64
	var mood float64
	var moodDays int
	for _, d := range days {
		total += d.TotalActivities
		if d.TotalActivities > 0 {
			active++
		}
		if d.AverageMood > 0 {
			mood += d.AverageMood
			moodDays++
		}
	}
	summary := fmt.Sprintf("They logged %d activities on %d of the last 7 days.", total, active)
	if moodDays > 0 {
		summary += fmt.Sprintf(" Their average mood was %.1f out of 10.", mood/float64(moodDays))
	}

	return &postDraft{
		title:     "Weekly Insight",
		subtitle:  "Performance Analysis",
		prompt:    "Analyze this user's week of wellness tracking and give a 2-sentence insight. " + summary,
		fallback:  fallbackInsight,
		source:    domain.FeedSource{Kind: "analysis", ID: "insight-weekly-" + today},
		pushTitle: "Weekly Insight 💡",
	}
}

func (s *FeedService) summaryDraft(ctx context.Context, user *domain.User, today string) *postDraft {
	body := "No activity logged yet today. A small step still counts."
	stats, err := s.stores.Stats.Get(ctx, user.ID, today)
	switch {
	case err == nil && stats.TotalActivities > 0:
		body = fmt.Sprintf("You've logged %d activities today: %d tracker entries and %d journal entries. Keep it up!",
			stats.TotalActivities, stats.TotalTrackerEntries, stats.TotalJournalEntries)
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		s.logger.Warn("summary stats unavailable", zap.String("user_id", user.ID), zap.Error(err))
	}

	return &postDraft{
		title:     "Daily Summary",
		subtitle:  today,
		body:      body,
		source:    domain.FeedSource{Kind: "stats", ID: "summary-" + today},
		pushTitle: "Daily Summary 📊",
	}
}

func (s *FeedService) currentWeather(ctx context.Context, location string) string {
	conditions, err := s.weather.Current(ctx, location)
	if err != nil {
		s.logger.Debug("weather lookup failed", zap.String("location", location), zap.Error(err))
		return "Unknown"
	}
	return conditions
}

func (s *FeedService) generateText(ctx context.Context, kind, prompt, fallback string) string {
	if s.ai == nil {
		metrics.AIRequests.WithLabelValues("feed_"+kind, domain.SourceFallback).Inc()
		return fallback
	}
	text, err := s.ai.Generate(ctx, prompt, domain.GenerateOptions{MaxTokens: 256})
	text = strings.Trim(strings.TrimSpace(text), `"`)
	if err != nil || text == "" {
		s.logger.Warn("feed text generation failed, using fallback", zap.String("kind", kind), zap.Error(err))
		metrics.AIRequests.WithLabelValues("feed_"+kind, domain.SourceFallback).Inc()
		return fallback
	}
	metrics.AIRequests.WithLabelValues("feed_"+kind, domain.SourceAI).Inc()
	return text
}

func (s *FeedService) push(ctx context.Context, userID, title, body string, data map[string]string) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Send(ctx, userID, title, body, data); err != nil {
		s.logger.Warn("push failed", zap.String("user_id", userID), zap.String("title", title), zap.Error(err))
	}
}

// OnStreakMilestone posts the milestone to the feed, records it as an activity and pushes it.
func (s *FeedService) OnStreakMilestone(ctx context.Context, streak *domain.StreakData, milestone int) error {
	name := "your habit"
	if t, err := s.stores.Trackers.GetByID(ctx, streak.TrackerID); err == nil {
		name = t.Name
	}

	now := time.Now()
	title := fmt.Sprintf("%d-day streak!", milestone)
	body := fmt.Sprintf("You've kept %s going for %d days in a row. Next milestone: %d days.",
		name, milestone, domain.NextMilestone(milestone))

	item := domain.NewFeedItem(streak.UserID, domain.FeedTypeMilestone, title, body,
		domain.FeedSource{Kind: "milestone", ID: fmt.Sprintf("streak-%s-%d", streak.TrackerID, milestone)}, now)
	item.Subtitle = name
	item.ActionLink = "/tracker/" + streak.TrackerID
	if err := s.stores.Feed.Create(ctx, item); err != nil {
		return fmt.Errorf("feed service: create milestone post: %w", err)
	}

	activity := domain.NewActivity(streak.UserID, domain.ActivityMilestone, title, body, now)
	activity.RefID = streak.TrackerID
	if err := s.stores.Activities.Create(ctx, activity); err != nil {
		s.logger.Warn("failed to write milestone activity", zap.String("user_id", streak.UserID), zap.Error(err))
	}

	s.push(ctx, streak.UserID, "Streak milestone 🔥", body, map[string]string{
		"type":       domain.FeedTypeMilestone,
		"tracker_id": streak.TrackerID,
		"milestone":  fmt.Sprint(milestone),
	})
	return nil
}

// QueueMorningPosts enqueues a morning motivational post for every recently active user.
func (s *FeedService) QueueMorningPosts(ctx context.Context, activeWindowDays int) (int, error) {
	since, _ := domain.AddDays(domain.DayKey(time.Now()), -activeWindowDays)
	users, err := s.stores.Users.ListActiveSince(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("feed service: list active users: %w", err)
	}

	queued := 0
	for _, u := range users {
		if s.queue.Enqueue(workers.Job{
			Kind:     workers.KindPostGenerate,
			UserID:   u.ID,
			PostKind: PostMotivational,
			Variant:  VariantMorning,
		}) {
			queued++
		}
	}
	s.logger.Info("morning posts queued", zap.Int("users", len(users)), zap.Int("queued", queued))
	return queued, nil
}
