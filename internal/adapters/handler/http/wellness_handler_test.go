package http_test

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/regen-engine/internal/core/domain"
	"github.com/comitanigiacomo/regen-engine/internal/core/services"
)

func TestAchievementHandler(t *testing.T) {
	srv := newTestServer(t)
	user := srv.createUser(t, "badges@regen.app")

	w := srv.do(t, http.MethodGet, "/api/v1/achievements", user.ID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var views []services.UserAchievementView
	decode(t, w, &views)
	assert.Len(t, views, 13)

	lvl := srv.do(t, http.MethodGet, "/api/v1/achievements/level", user.ID, nil)
	require.Equal(t, http.StatusOK, lvl.Code, lvl.Body.String())
	var level services.LevelView
	decode(t, lvl, &level)
	assert.Zero(t, level.Points)
	assert.Equal(t, "Beginner", level.Level.Name)
	require.NotNil(t, level.Next)
	assert.Equal(t, int64(100), level.PointsToNext)
}

func TestRecommendationHandler(t *testing.T) {
	srv := newTestServer(t)
	user := srv.createUser(t, "advice@regen.app")

	t.Run("Falls back to rule-based ranking without a model", func(t *testing.T) {
		w := srv.do(t, http.MethodPost, "/api/v1/recommendations", user.ID, map[string]any{
			"focus_areas":      []string{"mind"},
			"goals":            []string{"sleep better"},
			"commitment_level": "moderate",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var res domain.RecommendationResult
		decode(t, w, &res)
		assert.Equal(t, domain.SourceFallback, res.Source)
		assert.NotEmpty(t, res.Recommendations)
	})

	t.Run("Requires at least one focus area", func(t *testing.T) {
		w := srv.do(t, http.MethodPost, "/api/v1/recommendations", user.ID, map[string]any{"focus_areas": []string{}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestFeedHandler(t *testing.T) {
	srv := newTestServer(t)
	user := srv.createUser(t, "reader@regen.app")

	for _, variant := range []string{"calm", "energy", "focus"} {
		w := srv.do(t, http.MethodPost, "/api/v1/feed/generate", user.ID, map[string]any{
			"kind": services.PostMotivational, "variant": variant,
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		time.Sleep(2 * time.Millisecond)
	}

	t.Run("Duplicate posts are skipped unless forced", func(t *testing.T) {
		body := map[string]any{"kind": services.PostMotivational, "variant": "calm"}

		dup := srv.do(t, http.MethodPost, "/api/v1/feed/generate", user.ID, body)
		assert.Equal(t, http.StatusNoContent, dup.Code)

		body["kind"] = "gossip"
		bad := srv.do(t, http.MethodPost, "/api/v1/feed/generate", user.ID, body)
		assert.Equal(t, http.StatusBadRequest, bad.Code)
	})

	t.Run("Pages with the returned cursor", func(t *testing.T) {
		type page struct {
			Items      []domain.FeedEntry `json:"items"`
			NextCursor string             `json:"next_cursor"`
		}

		w := srv.do(t, http.MethodGet, "/api/v1/feed?limit=2", user.ID, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var first page
		decode(t, w, &first)
		require.Len(t, first.Items, 2)
		require.NotEmpty(t, first.NextCursor)
		assert.True(t, first.Items[0].CreatedAt.After(first.Items[1].CreatedAt))

		w = srv.do(t, http.MethodGet, "/api/v1/feed?limit=2&before="+url.QueryEscape(first.NextCursor), user.ID, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var second page
		decode(t, w, &second)
		require.Len(t, second.Items, 1)
		assert.Empty(t, second.NextCursor)
		assert.Equal(t, "post", second.Items[0].Kind)
	})

	t.Run("Rejects a malformed cursor", func(t *testing.T) {
		w := srv.do(t, http.MethodGet, "/api/v1/feed?before=yesterday", user.ID, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestFeedHandler_Interactions(t *testing.T) {
	srv := newTestServer(t)
	owner := srv.createUser(t, "poster@regen.app")
	item := domain.NewFeedItem(owner.ID, domain.FeedTypeSystem, "Hello", "First post", domain.FeedSource{Kind: "system", ID: "hello"}, time.Now())
	require.NoError(t, srv.feed.Create(t.Context(), item))
	base := "/api/v1/feed/" + item.ID

	t.Run("Like toggles", func(t *testing.T) {
		w := srv.do(t, http.MethodPost, base+"/like", owner.ID, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var res domain.LikeResult
		decode(t, w, &res)
		assert.True(t, res.Liked)
		assert.Equal(t, int64(1), res.LikesCount)

		w = srv.do(t, http.MethodPost, base+"/like", owner.ID, nil)
		require.Equal(t, http.StatusOK, w.Code)
		decode(t, w, &res)
		assert.False(t, res.Liked)
		assert.Zero(t, res.LikesCount)
	})

	t.Run("Comments are created and listed", func(t *testing.T) {
		w := srv.do(t, http.MethodPost, base+"/comments", owner.ID, map[string]string{"text": "Keep going"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var comment domain.FeedComment
		decode(t, w, &comment)
		assert.Equal(t, "Keep going", comment.Text)

		missing := srv.do(t, http.MethodPost, base+"/comments", owner.ID, map[string]string{})
		assert.Equal(t, http.StatusBadRequest, missing.Code)

		list := srv.do(t, http.MethodGet, base+"/comments?limit=1", owner.ID, nil)
		require.Equal(t, http.StatusOK, list.Code, list.Body.String())
		var page struct {
			Comments   []domain.FeedComment `json:"comments"`
			NextCursor string               `json:"next_cursor"`
		}
		decode(t, list, &page)
		require.Len(t, page.Comments, 1)
		assert.Equal(t, comment.ID, page.Comments[0].ID)
		assert.NotEmpty(t, page.NextCursor)
	})

	t.Run("Private posts of others are not found", func(t *testing.T) {
		stranger := srv.createUser(t, "stranger@regen.app")

		w := srv.do(t, http.MethodPost, base+"/like", stranger.ID, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = srv.do(t, http.MethodGet, base+"/comments?before=soon", owner.ID, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestProfileHandler(t *testing.T) {
	srv := newTestServer(t)
	user := srv.createUser(t, "profile@regen.app")

	t.Run("Onboarding creates default trackers", func(t *testing.T) {
		w := srv.do(t, http.MethodPost, "/api/v1/onboarding", user.ID, map[string]any{
			"display_name":     "Robin",
			"focus_areas":      []string{"MIND", "BODY"},
			"commitment_level": "moderate",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var res services.OnboardingResult
		decode(t, w, &res)
		assert.True(t, res.User.OnboardingCompleted)
		assert.NotEmpty(t, res.Trackers)

		list := srv.do(t, http.MethodGet, "/api/v1/trackers", user.ID, nil)
		var trackers []domain.Tracker
		decode(t, list, &trackers)
		assert.Len(t, trackers, len(res.Trackers))
	})

	t.Run("Onboarding rejects unknown focus areas", func(t *testing.T) {
		w := srv.do(t, http.MethodPost, "/api/v1/onboarding", user.ID, map[string]any{
			"focus_areas": []string{"ASTROLOGY"},
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Devices register and unregister", func(t *testing.T) {
		w := srv.do(t, http.MethodPost, "/api/v1/devices", user.ID, map[string]string{"token": "device-1"})
		require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

		stored, err := srv.users.GetByID(t.Context(), user.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"device-1"}, stored.DeviceTokens)

		del := srv.do(t, http.MethodDelete, "/api/v1/devices/device-1", user.ID, nil)
		require.Equal(t, http.StatusNoContent, del.Code)

		stored, err = srv.users.GetByID(t.Context(), user.ID)
		require.NoError(t, err)
		assert.Empty(t, stored.DeviceTokens)
	})

	t.Run("Daily suggestions fall back to the focus areas and are cached", func(t *testing.T) {
		w := srv.do(t, http.MethodGet, "/api/v1/suggestions/daily", user.ID, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var first domain.DailySuggestions
		decode(t, w, &first)
		assert.Equal(t, domain.SourceFallback, first.Source)
		assert.Equal(t, today(), first.DateKey)
		assert.Equal(t, services.FallbackDailySuggestions([]string{"MIND", "BODY"}), first.Suggestions)

		again := srv.do(t, http.MethodGet, "/api/v1/suggestions/daily", user.ID, nil)
		require.Equal(t, http.StatusOK, again.Code)
		var second domain.DailySuggestions
		decode(t, again, &second)
		assert.Equal(t, first.GeneratedAt, second.GeneratedAt)
	})

	t.Run("Me returns the stored profile", func(t *testing.T) {
		w := srv.do(t, http.MethodGet, "/api/v1/me", user.ID, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"display_name":"Robin"`)
	})
}
