package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/regen-engine/internal/core/domain"
	"github.com/comitanigiacomo/regen-engine/internal/core/services"
)

type FeedHandler struct {
	svc          *services.FeedService
	interactions *services.FeedInteractionService
}

func NewFeedHandler(svc *services.FeedService, interactions *services.FeedInteractionService) *FeedHandler {
	return &FeedHandler{svc: svc, interactions: interactions}
}

type feedResponse struct {
	Items      []domain.FeedEntry `json:"items"`
	NextCursor string             `json:"next_cursor,omitempty"`
}

type commentRequest struct {
	Text string `json:"text" binding:"required"`
}

type commentsResponse struct {
	Comments   []*domain.FeedComment `json:"comments"`
	NextCursor string                `json:"next_cursor,omitempty"`
}

type generatePostRequest struct {
	Kind    string `json:"kind" binding:"required"`
	Variant string `json:"variant"`
	Force   bool   `json:"force"`
}

func (h *FeedHandler) RegisterRoutes(r *gin.RouterGroup) {
	feed := r.Group("/feed")
	{
		feed.GET("", h.List)
		feed.POST("/generate", h.Generate)
		feed.POST("/:id/like", h.ToggleLike)
		feed.POST("/:id/comments", h.AddComment)
		feed.GET("/:id/comments", h.ListComments)
	}
}

// List pages through the feed. before is the RFC3339 cursor returned as next_cursor.
func (h *FeedHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	limit, err := queryInt(c, "limit", services.DefaultFeedLimit)
	if err != nil {
		handleError(c, err)
		return
	}

	before, ok := beforeCursor(c)
	if !ok {
		return
	}

	items, err := h.svc.ComposeFeed(c.Request.Context(), userID, limit, before)
	if err != nil {
		handleError(c, err)
		return
	}

	if limit <= 0 {
		limit = services.DefaultFeedLimit
	}
	resp := feedResponse{Items: items}
	if n := len(items); n > 0 && n >= min(limit, services.MaxFeedLimit) {
		resp.NextCursor = items[n-1].CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	c.JSON(http.StatusOK, resp)
}

// Generate creates a post on demand. 204 means there was nothing new to post.
func (h *FeedHandler) Generate(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req generatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	item, err := h.svc.GeneratePost(c.Request.Context(), userID, req.Kind, req.Variant, req.Force)
	if err != nil {
		handleError(c, err)
		return
	}
	if item == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *FeedHandler) ToggleLike(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	res, err := h.interactions.ToggleLike(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *FeedHandler) AddComment(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	comment, err := h.interactions.AddComment(c.Request.Context(), userID, c.Param("id"), req.Text)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// ListComments pages newest first; before works like the feed cursor.
func (h *FeedHandler) ListComments(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	limit, err := queryInt(c, "limit", services.DefaultCommentLimit)
	if err != nil {
		handleError(c, err)
		return
	}
	before, ok := beforeCursor(c)
	if !ok {
		return
	}

	comments, err := h.interactions.ListComments(c.Request.Context(), userID, c.Param("id"), before, limit)
	if err != nil {
		handleError(c, err)
		return
	}

	if limit <= 0 {
		limit = services.DefaultCommentLimit
	}
	resp := commentsResponse{Comments: comments}
	if n := len(comments); n > 0 && n >= min(limit, services.MaxCommentLimit) {
		resp.NextCursor = comments[n-1].CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	c.JSON(http.StatusOK, resp)
}

func beforeCursor(c *gin.Context) (time.Time, bool) {
	raw := c.Query("before")
	if raw == "" {
		return time.Time{}, true
	}
	before, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid before cursor, use RFC3339"})
		return time.Time{}, false
	}
	return before, true
}
