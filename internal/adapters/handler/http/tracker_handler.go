package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/regen-engine/internal/core/services"
)

type TrackerHandler struct {
	svc     *services.TrackerService
	streaks *services.StreakService
}

func NewTrackerHandler(svc *services.TrackerService, streaks *services.StreakService) *TrackerHandler {
	return &TrackerHandler{
		svc:     svc,
		streaks: streaks,
	}
}

type createTrackerRequest struct {
	Name         string  `json:"name" binding:"required"`
	Description  string  `json:"description"`
	Category     string  `json:"category" binding:"required"`
	Type         string  `json:"type"`
	Target       float64 `json:"target"`
	Unit         string  `json:"unit"`
	Frequency    string  `json:"frequency"`
	Color        string  `json:"color"`
	Icon         string  `json:"icon"`
	DurationDays int     `json:"duration_days"`
	IsOngoing    bool    `json:"is_ongoing"`
}

type updateTrackerRequest struct {
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Category     string  `json:"category"`
	Type         string  `json:"type"`
	Target       float64 `json:"target"`
	Unit         string  `json:"unit"`
	Frequency    string  `json:"frequency"`
	Color        string  `json:"color"`
	Icon         string  `json:"icon"`
	DurationDays int     `json:"duration_days"`
	IsOngoing    *bool   `json:"is_ongoing"`
	Version      int     `json:"version" binding:"required"`
}

func (h *TrackerHandler) RegisterRoutes(router *gin.RouterGroup) {
	trackers := router.Group("/trackers")
	{
		trackers.POST("", h.Create)
		trackers.GET("", h.List)
		trackers.GET("/:id", h.Get)
		trackers.PUT("/:id", h.Update)
		trackers.DELETE("/:id", h.Delete)
		trackers.GET("/:id/streak", h.Streak)
	}
	router.GET("/streaks", h.ListStreaks)
}

func (h *TrackerHandler) Create(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req createTrackerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	tracker, err := h.svc.Create(c.Request.Context(), services.CreateTrackerInput{
		UserID:       userID,
		Name:         req.Name,
		Description:  req.Description,
		Category:     req.Category,
		Type:         req.Type,
		Target:       req.Target,
		Unit:         req.Unit,
		Frequency:    req.Frequency,
		Color:        req.Color,
		Icon:         req.Icon,
		DurationDays: req.DurationDays,
		IsOngoing:    req.IsOngoing,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, tracker)
}

func (h *TrackerHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	list, err := h.svc.ListByUserID(c.Request.Context(), userID, c.Query("active") == "true")
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *TrackerHandler) Get(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	tracker, err := h.svc.GetByID(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, tracker)
}

func (h *TrackerHandler) Update(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req updateTrackerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	tracker, err := h.svc.Update(c.Request.Context(), services.UpdateTrackerInput{
		ID:           c.Param("id"),
		UserID:       userID,
		Name:         req.Name,
		Description:  req.Description,
		Category:     req.Category,
		Type:         req.Type,
		Target:       req.Target,
		Unit:         req.Unit,
		Frequency:    req.Frequency,
		Color:        req.Color,
		Icon:         req.Icon,
		DurationDays: req.DurationDays,
		IsOngoing:    req.IsOngoing,
		Version:      req.Version,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, tracker)
}

func (h *TrackerHandler) Delete(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), userID); err != nil {
		handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *TrackerHandler) Streak(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	streak, err := h.streaks.GetStreak(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, streak)
}

func (h *TrackerHandler) ListStreaks(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	list, err := h.streaks.ListByUser(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
