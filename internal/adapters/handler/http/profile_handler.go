package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/regen-engine/internal/core/services"
)

// ProfileHandler serves the signed-in user's profile, onboarding and devices.
type ProfileHandler struct {
	auth          *AuthHandler
	onboarding    *services.OnboardingService
	notifications *services.NotificationService
	suggestions   *services.DailySuggestionService
}

func NewProfileHandler(auth *AuthHandler, onboarding *services.OnboardingService, notifications *services.NotificationService, suggestions *services.DailySuggestionService) *ProfileHandler {
	return &ProfileHandler{
		auth:          auth,
		onboarding:    onboarding,
		notifications: notifications,
		suggestions:   suggestions,
	}
}

type onboardingRequest struct {
	DisplayName     string   `json:"display_name"`
	Location        string   `json:"location"`
	FocusAreas      []string `json:"focus_areas" binding:"required,min=1"`
	Goals           []string `json:"goals"`
	CommitmentLevel string   `json:"commitment_level"`
}

type deviceRequest struct {
	Token string `json:"token" binding:"required"`
}

func (h *ProfileHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/me", h.auth.Me)
	r.POST("/onboarding", h.CompleteOnboarding)
	r.GET("/suggestions/daily", h.DailySuggestions)

	devices := r.Group("/devices")
	{
		devices.POST("", h.RegisterDevice)
		devices.DELETE("/:token", h.RemoveDevice)
	}
}

func (h *ProfileHandler) CompleteOnboarding(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req onboardingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.onboarding.CompleteOnboarding(c.Request.Context(), services.OnboardingInput{
		UserID:          userID,
		DisplayName:     req.DisplayName,
		Location:        req.Location,
		FocusAreas:      req.FocusAreas,
		Goals:           req.Goals,
		CommitmentLevel: req.CommitmentLevel,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ProfileHandler) RegisterDevice(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req deviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.notifications.RegisterDevice(c.Request.Context(), userID, req.Token); err != nil {
		handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ProfileHandler) RemoveDevice(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	if err := h.notifications.RemoveDevice(c.Request.Context(), userID, c.Param("token")); err != nil {
		handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DailySuggestions returns today's suggestions, generating them on the first call of the day.
func (h *ProfileHandler) DailySuggestions(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	res, err := h.suggestions.GetDailySuggestions(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
