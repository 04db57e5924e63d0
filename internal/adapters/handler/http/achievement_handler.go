package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/regen-engine/internal/core/services"
)

type AchievementHandler struct {
	svc *services.AchievementService
}

func NewAchievementHandler(svc *services.AchievementService) *AchievementHandler {
	return &AchievementHandler{svc: svc}
}

func (h *AchievementHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/achievements", h.List)
	r.GET("/achievements/level", h.Level)
}

func (h *AchievementHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	views, err := h.svc.ListUserAchievements(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *AchievementHandler) Level(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	level, err := h.svc.GetLevel(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, level)
}
