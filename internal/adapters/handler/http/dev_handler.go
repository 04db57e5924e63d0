package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/regen-engine/internal/core/services"
)

// DevHandler exposes development-only helpers. The router mounts it only when
// development endpoints are enabled.
type DevHandler struct {
	seed *services.SeedService
}

func NewDevHandler(seed *services.SeedService) *DevHandler {
	return &DevHandler{seed: seed}
}

type seedRequest struct {
	UserID string `json:"user_id"`
	Days   int    `json:"days"`
}

func (h *DevHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/dev/seed", h.Seed)
}

func (h *DevHandler) Seed(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req seedRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		badRequest(c, err)
		return
	}
	if req.UserID == "" {
		req.UserID = userID
	}

	report, err := h.seed.SeedTestData(c.Request.Context(), userID, req.UserID, req.Days)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}
