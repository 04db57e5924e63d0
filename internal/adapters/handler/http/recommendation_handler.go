package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/regen-engine/internal/core/domain"
	"github.com/comitanigiacomo/regen-engine/internal/core/services"
)

type RecommendationHandler struct {
	svc *services.RecommendationService
}

func NewRecommendationHandler(svc *services.RecommendationService) *RecommendationHandler {
	return &RecommendationHandler{svc: svc}
}

type recommendationRequest struct {
	FocusAreas      []string `json:"focus_areas" binding:"required,min=1"`
	Goals           []string `json:"goals"`
	CommitmentLevel string   `json:"commitment_level"`
	Refresh         bool     `json:"refresh"`
}

func (h *RecommendationHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/recommendations", h.Recommend)
}

func (h *RecommendationHandler) Recommend(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req recommendationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.svc.Recommend(c.Request.Context(), domain.RecommendationRequest{
		UserID:          userID,
		FocusAreas:      req.FocusAreas,
		Goals:           req.Goals,
		CommitmentLevel: req.CommitmentLevel,
	}, req.Refresh)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
