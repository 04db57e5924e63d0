package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/regen-engine/internal/core/domain"
	"github.com/comitanigiacomo/regen-engine/internal/core/services"
)

const maxWeeklyRangeDays = 366

type StatsHandler struct {
	svc *services.StatsService
}

func NewStatsHandler(svc *services.StatsService) *StatsHandler {
	return &StatsHandler{svc: svc}
}

type recalculateRequest struct {
	Date string `json:"date"`
}

type backfillRequest struct {
	From  string `json:"from" binding:"required"`
	To    string `json:"to" binding:"required"`
	Force bool   `json:"force"`
}

func (h *StatsHandler) RegisterRoutes(r *gin.RouterGroup) {
	stats := r.Group("/stats")
	{
		stats.GET("/daily", h.GetDailyStats)
		stats.POST("/recalculate", h.Recalculate)
		stats.POST("/backfill", h.Backfill)
		stats.GET("/weekly", h.GetWeeklyStats)
	}
}

func (h *StatsHandler) GetDailyStats(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	to := c.DefaultQuery("to", domain.DayKey(time.Now()))
	from := c.Query("from")
	if from == "" {
		from, _ = domain.AddDays(to, -6)
	}

	list, err := h.svc.GetDailyStats(c.Request.Context(), userID, from, to)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Recalculate rebuilds the caller's document for one day, today by default.
func (h *StatsHandler) Recalculate(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req recalculateRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		badRequest(c, err)
		return
	}
	if req.Date == "" {
		req.Date = domain.DayKey(time.Now())
	}

	stats, err := h.svc.CalculateUserDailyStats(c.Request.Context(), userID, req.Date)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *StatsHandler) Backfill(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req backfillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	report, err := h.svc.BackfillUser(c.Request.Context(), userID, req.From, req.To, req.Force)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *StatsHandler) GetWeeklyStats(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var endDate, startDate time.Time
	var err error

	if endDateStr := c.Query("end_date"); endDateStr == "" {
		endDate = time.Now().UTC()
	} else {
		endDate, err = domain.ParseDay(endDateStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid end_date format, expected YYYY-MM-DD"})
			return
		}
	}

	if startDateStr := c.Query("start_date"); startDateStr == "" {
		startDate = endDate.AddDate(0, 0, -6)
	} else {
		startDate, err = domain.ParseDay(startDateStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid start_date format, expected YYYY-MM-DD"})
			return
		}
	}

	if startDate.After(endDate) {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "start_date cannot be after end_date"})
		return
	}
	if endDate.Sub(startDate).Hours()/24 > maxWeeklyRangeDays {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "date range too large, max 1 year allowed"})
		return
	}

	stats, err := h.svc.GetWeeklyStats(c.Request.Context(), userID, startDate, endDate)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
