package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/regen-engine/internal/core/services"
)

type EntryHandler struct {
	svc      *services.EntryService
	journals *services.JournalService
}

func NewEntryHandler(svc *services.EntryService, journals *services.JournalService) *EntryHandler {
	return &EntryHandler{
		svc:      svc,
		journals: journals,
	}
}

type createEntryRequest struct {
	TrackerID string   `json:"tracker_id" binding:"required"`
	Date      string   `json:"date" binding:"required"`
	Value     float64  `json:"value"`
	Mood      *int     `json:"mood"`
	Energy    *int     `json:"energy"`
	Notes     string   `json:"notes"`
	Duration  *int     `json:"duration"`
	Tags      []string `json:"tags"`
}

type createJournalRequest struct {
	Date     string   `json:"date"`
	Title    string   `json:"title"`
	Content  string   `json:"content" binding:"required"`
	Category string   `json:"category"`
	Mood     *int     `json:"mood"`
	Energy   *int     `json:"energy"`
	Tags     []string `json:"tags"`
}

func (h *EntryHandler) RegisterRoutes(router *gin.RouterGroup) {
	entries := router.Group("/entries")
	{
		entries.POST("", h.Create)
		entries.GET("", h.ListByTracker)
		entries.GET("/:id", h.Get)
		entries.DELETE("/:id", h.Delete)
	}

	journal := router.Group("/journal")
	{
		journal.POST("", h.CreateJournal)
		journal.GET("", h.ListJournal)
	}
}

func (h *EntryHandler) Create(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req createEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	entry, err := h.svc.Create(c.Request.Context(), services.CreateEntryInput{
		TrackerID: req.TrackerID,
		UserID:    userID,
		Date:      req.Date,
		Value:     req.Value,
		Mood:      req.Mood,
		Energy:    req.Energy,
		Notes:     req.Notes,
		Duration:  req.Duration,
		Tags:      req.Tags,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, entry)
}

func (h *EntryHandler) Get(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	entry, err := h.svc.GetByID(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *EntryHandler) Delete(c *gin.Context) {
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

// ListByTracker returns a tracker's entries, optionally bounded by from/to (YYYY-MM-DD).
func (h *EntryHandler) ListByTracker(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	trackerID := c.Query("tracker_id")
	if trackerID == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "tracker_id is required"})
		return
	}

	list, err := h.svc.ListByTrackerID(c.Request.Context(), trackerID, userID, c.Query("from"), c.Query("to"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *EntryHandler) CreateJournal(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req createJournalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	entry, err := h.journals.Create(c.Request.Context(), services.CreateJournalInput{
		UserID:   userID,
		Date:     req.Date,
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
		Mood:     req.Mood,
		Energy:   req.Energy,
		Tags:     req.Tags,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (h *EntryHandler) ListJournal(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	list, err := h.journals.ListByUserID(c.Request.Context(), userID, c.Query("from"), c.Query("to"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
