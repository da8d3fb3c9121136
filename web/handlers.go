package web

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fieldops/fieldtrack/config"
	"fieldops/fieldtrack/models"
)

type mapState struct {
	Connected     bool                   `json:"connected"`
	OnlineUsers   []models.UserLocation  `json:"onlineUsers"`
	SessionRoutes []models.SessionRoute  `json:"sessionRoutes"`
	SelectedUser  int64                  `json:"selectedUser,omitempty"`
	SelectedDate  string                 `json:"selectedDate,omitempty"`
	SelectedRoute []models.LocationPoint `json:"selectedRoute"`
	FormMarkers   []models.FormMarker    `json:"formMarkers"`
}

func (h *Handler) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"version":   config.BuildVersion,
		"buildTime": config.BuildTime,
		"startTime": h.startTime.Format(time.RFC3339),
	})
}

func (h *Handler) stateHandler(c *gin.Context) {
	userID, date, _ := h.state.Selection()
	c.JSON(http.StatusOK, mapState{
		Connected:     h.channel.Connected(),
		OnlineUsers:   h.state.OnlineUsers(),
		SessionRoutes: h.state.SessionRoutes(),
		SelectedUser:  userID,
		SelectedDate:  date,
		SelectedRoute: h.state.SelectedRoute(),
		FormMarkers:   h.state.FormMarkers(),
	})
}

func (h *Handler) liveHandler(c *gin.Context) {
	h.hub.Serve(c.Writer, c.Request)
}

type selectRequest struct {
	UserID int64  `json:"userId" binding:"required"`
	Date   string `json:"date"`
}

func (h *Handler) selectHandler(c *gin.Context) {
	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorf("Invalid selection payload: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid selection payload"})
		return
	}
	if req.Date == "" {
		req.Date = models.DateKey(time.Now())
	}

	h.selection.Select(c.Request.Context(), req.UserID, req.Date)
	c.JSON(http.StatusOK, gin.H{"message": "selection updated"})
}

func (h *Handler) clearSelectionHandler(c *gin.Context) {
	h.selection.Clear()
	c.JSON(http.StatusOK, gin.H{"message": "selection cleared"})
}

func (h *Handler) searchHandler(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query"})
		return
	}

	users, err := h.search.SearchUsers(c.Request.Context(), q)
	if err != nil {
		h.logger.Errorf("Failed to search users for %q: %v", q, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "user search failed"})
		return
	}
	c.JSON(http.StatusOK, models.UserSearchResponse{Success: true, Data: users})
}
