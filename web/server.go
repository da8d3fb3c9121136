package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fieldops/fieldtrack/config"
	"fieldops/fieldtrack/models"
)

// StateSource is the read-only slice of the tracking store the map endpoints
// serve.
type StateSource interface {
	OnlineUsers() []models.UserLocation
	SessionRoutes() []models.SessionRoute
	SelectedRoute() []models.LocationPoint
	FormMarkers() []models.FormMarker
	Selection() (userID int64, date string, epoch uint64)
}

// ConnectionChecker reports whether the push channel is up, for the
// connectivity indicator.
type ConnectionChecker interface {
	Connected() bool
}

// SelectionDriver runs the selection lifecycle behind the select endpoints.
type SelectionDriver interface {
	Select(ctx context.Context, userID int64, date string)
	Clear()
}

// UserSearcher backs the admin search box.
type UserSearcher interface {
	SearchUsers(ctx context.Context, q string) ([]models.User, error)
}

type Handler struct {
	logger    *zap.SugaredLogger
	startTime time.Time
	state     StateSource
	channel   ConnectionChecker
	selection SelectionDriver
	search    UserSearcher
	hub       *FrameHub
}

// NewServer wires the gin router for the canvas backend: /health open, the
// /map surface behind JWT auth. The returned hub is the frame sink to hand to
// the canvas renderer.
func NewServer(logger *zap.SugaredLogger, state StateSource, channel ConnectionChecker, selection SelectionDriver, search UserSearcher) (*http.Server, *FrameHub) {
	hub := NewFrameHub(logger)
	h := Handler{
		logger:    logger,
		startTime: time.Now(),
		state:     state,
		channel:   channel,
		selection: selection,
		search:    search,
		hub:       hub,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", h.healthHandler)

	authed := router.Group("/map")
	authed.Use(jwtAuth(logger, config.AppCfg.WebConfig.JWTSecret))
	{
		authed.GET("/state", h.stateHandler)
		authed.GET("/live", h.liveHandler)
		authed.POST("/select", h.selectHandler)
		authed.DELETE("/select", h.clearSelectionHandler)
		authed.GET("/users/search", h.searchHandler)
	}

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", config.AppCfg.WebConfig.WebPort),
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       30 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}, hub
}
