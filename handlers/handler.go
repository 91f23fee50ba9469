package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dhgwag/korail-reservation/config"
	"github.com/dhgwag/korail-reservation/supervisor"
)

// Process is the reservation run slot controlled from the panel
type Process interface {
	Start() (string, error)
	Stop() error
	Running() bool
	RunID() string
}

// Handler serves the control panel API
type Handler struct {
	Credentials config.CredentialStore
	Criteria    config.CriteriaStore
	Process     Process
	Logs        *supervisor.LineBuffer
	// Heartbeat bounds how long a log stream waits without news before
	// re-checking the process state.
	Heartbeat time.Duration
}

// Register mounts the API routes on router
func (h *Handler) Register(router gin.IRouter) {
	router.GET("/health", Health)

	api := router.Group("/api")
	{
		// Configuration
		api.GET("/env", h.GetEnv)
		api.POST("/env", h.SaveEnv)
		api.GET("/configs", h.GetConfigs)
		api.POST("/configs", h.SaveConfigs)

		// Process control
		api.POST("/run", h.Run)
		api.POST("/stop", h.Stop)
		api.GET("/status", h.Status)

		// Output
		api.GET("/log", h.StreamLog)
		api.GET("/log/since", h.LogSince)
	}
}

// Health reports that the panel is up
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (h *Handler) heartbeat() time.Duration {
	if h.Heartbeat <= 0 {
		return time.Second
	}
	return h.Heartbeat
}
