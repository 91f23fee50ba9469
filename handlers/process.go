package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dhgwag/korail-reservation/models"
)

// Run starts a reservation run
func (h *Handler) Run(c *gin.Context) {
	runID, err := h.Process.Start()
	if err != nil {
		log.Printf("Error starting reservation run: %v", err)
		c.JSON(http.StatusOK, models.OKResponse{OK: false, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, models.OKResponse{OK: true, RunID: runID})
}

// Stop interrupts the current run
func (h *Handler) Stop(c *gin.Context) {
	if err := h.Process.Stop(); err != nil {
		c.JSON(http.StatusOK, models.OKResponse{OK: false, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, models.OKResponse{OK: true})
}

// Status reports whether a run is active
func (h *Handler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, models.StatusResponse{
		Running: h.Process.Running(),
		RunID:   h.Process.RunID(),
	})
}
