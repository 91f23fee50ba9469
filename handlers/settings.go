package handlers

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dhgwag/korail-reservation/models"
)

// GetEnv returns the stored credentials. A read failure is reported as
// {ok:false} like every other panel failure.
func (h *Handler) GetEnv(c *gin.Context) {
	env, err := h.Credentials.Read()
	if err != nil {
		log.Printf("Error reading credentials: %v", err)
		c.JSON(http.StatusOK, models.OKResponse{OK: false, Error: "Failed to read credentials: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, env)
}

// SaveEnv merges the posted keys into the credential file. Keys that are
// not posted keep their stored value.
func (h *Handler) SaveEnv(c *gin.Context) {
	var update map[string]string
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.Credentials.Merge(update); err != nil {
		log.Printf("Error saving credentials: %v", err)
		c.JSON(http.StatusOK, models.OKResponse{OK: false, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, models.OKResponse{OK: true})
}

// GetConfigs returns the search criteria in file order
func (h *Handler) GetConfigs(c *gin.Context) {
	list, err := h.Criteria.Load()
	if err != nil {
		log.Printf("Error reading search configs: %v", err)
		c.JSON(http.StatusOK, models.OKResponse{OK: false, Error: "Failed to read search configs: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, list)
}

// SaveConfigs replaces the whole criteria list
func (h *Handler) SaveConfigs(c *gin.Context) {
	var list []models.SearchCriterion
	if err := c.ShouldBindJSON(&list); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if list == nil {
		list = []models.SearchCriterion{}
	}

	for i, sc := range list {
		if err := sc.Validate(); err != nil {
			c.JSON(http.StatusOK, models.OKResponse{OK: false, Error: fmt.Sprintf("config [%d]: %v", i+1, err)})
			return
		}
	}

	if err := h.Criteria.Save(list); err != nil {
		log.Printf("Error saving search configs: %v", err)
		c.JSON(http.StatusOK, models.OKResponse{OK: false, Error: err.Error()})
		return
	}
	log.Printf("Saved %d search configs", len(list))
	c.JSON(http.StatusOK, models.OKResponse{OK: true})
}
