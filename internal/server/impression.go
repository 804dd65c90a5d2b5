package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (s *Server) ImpressionClicked(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.impressions.MarkClicked(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"id": id, "clicked": true}})
}

func (s *Server) ImpressionPurchased(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.impressions.MarkPurchased(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"id": id, "purchased": true}})
}

type timeSpentRequest struct {
	Seconds int `json:"seconds"`
}

func (s *Server) ImpressionTimeSpent(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	var req timeSpentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.Seconds < 0 {
		AbortWithError(c, newValidationError("seconds", "invalid_seconds", "seconds must be non-negative"))
		return
	}

	if err := s.impressions.RecordTimeSpent(c.Request.Context(), id, req.Seconds); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"id": id, "time_spent_seconds": req.Seconds}})
}
