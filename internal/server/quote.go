package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

type quoteRequest struct {
	BuyerID  string `json:"buyer_id"`
	PolicyID string `json:"policy_id"`
}

// Quote returns the personalized premium for a signed-in buyer.
func (s *Server) Quote(c *gin.Context) {
	var req quoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	buyerID, err := snowflake.ParseString(strings.TrimSpace(req.BuyerID))
	if err != nil {
		AbortWithError(c, newValidationError("buyer_id", "invalid_id", "buyer_id is not a valid id"))
		return
	}

	policy, err := s.policySvc.Get(c.Request.Context(), strings.TrimSpace(req.PolicyID))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	profile, err := s.profiles.Profile(c.Request.Context(), buyerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	quote, err := s.pricingSvc.Quote(c.Request.Context(), policy, profile)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": quote})
}

// QuoteRange is the guest path: no profile, just the fixed envelope.
func (s *Server) QuoteRange(c *gin.Context) {
	policy, err := s.policySvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	rng, err := s.pricingSvc.QuoteRange(policy)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rng})
}
