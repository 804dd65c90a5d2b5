package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	matchingdomain "github.com/sushiltimalsina/bemasathi/internal/matching/domain"
)

type recommendRequest struct {
	BuyerID string `json:"buyer_id"`
	Variant string `json:"variant"`
}

func (s *Server) Recommend(c *gin.Context) {
	var req recommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	buyerID, err := snowflake.ParseString(strings.TrimSpace(req.BuyerID))
	if err != nil {
		AbortWithError(c, newValidationError("buyer_id", "invalid_id", "buyer_id is not a valid id"))
		return
	}

	profile, err := s.profiles.Profile(c.Request.Context(), buyerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	candidates, err := s.policySvc.ListActive(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	recs, err := s.matchingSvc.Rank(c.Request.Context(), candidates, profile, matchingdomain.RankRequest{
		Variant: strings.TrimSpace(req.Variant),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": recs})
}
