package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	purchasedomain "github.com/sushiltimalsina/bemasathi/internal/purchase/domain"
)

type createPurchaseRequest struct {
	BuyerID      string `json:"buyer_id"`
	PolicyID     string `json:"policy_id"`
	BillingCycle string `json:"billing_cycle"`
}

func (s *Server) CreatePurchase(c *gin.Context) {
	var req createPurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.purchaseSvc.Create(c.Request.Context(), purchasedomain.CreateRequest{
		BuyerID:      strings.TrimSpace(req.BuyerID),
		PolicyID:     strings.TrimSpace(req.PolicyID),
		BillingCycle: purchasedomain.BillingCycle(strings.TrimSpace(req.BillingCycle)),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetPurchase(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.purchaseSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateCycleAmountRequest struct {
	CycleAmount int64 `json:"cycle_amount"`
}

func (s *Server) UpdateCycleAmount(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	var req updateCycleAmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.purchaseSvc.UpdateCycleAmount(c.Request.Context(), id, req.CycleAmount); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.purchaseSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CancelPurchase(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.purchaseSvc.Cancel(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"id": id, "status": purchasedomain.StatusCancelled}})
}
