package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	policydomain "github.com/sushiltimalsina/bemasathi/internal/policy/domain"
	"github.com/sushiltimalsina/bemasathi/pkg/db/pagination"
)

func (s *Server) CreatePolicy(c *gin.Context) {
	var req policydomain.Policy
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.policySvc.Create(c.Request.Context(), &req); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": req})
}

func (s *Server) ListPolicies(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.policySvc.List(c.Request.Context(), policydomain.ListRequest{
		PageToken: page.PageToken,
		PageSize:  page.PageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Policies, "page_info": resp.PageInfo})
}

func (s *Server) GetPolicy(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.policySvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdatePolicy(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	existing, err := s.policySvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req policydomain.Policy
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = existing.ID
	req.CreatedAt = existing.CreatedAt

	if err := s.policySvc.Update(c.Request.Context(), &req); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": req})
}

func (s *Server) DeactivatePolicy(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.policySvc.Deactivate(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"id": id, "active": false}})
}
