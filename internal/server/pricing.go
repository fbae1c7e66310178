package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	pricingdomain "github.com/smallbiznis/karat/internal/pricing/domain"
)

type laborCostRequest struct {
	LaborCost *decimal.Decimal `json:"labor_cost" binding:"required"`
}

func (s *Server) ListPricingRules(c *gin.Context) {
	rules, err := s.pricingSvc.ListRules(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if rules == nil {
		rules = []pricingdomain.Rule{}
	}

	c.JSON(http.StatusOK, gin.H{"data": rules})
}

func (s *Server) AddPricingRule(c *gin.Context) {
	var req pricingdomain.AddRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	rule, err := s.pricingSvc.AddRule(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": rule})
}

func (s *Server) DeletePricingRule(c *gin.Context) {
	if err := s.pricingSvc.DeleteRule(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) GetLaborCost(c *gin.Context) {
	cost, err := s.pricingSvc.GetLaborCost(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"labor_cost": cost,
		"currency":   s.settings.Get().Currency,
	}})
}

func (s *Server) SetLaborCost(c *gin.Context) {
	var req laborCostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	if err := s.pricingSvc.SetLaborCost(c.Request.Context(), *req.LaborCost); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"labor_cost": *req.LaborCost,
		"currency":   s.settings.Get().Currency,
	}})
}
