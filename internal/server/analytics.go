package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	analyticsdomain "github.com/smallbiznis/karat/internal/analytics/domain"
	ratedomain "github.com/smallbiznis/karat/internal/rate/domain"
)

func (s *Server) GetRateTrends(c *gin.Context) {
	days, ok := queryDays(c)
	if !ok {
		return
	}

	points, err := s.analyticsSvc.RateTrends(c.Request.Context(), strings.TrimSpace(c.Query("material_id")), days)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if points == nil {
		points = []ratedomain.HistoryPoint{}
	}

	c.JSON(http.StatusOK, gin.H{"data": points})
}

func (s *Server) GetAverageRate(c *gin.Context) {
	days, ok := queryDays(c)
	if !ok {
		return
	}

	avg, err := s.analyticsSvc.AverageRate(c.Request.Context(), strings.TrimSpace(c.Query("material_id")), days)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": avg})
}

func (s *Server) GetPriceImpact(c *gin.Context) {
	var req analyticsdomain.ImpactRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	impact, err := s.analyticsSvc.PriceImpact(c.Request.Context(), req.ProductIDs, req.Days)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if impact == nil {
		impact = []analyticsdomain.ProductImpact{}
	}

	c.JSON(http.StatusOK, gin.H{"data": impact})
}
