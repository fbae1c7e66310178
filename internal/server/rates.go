package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	ratedomain "github.com/smallbiznis/karat/internal/rate/domain"
)

func (s *Server) GetRates(c *gin.Context) {
	table, err := s.rateSvc.GetRates(c.Request.Context())
	if err != nil && !errors.Is(err, ratedomain.ErrNoRates) {
		AbortWithError(c, err)
		return
	}
	if table == nil {
		table = ratedomain.RateTable{}
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"rates":    table,
		"currency": s.settings.Get().Currency,
	}})
}

func (s *Server) RefreshRates(c *gin.Context) {
	table, err := s.rateSvc.RefreshRates(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"rates":    table,
		"currency": s.settings.Get().Currency,
	}})
}

func (s *Server) GetRateHistory(c *gin.Context) {
	days, ok := queryDays(c)
	if !ok {
		return
	}

	points, err := s.rateSvc.History(c.Request.Context(), strings.TrimSpace(c.Query("material_id")), days)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if points == nil {
		points = []ratedomain.HistoryPoint{}
	}

	c.JSON(http.StatusOK, gin.H{"data": points})
}
