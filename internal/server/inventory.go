package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	inventorydomain "github.com/smallbiznis/karat/internal/inventory/domain"
)

type adjustInventoryRequest struct {
	Change *decimal.Decimal `json:"change" binding:"required"`
}

func (s *Server) ListInventory(c *gin.Context) {
	records, err := s.inventorySvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if records == nil {
		records = []inventorydomain.Record{}
	}

	c.JSON(http.StatusOK, gin.H{"data": records})
}

func (s *Server) GetInventory(c *gin.Context) {
	record, err := s.inventorySvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("material_id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": record})
}

func (s *Server) AdjustInventory(c *gin.Context) {
	var req adjustInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	adjustment, err := s.inventorySvc.UpdateQuantity(c.Request.Context(), strings.TrimSpace(c.Param("material_id")), *req.Change)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": adjustment})
}
