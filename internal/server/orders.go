package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	catalogdomain "github.com/smallbiznis/karat/internal/catalog/domain"
)

type orderCompletedRequest struct {
	Items []catalogdomain.OrderItem `json:"items" binding:"required,min=1,dive"`
}

// CompleteOrder deducts material inventory for a fulfilled order. A second
// delivery of the same order id is rejected with 409.
func (s *Server) CompleteOrder(c *gin.Context) {
	var req orderCompletedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	result, err := s.inventorySvc.ProcessOrder(c.Request.Context(), strings.TrimSpace(c.Param("id")), req.Items)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}
