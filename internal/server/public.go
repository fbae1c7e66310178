package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	alertdomain "github.com/smallbiznis/karat/internal/alert/domain"
	catalogdomain "github.com/smallbiznis/karat/internal/catalog/domain"
	inventorydomain "github.com/smallbiznis/karat/internal/inventory/domain"
	"github.com/smallbiznis/karat/internal/observability/logger"
	"go.uber.org/zap"
)

const (
	msgSubscribed         = "Subscribed to price alerts successfully!"
	msgInvalidSubscribe   = "Invalid product ID or email."
	msgPriceUnavailable   = "Unable to calculate current price."
	msgSubscribeFailed    = "An error occurred while subscribing."
	msgInStock            = "Sufficient inventory available."
	msgOutOfStock         = "Insufficient inventory for this product."
	msgInvalidCheck       = "Invalid product ID or quantity."
	msgProductNotFound    = "Product not found."
	msgInventoryCheckFail = "Unable to check inventory."
)

type actionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type inventoryCheckRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gte=1"`
}

type priceResponse struct {
	ProductID string `json:"product_id"`
	Price     string `json:"price"`
	Currency  string `json:"currency"`
	Computed  bool   `json:"computed"`
}

func (s *Server) GetPrice(c *gin.Context) {
	productID := strings.TrimSpace(c.Param("id"))
	quote, err := s.pricingSvc.ComputePrice(c.Request.Context(), productID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	store := s.settings.Get()
	c.JSON(http.StatusOK, gin.H{"data": priceResponse{
		ProductID: productID,
		Price:     quote.Amount.StringFixed(store.PriceDecimals),
		Currency:  store.Currency,
		Computed:  quote.Computed,
	}})
}

func (s *Server) GetPriceBreakdown(c *gin.Context) {
	breakdown, err := s.pricingSvc.PriceBreakdown(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": breakdown})
}

func (s *Server) CheckInventory(c *gin.Context) {
	var req inventoryCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, actionResult{Message: msgInvalidCheck})
		return
	}

	ctx := c.Request.Context()
	ok, err := s.inventorySvc.CheckProduct(ctx, strings.TrimSpace(req.ProductID), req.Quantity)
	switch {
	case err == nil:
	case errors.Is(err, catalogdomain.ErrProductNotFound):
		c.JSON(http.StatusNotFound, actionResult{Message: msgProductNotFound})
		return
	case errors.Is(err, catalogdomain.ErrInvalidProductID),
		errors.Is(err, inventorydomain.ErrInvalidQuantity):
		c.JSON(http.StatusBadRequest, actionResult{Message: msgInvalidCheck})
		return
	default:
		logger.FromContext(ctx).Error("inventory check failed", zap.String("product_id", req.ProductID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, actionResult{Message: msgInventoryCheckFail})
		return
	}

	if !ok {
		c.JSON(http.StatusOK, actionResult{Success: false, Message: msgOutOfStock})
		return
	}
	c.JSON(http.StatusOK, actionResult{Success: true, Message: msgInStock})
}

func (s *Server) SubscribeAlert(c *gin.Context) {
	var req alertdomain.SubscribeRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, actionResult{Message: msgInvalidSubscribe})
		return
	}

	ctx := c.Request.Context()
	_, err := s.alertSvc.Subscribe(ctx, req.ProductID, req.Email)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, actionResult{Success: true, Message: msgSubscribed})
	case errors.Is(err, alertdomain.ErrInvalidProductID),
		errors.Is(err, alertdomain.ErrInvalidEmail):
		c.JSON(http.StatusBadRequest, actionResult{Message: msgInvalidSubscribe})
	case errors.Is(err, catalogdomain.ErrProductNotFound):
		c.JSON(http.StatusNotFound, actionResult{Message: msgInvalidSubscribe})
	case errors.Is(err, alertdomain.ErrPriceUnavailable):
		c.JSON(http.StatusUnprocessableEntity, actionResult{Message: msgPriceUnavailable})
	default:
		logger.FromContext(ctx).Error("alert subscription failed", zap.String("product_id", req.ProductID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, actionResult{Message: msgSubscribeFailed})
	}
}
