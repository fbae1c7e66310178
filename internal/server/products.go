package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/karat/internal/catalog/domain"
)

type productJewelryRequest struct {
	Jewelry *bool `json:"jewelry" binding:"required"`
}

type productComponentRequest struct {
	Weight *decimal.Decimal `json:"weight" binding:"required"`
	Purity string           `json:"purity"`
}

type componentResponse struct {
	MaterialID string          `json:"material_id"`
	Weight     decimal.Decimal `json:"weight"`
	Purity     string          `json:"purity,omitempty"`
}

type productResponse struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	Price      decimal.Decimal     `json:"price"`
	IsJewelry  bool                `json:"is_jewelry"`
	Components []componentResponse `json:"components,omitempty"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

func toProductResponse(p *catalogdomain.CatalogProduct) productResponse {
	resp := productResponse{
		ID:        p.ID.String(),
		Name:      p.Name,
		Price:     p.Price,
		IsJewelry: p.IsJewelry,
		UpdatedAt: p.UpdatedAt,
	}
	if jewelry, ok := p.ToProduct().Kind.(catalogdomain.Jewelry); ok {
		for _, component := range jewelry.Composition {
			resp.Components = append(resp.Components, componentResponse{
				MaterialID: component.MaterialID.String(),
				Weight:     component.Weight,
				Purity:     component.Purity,
			})
		}
	}
	return resp
}

func (s *Server) ListProducts(c *gin.Context) {
	products, err := s.catalogSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := make([]productResponse, 0, len(products))
	for i := range products {
		resp = append(resp, toProductResponse(&products[i]))
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpsertProduct(c *gin.Context) {
	var req catalogdomain.UpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	product, err := s.catalogSvc.UpsertProduct(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": toProductResponse(product)})
}

func (s *Server) SetProductJewelry(c *gin.Context) {
	var req productJewelryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	product, err := s.catalogSvc.SetJewelry(c.Request.Context(), strings.TrimSpace(c.Param("id")), *req.Jewelry)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": toProductResponse(product)})
}

func (s *Server) SetProductComponent(c *gin.Context) {
	var req productComponentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	product, err := s.catalogSvc.SetComponent(c.Request.Context(),
		strings.TrimSpace(c.Param("id")),
		strings.TrimSpace(c.Param("material_id")),
		*req.Weight,
		strings.TrimSpace(req.Purity),
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": toProductResponse(product)})
}
