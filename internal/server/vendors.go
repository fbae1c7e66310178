package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	supplierdomain "github.com/smallbiznis/karat/internal/supplier/domain"
)

func (s *Server) ListVendors(c *gin.Context) {
	activeOnly, err := parseOptionalBool(c.Query("active"))
	if err != nil {
		AbortWithError(c, newValidationError("active", "invalid_active", "invalid active"))
		return
	}

	var vendors []supplierdomain.Vendor
	if activeOnly != nil && *activeOnly {
		vendors, err = s.vendorSvc.ListActive(c.Request.Context())
	} else {
		vendors, err = s.vendorSvc.List(c.Request.Context())
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := make([]supplierdomain.Response, 0, len(vendors))
	for i := range vendors {
		resp = append(resp, supplierdomain.ToResponse(&vendors[i]))
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateVendor(c *gin.Context) {
	var req supplierdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	vendor, err := s.vendorSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": supplierdomain.ToResponse(vendor)})
}

func (s *Server) GetVendor(c *gin.Context) {
	vendor, err := s.vendorSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": supplierdomain.ToResponse(vendor)})
}

func (s *Server) UpdateVendor(c *gin.Context) {
	var req supplierdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	vendor, err := s.vendorSvc.Update(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": supplierdomain.ToResponse(vendor)})
}

func (s *Server) DeleteVendor(c *gin.Context) {
	if err := s.vendorSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) ToggleVendor(c *gin.Context) {
	vendor, err := s.vendorSvc.ToggleActive(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": supplierdomain.ToResponse(vendor)})
}
