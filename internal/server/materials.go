package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	materialdomain "github.com/smallbiznis/karat/internal/material/domain"
)

func (s *Server) ListMaterials(c *gin.Context) {
	materials, err := s.materialSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if materials == nil {
		materials = []materialdomain.Material{}
	}

	c.JSON(http.StatusOK, gin.H{"data": materials})
}

func (s *Server) CreateMaterial(c *gin.Context) {
	var req materialdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	material, err := s.materialSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": material})
}

func (s *Server) GetMaterial(c *gin.Context) {
	material, err := s.materialSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": material})
}

func (s *Server) UpdateMaterial(c *gin.Context) {
	var req materialdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	material, err := s.materialSvc.Update(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": material})
}

func (s *Server) DeleteMaterial(c *gin.Context) {
	if err := s.materialSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
