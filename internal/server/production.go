package server

import (
	"errors"
	"net/http"
	"strings"

	productiondomain "github.com/framehaus/callsheet/internal/production/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) CreateProduction(c *gin.Context) {
	var req productiondomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.Title = strings.TrimSpace(req.Title)

	resp, err := s.productionSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "production.create", "production", resp.ID.String(), map[string]any{
		"title": resp.Title,
	})
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListProductions(c *gin.Context) {
	var req productiondomain.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.productionSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetProduction(c *gin.Context) {
	resp, err := s.productionSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateProduction(c *gin.Context) {
	var req productiondomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.productionSvc.Update(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteProduction(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.productionSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "production.delete", "production", id, nil)
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}

func (s *Server) RecalculateProduction(c *gin.Context) {
	totals, err := s.productionSvc.Recalculate(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"totals": totals})
}

func isProductionValidationError(err error) bool {
	switch {
	case errors.Is(err, productiondomain.ErrInvalidOrganization),
		errors.Is(err, productiondomain.ErrInvalidTitle),
		errors.Is(err, productiondomain.ErrInvalidStatus),
		errors.Is(err, productiondomain.ErrInvalidQuantity),
		errors.Is(err, productiondomain.ErrInvalidAmount),
		errors.Is(err, productiondomain.ErrInvalidTaxRate),
		errors.Is(err, productiondomain.ErrInvalidDiscount),
		errors.Is(err, productiondomain.ErrInvalidRole),
		errors.Is(err, productiondomain.ErrInvalidMember),
		errors.Is(err, productiondomain.ErrInvalidName):
		return true
	default:
		return false
	}
}
