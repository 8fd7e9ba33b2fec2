package server

import (
	"net/http"
	"strings"

	productiondomain "github.com/framehaus/callsheet/internal/production/domain"
	"github.com/gin-gonic/gin"
)

// Child-collection handlers. Every mutation returns the recalculated totals
// so the caller never renders stale financials.

func (s *Server) AddProductionItem(c *gin.Context) {
	var input productiondomain.ItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	item, totals, err := s.productionSvc.AddItem(c.Request.Context(), strings.TrimSpace(c.Param("id")), input)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item, "totals": totals})
}

func (s *Server) UpdateProductionItem(c *gin.Context) {
	var input productiondomain.ItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	item, totals, err := s.productionSvc.UpdateItem(
		c.Request.Context(),
		strings.TrimSpace(c.Param("id")),
		strings.TrimSpace(c.Param("itemId")),
		input,
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item, "totals": totals})
}

func (s *Server) RemoveProductionItem(c *gin.Context) {
	totals, err := s.productionSvc.RemoveItem(
		c.Request.Context(),
		strings.TrimSpace(c.Param("id")),
		strings.TrimSpace(c.Param("itemId")),
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"totals": totals})
}

func (s *Server) ReplaceProductionItems(c *gin.Context) {
	var req struct {
		Items []productiondomain.ItemInput `json:"items"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	items, totals, err := s.productionSvc.ReplaceItems(c.Request.Context(), strings.TrimSpace(c.Param("id")), req.Items)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items, "totals": totals})
}

func (s *Server) AddExpense(c *gin.Context) {
	var input productiondomain.ExpenseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	expense, totals, err := s.productionSvc.AddExpense(c.Request.Context(), strings.TrimSpace(c.Param("id")), input)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": expense, "totals": totals})
}

func (s *Server) UpdateExpense(c *gin.Context) {
	var input productiondomain.ExpenseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	expense, totals, err := s.productionSvc.UpdateExpense(
		c.Request.Context(),
		strings.TrimSpace(c.Param("id")),
		strings.TrimSpace(c.Param("expenseId")),
		input,
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": expense, "totals": totals})
}

func (s *Server) RemoveExpense(c *gin.Context) {
	totals, err := s.productionSvc.RemoveExpense(
		c.Request.Context(),
		strings.TrimSpace(c.Param("id")),
		strings.TrimSpace(c.Param("expenseId")),
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"totals": totals})
}

func (s *Server) ReplaceExpenses(c *gin.Context) {
	var req struct {
		Expenses []productiondomain.ExpenseInput `json:"expenses"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	expenses, totals, err := s.productionSvc.ReplaceExpenses(c.Request.Context(), strings.TrimSpace(c.Param("id")), req.Expenses)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": expenses, "totals": totals})
}

func (s *Server) AddCrewMember(c *gin.Context) {
	var input productiondomain.CrewInput
	if err := c.ShouldBindJSON(&input); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	crew, totals, err := s.productionSvc.AddCrewMember(c.Request.Context(), strings.TrimSpace(c.Param("id")), input)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": crew, "totals": totals})
}

func (s *Server) UpdateCrewMember(c *gin.Context) {
	var input productiondomain.CrewInput
	if err := c.ShouldBindJSON(&input); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	crew, totals, err := s.productionSvc.UpdateCrewMember(
		c.Request.Context(),
		strings.TrimSpace(c.Param("id")),
		strings.TrimSpace(c.Param("crewId")),
		input,
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": crew, "totals": totals})
}

func (s *Server) RemoveCrewMember(c *gin.Context) {
	totals, err := s.productionSvc.RemoveCrewMember(
		c.Request.Context(),
		strings.TrimSpace(c.Param("id")),
		strings.TrimSpace(c.Param("crewId")),
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"totals": totals})
}

func (s *Server) ReplaceCrew(c *gin.Context) {
	var req struct {
		Crew []productiondomain.CrewInput `json:"crew"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	crew, totals, err := s.productionSvc.ReplaceCrew(c.Request.Context(), strings.TrimSpace(c.Param("id")), req.Crew)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": crew, "totals": totals})
}
