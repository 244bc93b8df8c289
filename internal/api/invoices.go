package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/muneemjee/ledger/internal/auth"
	"github.com/muneemjee/ledger/internal/ledger"
)

// ListInvoices handles GET /invoices.
func (s *Server) ListInvoices(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	invoices, err := s.svc.ListInvoices(c.Request.Context(), userID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoices)
}

// CreateInvoice handles POST /invoices.
func (s *Server) CreateInvoice(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req ledger.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	invoice, err := s.svc.CreateInvoice(c.Request.Context(), userID, req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, invoice)
}
