package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/muneemjee/ledger/internal/auth"
	"github.com/muneemjee/ledger/internal/ledger"
)

// ListTransactions handles GET /transactions.
func (s *Server) ListTransactions(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	transactions, err := s.svc.ListTransactions(c.Request.Context(), userID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, transactions)
}

// CreateTransaction handles POST /transactions: the Transaction Recorder
// entry point.
func (s *Server) CreateTransaction(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req ledger.RecordTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	tx, err := s.svc.RecordTransaction(c.Request.Context(), userID, req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tx)
}
