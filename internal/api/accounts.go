package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/muneemjee/ledger/internal/auth"
	"github.com/muneemjee/ledger/internal/ledger"
)

// ListAccounts handles GET /accounts.
func (s *Server) ListAccounts(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	accounts, err := s.svc.ListAccounts(c.Request.Context(), userID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, accounts)
}

// GetAccount handles GET /accounts/:id.
func (s *Server) GetAccount(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	account, err := s.svc.GetAccount(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

// CreateAccount handles POST /accounts.
func (s *Server) CreateAccount(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req ledger.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	account, err := s.svc.CreateAccount(c.Request.Context(), userID, req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, account)
}
