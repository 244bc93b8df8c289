// Package api is the HTTP surface over the ledger service.
package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/muneemjee/ledger/internal/auth"
	"github.com/muneemjee/ledger/internal/ledger"
	"github.com/muneemjee/ledger/pkg/store"
)

// Service is the slice of the ledger core the HTTP surface needs.
type Service interface {
	RecordTransaction(ctx context.Context, userID string, req ledger.RecordTransactionRequest) (*store.Transaction, error)
	ListTransactions(ctx context.Context, userID string) ([]*store.Transaction, error)
	CreateAccount(ctx context.Context, userID string, req ledger.CreateAccountRequest) (*store.Account, error)
	ListAccounts(ctx context.Context, userID string) ([]*store.Account, error)
	GetAccount(ctx context.Context, userID, accountID string) (*store.Account, error)
	CreateInvoice(ctx context.Context, userID string, req ledger.CreateInvoiceRequest) (*store.Invoice, error)
	ListInvoices(ctx context.Context, userID string) ([]*store.Invoice, error)
	UploadFile(ctx context.Context, userID, fileName, contentType string, body io.Reader) (*ledger.Upload, error)
}

// Server holds the handlers and their dependencies.
type Server struct {
	svc      Service
	verifier *auth.Verifier
	log      zerolog.Logger
}

// NewServer creates the HTTP surface over the given service.
func NewServer(svc Service, verifier *auth.Verifier, log zerolog.Logger) *Server {
	return &Server{svc: svc, verifier: verifier, log: log}
}

// Router builds the gin engine with all routes attached.
func (s *Server) Router(mode string) *gin.Engine {
	if mode != "" {
		gin.SetMode(mode)
	}
	r := gin.New()
	r.Use(requestLogger(s.log), gin.Recovery())

	r.GET("/health", s.Health)

	protected := r.Group("/")
	protected.Use(auth.Middleware(s.verifier))

	protected.GET("/accounts", s.ListAccounts)
	protected.GET("/accounts/:id", s.GetAccount)
	protected.POST("/accounts", s.CreateAccount)
	protected.GET("/transactions", s.ListTransactions)
	protected.POST("/transactions", s.CreateTransaction)
	protected.GET("/invoices", s.ListInvoices)
	protected.POST("/invoices", s.CreateInvoice)
	protected.POST("/upload", s.Upload)

	return r
}

// Health reports liveness. Open: no session required.
func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"message":   "MuneemJee API is running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   ledger.Version,
	})
}

// respondError maps a service error to {"error": message} with the status
// the error kind dictates.
func (s *Server) respondError(c *gin.Context, err error) {
	status := ledger.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	}
}
