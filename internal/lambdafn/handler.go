// Package lambdafn is the serverless surface: API-Gateway-proxy handlers
// over the same ledger service the HTTP server uses.
package lambdafn

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog"

	"github.com/muneemjee/ledger/internal/auth"
	"github.com/muneemjee/ledger/internal/ledger"
	"github.com/muneemjee/ledger/pkg/store"
)

// Service is the slice of the ledger core the Lambda surface needs.
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

var errNoFile = errors.New("no file provided")

// Handler bundles the per-function entry points.
type Handler struct {
	svc      Service
	verifier *auth.Verifier
	log      zerolog.Logger
}

// NewHandler creates the Lambda surface over the given service.
func NewHandler(svc Service, verifier *auth.Verifier, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, verifier: verifier, log: log}
}

// Health serves GET /health. Open: no session required.
func (h *Handler) Health(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return respond(http.StatusOK, map[string]string{
		"status":    "ok",
		"message":   "MuneemJee API is running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   ledger.Version,
	})
}

// Transactions serves GET and POST /transactions.
func (h *Handler) Transactions(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID, resp, ok := h.authenticate(req)
	if !ok {
		return resp, nil
	}

	switch req.HTTPMethod {
	case http.MethodGet:
		transactions, err := h.svc.ListTransactions(ctx, userID)
		if err != nil {
			return h.respondError(err)
		}
		return respond(http.StatusOK, transactions)
	case http.MethodPost:
		var body ledger.RecordTransactionRequest
		if err := decodeBody(req, &body); err != nil {
			return respondMessage(http.StatusBadRequest, "Invalid request body")
		}
		tx, err := h.svc.RecordTransaction(ctx, userID, body)
		if err != nil {
			return h.respondError(err)
		}
		return respond(http.StatusCreated, tx)
	default:
		return respondMessage(http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// Accounts serves GET and POST /accounts, and GET /accounts/{id} when the
// route carries an id path parameter.
func (h *Handler) Accounts(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID, resp, ok := h.authenticate(req)
	if !ok {
		return resp, nil
	}

	switch req.HTTPMethod {
	case http.MethodGet:
		if id := req.PathParameters["id"]; id != "" {
			account, err := h.svc.GetAccount(ctx, userID, id)
			if err != nil {
				return h.respondError(err)
			}
			return respond(http.StatusOK, account)
		}
		accounts, err := h.svc.ListAccounts(ctx, userID)
		if err != nil {
			return h.respondError(err)
		}
		return respond(http.StatusOK, accounts)
	case http.MethodPost:
		var body ledger.CreateAccountRequest
		if err := decodeBody(req, &body); err != nil {
			return respondMessage(http.StatusBadRequest, "Invalid request body")
		}
		account, err := h.svc.CreateAccount(ctx, userID, body)
		if err != nil {
			return h.respondError(err)
		}
		return respond(http.StatusCreated, account)
	default:
		return respondMessage(http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// Invoices serves GET and POST /invoices.
func (h *Handler) Invoices(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID, resp, ok := h.authenticate(req)
	if !ok {
		return resp, nil
	}

	switch req.HTTPMethod {
	case http.MethodGet:
		invoices, err := h.svc.ListInvoices(ctx, userID)
		if err != nil {
			return h.respondError(err)
		}
		return respond(http.StatusOK, invoices)
	case http.MethodPost:
		var body ledger.CreateInvoiceRequest
		if err := decodeBody(req, &body); err != nil {
			return respondMessage(http.StatusBadRequest, "Invalid request body")
		}
		invoice, err := h.svc.CreateInvoice(ctx, userID, body)
		if err != nil {
			return h.respondError(err)
		}
		return respond(http.StatusCreated, invoice)
	default:
		return respondMessage(http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// Upload serves POST /upload. The request is a multipart form with a "file"
// field; API Gateway delivers it base64-encoded in binary mode.
func (h *Handler) Upload(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID, resp, ok := h.authenticate(req)
	if !ok {
		return resp, nil
	}
	if req.HTTPMethod != http.MethodPost {
		return respondMessage(http.StatusMethodNotAllowed, "Method not allowed")
	}

	fileName, contentType, file, err := extractFile(req)
	if err != nil {
		return respondMessage(http.StatusBadRequest, "No file provided")
	}

	upload, err := h.svc.UploadFile(ctx, userID, fileName, contentType, file)
	if err != nil {
		return h.respondError(err)
	}
	return respond(http.StatusOK, upload)
}

func (h *Handler) authenticate(req events.APIGatewayProxyRequest) (string, events.APIGatewayProxyResponse, bool) {
	header := req.Headers["Authorization"]
	if header == "" {
		header = req.Headers["authorization"]
	}
	claims, err := h.verifier.FromAuthorizationHeader(header)
	if err != nil {
		resp, _ := respondMessage(http.StatusUnauthorized, "Unauthorized")
		return "", resp, false
	}
	return claims.UserID, events.APIGatewayProxyResponse{}, true
}

func (h *Handler) respondError(err error) (events.APIGatewayProxyResponse, error) {
	status := ledger.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("request failed")
	}
	return respondMessage(status, err.Error())
}

func respond(status int, body any) (events.APIGatewayProxyResponse, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Headers:    map[string]string{"Content-Type": "application/json"},
			Body:       `{"error":"failed to encode response"}`,
		}, nil
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(data),
	}, nil
}

func respondMessage(status int, message string) (events.APIGatewayProxyResponse, error) {
	return respond(status, map[string]string{"error": message})
}

func decodeBody(req events.APIGatewayProxyRequest, out any) error {
	body := []byte(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			return err
		}
		body = decoded
	}
	return json.Unmarshal(body, out)
}

// extractFile pulls the "file" part out of a multipart request body.
func extractFile(req events.APIGatewayProxyRequest) (fileName, contentType string, file io.Reader, err error) {
	header := req.Headers["Content-Type"]
	if header == "" {
		header = req.Headers["content-type"]
	}

	mediaType, params, err := mime.ParseMediaType(header)
	if err != nil || mediaType != "multipart/form-data" {
		return "", "", nil, errNoFile
	}

	body := []byte(req.Body)
	if req.IsBase64Encoded {
		body, err = base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			return "", "", nil, err
		}
	}

	reader := multipart.NewReader(bytes.NewReader(body), params["boundary"])
	for {
		part, err := reader.NextPart()
		if err != nil {
			return "", "", nil, errNoFile
		}
		if part.FormName() == "file" {
			return part.FileName(), part.Header.Get("Content-Type"), part, nil
		}
	}
}
