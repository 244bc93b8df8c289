// Package ledger implements the accounting core shared by every request
// surface: recording transactions with their balance effect, plus the
// account and invoice operations around them.
package ledger

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/muneemjee/ledger/internal/audit"
	"github.com/muneemjee/ledger/pkg/objectstore"
	"github.com/muneemjee/ledger/pkg/store"
)

var validate = validator.New()

// DefaultVendor is recorded on invoices created without a vendor.
const DefaultVendor = "Unknown"

// Version is reported by the health endpoint of every request surface.
const Version = "1.0.0"

// Service is the shared accounting core. Construct one per process and hand
// it to whichever request surface is in use.
type Service struct {
	store  store.Store
	files  objectstore.ObjectStore
	audit  audit.Recorder
	log    zerolog.Logger
	urlTTL time.Duration
}

// New wires the service to its collaborators. audit may be audit.Nop{}.
func New(st store.Store, files objectstore.ObjectStore, trail audit.Recorder, log zerolog.Logger, urlTTL time.Duration) *Service {
	if trail == nil {
		trail = audit.Nop{}
	}
	if urlTTL <= 0 {
		urlTTL = objectstore.DefaultURLTTL
	}
	return &Service{store: st, files: files, audit: trail, log: log, urlTTL: urlTTL}
}

// RecordTransactionRequest is the payload for posting a transaction.
type RecordTransactionRequest struct {
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	Type        string  `json:"type" validate:"required"`
	AccountID   string  `json:"accountId" validate:"required"`
	Date        string  `json:"date" validate:"required"`
	InvoiceID   string  `json:"invoiceId,omitempty"`
	Description string  `json:"description,omitempty"`
}

// RecordTransaction validates the request, atomically adjusts the referenced
// account's balance and inserts the transaction record, then returns the
// created record. The account lookup is keyed by both the account ID and the
// owning user, so an account under a different owner reads as absent.
func (s *Service) RecordTransaction(ctx context.Context, userID string, req RecordTransactionRequest) (*store.Transaction, error) {
	if err := validate.Struct(req); err != nil {
		return nil, Validationf("missing required fields")
	}

	date, err := parseDate(req.Date)
	if err != nil {
		return nil, Validationf("invalid date")
	}

	if req.InvoiceID != "" {
		if _, err := uuid.Parse(req.InvoiceID); err != nil {
			return nil, Validationf("invalid invoice ID")
		}
	}

	now := time.Now().UTC()
	tx := &store.Transaction{
		ID:          uuid.New().String(),
		UserID:      userID,
		Amount:      req.Amount,
		Type:        store.TransactionType(req.Type),
		AccountID:   req.AccountID,
		InvoiceID:   req.InvoiceID,
		Description: req.Description,
		Date:        date,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	delta := store.BalanceDelta(tx.Type, tx.Amount)
	if err := s.store.ApplyTransaction(ctx, delta, tx); err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return nil, NotFoundf("account not found")
		}
		return nil, Dependencyf(err, "failed to record transaction: %v", err)
	}

	if err := s.audit.Record(ctx, tx, delta); err != nil {
		s.log.Warn().Err(err).Str("transactionId", tx.ID).Msg("audit append failed")
	}

	return tx, nil
}

// ListTransactions returns the caller's transactions, newest first.
func (s *Service) ListTransactions(ctx context.Context, userID string) ([]*store.Transaction, error) {
	transactions, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return nil, Dependencyf(err, "failed to list transactions: %v", err)
	}
	return transactions, nil
}

// CreateAccountRequest is the payload for opening an account.
type CreateAccountRequest struct {
	Name    string  `json:"name" validate:"required"`
	Type    string  `json:"type" validate:"required"`
	Balance float64 `json:"balance,omitempty"`
}

// CreateAccount opens a new account for the caller. The opening balance
// defaults to zero.
func (s *Service) CreateAccount(ctx context.Context, userID string, req CreateAccountRequest) (*store.Account, error) {
	if err := validate.Struct(req); err != nil {
		return nil, Validationf("missing required fields")
	}

	now := time.Now().UTC()
	account := &store.Account{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      req.Name,
		Type:      req.Type,
		Balance:   req.Balance,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.CreateAccount(ctx, account); err != nil {
		return nil, Dependencyf(err, "failed to create account: %v", err)
	}
	return account, nil
}

// ListAccounts returns the caller's accounts, sorted by name.
func (s *Service) ListAccounts(ctx context.Context, userID string) ([]*store.Account, error) {
	accounts, err := s.store.ListAccounts(ctx, userID)
	if err != nil {
		return nil, Dependencyf(err, "failed to list accounts: %v", err)
	}
	return accounts, nil
}

// GetAccount returns one of the caller's accounts. An account owned by a
// different user reads as absent.
func (s *Service) GetAccount(ctx context.Context, userID, accountID string) (*store.Account, error) {
	account, err := s.store.GetAccount(ctx, userID, accountID)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return nil, NotFoundf("account not found")
		}
		return nil, Dependencyf(err, "failed to load account: %v", err)
	}
	return account, nil
}

// CreateInvoiceRequest is the payload for registering an uploaded invoice.
type CreateInvoiceRequest struct {
	FileName string  `json:"fileName" validate:"required"`
	FileKey  string  `json:"fileKey" validate:"required"`
	FileURL  string  `json:"fileUrl" validate:"required"`
	Amount   float64 `json:"amount" validate:"required,gt=0"`
	Date     string  `json:"date" validate:"required"`
	Vendor   string  `json:"vendor,omitempty"`
}

// CreateInvoice registers metadata for an already-uploaded invoice file.
func (s *Service) CreateInvoice(ctx context.Context, userID string, req CreateInvoiceRequest) (*store.Invoice, error) {
	if err := validate.Struct(req); err != nil {
		return nil, Validationf("missing required fields")
	}

	date, err := parseDate(req.Date)
	if err != nil {
		return nil, Validationf("invalid date")
	}

	vendor := req.Vendor
	if vendor == "" {
		vendor = DefaultVendor
	}

	now := time.Now().UTC()
	invoice := &store.Invoice{
		ID:        uuid.New().String(),
		UserID:    userID,
		FileName:  req.FileName,
		FileKey:   req.FileKey,
		FileURL:   req.FileURL,
		Amount:    req.Amount,
		Vendor:    vendor,
		Date:      date,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.CreateInvoice(ctx, invoice); err != nil {
		return nil, Dependencyf(err, "failed to create invoice: %v", err)
	}
	return invoice, nil
}

// ListInvoices returns the caller's invoices, newest first.
func (s *Service) ListInvoices(ctx context.Context, userID string) ([]*store.Invoice, error) {
	invoices, err := s.store.ListInvoices(ctx, userID)
	if err != nil {
		return nil, Dependencyf(err, "failed to list invoices: %v", err)
	}
	return invoices, nil
}

// Upload stores an invoice file in the object store under a tenant-scoped
// key and returns the key with a signed URL for immediate access.
type Upload struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// UploadFile streams a file into the object store and returns its key and a
// signed download URL.
func (s *Service) UploadFile(ctx context.Context, userID, fileName, contentType string, body io.Reader) (*Upload, error) {
	if fileName == "" {
		return nil, Validationf("no file provided")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := objectstore.GenerateKey(fileName, userID)
	metadata := map[string]string{
		"originalName": fileName,
		"uploadedBy":   userID,
		"uploadedAt":   time.Now().UTC().Format(time.RFC3339),
	}

	if err := s.files.Put(ctx, key, body, contentType, metadata); err != nil {
		return nil, Dependencyf(err, "failed to upload file: %v", err)
	}

	url, err := s.files.SignedURL(ctx, key, s.urlTTL)
	if err != nil {
		return nil, Dependencyf(err, "failed to generate signed URL: %v", err)
	}

	return &Upload{Key: key, URL: url}, nil
}

// parseDate accepts bare dates and RFC 3339 timestamps.
func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}
