package store

import (
	"context"
	"errors"
	"time"
)

// TransactionType categorizes how a transaction affects an account balance.
type TransactionType string

const (
	// Income increases the referenced account's balance
	Income TransactionType = "INCOME"
	// Expense decreases the referenced account's balance
	Expense TransactionType = "EXPENSE"
)

// BalanceDelta returns the signed change a transaction of the given type and
// amount applies to an account balance. Types other than INCOME and EXPENSE
// leave the balance untouched; the transaction record is still stored.
func BalanceDelta(txType TransactionType, amount float64) float64 {
	switch txType {
	case Income:
		return amount
	case Expense:
		return -amount
	default:
		return 0
	}
}

// Account is a ledger bucket with a running balance, owned by one user.
// Balance is only ever mutated through LedgerStore.ApplyTransaction.
type Account struct {
	ID        string    `json:"id" dynamodbav:"ID"`
	UserID    string    `json:"userId" dynamodbav:"UserID"`
	Name      string    `json:"name" dynamodbav:"Name"`
	Type      string    `json:"type" dynamodbav:"Type"`
	Balance   float64   `json:"balance" dynamodbav:"Balance"`
	CreatedAt time.Time `json:"createdAt" dynamodbav:"CreatedAt"`
	UpdatedAt time.Time `json:"updatedAt" dynamodbav:"UpdatedAt"`
}

// Transaction is a single posted amount affecting one account's balance.
// Amount is always a positive magnitude; direction is encoded by Type.
type Transaction struct {
	ID          string          `json:"id" dynamodbav:"ID"`
	UserID      string          `json:"userId" dynamodbav:"UserID"`
	Amount      float64         `json:"amount" dynamodbav:"Amount"`
	Type        TransactionType `json:"type" dynamodbav:"Type"`
	AccountID   string          `json:"accountId" dynamodbav:"AccountID"`
	InvoiceID   string          `json:"invoiceId,omitempty" dynamodbav:"InvoiceID,omitempty"`
	Description string          `json:"description,omitempty" dynamodbav:"Description,omitempty"`
	Date        time.Time       `json:"date" dynamodbav:"Date"`
	CreatedAt   time.Time       `json:"createdAt" dynamodbav:"CreatedAt"`
	UpdatedAt   time.Time       `json:"updatedAt" dynamodbav:"UpdatedAt"`
}

// Invoice is a stored source document plus metadata, optionally referenced
// by a transaction later.
type Invoice struct {
	ID        string    `json:"id" dynamodbav:"ID"`
	UserID    string    `json:"userId" dynamodbav:"UserID"`
	FileName  string    `json:"fileName" dynamodbav:"FileName"`
	FileKey   string    `json:"fileKey" dynamodbav:"FileKey"`
	FileURL   string    `json:"fileUrl" dynamodbav:"FileURL"`
	Amount    float64   `json:"amount" dynamodbav:"Amount"`
	Vendor    string    `json:"vendor" dynamodbav:"Vendor"`
	Date      time.Time `json:"date" dynamodbav:"Date"`
	CreatedAt time.Time `json:"createdAt" dynamodbav:"CreatedAt"`
	UpdatedAt time.Time `json:"updatedAt" dynamodbav:"UpdatedAt"`
}

// ErrAccountNotFound is returned when an account does not exist under the
// requesting user.
var ErrAccountNotFound = errors.New("account not found")

// AccountStore persists accounts. Every operation is scoped to a user ID;
// lookups that don't match both keys behave as if the record doesn't exist.
type AccountStore interface {
	ListAccounts(ctx context.Context, userID string) ([]*Account, error)
	GetAccount(ctx context.Context, userID, accountID string) (*Account, error)
	CreateAccount(ctx context.Context, account *Account) error
}

// TransactionStore reads transaction records. Writes go through LedgerStore
// only, so a record can never land without its balance effect.
type TransactionStore interface {
	ListTransactions(ctx context.Context, userID string) ([]*Transaction, error)
}

// InvoiceStore persists invoice metadata.
type InvoiceStore interface {
	ListInvoices(ctx context.Context, userID string) ([]*Invoice, error)
	CreateInvoice(ctx context.Context, invoice *Invoice) error
}

// LedgerStore applies a transaction and its balance effect as one storage
// transaction: the account balance is adjusted by delta and the record
// inserted, or neither happens. Returns ErrAccountNotFound when the account
// does not exist under tx.UserID.
type LedgerStore interface {
	ApplyTransaction(ctx context.Context, delta float64, tx *Transaction) error
}

// Store bundles the collections the ledger service depends on.
type Store interface {
	AccountStore
	TransactionStore
	InvoiceStore
	LedgerStore
}
