package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/muneemjee/ledger/pkg/store"
)

// ---- in-memory store fake ----

// memStore mirrors the DynamoDB store's semantics: every collection is keyed
// by (userID, id), and ApplyTransaction atomically adjusts the balance and
// inserts the record, or does neither.
type memStore struct {
	accounts     map[string]*store.Account
	transactions map[string]*store.Transaction
	invoices     map[string]*store.Invoice
	applyCalls   int
	failApply    error
}

func newMemStore() *memStore {
	return &memStore{
		accounts:     make(map[string]*store.Account),
		transactions: make(map[string]*store.Transaction),
		invoices:     make(map[string]*store.Invoice),
	}
}

func key(userID, id string) string { return userID + "/" + id }

func (m *memStore) ListAccounts(_ context.Context, userID string) ([]*store.Account, error) {
	var out []*store.Account
	for k, a := range m.accounts {
		if strings.HasPrefix(k, userID+"/") {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) GetAccount(_ context.Context, userID, accountID string) (*store.Account, error) {
	a, ok := m.accounts[key(userID, accountID)]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	return a, nil
}

func (m *memStore) CreateAccount(_ context.Context, a *store.Account) error {
	m.accounts[key(a.UserID, a.ID)] = a
	return nil
}

func (m *memStore) ListTransactions(_ context.Context, userID string) ([]*store.Transaction, error) {
	var out []*store.Transaction
	for k, tx := range m.transactions {
		if strings.HasPrefix(k, userID+"/") {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (m *memStore) ListInvoices(_ context.Context, userID string) ([]*store.Invoice, error) {
	var out []*store.Invoice
	for k, inv := range m.invoices {
		if strings.HasPrefix(k, userID+"/") {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (m *memStore) CreateInvoice(_ context.Context, inv *store.Invoice) error {
	m.invoices[key(inv.UserID, inv.ID)] = inv
	return nil
}

func (m *memStore) ApplyTransaction(_ context.Context, delta float64, tx *store.Transaction) error {
	m.applyCalls++
	if m.failApply != nil {
		return m.failApply
	}
	account, ok := m.accounts[key(tx.UserID, tx.AccountID)]
	if !ok {
		return store.ErrAccountNotFound
	}
	account.Balance += delta
	m.transactions[key(tx.UserID, tx.ID)] = tx
	return nil
}

// ---- helpers ----

func newTestService(st store.Store) *Service {
	return New(st, nil, nil, zerolog.Nop(), 0)
}

func seedAccount(m *memStore, userID, id string, balance float64) {
	m.accounts[key(userID, id)] = &store.Account{
		ID:      id,
		UserID:  userID,
		Name:    "Cash",
		Type:    "asset",
		Balance: balance,
	}
}

const (
	userA = "user-a"
	userB = "user-b"
)

// ---- tests ----

func TestRecordTransactionBalances(t *testing.T) {
	m := newMemStore()
	seedAccount(m, userA, "acct-1", 100)
	svc := newTestService(m)

	// EXPENSE of 30 against balance 100 leaves 70.
	tx, err := svc.RecordTransaction(context.Background(), userA, RecordTransactionRequest{
		Amount: 30, Type: "EXPENSE", AccountID: "acct-1", Date: "2024-01-01",
	})
	if err != nil {
		t.Fatalf("RecordTransaction failed: %v", err)
	}
	if tx.ID == "" {
		t.Error("expected an assigned transaction ID")
	}
	if tx.Amount != 30 || tx.Type != store.Expense {
		t.Errorf("got amount=%v type=%s, want 30 EXPENSE", tx.Amount, tx.Type)
	}
	if got := m.accounts[key(userA, "acct-1")].Balance; got != 70 {
		t.Errorf("balance after expense = %v, want 70", got)
	}

	// INCOME of 50 against balance 70 leaves 120.
	_, err = svc.RecordTransaction(context.Background(), userA, RecordTransactionRequest{
		Amount: 50, Type: "INCOME", AccountID: "acct-1", Date: "2024-01-02",
	})
	if err != nil {
		t.Fatalf("RecordTransaction failed: %v", err)
	}
	if got := m.accounts[key(userA, "acct-1")].Balance; got != 120 {
		t.Errorf("balance after income = %v, want 120", got)
	}
}

func TestRecordTransactionUnknownTypeLeavesBalance(t *testing.T) {
	m := newMemStore()
	seedAccount(m, userA, "acct-1", 100)
	svc := newTestService(m)

	tx, err := svc.RecordTransaction(context.Background(), userA, RecordTransactionRequest{
		Amount: 40, Type: "TRANSFER", AccountID: "acct-1", Date: "2024-01-01",
	})
	if err != nil {
		t.Fatalf("RecordTransaction failed: %v", err)
	}
	if got := m.accounts[key(userA, "acct-1")].Balance; got != 100 {
		t.Errorf("balance = %v, want unchanged 100", got)
	}
	if tx.Type != "TRANSFER" {
		t.Errorf("stored type = %s, want TRANSFER preserved", tx.Type)
	}
	if _, ok := m.transactions[key(userA, tx.ID)]; !ok {
		t.Error("transaction record should still be inserted")
	}
}

func TestRecordTransactionValidation(t *testing.T) {
	tests := []struct {
		name string
		req  RecordTransactionRequest
	}{
		{"missing amount", RecordTransactionRequest{Type: "EXPENSE", AccountID: "acct-1", Date: "2024-01-01"}},
		{"missing type", RecordTransactionRequest{Amount: 10, AccountID: "acct-1", Date: "2024-01-01"}},
		{"missing account", RecordTransactionRequest{Amount: 10, Type: "EXPENSE", Date: "2024-01-01"}},
		{"missing date", RecordTransactionRequest{Amount: 10, Type: "EXPENSE", AccountID: "acct-1"}},
		{"negative amount", RecordTransactionRequest{Amount: -5, Type: "EXPENSE", AccountID: "acct-1", Date: "2024-01-01"}},
		{"malformed date", RecordTransactionRequest{Amount: 10, Type: "EXPENSE", AccountID: "acct-1", Date: "not-a-date"}},
		{"malformed invoice id", RecordTransactionRequest{Amount: 10, Type: "EXPENSE", AccountID: "acct-1", Date: "2024-01-01", InvoiceID: "nope"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMemStore()
			seedAccount(m, userA, "acct-1", 100)
			svc := newTestService(m)

			_, err := svc.RecordTransaction(context.Background(), userA, tt.req)
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if KindOf(err) != KindValidation {
				t.Errorf("error kind = %v, want KindValidation", KindOf(err))
			}
			if m.applyCalls != 0 {
				t.Error("store must not be touched on validation failure")
			}
			if got := m.accounts[key(userA, "acct-1")].Balance; got != 100 {
				t.Errorf("balance = %v, want untouched 100", got)
			}
			if len(m.transactions) != 0 {
				t.Error("no transaction record should be inserted")
			}
		})
	}
}

func TestRecordTransactionTenantIsolation(t *testing.T) {
	m := newMemStore()
	seedAccount(m, userB, "acct-1", 500) // exists, but owned by someone else
	svc := newTestService(m)

	_, err := svc.RecordTransaction(context.Background(), userA, RecordTransactionRequest{
		Amount: 10, Type: "EXPENSE", AccountID: "acct-1", Date: "2024-01-01",
	})
	if err == nil {
		t.Fatal("expected a not-found error")
	}
	if KindOf(err) != KindNotFound {
		t.Errorf("error kind = %v, want KindNotFound", KindOf(err))
	}
	if got := m.accounts[key(userB, "acct-1")].Balance; got != 500 {
		t.Errorf("other tenant's balance = %v, want untouched 500", got)
	}
	if len(m.transactions) != 0 {
		t.Error("no transaction record should be inserted")
	}
}

func TestRecordTransactionDependencyFailure(t *testing.T) {
	m := newMemStore()
	seedAccount(m, userA, "acct-1", 100)
	m.failApply = errors.New("connection reset")
	svc := newTestService(m)

	_, err := svc.RecordTransaction(context.Background(), userA, RecordTransactionRequest{
		Amount: 10, Type: "EXPENSE", AccountID: "acct-1", Date: "2024-01-01",
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	if KindOf(err) != KindDependency {
		t.Errorf("error kind = %v, want KindDependency", KindOf(err))
	}
	if !strings.Contains(err.Error(), "connection reset") {
		t.Errorf("dependency message %q should pass the cause through", err)
	}
}

func TestRecordTransactionAcceptsRFC3339Dates(t *testing.T) {
	m := newMemStore()
	seedAccount(m, userA, "acct-1", 0)
	svc := newTestService(m)

	tx, err := svc.RecordTransaction(context.Background(), userA, RecordTransactionRequest{
		Amount: 10, Type: "INCOME", AccountID: "acct-1", Date: "2024-03-05T10:30:00Z",
	})
	if err != nil {
		t.Fatalf("RecordTransaction failed: %v", err)
	}
	want := time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC)
	if !tx.Date.Equal(want) {
		t.Errorf("parsed date = %v, want %v", tx.Date, want)
	}
}

func TestListTenantIsolation(t *testing.T) {
	m := newMemStore()
	seedAccount(m, userA, "acct-1", 0)
	seedAccount(m, userB, "acct-2", 0)
	svc := newTestService(m)

	for i, user := range []string{userA, userA, userB} {
		acct := "acct-1"
		if user == userB {
			acct = "acct-2"
		}
		_, err := svc.RecordTransaction(context.Background(), user, RecordTransactionRequest{
			Amount: float64(i + 1), Type: "INCOME", AccountID: acct, Date: "2024-01-01",
		})
		if err != nil {
			t.Fatalf("seed transaction failed: %v", err)
		}
	}

	txs, err := svc.ListTransactions(context.Background(), userA)
	if err != nil {
		t.Fatalf("ListTransactions failed: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("user A sees %d transactions, want 2", len(txs))
	}
	for _, tx := range txs {
		if tx.UserID != userA {
			t.Errorf("user A's listing leaked a record owned by %s", tx.UserID)
		}
	}

	accounts, err := svc.ListAccounts(context.Background(), userB)
	if err != nil {
		t.Fatalf("ListAccounts failed: %v", err)
	}
	if len(accounts) != 1 || accounts[0].ID != "acct-2" {
		t.Errorf("user B accounts = %v, want only acct-2", accounts)
	}
}

func TestCreateAccountDefaults(t *testing.T) {
	m := newMemStore()
	svc := newTestService(m)

	account, err := svc.CreateAccount(context.Background(), userA, CreateAccountRequest{
		Name: "Savings", Type: "asset",
	})
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	if account.Balance != 0 {
		t.Errorf("opening balance = %v, want 0", account.Balance)
	}
	if account.UserID != userA {
		t.Errorf("owner = %s, want %s", account.UserID, userA)
	}

	if _, err := svc.CreateAccount(context.Background(), userA, CreateAccountRequest{Name: "NoType"}); err == nil {
		t.Error("expected validation error for missing type")
	}
}

func TestGetAccount(t *testing.T) {
	m := newMemStore()
	seedAccount(m, userA, "acct-1", 42)
	svc := newTestService(m)

	account, err := svc.GetAccount(context.Background(), userA, "acct-1")
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if account.Balance != 42 {
		t.Errorf("balance = %v, want 42", account.Balance)
	}

	_, err = svc.GetAccount(context.Background(), userA, "missing")
	if KindOf(err) != KindNotFound {
		t.Errorf("missing account: kind = %v, want not found", KindOf(err))
	}

	// Someone else's account reads as absent, not as forbidden.
	_, err = svc.GetAccount(context.Background(), userB, "acct-1")
	if KindOf(err) != KindNotFound {
		t.Errorf("foreign account: kind = %v, want not found", KindOf(err))
	}
}

func TestCreateInvoiceDefaultsVendor(t *testing.T) {
	m := newMemStore()
	svc := newTestService(m)

	invoice, err := svc.CreateInvoice(context.Background(), userA, CreateInvoiceRequest{
		FileName: "jan.pdf", FileKey: "users/user-a/1-x.pdf", FileURL: "https://example.com/jan.pdf",
		Amount: 42.50, Date: "2024-01-31",
	})
	if err != nil {
		t.Fatalf("CreateInvoice failed: %v", err)
	}
	if invoice.Vendor != DefaultVendor {
		t.Errorf("vendor = %q, want %q", invoice.Vendor, DefaultVendor)
	}

	_, err = svc.CreateInvoice(context.Background(), userA, CreateInvoiceRequest{FileName: "jan.pdf"})
	if err == nil || KindOf(err) != KindValidation {
		t.Errorf("expected validation error, got %v", err)
	}
}

// ---- object store fake for upload tests ----

type memObjectStore struct {
	objects map[string][]byte
	meta    map[string]map[string]string
	failPut error
}

func newMemObjectStore() *memObjectStore {
	return &memObjectStore{objects: make(map[string][]byte), meta: make(map[string]map[string]string)}
}

func (m *memObjectStore) Put(_ context.Context, objKey string, body io.Reader, contentType string, metadata map[string]string) error {
	if m.failPut != nil {
		return m.failPut
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.objects[objKey] = data
	m.meta[objKey] = metadata
	return nil
}

func (m *memObjectStore) SignedURL(_ context.Context, objKey string, _ time.Duration) (string, error) {
	if _, ok := m.objects[objKey]; !ok {
		return "", fmt.Errorf("no such object: %s", objKey)
	}
	return "https://files.example.com/" + objKey + "?signed", nil
}

func (m *memObjectStore) Delete(_ context.Context, objKey string) error {
	delete(m.objects, objKey)
	return nil
}

func TestUploadFile(t *testing.T) {
	files := newMemObjectStore()
	svc := New(newMemStore(), files, nil, zerolog.Nop(), 0)

	up, err := svc.UploadFile(context.Background(), userA, "receipt.pdf", "application/pdf", strings.NewReader("%PDF-1.4"))
	if err != nil {
		t.Fatalf("UploadFile failed: %v", err)
	}
	if !strings.HasPrefix(up.Key, "users/"+userA+"/") {
		t.Errorf("key = %q, want users/%s/ prefix", up.Key, userA)
	}
	if !strings.HasSuffix(up.Key, ".pdf") {
		t.Errorf("key = %q, want original extension preserved", up.Key)
	}
	if up.URL == "" {
		t.Error("expected a signed URL")
	}
	if got := string(files.objects[up.Key]); got != "%PDF-1.4" {
		t.Errorf("stored body = %q", got)
	}
	if files.meta[up.Key]["uploadedBy"] != userA {
		t.Errorf("metadata uploadedBy = %q, want %q", files.meta[up.Key]["uploadedBy"], userA)
	}
	if files.meta[up.Key]["originalName"] != "receipt.pdf" {
		t.Errorf("metadata originalName = %q", files.meta[up.Key]["originalName"])
	}
}

func TestUploadFileErrors(t *testing.T) {
	files := newMemObjectStore()
	svc := New(newMemStore(), files, nil, zerolog.Nop(), 0)

	if _, err := svc.UploadFile(context.Background(), userA, "", "", strings.NewReader("")); err == nil || KindOf(err) != KindValidation {
		t.Errorf("missing file name: got %v, want validation error", err)
	}

	files.failPut = errors.New("bucket unavailable")
	_, err := svc.UploadFile(context.Background(), userA, "a.png", "image/png", strings.NewReader("x"))
	if err == nil || KindOf(err) != KindDependency {
		t.Errorf("put failure: got %v, want dependency error", err)
	}
}

// ---- audit fake ----

type memAudit struct {
	entries []string
	fail    error
}

func (a *memAudit) Record(_ context.Context, tx *store.Transaction, _ float64) error {
	if a.fail != nil {
		return a.fail
	}
	a.entries = append(a.entries, tx.ID)
	return nil
}

func (a *memAudit) Close() error { return nil }

func TestRecordTransactionAuditIsBestEffort(t *testing.T) {
	m := newMemStore()
	seedAccount(m, userA, "acct-1", 100)
	trail := &memAudit{fail: errors.New("immudb down")}
	svc := New(m, nil, trail, zerolog.Nop(), 0)

	_, err := svc.RecordTransaction(context.Background(), userA, RecordTransactionRequest{
		Amount: 30, Type: "EXPENSE", AccountID: "acct-1", Date: "2024-01-01",
	})
	if err != nil {
		t.Fatalf("audit failure must not fail the request: %v", err)
	}
	if got := m.accounts[key(userA, "acct-1")].Balance; got != 70 {
		t.Errorf("balance = %v, want 70", got)
	}

	trail.fail = nil
	if _, err := svc.RecordTransaction(context.Background(), userA, RecordTransactionRequest{
		Amount: 5, Type: "INCOME", AccountID: "acct-1", Date: "2024-01-02",
	}); err != nil {
		t.Fatalf("RecordTransaction failed: %v", err)
	}
	if len(trail.entries) != 1 {
		t.Errorf("audit entries = %d, want 1", len(trail.entries))
	}
}
