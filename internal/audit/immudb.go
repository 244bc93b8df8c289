package audit

import (
	"context"
	"fmt"

	"github.com/codenotary/immudb/pkg/client"

	"github.com/muneemjee/ledger/pkg/store"
)

// Config holds the immudb connection settings for the audit trail.
type Config struct {
	Address  string
	Port     int
	Username string
	Password string
	Database string
}

// Trail is an immudb-backed Recorder. immudb is append-only, which is the
// point: entries cannot be rewritten after the fact.
type Trail struct {
	client client.ImmuClient
}

const trailTable = "ledger_audit"

// Open connects to immudb and ensures the audit table exists.
func Open(ctx context.Context, cfg Config) (*Trail, error) {
	opts := client.DefaultOptions().
		WithAddress(cfg.Address).
		WithPort(cfg.Port)

	c := client.NewClient().WithOptions(opts)
	if err := c.OpenSession(ctx, []byte(cfg.Username), []byte(cfg.Password), cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to connect to immudb: %w", err)
	}

	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s ("+
		"tx_id VARCHAR[36] NOT NULL, "+
		"user_id VARCHAR[64] NOT NULL, "+
		"account_id VARCHAR[36] NOT NULL, "+
		"tx_type VARCHAR[32] NOT NULL, "+
		"amount FLOAT NOT NULL, "+
		"delta FLOAT NOT NULL, "+
		"posted_at INTEGER NOT NULL, "+
		"PRIMARY KEY tx_id"+
		")", trailTable)

	if _, err := c.SQLExec(ctx, stmt, nil); err != nil {
		c.CloseSession(ctx)
		return nil, fmt.Errorf("failed to create audit table: %w", err)
	}

	return &Trail{client: c}, nil
}

// Record appends one entry for a posted transaction.
func (t *Trail) Record(ctx context.Context, tx *store.Transaction, delta float64) error {
	stmt := fmt.Sprintf(
		"INSERT INTO %s (tx_id, user_id, account_id, tx_type, amount, delta, posted_at) VALUES (@tx_id, @user_id, @account_id, @tx_type, @amount, @delta, @posted_at)",
		trailTable,
	)

	params := map[string]interface{}{
		"tx_id":      tx.ID,
		"user_id":    tx.UserID,
		"account_id": tx.AccountID,
		"tx_type":    string(tx.Type),
		"amount":     tx.Amount,
		"delta":      delta,
		"posted_at":  tx.CreatedAt.Unix(),
	}

	if _, err := t.client.SQLExec(ctx, stmt, params); err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// Close ends the immudb session.
func (t *Trail) Close() error {
	return t.client.CloseSession(context.Background())
}
