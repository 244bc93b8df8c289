// Package audit keeps an append-only trail of posted transactions in immudb.
// The trail is best-effort: the recorder logs and drops entries it cannot
// persist rather than failing the request that produced them.
package audit

import (
	"context"

	"github.com/muneemjee/ledger/pkg/store"
)

// Recorder appends posted transactions to the audit trail.
type Recorder interface {
	Record(ctx context.Context, tx *store.Transaction, delta float64) error
	Close() error
}

// Nop is the recorder used when no audit backend is configured.
type Nop struct{}

func (Nop) Record(context.Context, *store.Transaction, float64) error { return nil }
func (Nop) Close() error                                              { return nil }
