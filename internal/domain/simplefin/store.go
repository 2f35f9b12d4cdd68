package simplefin

import (
	"context"
	"time"

	"finsync/internal/domain/account"
	"finsync/internal/domain/balance"
	"finsync/internal/domain/transaction"
)

// Store provides the transactional storage boundary for one sync pass.
// Everything executed inside WithTx commits atomically or rolls back as a
// whole; a mid-pass failure leaves no partial writes behind.
type Store interface {
	WithTx(ctx context.Context, fn func(tx TxStore) error) error
}

// TxStore is the slice of storage the engine uses inside a pass, scoped to
// one database transaction.
type TxStore interface {
	// GetAccountBySimplefinID returns (nil, nil) when no account holds the
	// given external identifier.
	GetAccountBySimplefinID(ctx context.Context, simplefinID string) (*account.Account, error)
	CreateAccount(ctx context.Context, a *account.Account) error
	UpdateSyncedAccount(ctx context.Context, a *account.Account) error

	// LatestBalanceSince returns the most recent balance sample for the
	// account taken at or after the cutoff, or (nil, nil) when none exists.
	LatestBalanceSince(ctx context.Context, accountID string, cutoff time.Time) (*float64, error)
	CreateBalanceRecord(ctx context.Context, r *balance.Record) error

	TransactionExistsBySimplefinID(ctx context.Context, simplefinID string) (bool, error)
	CreateTransaction(ctx context.Context, t *transaction.Transaction) error
}
