package postgres

import (
	"context"
	"time"

	"finsync/internal/domain/account"
	"finsync/internal/domain/balance"
	"finsync/internal/domain/simplefin"
	"finsync/internal/domain/transaction"
)

// SyncStore adapts the repositories to the sync engine's transactional
// store contract. Each WithTx call rebinds the repositories onto one
// database transaction so every write of a pass commits or rolls back
// together.
type SyncStore struct {
	db *DB
}

func NewSyncStore(db *DB) *SyncStore {
	return &SyncStore{db: db}
}

var _ simplefin.Store = (*SyncStore)(nil)

func (s *SyncStore) WithTx(ctx context.Context, fn func(tx simplefin.TxStore) error) error {
	return s.db.WithTx(ctx, func(tx *Tx) error {
		return fn(&syncTx{
			accounts:     NewAccountRepository(tx),
			transactions: NewTransactionRepository(tx),
			balances:     NewBalanceRepository(tx),
		})
	})
}

type syncTx struct {
	accounts     *AccountRepository
	transactions *TransactionRepository
	balances     *BalanceRepository
}

func (t *syncTx) GetAccountBySimplefinID(ctx context.Context, simplefinID string) (*account.Account, error) {
	return t.accounts.GetBySimplefinID(ctx, simplefinID)
}

func (t *syncTx) CreateAccount(ctx context.Context, a *account.Account) error {
	return t.accounts.Create(ctx, a)
}

func (t *syncTx) UpdateSyncedAccount(ctx context.Context, a *account.Account) error {
	return t.accounts.UpdateSynced(ctx, a)
}

func (t *syncTx) LatestBalanceSince(ctx context.Context, accountID string, cutoff time.Time) (*float64, error) {
	return t.balances.LatestSince(ctx, accountID, cutoff)
}

func (t *syncTx) CreateBalanceRecord(ctx context.Context, r *balance.Record) error {
	return t.balances.Create(ctx, r)
}

func (t *syncTx) TransactionExistsBySimplefinID(ctx context.Context, simplefinID string) (bool, error) {
	return t.transactions.ExistsBySimplefinID(ctx, simplefinID)
}

func (t *syncTx) CreateTransaction(ctx context.Context, tr *transaction.Transaction) error {
	return t.transactions.Create(ctx, tr)
}
