// Package simplefin provides the domain service that reconciles SimpleFIN
// snapshots into local storage.
package simplefin

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"finsync/internal/domain/account"
	"finsync/internal/domain/balance"
	"finsync/internal/domain/transaction"
	sfclient "finsync/internal/infrastructure/simplefin"
)

// Balance history throttling: a new sample is recorded only when no sample
// exists inside the window, or the latest one differs by at least the
// tolerance.
const (
	balanceHistoryWindow   = time.Hour
	balanceChangeTolerance = 0.01
)

// Stats summarizes the actions taken by one sync pass.
type Stats struct {
	AccountsUpdated       int   `json:"accounts_updated"`
	AccountsCreated       int   `json:"accounts_created"`
	TransactionsCreated   int   `json:"transactions_created"`
	BalanceRecordsCreated int   `json:"balance_records_created"`
	SyncDurationMS        int64 `json:"sync_duration_ms"`
}

// SyncService merges remote SimpleFIN snapshots into local storage. One
// pass fetches the snapshot, then performs all writes inside a single
// storage transaction.
type SyncService struct {
	client sfclient.ClientInterface
	store  Store

	// Serializes passes: a manual trigger arriving while a scheduled pass
	// runs waits for it instead of racing it.
	mu sync.Mutex
}

// NewSyncService creates a new sync service.
func NewSyncService(client sfclient.ClientInterface, store Store) *SyncService {
	return &SyncService{
		client: client,
		store:  store,
	}
}

// SyncAll runs one complete reconciliation pass and returns its summary.
// The fetch happens before any storage transaction opens, so a fetch
// failure leaves storage untouched; a storage failure rolls the whole pass
// back.
func (s *SyncService) SyncAll(ctx context.Context) (*Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	stats := &Stats{}

	log.Println("Starting SimpleFin sync...")

	accountSet, err := s.client.FetchAccounts(ctx)
	if err != nil {
		return nil, err
	}

	log.Printf("Fetched %d accounts from SimpleFin", len(accountSet.Accounts))

	err = s.store.WithTx(ctx, func(tx TxStore) error {
		for i := range accountSet.Accounts {
			sfAccount := &accountSet.Accounts[i]

			created, localAccount, err := s.upsertAccount(ctx, tx, sfAccount)
			if err != nil {
				return fmt.Errorf("failed to sync account %s: %w", sfAccount.ID, err)
			}
			if created {
				stats.AccountsCreated++
			} else {
				stats.AccountsUpdated++
			}

			recorded, err := s.recordBalanceHistory(ctx, tx, localAccount)
			if err != nil {
				return fmt.Errorf("failed to record balance for account %s: %w", localAccount.ID, err)
			}
			if recorded {
				stats.BalanceRecordsCreated++
			}

			for j := range sfAccount.Transactions {
				created, err := s.upsertTransaction(ctx, tx, localAccount.ID, &sfAccount.Transactions[j])
				if err != nil {
					return fmt.Errorf("failed to sync transaction %s: %w", sfAccount.Transactions[j].ID, err)
				}
				if created {
					stats.TransactionsCreated++
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	stats.SyncDurationMS = time.Since(start).Milliseconds()

	log.Printf("SimpleFin sync completed: %d accounts created, %d accounts updated, %d transactions created, %d balance records created in %dms",
		stats.AccountsCreated, stats.AccountsUpdated, stats.TransactionsCreated, stats.BalanceRecordsCreated, stats.SyncDurationMS)

	return stats, nil
}

// upsertAccount matches a remote account to a local one by external
// identifier. An existing account gets its synced fields overwritten; a new
// one is created with a fresh local ID.
func (s *SyncService) upsertAccount(ctx context.Context, tx TxStore, sfAccount *sfclient.Account) (bool, *account.Account, error) {
	existing, err := tx.GetAccountBySimplefinID(ctx, sfAccount.ID)
	if err != nil {
		return false, nil, fmt.Errorf("failed to look up account: %w", err)
	}

	bal := sfAccount.BalanceValue()
	now := time.Now().UTC()
	availableBalance := sfAccount.AvailableBalance
	isCreditCard := sfAccount.IsCreditCard

	if existing != nil {
		existing.Name = sfAccount.Name
		existing.Institution = sfAccount.InstitutionName()
		existing.Balance = bal
		existing.AvailableBalance = &availableBalance
		existing.IsCreditCard = &isCreditCard
		existing.LastUpdated = now

		if err := tx.UpdateSyncedAccount(ctx, existing); err != nil {
			return false, nil, fmt.Errorf("failed to update account: %w", err)
		}
		return false, existing, nil
	}

	accountType := account.TypeChecking
	if isCreditCard {
		accountType = account.TypeCredit
	}

	simplefinID := sfAccount.ID
	newAccount := &account.Account{
		ID:               uuid.NewString(),
		Name:             sfAccount.Name,
		Institution:      sfAccount.InstitutionName(),
		AccountType:      accountType,
		Balance:          bal,
		LastUpdated:      now,
		CreatedAt:        now,
		SimplefinID:      &simplefinID,
		AvailableBalance: &availableBalance,
		IsCreditCard:     &isCreditCard,
	}

	if err := tx.CreateAccount(ctx, newAccount); err != nil {
		return false, nil, fmt.Errorf("failed to create account: %w", err)
	}
	return true, newAccount, nil
}

// recordBalanceHistory appends a balance sample unless a sample within the
// last hour already sits within tolerance of the current balance.
func (s *SyncService) recordBalanceHistory(ctx context.Context, tx TxStore, acc *account.Account) (bool, error) {
	cutoff := time.Now().Add(-balanceHistoryWindow)

	recent, err := tx.LatestBalanceSince(ctx, acc.ID, cutoff)
	if err != nil {
		return false, fmt.Errorf("failed to query balance history: %w", err)
	}
	if recent != nil && math.Abs(*recent-acc.Balance) < balanceChangeTolerance {
		return false, nil
	}

	record := &balance.Record{
		ID:        uuid.NewString(),
		AccountID: acc.ID,
		Balance:   acc.Balance,
		Timestamp: time.Now().UTC(),
	}
	if err := tx.CreateBalanceRecord(ctx, record); err != nil {
		return false, fmt.Errorf("failed to insert balance record: %w", err)
	}
	return true, nil
}

// upsertTransaction imports a remote transaction unless one with the same
// external identifier already exists. Imported transactions are immutable:
// a repeat appearance never rewrites fields.
func (s *SyncService) upsertTransaction(ctx context.Context, tx TxStore, accountID string, sfTx *sfclient.Transaction) (bool, error) {
	exists, err := tx.TransactionExistsBySimplefinID(ctx, sfTx.ID)
	if err != nil {
		return false, fmt.Errorf("failed to check existing transaction: %w", err)
	}
	if exists {
		return false, nil
	}

	now := time.Now().UTC()
	posted := sfTx.PostedTime()
	transactionDate := now
	if posted != nil {
		transactionDate = *posted
	}
	transactionDate = transactionDate.Truncate(24 * time.Hour)

	pending := false
	if sfTx.Pending != nil {
		pending = *sfTx.Pending
	}

	simplefinID := sfTx.ID
	newTx := &transaction.Transaction{
		ID:              uuid.NewString(),
		AccountID:       accountID,
		Amount:          sfTx.AmountValue(),
		Description:     sfTx.Description,
		TransactionDate: transactionDate,
		CreatedAt:       now,
		SimplefinID:     &simplefinID,
		PostedDate:      posted,
		Payee:           sfTx.Payee,
		Memo:            sfTx.Memo,
		Pending:         &pending,
	}

	if err := tx.CreateTransaction(ctx, newTx); err != nil {
		return false, fmt.Errorf("failed to insert transaction: %w", err)
	}
	return true, nil
}
