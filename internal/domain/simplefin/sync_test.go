package simplefin

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"finsync/internal/domain/account"
	"finsync/internal/domain/balance"
	"finsync/internal/domain/transaction"
	sfclient "finsync/internal/infrastructure/simplefin"
)

// MockClient implements sfclient.ClientInterface
type MockClient struct {
	FetchAccountsFunc func(ctx context.Context) (*sfclient.AccountSet, error)
}

func (m *MockClient) FetchAccounts(ctx context.Context) (*sfclient.AccountSet, error) {
	if m.FetchAccountsFunc != nil {
		return m.FetchAccountsFunc(ctx)
	}
	return &sfclient.AccountSet{}, nil
}

// fakeStore is an in-memory Store with real rollback semantics: WithTx
// snapshots state and restores it when the closure fails.
type fakeStore struct {
	accounts     map[string]*account.Account // keyed by local ID
	transactions map[string]*transaction.Transaction
	balances     []*balance.Record

	txCalls int

	// failCreateAccountAt aborts the Nth CreateAccount call (1-based).
	failCreateAccountAt int
	createAccountCalls  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts:     make(map[string]*account.Account),
		transactions: make(map[string]*transaction.Transaction),
	}
}

func (s *fakeStore) WithTx(ctx context.Context, fn func(tx TxStore) error) error {
	s.txCalls++

	// Snapshot for rollback
	savedAccounts := make(map[string]*account.Account, len(s.accounts))
	for k, v := range s.accounts {
		copied := *v
		savedAccounts[k] = &copied
	}
	savedTransactions := make(map[string]*transaction.Transaction, len(s.transactions))
	for k, v := range s.transactions {
		copied := *v
		savedTransactions[k] = &copied
	}
	savedBalances := append([]*balance.Record(nil), s.balances...)

	if err := fn(&fakeTx{store: s}); err != nil {
		s.accounts = savedAccounts
		s.transactions = savedTransactions
		s.balances = savedBalances
		return err
	}
	return nil
}

type fakeTx struct {
	store *fakeStore
}

func (t *fakeTx) GetAccountBySimplefinID(ctx context.Context, simplefinID string) (*account.Account, error) {
	for _, a := range t.store.accounts {
		if a.SimplefinID != nil && *a.SimplefinID == simplefinID {
			copied := *a
			return &copied, nil
		}
	}
	return nil, nil
}

func (t *fakeTx) CreateAccount(ctx context.Context, a *account.Account) error {
	t.store.createAccountCalls++
	if t.store.failCreateAccountAt > 0 && t.store.createAccountCalls == t.store.failCreateAccountAt {
		return errors.New("storage write failed")
	}
	copied := *a
	t.store.accounts[a.ID] = &copied
	return nil
}

func (t *fakeTx) UpdateSyncedAccount(ctx context.Context, a *account.Account) error {
	for id, existing := range t.store.accounts {
		if existing.SimplefinID != nil && a.SimplefinID != nil && *existing.SimplefinID == *a.SimplefinID {
			copied := *a
			copied.ID = id
			t.store.accounts[id] = &copied
			return nil
		}
	}
	return errors.New("account not found")
}

func (t *fakeTx) LatestBalanceSince(ctx context.Context, accountID string, cutoff time.Time) (*float64, error) {
	var latest *balance.Record
	for _, r := range t.store.balances {
		if r.AccountID != accountID || !r.Timestamp.After(cutoff) {
			continue
		}
		if latest == nil || r.Timestamp.After(latest.Timestamp) {
			latest = r
		}
	}
	if latest == nil {
		return nil, nil
	}
	bal := latest.Balance
	return &bal, nil
}

func (t *fakeTx) CreateBalanceRecord(ctx context.Context, r *balance.Record) error {
	copied := *r
	t.store.balances = append(t.store.balances, &copied)
	return nil
}

func (t *fakeTx) TransactionExistsBySimplefinID(ctx context.Context, simplefinID string) (bool, error) {
	for _, tr := range t.store.transactions {
		if tr.SimplefinID != nil && *tr.SimplefinID == simplefinID {
			return true, nil
		}
	}
	return false, nil
}

func (t *fakeTx) CreateTransaction(ctx context.Context, tr *transaction.Transaction) error {
	copied := *tr
	t.store.transactions[tr.ID] = &copied
	return nil
}

func (s *fakeStore) accountBySimplefinID(simplefinID string) *account.Account {
	for _, a := range s.accounts {
		if a.SimplefinID != nil && *a.SimplefinID == simplefinID {
			return a
		}
	}
	return nil
}

func strPtr(s string) *string { return &s }

func snapshotClient(set *sfclient.AccountSet) *MockClient {
	return &MockClient{
		FetchAccountsFunc: func(ctx context.Context) (*sfclient.AccountSet, error) {
			// Hand out a fresh copy each pass the way a real fetch would.
			copied := *set
			copied.Accounts = append([]sfclient.Account(nil), set.Accounts...)
			return &copied, nil
		},
	}
}

func basicSnapshot() *sfclient.AccountSet {
	return &sfclient.AccountSet{
		Accounts: []sfclient.Account{
			{
				ID:               "sf-checking",
				Name:             "Everyday Checking",
				Org:              &sfclient.Organization{Name: strPtr("Demo Bank")},
				Balance:          "1250.42",
				AvailableBalance: 1200.00,
				IsCreditCard:     false,
				Transactions: []sfclient.Transaction{
					{ID: "sf-tx-1", Posted: int64Ptr(1700000000), Amount: "-42.50", Description: "Coffee"},
					{ID: "sf-tx-2", Posted: int64Ptr(1700086400), Amount: "-9.99", Description: "Streaming"},
				},
			},
			{
				ID:           "sf-card",
				Name:         "Rewards Card",
				Balance:      "-310.75",
				IsCreditCard: true,
				Transactions: []sfclient.Transaction{
					{ID: "sf-tx-3", Amount: "-100.00", Description: "Groceries", TransactedAt: int64Ptr(1700000500)},
				},
			},
		},
	}
}

func int64Ptr(v int64) *int64 { return &v }

func TestSyncAllCreatesAccountsAndTransactions(t *testing.T) {
	store := newFakeStore()
	service := NewSyncService(snapshotClient(basicSnapshot()), store)

	stats, err := service.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}

	if stats.AccountsCreated != 2 || stats.AccountsUpdated != 0 {
		t.Errorf("accounts created/updated = %d/%d, want 2/0", stats.AccountsCreated, stats.AccountsUpdated)
	}
	if stats.TransactionsCreated != 3 {
		t.Errorf("transactions created = %d, want 3", stats.TransactionsCreated)
	}
	if stats.BalanceRecordsCreated != 2 {
		t.Errorf("balance records created = %d, want 2", stats.BalanceRecordsCreated)
	}

	checking := store.accountBySimplefinID("sf-checking")
	if checking == nil {
		t.Fatal("checking account not created")
	}
	if checking.AccountType != account.TypeChecking {
		t.Errorf("account type = %q, want checking", checking.AccountType)
	}
	if checking.Institution != "Demo Bank" {
		t.Errorf("institution = %q, want Demo Bank", checking.Institution)
	}
	if checking.Balance != 1250.42 {
		t.Errorf("balance = %v, want 1250.42", checking.Balance)
	}

	card := store.accountBySimplefinID("sf-card")
	if card == nil {
		t.Fatal("card account not created")
	}
	if card.AccountType != account.TypeCredit {
		t.Errorf("card account type = %q, want credit", card.AccountType)
	}
	if card.Institution != "Unknown" {
		t.Errorf("card institution = %q, want Unknown", card.Institution)
	}
}

func TestSyncAllIdempotent(t *testing.T) {
	store := newFakeStore()
	service := NewSyncService(snapshotClient(basicSnapshot()), store)

	if _, err := service.SyncAll(context.Background()); err != nil {
		t.Fatalf("first pass: %v", err)
	}

	stats, err := service.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}

	if stats.AccountsCreated != 0 {
		t.Errorf("second pass accounts created = %d, want 0", stats.AccountsCreated)
	}
	if stats.AccountsUpdated != 2 {
		t.Errorf("second pass accounts updated = %d, want 2", stats.AccountsUpdated)
	}
	if stats.TransactionsCreated != 0 {
		t.Errorf("second pass transactions created = %d, want 0", stats.TransactionsCreated)
	}
	if stats.BalanceRecordsCreated != 0 {
		t.Errorf("second pass balance records created = %d, want 0", stats.BalanceRecordsCreated)
	}

	if len(store.accounts) != 2 {
		t.Errorf("accounts in store = %d, want 2", len(store.accounts))
	}
	if len(store.transactions) != 3 {
		t.Errorf("transactions in store = %d, want 3", len(store.transactions))
	}
}

func TestSyncAllUpdatesSyncedFields(t *testing.T) {
	set := basicSnapshot()
	store := newFakeStore()
	service := NewSyncService(snapshotClient(set), store)

	if _, err := service.SyncAll(context.Background()); err != nil {
		t.Fatalf("first pass: %v", err)
	}

	created := store.accountBySimplefinID("sf-checking")
	originalID := created.ID
	originalCreatedAt := created.CreatedAt

	set.Accounts[0].Name = "Renamed Checking"
	set.Accounts[0].Balance = "900.00"

	if _, err := service.SyncAll(context.Background()); err != nil {
		t.Fatalf("second pass: %v", err)
	}

	updated := store.accountBySimplefinID("sf-checking")
	if updated.ID != originalID {
		t.Errorf("local ID changed across passes: %q -> %q", originalID, updated.ID)
	}
	if updated.Name != "Renamed Checking" {
		t.Errorf("name = %q, want Renamed Checking", updated.Name)
	}
	if updated.Balance != 900.00 {
		t.Errorf("balance = %v, want 900.00", updated.Balance)
	}
	if !updated.CreatedAt.Equal(originalCreatedAt) {
		t.Error("created_at must not change on update")
	}
}

func TestImportedTransactionsAreImmutable(t *testing.T) {
	set := basicSnapshot()
	store := newFakeStore()
	service := NewSyncService(snapshotClient(set), store)

	if _, err := service.SyncAll(context.Background()); err != nil {
		t.Fatalf("first pass: %v", err)
	}

	// Remote corrects the description; the local row must keep the
	// original one.
	set.Accounts[0].Transactions = append([]sfclient.Transaction(nil), set.Accounts[0].Transactions...)
	set.Accounts[0].Transactions[0].Description = "Coffee (corrected)"

	stats, err := service.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if stats.TransactionsCreated != 0 {
		t.Errorf("transactions created = %d, want 0", stats.TransactionsCreated)
	}

	for _, tr := range store.transactions {
		if tr.SimplefinID != nil && *tr.SimplefinID == "sf-tx-1" && tr.Description != "Coffee" {
			t.Errorf("imported transaction rewritten: description = %q", tr.Description)
		}
	}
}

func TestBalanceHistoryThreshold(t *testing.T) {
	tests := []struct {
		name       string
		newBalance string
		wantSample bool
	}{
		{"Within tolerance", "100.005", false},
		{"Beyond tolerance", "100.02", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			simplefinID := "sf-acc"
			isCC := false
			avail := float64(500)
			store.accounts["local-1"] = &account.Account{
				ID:               "local-1",
				Name:             "Savings",
				Institution:      "Demo Bank",
				AccountType:      account.TypeChecking,
				Balance:          100.00,
				SimplefinID:      &simplefinID,
				AvailableBalance: &avail,
				IsCreditCard:     &isCC,
			}
			store.balances = append(store.balances, &balance.Record{
				ID:        "bal-1",
				AccountID: "local-1",
				Balance:   100.00,
				Timestamp: time.Now().Add(-10 * time.Minute),
			})

			set := &sfclient.AccountSet{
				Accounts: []sfclient.Account{
					{ID: "sf-acc", Name: "Savings", Balance: tt.newBalance, AvailableBalance: 500},
				},
			}
			service := NewSyncService(snapshotClient(set), store)

			stats, err := service.SyncAll(context.Background())
			if err != nil {
				t.Fatalf("SyncAll: %v", err)
			}

			wantCount := 0
			if tt.wantSample {
				wantCount = 1
			}
			if stats.BalanceRecordsCreated != wantCount {
				t.Errorf("balance records created = %d, want %d", stats.BalanceRecordsCreated, wantCount)
			}
			if got := len(store.balances) - 1; got != wantCount {
				t.Errorf("new samples in store = %d, want %d", got, wantCount)
			}
		})
	}
}

func TestBalanceHistoryStaleSampleIgnored(t *testing.T) {
	// A sample outside the window does not suppress a new one even when
	// the value is unchanged.
	store := newFakeStore()
	simplefinID := "sf-acc"
	store.accounts["local-1"] = &account.Account{
		ID:          "local-1",
		Balance:     100.00,
		SimplefinID: &simplefinID,
	}
	store.balances = append(store.balances, &balance.Record{
		ID:        "bal-1",
		AccountID: "local-1",
		Balance:   100.00,
		Timestamp: time.Now().Add(-2 * time.Hour),
	})

	set := &sfclient.AccountSet{
		Accounts: []sfclient.Account{{ID: "sf-acc", Name: "Savings", Balance: "100.00"}},
	}
	service := NewSyncService(snapshotClient(set), store)

	stats, err := service.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	if stats.BalanceRecordsCreated != 1 {
		t.Errorf("balance records created = %d, want 1", stats.BalanceRecordsCreated)
	}
}

func TestSyncAllRollsBackOnStorageFailure(t *testing.T) {
	set := &sfclient.AccountSet{}
	for _, id := range []string{"sf-1", "sf-2", "sf-3", "sf-4", "sf-5"} {
		set.Accounts = append(set.Accounts, sfclient.Account{
			ID:      id,
			Name:    "Account " + id,
			Balance: "10.00",
			Transactions: []sfclient.Transaction{
				{ID: "tx-" + id, Amount: "1.00", Description: "payment"},
			},
		})
	}

	store := newFakeStore()
	store.failCreateAccountAt = 3
	service := NewSyncService(snapshotClient(set), store)

	_, err := service.SyncAll(context.Background())
	if err == nil {
		t.Fatal("expected error from failing storage write")
	}

	if len(store.accounts) != 0 {
		t.Errorf("accounts persisted after rollback: %d", len(store.accounts))
	}
	if len(store.transactions) != 0 {
		t.Errorf("transactions persisted after rollback: %d", len(store.transactions))
	}
	if len(store.balances) != 0 {
		t.Errorf("balance records persisted after rollback: %d", len(store.balances))
	}
}

func TestSyncAllSerializesConcurrentPasses(t *testing.T) {
	started := make(chan struct{}, 2)
	release := make(chan struct{})
	var inFlight atomic.Int32
	var overlapped atomic.Bool

	client := &MockClient{
		FetchAccountsFunc: func(ctx context.Context) (*sfclient.AccountSet, error) {
			if inFlight.Add(1) > 1 {
				overlapped.Store(true)
			}
			started <- struct{}{}
			<-release
			inFlight.Add(-1)
			return &sfclient.AccountSet{}, nil
		},
	}
	service := NewSyncService(client, newFakeStore())

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := service.SyncAll(context.Background()); err != nil {
				t.Errorf("SyncAll: %v", err)
			}
		}()
	}

	// First pass is parked inside its fetch; the second must wait for it
	// rather than start a fetch of its own.
	<-started
	select {
	case <-started:
		t.Fatal("second pass started fetching while the first was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	wg.Wait()

	if overlapped.Load() {
		t.Error("two passes ran their fetches concurrently")
	}
}

func TestSyncAllFetchFailureOpensNoTransaction(t *testing.T) {
	store := newFakeStore()
	client := &MockClient{
		FetchAccountsFunc: func(ctx context.Context) (*sfclient.AccountSet, error) {
			return nil, errors.New("connection refused")
		},
	}
	service := NewSyncService(client, store)

	_, err := service.SyncAll(context.Background())
	if err == nil {
		t.Fatal("expected fetch error")
	}
	if store.txCalls != 0 {
		t.Errorf("storage transaction opened despite fetch failure (%d calls)", store.txCalls)
	}
}

func TestMalformedAmountImportsAsZero(t *testing.T) {
	set := &sfclient.AccountSet{
		Accounts: []sfclient.Account{
			{
				ID:      "sf-acc",
				Name:    "Checking",
				Balance: "50.00",
				Transactions: []sfclient.Transaction{
					{ID: "sf-tx-bad", Amount: "not-a-number", Description: "glitch"},
				},
			},
		},
	}

	store := newFakeStore()
	service := NewSyncService(snapshotClient(set), store)

	stats, err := service.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	if stats.TransactionsCreated != 1 {
		t.Fatalf("transactions created = %d, want 1", stats.TransactionsCreated)
	}

	for _, tr := range store.transactions {
		if tr.Amount != 0 {
			t.Errorf("malformed amount imported as %v, want 0", tr.Amount)
		}
	}
}

func TestTransactionDateFallsBackToToday(t *testing.T) {
	set := &sfclient.AccountSet{
		Accounts: []sfclient.Account{
			{
				ID:      "sf-acc",
				Name:    "Checking",
				Balance: "50.00",
				Transactions: []sfclient.Transaction{
					{ID: "sf-tx-nodate", Amount: "5.00", Description: "no timestamps"},
				},
			},
		},
	}

	store := newFakeStore()
	service := NewSyncService(snapshotClient(set), store)

	if _, err := service.SyncAll(context.Background()); err != nil {
		t.Fatalf("SyncAll: %v", err)
	}

	now := time.Now().UTC()
	for _, tr := range store.transactions {
		y, m, d := tr.TransactionDate.Date()
		ny, nm, nd := now.Date()
		if y != ny || m != nm || d != nd {
			t.Errorf("transaction date = %v, want today (%v)", tr.TransactionDate, now)
		}
		if tr.PostedDate != nil {
			t.Error("posted date should be nil when remote has no timestamps")
		}
	}
}
