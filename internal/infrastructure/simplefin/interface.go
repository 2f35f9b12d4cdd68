package simplefin

import "context"

// ClientInterface defines the operations the sync engine needs from a
// SimpleFIN client. Kept as an interface so tests can substitute a mock.
type ClientInterface interface {
	// FetchAccounts fetches the current snapshot of accounts with their
	// embedded transactions.
	FetchAccounts(ctx context.Context) (*AccountSet, error)
}
