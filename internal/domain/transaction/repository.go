package transaction

import "context"

// Repository defines the interface for transaction data access.
type Repository interface {
	// ExistsBySimplefinID reports whether a transaction with the given
	// external identifier has already been imported.
	ExistsBySimplefinID(ctx context.Context, simplefinID string) (bool, error)

	// Create inserts a new transaction row.
	Create(ctx context.Context, t *Transaction) error

	// ListByAccountID retrieves transactions for an account, newest first.
	ListByAccountID(ctx context.Context, accountID string, limit, offset int) ([]*Transaction, error)
}
