package account

import "context"

// Repository defines the interface for account data access.
// The interface lives in the domain layer and is implemented in the
// infrastructure layer.
type Repository interface {
	// GetByID retrieves an account by its local ID.
	GetByID(ctx context.Context, id string) (*Account, error)

	// GetBySimplefinID retrieves the account holding the given external
	// identifier. Returns (nil, nil) when no such account exists.
	GetBySimplefinID(ctx context.Context, simplefinID string) (*Account, error)

	// List retrieves all accounts ordered by name.
	List(ctx context.Context) ([]*Account, error)

	// Create inserts a new account row.
	Create(ctx context.Context, a *Account) error

	// UpdateSynced overwrites the fields reconciliation owns: name,
	// institution, balance, available balance, credit-card flag and
	// last_updated, keyed by simplefin_id.
	UpdateSynced(ctx context.Context, a *Account) error
}
