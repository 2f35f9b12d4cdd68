package balance

import (
	"context"
	"time"
)

// Repository defines the interface for balance history data access.
type Repository interface {
	// LatestSince returns the balance of the most recent record for the
	// account taken at or after the cutoff. Returns (nil, nil) when no
	// record falls inside the window.
	LatestSince(ctx context.Context, accountID string, cutoff time.Time) (*float64, error)

	// Create appends a new balance record.
	Create(ctx context.Context, r *Record) error

	// ListByAccountID retrieves records for an account, newest first.
	ListByAccountID(ctx context.Context, accountID string, limit int) ([]*Record, error)
}
