// Package balance holds the append-only balance history kept per account.
package balance

import "time"

// Record is one balance sample for an account. Rows are append-only and
// never mutated.
type Record struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	Balance   float64   `json:"balance"`
	Timestamp time.Time `json:"timestamp"`
}
