package transaction

import "time"

// Transaction represents a ledger transaction domain entity.
// TransactionDate is a calendar date; callers should only rely on its
// year/month/day components.
//
// Transactions imported by reconciliation carry a SimplefinID and are
// immutable afterwards: later syncs never rewrite their fields, even when
// the remote record changes (for example pending settling to posted).
type Transaction struct {
	ID              string     `json:"id"`
	AccountID       string     `json:"account_id"`
	Amount          float64    `json:"amount"`
	Description     string     `json:"description"`
	TransactionDate time.Time  `json:"transaction_date"`
	Category        *string    `json:"category"`
	CreatedAt       time.Time  `json:"created_at"`
	SimplefinID     *string    `json:"simplefin_id"`
	PostedDate      *time.Time `json:"posted_date"`
	Payee           *string    `json:"payee"`
	Memo            *string    `json:"memo"`
	Pending         *bool      `json:"pending"`
}
