package account

import (
	"errors"
	"time"
)

// Domain errors
var (
	ErrAccountNotFound = errors.New("account not found")
)

// Account types written by reconciliation. Manually created accounts may
// carry other values; the sync engine only ever assigns these two.
const (
	TypeChecking = "checking"
	TypeCredit   = "credit"
)

// Account represents a financial account domain entity.
// SimplefinID is nil for accounts created manually; those accounts are
// never touched by reconciliation.
type Account struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Institution      string    `json:"institution"`
	AccountType      string    `json:"account_type"`
	Balance          float64   `json:"balance"`
	LastUpdated      time.Time `json:"last_updated"`
	CreatedAt        time.Time `json:"created_at"`
	SimplefinID      *string   `json:"simplefin_id"`
	AvailableBalance *float64  `json:"available_balance"`
	IsCreditCard     *bool     `json:"is_credit_card"`
}
