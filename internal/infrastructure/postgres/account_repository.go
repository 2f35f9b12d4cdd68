package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"finsync/internal/domain/account"
)

type AccountRepository struct {
	q Querier
}

// NewAccountRepository creates a repository over a pooled DB or a Tx.
func NewAccountRepository(q Querier) *AccountRepository {
	return &AccountRepository{q: q}
}

var _ account.Repository = (*AccountRepository)(nil)

const accountColumns = `id, name, institution, account_type, balance, last_updated, created_at,
	       simplefin_id, available_balance, is_credit_card`

func scanAccount(row interface{ Scan(dest ...any) error }) (*account.Account, error) {
	var a account.Account
	var simplefinID sql.NullString
	var availableBalance sql.NullFloat64
	var isCreditCard sql.NullBool

	err := row.Scan(
		&a.ID, &a.Name, &a.Institution, &a.AccountType, &a.Balance,
		&a.LastUpdated, &a.CreatedAt,
		&simplefinID, &availableBalance, &isCreditCard,
	)
	if err != nil {
		return nil, err
	}

	if simplefinID.Valid {
		a.SimplefinID = &simplefinID.String
	}
	if availableBalance.Valid {
		a.AvailableBalance = &availableBalance.Float64
	}
	if isCreditCard.Valid {
		a.IsCreditCard = &isCreditCard.Bool
	}
	return &a, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	a, err := scanAccount(r.q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, account.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return a, nil
}

func (r *AccountRepository) GetBySimplefinID(ctx context.Context, simplefinID string) (*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE simplefin_id = $1`

	a, err := scanAccount(r.q.QueryRowContext(ctx, query, simplefinID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // not found is not an error for reconciliation
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account by simplefin id: %w", err)
	}
	return a, nil
}

func (r *AccountRepository) List(ctx context.Context) ([]*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY name`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*account.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}
	return accounts, nil
}

func (r *AccountRepository) Create(ctx context.Context, a *account.Account) error {
	query := `
		INSERT INTO accounts (id, name, institution, account_type, balance,
		                      last_updated, created_at, simplefin_id, available_balance, is_credit_card)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.q.ExecContext(ctx, query,
		a.ID, a.Name, a.Institution, a.AccountType, a.Balance,
		a.LastUpdated, a.CreatedAt, a.SimplefinID, a.AvailableBalance, a.IsCreditCard,
	)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (r *AccountRepository) UpdateSynced(ctx context.Context, a *account.Account) error {
	query := `
		UPDATE accounts SET
			name = $1, institution = $2, balance = $3, available_balance = $4,
			is_credit_card = $5, last_updated = $6
		WHERE simplefin_id = $7
	`

	_, err := r.q.ExecContext(ctx, query,
		a.Name, a.Institution, a.Balance, a.AvailableBalance,
		a.IsCreditCard, a.LastUpdated, a.SimplefinID,
	)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return nil
}
