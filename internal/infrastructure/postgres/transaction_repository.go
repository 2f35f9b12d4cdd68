package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"finsync/internal/domain/transaction"
)

type TransactionRepository struct {
	q Querier
}

// NewTransactionRepository creates a repository over a pooled DB or a Tx.
func NewTransactionRepository(q Querier) *TransactionRepository {
	return &TransactionRepository{q: q}
}

var _ transaction.Repository = (*TransactionRepository)(nil)

func (r *TransactionRepository) ExistsBySimplefinID(ctx context.Context, simplefinID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM transactions WHERE simplefin_id = $1)`

	var exists bool
	if err := r.q.QueryRowContext(ctx, query, simplefinID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check transaction existence: %w", err)
	}
	return exists, nil
}

func (r *TransactionRepository) Create(ctx context.Context, t *transaction.Transaction) error {
	query := `
		INSERT INTO transactions (id, account_id, amount, description, transaction_date,
		                          category, created_at, simplefin_id, posted_date, payee, memo, pending)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.q.ExecContext(ctx, query,
		t.ID, t.AccountID, t.Amount, t.Description, t.TransactionDate,
		t.Category, t.CreatedAt, t.SimplefinID, t.PostedDate, t.Payee, t.Memo, t.Pending,
	)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *TransactionRepository) ListByAccountID(ctx context.Context, accountID string, limit, offset int) ([]*transaction.Transaction, error) {
	query := `
		SELECT id, account_id, amount, description, transaction_date, category, created_at,
		       simplefin_id, posted_date, payee, memo, pending
		FROM transactions
		WHERE account_id = $1
		ORDER BY transaction_date DESC, created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.q.QueryContext(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*transaction.Transaction
	for rows.Next() {
		var t transaction.Transaction
		var category, simplefinID, payee, memo sql.NullString
		var postedDate sql.NullTime
		var pending sql.NullBool

		err := rows.Scan(
			&t.ID, &t.AccountID, &t.Amount, &t.Description, &t.TransactionDate,
			&category, &t.CreatedAt, &simplefinID, &postedDate, &payee, &memo, &pending,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		if category.Valid {
			t.Category = &category.String
		}
		if simplefinID.Valid {
			t.SimplefinID = &simplefinID.String
		}
		if postedDate.Valid {
			t.PostedDate = &postedDate.Time
		}
		if payee.Valid {
			t.Payee = &payee.String
		}
		if memo.Valid {
			t.Memo = &memo.String
		}
		if pending.Valid {
			t.Pending = &pending.Bool
		}
		transactions = append(transactions, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return transactions, nil
}
