package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"finsync/internal/domain/balance"
)

type BalanceRepository struct {
	q Querier
}

// NewBalanceRepository creates a repository over a pooled DB or a Tx.
func NewBalanceRepository(q Querier) *BalanceRepository {
	return &BalanceRepository{q: q}
}

var _ balance.Repository = (*BalanceRepository)(nil)

func (r *BalanceRepository) LatestSince(ctx context.Context, accountID string, cutoff time.Time) (*float64, error) {
	query := `
		SELECT balance FROM balances_history
		WHERE account_id = $1 AND timestamp > $2
		ORDER BY timestamp DESC
		LIMIT 1
	`

	var bal float64
	err := r.q.QueryRowContext(ctx, query, accountID, cutoff).Scan(&bal)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest balance: %w", err)
	}
	return &bal, nil
}

func (r *BalanceRepository) Create(ctx context.Context, rec *balance.Record) error {
	query := `
		INSERT INTO balances_history (id, account_id, balance, timestamp)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.q.ExecContext(ctx, query, rec.ID, rec.AccountID, rec.Balance, rec.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert balance record: %w", err)
	}
	return nil
}

func (r *BalanceRepository) ListByAccountID(ctx context.Context, accountID string, limit int) ([]*balance.Record, error) {
	query := `
		SELECT id, account_id, balance, timestamp
		FROM balances_history
		WHERE account_id = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`

	rows, err := r.q.QueryContext(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list balance history: %w", err)
	}
	defer rows.Close()

	var records []*balance.Record
	for rows.Next() {
		var rec balance.Record
		if err := rows.Scan(&rec.ID, &rec.AccountID, &rec.Balance, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan balance record: %w", err)
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate balance history: %w", err)
	}
	return records, nil
}
