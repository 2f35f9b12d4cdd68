package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Tx mirrors the traced query surface of DB over a database transaction.
type Tx struct {
	tx *sql.Tx
}

var _ Querier = (*Tx)(nil)
var _ Querier = (*DB)(nil)

func (t *Tx) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	ctx, span := startSpan(ctx, "db.Query", query)
	rows, err := t.tx.QueryContext(ctx, query, args...)
	endSpan(span, err)
	return rows, err
}

func (t *Tx) QueryRowContext(ctx context.Context, query string, args ...any) *tracedRow {
	ctx, span := startSpan(ctx, "db.QueryRow", query)
	return &tracedRow{
		row:  t.tx.QueryRowContext(ctx, query, args...),
		span: span,
	}
}

func (t *Tx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx, span := startSpan(ctx, "db.Exec", query)
	result, err := t.tx.ExecContext(ctx, query, args...)
	endSpan(span, err)
	return result, err
}

// WithTx runs fn inside a database transaction. The transaction commits
// when fn returns nil and rolls back otherwise, so callers get
// all-or-nothing semantics for everything written through the Tx.
func (db *DB) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := db.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(&Tx{tx: sqlTx}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
