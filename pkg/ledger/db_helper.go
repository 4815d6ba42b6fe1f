package ledger

import (
	"context"
	"database/sql"
	"errors"
)

// ExecContext executes a statement without returning any rows.
func (c *Core) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	result, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "query execution failed", err)
	}
	return result, nil
}

// QueryContext executes a query that returns rows. Callers must close the rows.
func (c *Core) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "query execution failed", err)
	}
	return rows, nil
}

// QueryRowContext executes a query that returns at most one row.
// Errors are deferred until Scan; use scanRow to classify them.
func (c *Core) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return c.db.QueryRowContext(ctx, query, args...)
}

// scanRow scans a single row, mapping sql.ErrNoRows to a NotFound error and
// anything else to a database error.
func scanRow(row *sql.Row, notFound string, dest ...any) error {
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return NewError(ErrCodeNotFound, notFound)
		}
		return WrapError(ErrCodeDatabase, "query execution failed", err)
	}
	return nil
}

func wrapRowsErr(err error) error {
	if err == nil {
		return nil
	}
	return WrapError(ErrCodeDatabase, "reading rows failed", err)
}
