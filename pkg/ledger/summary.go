package ledger

import (
	"context"
	"database/sql"

	"golang.org/x/sync/errgroup"
)

// Summarize aggregates every transaction matching filter. Pagination fields
// are ignored. Totals per type and the detail aggregate come from two queries
// over the same predicate.
func (c *Core) Summarize(ctx context.Context, filter Filter) (Summary, error) {
	f, err := filter.normalize()
	if err != nil {
		return Summary{}, err
	}
	where, args := f.where()

	var byType Summary
	var detail Summary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		byType, err = c.summarizeByType(gctx, where, args)
		return err
	})
	g.Go(func() error {
		var err error
		detail, err = c.summarizeDetail(gctx, where, args)
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	s := detail
	s.Income = byType.Income.Round4()
	s.Expenses = byType.Expenses.Round4()
	s.Balance = s.Income.Sub(s.Expenses)
	s.incomeCount = byType.incomeCount
	s.expenseCount = byType.expenseCount
	if !s.Reconciled() {
		c.logger.Warn("summary counts diverge",
			"income_count", s.incomeCount,
			"expense_count", s.expenseCount,
			"detail_count", s.TransactionCount,
		)
	}
	return s, nil
}

func (c *Core) summarizeByType(ctx context.Context, where string, args []any) (Summary, error) {
	rows, err := c.QueryContext(ctx,
		"SELECT t.type, COALESCE(SUM(t.total), 0), COUNT(*) FROM transactions t"+where+" GROUP BY t.type",
		args...)
	if err != nil {
		return Summary{}, err
	}
	defer rows.Close()

	var s Summary
	for rows.Next() {
		var txType string
		var total Amount
		var count int64
		if err := rows.Scan(&txType, &total, &count); err != nil {
			return Summary{}, WrapError(ErrCodeDatabase, "scan summary", err)
		}
		switch TransactionType(txType) {
		case TypeIncome:
			s.Income = total
			s.incomeCount = count
		case TypeExpense:
			s.Expenses = total
			s.expenseCount = count
		default:
			c.logger.Warn("summary found unknown transaction type", "type", txType, "count", count)
		}
	}
	return s, wrapRowsErr(rows.Err())
}

func (c *Core) summarizeDetail(ctx context.Context, where string, args []any) (Summary, error) {
	var s Summary
	var first, last sql.NullString
	row := c.QueryRowContext(ctx, `
		SELECT COUNT(*), MIN(t.date), MAX(t.date),
			COUNT(DISTINCT t.partner_name), COUNT(DISTINCT t.company_id)
		FROM transactions t`+where, args...)
	if err := scanRow(row, "", &s.TransactionCount, &first, &last, &s.DistinctPartners, &s.DistinctCompanies); err != nil {
		return Summary{}, err
	}
	if first.Valid {
		v := normalizeStoredDate(first.String)
		s.FirstDate = &v
	}
	if last.Valid {
		v := normalizeStoredDate(last.String)
		s.LastDate = &v
	}
	return s, nil
}
