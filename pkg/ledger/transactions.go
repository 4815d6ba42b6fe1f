package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

const transactionColumns = `t.id, t.date, t.concept, t.partner_name, t.company_id, t.payment_method,
	t.quantity, t.unit_price, t.type, t.total, t.created_by, t.created_at, c.name`

const transactionFrom = ` FROM transactions t LEFT JOIN companies c ON c.id = t.company_id`

const msgTransactionNotFound = "Transacción no encontrada"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s rowScanner) (Transaction, error) {
	var t Transaction
	var txType string
	var createdBy sql.NullInt64
	var createdAt, companyName sql.NullString
	if err := s.Scan(
		&t.ID, &t.Date, &t.Concept, &t.PartnerName, &t.CompanyID, &t.PaymentMethod,
		&t.Quantity, &t.UnitPrice, &txType, &t.Total, &createdBy, &createdAt, &companyName,
	); err != nil {
		return t, err
	}
	t.Type = TransactionType(txType)
	t.Date = normalizeStoredDate(t.Date)
	if createdBy.Valid {
		id := createdBy.Int64
		t.CreatedBy = &id
	}
	if createdAt.Valid {
		t.CreatedAt = createdAt.String
	}
	if companyName.Valid {
		name := companyName.String
		t.CompanyName = &name
	}
	return t, nil
}

// normalizeStoredDate trims a time part some drivers append to DATE values.
func normalizeStoredDate(value string) string {
	if len(value) > len(dateLayout) {
		return value[:len(dateLayout)]
	}
	return value
}

// ListTransactions returns one page of transactions matching filter, newest
// first, together with the number of rows matching the filter overall.
func (c *Core) ListTransactions(ctx context.Context, filter Filter) (TransactionPage, error) {
	f, err := filter.normalize()
	if err != nil {
		return TransactionPage{}, err
	}
	where, args := f.where()

	var items []Transaction
	var total int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		pageArgs := append(append([]any{}, args...), f.Limit, f.offset())
		var err error
		items, err = c.queryTransactions(gctx,
			"SELECT "+transactionColumns+transactionFrom+where+" ORDER BY t.date DESC, t.id DESC LIMIT ? OFFSET ?",
			pageArgs...)
		return err
	})
	g.Go(func() error {
		return scanRow(c.QueryRowContext(gctx, "SELECT COUNT(*) FROM transactions t"+where, args...), "", &total)
	})
	if err := g.Wait(); err != nil {
		return TransactionPage{}, err
	}

	return TransactionPage{
		Items: items,
		Total: total,
		Page:  f.Page,
		Limit: f.Limit,
		Pages: pageCount(total, f.Limit),
	}, nil
}

func pageCount(total int64, limit int) int64 {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return (total-1)/int64(limit) + 1
}

func (c *Core) queryTransactions(ctx context.Context, query string, args ...any) ([]Transaction, error) {
	rows, err := c.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, WrapError(ErrCodeDatabase, "scan transaction", err)
		}
		items = append(items, t)
	}
	return items, wrapRowsErr(rows.Err())
}

// GetTransaction returns a single transaction with its company name.
func (c *Core) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	row := c.QueryRowContext(ctx, "SELECT "+transactionColumns+transactionFrom+" WHERE t.id = ?", id)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Transaction{}, NewError(ErrCodeNotFound, msgTransactionNotFound)
		}
		return Transaction{}, WrapError(ErrCodeDatabase, "query execution failed", err)
	}
	return t, nil
}

type preparedTransaction struct {
	Date          string
	Concept       string
	CompanyID     int64
	PaymentMethod string
	Quantity      Amount
	UnitPrice     Amount
	Type          TransactionType
	Total         Amount
}

// prepareTransaction validates input and computes the total.
func (c *Core) prepareTransaction(ctx context.Context, in TransactionInput) (preparedTransaction, error) {
	p := preparedTransaction{
		Date:          strings.TrimSpace(in.Date),
		Concept:       strings.TrimSpace(in.Concept),
		CompanyID:     in.CompanyID,
		PaymentMethod: strings.TrimSpace(in.PaymentMethod),
		Quantity:      in.Quantity.Round2(),
		UnitPrice:     in.UnitPrice.Round2(),
	}

	var missing []string
	if p.Date == "" {
		missing = append(missing, "fecha")
	}
	if p.Concept == "" {
		missing = append(missing, "concepto")
	}
	if p.CompanyID == 0 {
		missing = append(missing, "empresa_id")
	}
	if p.PaymentMethod == "" {
		missing = append(missing, "forma_pago")
	}
	if p.Quantity.IsZero() {
		missing = append(missing, "cantidad")
	}
	if p.UnitPrice.IsZero() {
		missing = append(missing, "precio_unitario")
	}
	if strings.TrimSpace(in.Type) == "" {
		missing = append(missing, "tipo")
	}
	if len(missing) > 0 {
		return p, validationError("Faltan campos requeridos: " + strings.Join(missing, ", "))
	}

	txType, ok := ParseTransactionType(in.Type)
	if !ok {
		return p, validationError("Tipo debe ser G (gasto) o I (ingreso)")
	}
	p.Type = txType
	if !isValidDate(p.Date) {
		return p, validationError("fecha debe tener formato YYYY-MM-DD")
	}
	if p.Quantity.IsNegative() {
		return p, validationError("cantidad debe ser mayor a cero")
	}
	if p.UnitPrice.IsNegative() {
		return p, validationError("precio_unitario debe ser mayor a cero")
	}
	exists, err := c.companyExists(ctx, p.CompanyID)
	if err != nil {
		return p, err
	}
	if !exists {
		return p, validationError(fmt.Sprintf("empresa_id %d no existe", p.CompanyID))
	}

	p.Total = p.Quantity.Mul(p.UnitPrice)
	return p, nil
}

// CreateTransaction records a new transaction for actor. The partner name and
// creator come from actor, never from input.
func (c *Core) CreateTransaction(ctx context.Context, in TransactionInput, actor SessionUser) (Transaction, error) {
	if actor.ID == 0 {
		return Transaction{}, NewError(ErrCodeUnauthenticated, "Acceso no autorizado")
	}
	p, err := c.prepareTransaction(ctx, in)
	if err != nil {
		return Transaction{}, err
	}

	result, err := c.ExecContext(ctx, `
		INSERT INTO transactions (date, concept, partner_name, partner_search, company_id, payment_method,
			quantity, unit_price, type, total, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.Date, p.Concept, actor.Name, partnerSearchKey(actor.Name), p.CompanyID, p.PaymentMethod,
		p.Quantity, p.UnitPrice, string(p.Type), p.Total, actor.ID, nowTimestamp())
	if err != nil {
		return Transaction{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return Transaction{}, WrapError(ErrCodeDatabase, "read inserted id", err)
	}

	c.recordAudit(ctx, AuditLog{
		Operation:     AuditCreate,
		TransactionID: &id,
		ActorID:       actor.ID,
		Outcome:       AuditOutcomeOK,
		Details:       stringPtr(fmt.Sprintf("%s %s %s", p.Type.Label(), p.Concept, p.Total.StringFixed(2))),
	})
	c.logger.Info("transaction created",
		"id", id,
		"type", string(p.Type),
		"concept", p.Concept,
		"total", p.Total.StringFixed(2),
		"actor_id", actor.ID,
	)

	return c.GetTransaction(ctx, id)
}

// UpdateTransaction replaces every editable field of the transaction. A
// transaction owned by someone else is reported as not found.
func (c *Core) UpdateTransaction(ctx context.Context, id int64, in TransactionInput, actor SessionUser) error {
	if actor.ID == 0 {
		return NewError(ErrCodeUnauthenticated, "Acceso no autorizado")
	}
	p, err := c.prepareTransaction(ctx, in)
	if err != nil {
		return err
	}

	result, err := c.ExecContext(ctx, `
		UPDATE transactions SET
			date = ?, concept = ?, company_id = ?, payment_method = ?,
			quantity = ?, unit_price = ?, type = ?, total = ?
		WHERE id = ? AND created_by = ?
	`, p.Date, p.Concept, p.CompanyID, p.PaymentMethod,
		p.Quantity, p.UnitPrice, string(p.Type), p.Total, id, actor.ID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return WrapError(ErrCodeDatabase, "read affected rows", err)
	}
	if affected == 0 {
		c.recordRejected(ctx, AuditUpdate, id, actor)
		return NewError(ErrCodeNotFound, msgTransactionNotFound)
	}

	c.recordAudit(ctx, AuditLog{
		Operation:     AuditUpdate,
		TransactionID: &id,
		ActorID:       actor.ID,
		Outcome:       AuditOutcomeOK,
		Details:       stringPtr(fmt.Sprintf("%s %s %s", p.Type.Label(), p.Concept, p.Total.StringFixed(2))),
	})
	c.logger.Info("transaction updated", "id", id, "actor_id", actor.ID)
	return nil
}

// DeleteTransaction physically removes a transaction owned by actor.
func (c *Core) DeleteTransaction(ctx context.Context, id int64, actor SessionUser) error {
	if actor.ID == 0 {
		return NewError(ErrCodeUnauthenticated, "Acceso no autorizado")
	}
	result, err := c.ExecContext(ctx, "DELETE FROM transactions WHERE id = ? AND created_by = ?", id, actor.ID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return WrapError(ErrCodeDatabase, "read affected rows", err)
	}
	if affected == 0 {
		c.recordRejected(ctx, AuditDelete, id, actor)
		return NewError(ErrCodeNotFound, msgTransactionNotFound)
	}

	c.recordAudit(ctx, AuditLog{
		Operation:     AuditDelete,
		TransactionID: &id,
		ActorID:       actor.ID,
		Outcome:       AuditOutcomeOK,
	})
	c.logger.Info("transaction deleted", "id", id, "actor_id", actor.ID)
	return nil
}

func stringPtr(value string) *string {
	return &value
}

// partnerSearchKey is the lowercased form stored in partner_search. SQL LOWER
// only folds ASCII on SQLite, so case folding happens here.
func partnerSearchKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// backfillPartnerSearch fills partner_search for rows written before the
// column existed and returns how many rows were updated.
func (c *Core) backfillPartnerSearch(ctx context.Context) (int, error) {
	rows, err := c.QueryContext(ctx, `
		SELECT id, partner_name FROM transactions
		WHERE partner_search = '' AND partner_name <> ''
	`)
	if err != nil {
		return 0, err
	}
	pending := map[int64]string{}
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			rows.Close()
			return 0, WrapError(ErrCodeDatabase, "scan partner name", err)
		}
		pending[id] = name
	}
	if err := wrapRowsErr(rows.Err()); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	updated := 0
	for id, name := range pending {
		if _, err := c.ExecContext(ctx, "UPDATE transactions SET partner_search = ? WHERE id = ?",
			partnerSearchKey(name), id); err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}
