package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Audit operations.
const (
	AuditCreate = "CREATE"
	AuditUpdate = "UPDATE"
	AuditDelete = "DELETE"
)

// Audit outcomes. Masked marks an attempt on a transaction that exists but
// belongs to another user; clients see it as not found.
const (
	AuditOutcomeOK      = "ok"
	AuditOutcomeMissing = "missing"
	AuditOutcomeMasked  = "masked"
)

// AddAuditLog stores an audit entry.
func (c *Core) AddAuditLog(ctx context.Context, entry AuditLog) (int64, error) {
	if entry.CreatedAt == "" {
		entry.CreatedAt = nowTimestamp()
	}
	result, err := c.ExecContext(ctx, `
		INSERT INTO audit_logs (operation, transaction_id, actor_id, outcome, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, entry.Operation, entry.TransactionID, entry.ActorID, entry.Outcome, entry.Details, entry.CreatedAt)
	if err != nil {
		return 0, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, WrapError(ErrCodeDatabase, "read inserted id", err)
	}
	return id, nil
}

// ListAuditLogs returns recent audit entries, newest first.
func (c *Core) ListAuditLogs(ctx context.Context, limit, offset int) ([]AuditLog, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := c.QueryContext(ctx,
		"SELECT id, operation, transaction_id, actor_id, outcome, details, created_at FROM audit_logs ORDER BY id DESC LIMIT ? OFFSET ?",
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []AuditLog{}
	for rows.Next() {
		var entry AuditLog
		var txID sql.NullInt64
		var details sql.NullString
		if err := rows.Scan(&entry.ID, &entry.Operation, &txID, &entry.ActorID, &entry.Outcome, &details, &entry.CreatedAt); err != nil {
			return nil, WrapError(ErrCodeDatabase, "scan audit log", err)
		}
		if txID.Valid {
			id := txID.Int64
			entry.TransactionID = &id
		}
		if details.Valid {
			entry.Details = &details.String
		}
		logs = append(logs, entry)
	}
	return logs, wrapRowsErr(rows.Err())
}

// recordAudit stores entry and only logs failures; auditing never fails the
// operation it describes.
func (c *Core) recordAudit(ctx context.Context, entry AuditLog) {
	if _, err := c.AddAuditLog(ctx, entry); err != nil {
		c.logger.Warn("audit log write failed", "operation", entry.Operation, "err", err)
	}
}

// recordRejected audits a mutation that matched no owned row, telling apart a
// missing transaction from one owned by another user.
func (c *Core) recordRejected(ctx context.Context, operation string, id int64, actor SessionUser) {
	outcome := AuditOutcomeMissing
	var owner sql.NullInt64
	err := c.QueryRowContext(ctx, "SELECT created_by FROM transactions WHERE id = ?", id).Scan(&owner)
	switch {
	case err == nil:
		outcome = AuditOutcomeMasked
	case !errors.Is(err, sql.ErrNoRows):
		c.logger.Warn("audit owner lookup failed", "id", id, "err", err)
	}

	var details *string
	if outcome == AuditOutcomeMasked && owner.Valid {
		details = stringPtr(fmt.Sprintf("owner %d", owner.Int64))
	}
	c.recordAudit(ctx, AuditLog{
		Operation:     operation,
		TransactionID: &id,
		ActorID:       actor.ID,
		Outcome:       outcome,
		Details:       details,
	})
	c.logger.Warn("transaction mutation rejected",
		"operation", operation,
		"id", id,
		"actor_id", actor.ID,
		"outcome", outcome,
	)
}
