package ledger

import (
	"context"
	"testing"
)

func TestMethodsOnClosedDBReturnError(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	actor := testUser(t, core, "Marco Delgado", "marco@example.com")
	// Warm the company cache so validation reaches the database write.
	if _, err := core.ListCompanies(ctx); err != nil {
		t.Fatalf("ListCompanies: %v", err)
	}
	_ = core.Close()

	if core.Probe(ctx) {
		t.Fatalf("expected probe to fail on closed db")
	}
	if core.TablesReady(ctx) {
		t.Fatalf("expected tables not ready on closed db")
	}
	if _, err := core.ListTransactions(ctx, Filter{}); !IsErrorCode(err, ErrCodeDatabase) {
		t.Fatalf("expected database error from ListTransactions, got %v", err)
	}
	if _, err := core.Summarize(ctx, Filter{}); !IsErrorCode(err, ErrCodeDatabase) {
		t.Fatalf("expected database error from Summarize, got %v", err)
	}
	if _, err := core.GetTransaction(ctx, 1); !IsErrorCode(err, ErrCodeDatabase) {
		t.Fatalf("expected database error from GetTransaction, got %v", err)
	}
	_, err := core.CreateTransaction(ctx, TransactionInput{
		Date: "2025-01-01", Concept: "x", CompanyID: 1, PaymentMethod: "Efectivo",
		Quantity: NewAmountFromInt(1), UnitPrice: NewAmountFromInt(1), Type: "G",
	}, actor)
	if !IsErrorCode(err, ErrCodeDatabase) {
		t.Fatalf("expected database error from CreateTransaction, got %v", err)
	}
	if err := core.DeleteTransaction(ctx, 1, actor); !IsErrorCode(err, ErrCodeDatabase) {
		t.Fatalf("expected database error from DeleteTransaction, got %v", err)
	}
	if _, err := core.Authenticate(ctx, "marco@example.com", "secreto123"); !IsErrorCode(err, ErrCodeDatabase) {
		t.Fatalf("expected database error from Authenticate, got %v", err)
	}
	if _, err := core.ListAuditLogs(ctx, 10, 0); !IsErrorCode(err, ErrCodeDatabase) {
		t.Fatalf("expected database error from ListAuditLogs, got %v", err)
	}
	if err := core.SetPassword(ctx, actor.ID, "nueva-clave"); !IsErrorCode(err, ErrCodeDatabase) {
		t.Fatalf("expected database error from SetPassword, got %v", err)
	}
}
