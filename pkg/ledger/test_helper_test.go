package ledger

import (
	"context"
	"path/filepath"
	"testing"
)

// setupTestDB creates a migrated SQLite database in a temp directory and
// returns a Core for it.
func setupTestDB(t *testing.T) (*Core, func()) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	core, err := Open(Options{DBPath: dbPath})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	cleanup := func() {
		core.Close()
	}
	return core, cleanup
}

// testUser provisions an account and returns its session projection.
func testUser(t *testing.T, core *Core, name, email string) SessionUser {
	t.Helper()
	company := int64(1)
	user, err := core.CreateUser(context.Background(), NewUser{
		Name:      name,
		Email:     email,
		Password:  "secreto123",
		Role:      "socio",
		CompanyID: &company,
	})
	if err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user.Projection()
}

// testTransaction books a transaction for actor on company 1.
func testTransaction(t *testing.T, core *Core, actor SessionUser, date string, txType TransactionType, quantity, unitPrice string) Transaction {
	t.Helper()
	tx, err := core.CreateTransaction(context.Background(), TransactionInput{
		Date:          date,
		Concept:       "Concepto " + date,
		CompanyID:     1,
		PaymentMethod: "Transferencia",
		Quantity:      MustAmount(quantity),
		UnitPrice:     MustAmount(unitPrice),
		Type:          string(txType),
	}, actor)
	if err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}
