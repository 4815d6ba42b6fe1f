package ledger

import "strings"

// TransactionType distinguishes expenses from income.
type TransactionType string

const (
	TypeExpense TransactionType = "G"
	TypeIncome  TransactionType = "I"
)

// ParseTransactionType normalizes a client supplied type. Besides the stored
// codes it accepts the English and Spanish words.
func ParseTransactionType(value string) (TransactionType, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "g", "gasto", "gastos", "expense":
		return TypeExpense, true
	case "i", "ingreso", "ingresos", "income":
		return TypeIncome, true
	}
	return "", false
}

// Label returns the display word for the type.
func (t TransactionType) Label() string {
	switch t {
	case TypeExpense:
		return "Gasto"
	case TypeIncome:
		return "Ingreso"
	}
	return string(t)
}

// PaymentMethods lists the payment methods offered by the dashboard forms.
// Stored values are free text and are not checked against this list.
var PaymentMethods = []string{"Transferencia", "Efectivo", "TDC", "Cheque", "TPV"}

// Company is a business unit transactions are booked against.
type Company struct {
	ID           int64  `json:"id"`
	Name         string `json:"nombre"`
	BusinessType string `json:"tipo_negocio"`
}

// User is a stored account. The password hash never leaves this package.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         string
	CompanyID    *int64
	Active       bool
}

// Projection returns the session view of the user.
func (u User) Projection() SessionUser {
	return SessionUser{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CompanyID: u.CompanyID,
	}
}

// RoleAdmin is the role allowed to read the audit log.
const RoleAdmin = "admin"

// SessionUser is the minimal user view kept in a session.
type SessionUser struct {
	ID        int64  `json:"id"`
	Name      string `json:"nombre"`
	Email     string `json:"email"`
	Role      string `json:"rol"`
	CompanyID *int64 `json:"empresa"`
}

// IsAdmin reports whether the user holds RoleAdmin.
func (u SessionUser) IsAdmin() bool {
	return strings.EqualFold(strings.TrimSpace(u.Role), RoleAdmin)
}

// NewUser describes an account to provision.
type NewUser struct {
	Name      string
	Email     string
	Password  string
	Role      string
	CompanyID *int64
	// Temporary stores the bootstrap placeholder hash instead of Password.
	Temporary bool
}

// Transaction is a stored expense or income row.
type Transaction struct {
	ID            int64           `json:"id"`
	Date          string          `json:"fecha"`
	Concept       string          `json:"concepto"`
	PartnerName   string          `json:"socio"`
	CompanyID     int64           `json:"empresa_id"`
	PaymentMethod string          `json:"forma_pago"`
	Quantity      Amount          `json:"cantidad"`
	UnitPrice     Amount          `json:"precio_unitario"`
	Type          TransactionType `json:"tipo"`
	Total         Amount          `json:"total"`
	CreatedBy     *int64          `json:"created_by"`
	CreatedAt     string          `json:"created_at"`
	CompanyName   *string         `json:"nombre_empresa"`
}

// TransactionInput holds the client editable fields of a transaction.
// Partner and creator are taken from the acting user.
type TransactionInput struct {
	Date          string `json:"fecha"`
	Concept       string `json:"concepto"`
	CompanyID     int64  `json:"empresa_id"`
	PaymentMethod string `json:"forma_pago"`
	Quantity      Amount `json:"cantidad"`
	UnitPrice     Amount `json:"precio_unitario"`
	Type          string `json:"tipo"`
}

// TransactionPage is one page of a filtered listing.
type TransactionPage struct {
	Items []Transaction
	Total int64
	Page  int
	Limit int
	Pages int64
}

// Summary aggregates a filtered set of transactions.
type Summary struct {
	Income            Amount  `json:"ingresos"`
	Expenses          Amount  `json:"gastos"`
	Balance           Amount  `json:"balance"`
	TransactionCount  int64   `json:"total_transacciones"`
	FirstDate         *string `json:"fecha_primera"`
	LastDate          *string `json:"fecha_ultima"`
	DistinctPartners  int64   `json:"total_socios"`
	DistinctCompanies int64   `json:"total_empresas"`

	incomeCount  int64
	expenseCount int64
}

// Reconciled reports whether the per-type counts add up to the detail count.
func (s Summary) Reconciled() bool {
	return s.incomeCount+s.expenseCount == s.TransactionCount
}

// AuditLog records a mutation attempt against a transaction.
type AuditLog struct {
	ID            int64   `json:"id"`
	Operation     string  `json:"operation"`
	TransactionID *int64  `json:"transaction_id,omitempty"`
	ActorID       int64   `json:"actor_id"`
	Outcome       string  `json:"outcome"`
	Details       *string `json:"details,omitempty"`
	CreatedAt     string  `json:"created_at"`
}
