package ledger

import (
	"database/sql/driver"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// Amount wraps decimal.Decimal for MXN values.
// JSON marshaling outputs a number so dashboards can consume it directly,
// while arithmetic stays in decimal.
type Amount struct {
	decimal.Decimal
}

// MarshalJSON outputs as a JSON number (not a string).
func (a Amount) MarshalJSON() ([]byte, error) {
	f, _ := a.Round(4).Float64()
	return []byte(strconv.FormatFloat(f, 'f', -1, 64)), nil
}

// UnmarshalJSON accepts both JSON numbers and quoted strings.
func (a *Amount) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		a.Decimal = decimal.Zero
		return nil
	}
	return a.Decimal.UnmarshalJSON(data)
}

// Scan implements sql.Scanner. SQLite hands back REAL columns as float64,
// MySQL hands back DECIMAL columns as []byte.
func (a *Amount) Scan(src any) error {
	if src == nil {
		a.Decimal = decimal.Zero
		return nil
	}
	switch v := src.(type) {
	case float64:
		a.Decimal = decimal.NewFromFloat(v)
		return nil
	case int64:
		a.Decimal = decimal.NewFromInt(v)
		return nil
	case []byte:
		return a.parse(string(v))
	case string:
		return a.parse(v)
	}
	return a.Decimal.Scan(src)
}

func (a *Amount) parse(v string) error {
	d, err := decimal.NewFromString(v)
	if err != nil {
		return fmt.Errorf("scan amount %q: %w", v, err)
	}
	a.Decimal = d
	return nil
}

// Value implements driver.Valuer. Values are written as fixed-point strings
// so MySQL DECIMAL columns receive them exactly.
func (a Amount) Value() (driver.Value, error) {
	return a.StringFixed(4), nil
}

// NewAmountFromInt creates an Amount from an int64.
func NewAmountFromInt(i int64) Amount {
	return Amount{decimal.NewFromInt(i)}
}

// MustAmount parses s and panics on malformed input. Intended for literals.
func MustAmount(s string) Amount {
	return Amount{decimal.RequireFromString(s)}
}

// Mul returns a × b.
func (a Amount) Mul(b Amount) Amount {
	return Amount{a.Decimal.Mul(b.Decimal)}
}

// Add returns a + b.
func (a Amount) Add(b Amount) Amount {
	return Amount{a.Decimal.Add(b.Decimal)}
}

// Sub returns a − b.
func (a Amount) Sub(b Amount) Amount {
	return Amount{a.Decimal.Sub(b.Decimal)}
}

// Round2 rounds to cents.
func (a Amount) Round2() Amount {
	return Amount{a.Round(2)}
}

// Round4 rounds to the precision totals are stored with.
func (a Amount) Round4() Amount {
	return Amount{a.Round(4)}
}

// Equal reports whether a and b are numerically equal.
func (a Amount) Equal(b Amount) bool {
	return a.Decimal.Equal(b.Decimal)
}
