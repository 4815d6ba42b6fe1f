package ledger

import (
	"math"
	"strings"
	"time"
)

// DefaultPageLimit is the page size used when a listing does not set one.
const DefaultPageLimit = 50

// Filter narrows transaction listings, summaries and exports. All fields are
// optional and combined with AND. Page and Limit only apply to listings.
type Filter struct {
	Type      TransactionType
	CompanyID int64
	// Partner matches partner names containing it, ignoring case.
	Partner string
	// StartDate and EndDate bound the date inclusively (YYYY-MM-DD).
	StartDate string
	EndDate   string
	Page      int
	Limit     int
}

// normalize validates the filter and coerces pagination to positive values.
// No upper bound is placed on Limit. Page is clamped so the offset fits in an int.
func (f Filter) normalize() (Filter, error) {
	if f.Type != "" && f.Type != TypeExpense && f.Type != TypeIncome {
		return f, validationError("tipo debe ser G (gasto) o I (ingreso)")
	}
	if f.CompanyID < 0 {
		return f, validationError("empresa_id inválido")
	}
	f.Partner = strings.TrimSpace(f.Partner)
	f.StartDate = strings.TrimSpace(f.StartDate)
	f.EndDate = strings.TrimSpace(f.EndDate)
	if f.StartDate != "" && !isValidDate(f.StartDate) {
		return f, validationError("fechaInicio debe tener formato YYYY-MM-DD")
	}
	if f.EndDate != "" && !isValidDate(f.EndDate) {
		return f, validationError("fechaFin debe tener formato YYYY-MM-DD")
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = DefaultPageLimit
	}
	if maxPage := math.MaxInt/f.Limit + 1; f.Page > maxPage {
		f.Page = maxPage
	}
	return f, nil
}

func (f Filter) offset() int {
	return (f.Page - 1) * f.Limit
}

// where renders the shared predicate for listings, counts and aggregates.
// Columns are qualified with the alias t.
func (f Filter) where() (string, []any) {
	var b strings.Builder
	var args []any
	b.WriteString(" WHERE 1=1")
	if f.Type != "" {
		b.WriteString(" AND t.type = ?")
		args = append(args, string(f.Type))
	}
	if f.CompanyID > 0 {
		b.WriteString(" AND t.company_id = ?")
		args = append(args, f.CompanyID)
	}
	if f.Partner != "" {
		b.WriteString(" AND t.partner_search LIKE ? ESCAPE '!'")
		args = append(args, "%"+escapeLike(partnerSearchKey(f.Partner))+"%")
	}
	if f.StartDate != "" {
		b.WriteString(" AND t.date >= ?")
		args = append(args, f.StartDate)
	}
	if f.EndDate != "" {
		b.WriteString(" AND t.date <= ?")
		args = append(args, f.EndDate)
	}
	return b.String(), args
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func isValidDate(value string) bool {
	_, err := time.Parse(dateLayout, value)
	return err == nil
}
