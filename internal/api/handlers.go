package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"gastos/internal/session"
	"gastos/pkg/ledger"
)

const (
	apiVersion   = "1.0.0"
	maxBodyBytes = 10 << 20
	// maxPageLimit caps page sizes requested over HTTP.
	maxPageLimit = 1000
	xlsxMIME     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

type transactionsResponse struct {
	Success    bool                 `json:"success"`
	Data       []ledger.Transaction `json:"data"`
	Pagination pagination           `json:"pagination"`
}

type appliedFilters struct {
	Type      *string `json:"tipo"`
	CompanyID *int64  `json:"empresa_id"`
	Partner   *string `json:"socio"`
	StartDate *string `json:"fecha_inicio"`
	EndDate   *string `json:"fecha_fin"`
}

type summaryResponse struct {
	Success bool           `json:"success"`
	Data    ledger.Summary `json:"data"`
	Filters appliedFilters `json:"filtros_aplicados"`
}

type healthServices struct {
	Database string `json:"database"`
	Tables   string `json:"tables"`
}

type healthResponse struct {
	Status      string            `json:"status"`
	Timestamp   string            `json:"timestamp"`
	Environment string            `json:"environment"`
	Version     string            `json:"version"`
	Services    healthServices    `json:"services"`
	Endpoints   map[string]string `json:"endpoints"`
}

// transactionPayload is the request body of create and update. empresa_id
// is accepted as a number or a numeric string.
type transactionPayload struct {
	Date          string        `json:"fecha"`
	Concept       string        `json:"concepto"`
	CompanyID     flexibleID    `json:"empresa_id"`
	PaymentMethod string        `json:"forma_pago"`
	Quantity      ledger.Amount `json:"cantidad"`
	UnitPrice     ledger.Amount `json:"precio_unitario"`
	Type          string        `json:"tipo"`
}

func (p transactionPayload) input() ledger.TransactionInput {
	return ledger.TransactionInput{
		Date:          p.Date,
		Concept:       p.Concept,
		CompanyID:     int64(p.CompanyID),
		PaymentMethod: p.PaymentMethod,
		Quantity:      p.Quantity,
		UnitPrice:     p.UnitPrice,
		Type:          p.Type,
	}
}

type flexibleID int64

func (id *flexibleID) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(strings.Trim(string(data), `"`))
	if raw == "" || raw == "null" {
		*id = 0
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("empresa_id inválido: %q", raw)
	}
	*id = flexibleID(v)
	return nil
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	dbUp := h.core.Probe(ctx)
	tablesReady := dbUp && h.core.TablesReady(ctx)

	resp := healthResponse{
		Status:      "OK",
		Timestamp:   time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
		Environment: h.env,
		Version:     apiVersion,
		Services:    healthServices{Database: "disconnected", Tables: "not_ready"},
		Endpoints: map[string]string{
			"login":         apiPrefix + "/login",
			"gastos":        apiPrefix + "/gastos",
			"ingresos":      apiPrefix + "/ingresos",
			"transacciones": apiPrefix + "/transactions",
			"resumen":       apiPrefix + "/transactions/resumen",
			"exportar":      apiPrefix + "/transactions/export",
			"empresas":      apiPrefix + "/empresas",
		},
	}
	if dbUp {
		resp.Services.Database = "connected"
	}
	if tablesReady {
		resp.Services.Tables = "ready"
	}

	status := http.StatusOK
	if !dbUp {
		resp.Status = "ERROR"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (h *handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	h.writeTransactionPage(w, r, "")
}

func (h *handler) listByType(txType ledger.TransactionType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.writeTransactionPage(w, r, txType)
	}
}

func (h *handler) writeTransactionPage(w http.ResponseWriter, r *http.Request, pinned ledger.TransactionType) {
	filter, err := parseFilter(r)
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	if pinned != "" {
		filter.Type = pinned
	}
	filter.Page = parseIntDefault(r.URL.Query().Get("page"), 1)
	filter.Limit = parseIntDefault(r.URL.Query().Get("limit"), ledger.DefaultPageLimit)
	if filter.Limit > maxPageLimit {
		filter.Limit = maxPageLimit
	}

	page, err := h.core.ListTransactions(r.Context(), filter)
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transactionsResponse{
		Success: true,
		Data:    page.Items,
		Pagination: pagination{
			Page:  page.Page,
			Limit: page.Limit,
			Total: page.Total,
			Pages: page.Pages,
		},
	})
}

func (h *handler) createTransaction(pinned ledger.TransactionType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload transactionPayload
		if err := decodeJSON(w, r, &payload); err != nil {
			writeErrorResponse(w, r, err)
			return
		}
		in := payload.input()
		if pinned != "" {
			in.Type = string(pinned)
		}

		actor, _ := session.UserFromContext(r.Context())
		tx, err := h.core.CreateTransaction(r.Context(), in, actor)
		if err != nil {
			writeErrorResponse(w, r, err)
			return
		}
		writeSuccessWithMessage(w, http.StatusCreated, tx.Type.Label()+" registrado exitosamente", tx)
	}
}

func (h *handler) updateTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var payload transactionPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeErrorResponse(w, r, err)
		return
	}

	actor, _ := session.UserFromContext(r.Context())
	if err := h.core.UpdateTransaction(r.Context(), id, payload.input(), actor); err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	tx, err := h.core.GetTransaction(r.Context(), id)
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeSuccessWithMessage(w, http.StatusOK, "Transacción actualizada exitosamente", tx)
}

func (h *handler) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	actor, _ := session.UserFromContext(r.Context())
	if err := h.core.DeleteTransaction(r.Context(), id, actor); err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeSuccessWithMessage(w, http.StatusOK, "Transacción eliminada exitosamente", nil)
}

func (h *handler) summary(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	summary, err := h.core.Summarize(r.Context(), filter)
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}

	applied := appliedFilters{
		Partner:   optionalString(filter.Partner),
		StartDate: optionalString(filter.StartDate),
		EndDate:   optionalString(filter.EndDate),
		Type:      optionalString(string(filter.Type)),
	}
	if filter.CompanyID > 0 {
		id := filter.CompanyID
		applied.CompanyID = &id
	}
	writeJSON(w, http.StatusOK, summaryResponse{Success: true, Data: summary, Filters: applied})
}

func (h *handler) exportTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := h.core.ExportTransactions(r.Context(), filter, &buf); err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxMIME)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, ledger.ExportFileName()))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *handler) listCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.core.ListCompanies(r.Context())
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeSuccess(w, companies)
}

// listAuditLogs is restricted to admins: entries tell apart transactions
// owned by others from missing ones.
func (h *handler) listAuditLogs(w http.ResponseWriter, r *http.Request) {
	if user, _ := session.UserFromContext(r.Context()); !user.IsAdmin() {
		writeErrorResponse(w, r, ledger.NewError(ledger.ErrCodeForbidden, msgForbidden))
		return
	}
	limit := parseIntDefault(r.URL.Query().Get("limit"), 50)
	offset := parseIntDefault(r.URL.Query().Get("offset"), 0)
	limit, offset = normalizeLimitOffset(limit, offset)
	logs, err := h.core.ListAuditLogs(r.Context(), limit, offset)
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeSuccess(w, logs)
}

// Helpers.

// parseFilter reads the shared filter parameters. Both the Spanish and
// English names are accepted for type and company.
func parseFilter(r *http.Request) (ledger.Filter, error) {
	query := r.URL.Query()
	filter := ledger.Filter{
		Partner:   query.Get("socio"),
		StartDate: query.Get("fechaInicio"),
		EndDate:   query.Get("fechaFin"),
	}

	if raw := firstNonEmpty(query.Get("tipo"), query.Get("type")); raw != "" {
		txType, ok := ledger.ParseTransactionType(raw)
		if !ok {
			return filter, ledger.NewError(ledger.ErrCodeValidation, "tipo debe ser G (gasto) o I (ingreso)")
		}
		filter.Type = txType
	}
	if raw := firstNonEmpty(query.Get("empresa_id"), query.Get("company_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id < 0 {
			return filter, ledger.NewError(ledger.ErrCodeValidation, "empresa_id inválido")
		}
		filter.CompanyID = id
	}
	return filter, nil
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, http.StatusBadRequest, "ID de transacción inválido")
		return 0, false
	}
	return id, true
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst untouched
// so required field checks report what is missing.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return ledger.WrapError(ledger.ErrCodeValidation, "Cuerpo JSON inválido", err)
	}
	return nil
}

func parseIntDefault(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return i
}

func normalizeLimitOffset(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 50
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
