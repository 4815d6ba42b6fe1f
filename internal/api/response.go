package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"gastos/pkg/ledger"
)

const (
	msgInternal     = "Error interno del servidor"
	msgUnauthorized = "Acceso no autorizado"
	msgForbidden    = "Acceso denegado"
	msgNotFound     = "Endpoint no encontrado"
)

// Response represents a successful API response.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// ErrorResponse represents a failed API response. Error and Message carry
// the same text.
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	ErrorCode string `json:"error_code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Path      string `json:"path,omitempty"`
}

// writeSuccess writes a 200 response with data.
func writeSuccess(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Response{Success: true, Data: data})
}

// writeSuccessWithMessage writes a successful response with a message and data.
func writeSuccessWithMessage(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, Response{Success: true, Message: message, Data: data})
}

// writeErrorResponse maps err to a status and writes the error envelope.
// Database and internal failures never expose their details.
func writeErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	code := ledger.CodeOf(err)
	status := mapErrorCodeToHTTPStatus(code)

	message := msgInternal
	var lerr *ledger.Error
	if errors.As(err, &lerr) && code != ledger.ErrCodeDatabase && code != ledger.ErrCodeInternal {
		message = lerr.Message
	}

	setErrorMessage(w, err.Error())
	writeJSON(w, status, ErrorResponse{
		Error:     message,
		Message:   message,
		ErrorCode: string(code),
		RequestID: middleware.GetReqID(r.Context()),
	})
}

// writeError writes a client error with a fixed message.
func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	setErrorMessage(w, message)
	writeJSON(w, status, ErrorResponse{
		Error:     message,
		Message:   message,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

func setErrorMessage(w http.ResponseWriter, message string) {
	if lw, ok := w.(interface{ SetErrorMessage(string) }); ok {
		lw.SetErrorMessage(message)
	}
}

// mapErrorCodeToHTTPStatus maps business error codes to HTTP status codes.
func mapErrorCodeToHTTPStatus(code ledger.ErrorCode) int {
	switch code {
	case ledger.ErrCodeValidation:
		return http.StatusBadRequest
	case ledger.ErrCodeInvalidCredentials, ledger.ErrCodeUnauthenticated:
		return http.StatusUnauthorized
	case ledger.ErrCodeForbidden:
		return http.StatusForbidden
	case ledger.ErrCodeNotFound:
		return http.StatusNotFound
	case ledger.ErrCodeDuplicate:
		return http.StatusConflict
	case ledger.ErrCodeSessionTeardown, ledger.ErrCodeDatabase, ledger.ErrCodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func isAPIPath(path string) bool {
	return path == apiPrefix || strings.HasPrefix(path, apiPrefix+"/")
}
