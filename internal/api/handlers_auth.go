package api

import (
	"net/http"

	"gastos/internal/session"
	"gastos/pkg/ledger"
)

type loginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success     bool               `json:"success"`
	Message     string             `json:"message"`
	User        ledger.SessionUser `json:"user"`
	RedirectURL string             `json:"redirectUrl"`
}

type logoutResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	RedirectURL string `json:"redirectUrl"`
}

type currentUserResponse struct {
	Success bool               `json:"success"`
	User    ledger.SessionUser `json:"user"`
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var payload loginPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	user, err := h.core.Authenticate(r.Context(), payload.Email, payload.Password)
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	if err := h.sessions.Issue(r.Context(), w, user); err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	h.core.Logger().Info("login succeeded", "user_id", user.ID, "role", user.Role)
	writeJSON(w, http.StatusOK, loginResponse{
		Success:     true,
		Message:     "Login exitoso",
		User:        user,
		RedirectURL: dashboardPage,
	})
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Destroy(w, r); err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, logoutResponse{
		Success:     true,
		Message:     "Sesión cerrada exitosamente",
		RedirectURL: loginPage,
	})
}

func (h *handler) currentUser(w http.ResponseWriter, r *http.Request) {
	user, _ := session.UserFromContext(r.Context())
	writeJSON(w, http.StatusOK, currentUserResponse{Success: true, User: user})
}

// requireAuth rejects requests without a valid session and exposes the
// session user to downstream handlers.
func (h *handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := h.sessions.Load(r)
		if !ok {
			writeError(w, r, http.StatusUnauthorized, msgUnauthorized)
			return
		}
		if lw, ok := w.(interface{ SetUserID(int64) }); ok {
			lw.SetUserID(user.ID)
		}
		next.ServeHTTP(w, r.WithContext(session.WithUser(r.Context(), user)))
	})
}

// landing sends browsers to the dashboard or the login page.
func (h *handler) landing(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.sessions.Load(r); ok {
		http.Redirect(w, r, dashboardPage, http.StatusFound)
		return
	}
	http.Redirect(w, r, loginPage, http.StatusFound)
}

// notFound answers unknown API paths with JSON and sends browsers to the
// login page.
func (h *handler) notFound(w http.ResponseWriter, r *http.Request) {
	if isAPIPath(r.URL.Path) {
		setErrorMessage(w, msgNotFound)
		writeJSON(w, http.StatusNotFound, ErrorResponse{
			Error:   msgNotFound,
			Message: msgNotFound,
			Path:    r.URL.Path,
		})
		return
	}
	if r.URL.Path == loginPage {
		http.Error(w, "Página no encontrada", http.StatusNotFound)
		return
	}
	http.Redirect(w, r, loginPage, http.StatusFound)
}
