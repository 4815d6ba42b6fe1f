package session

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"gastos/pkg/ledger"
)

const (
	// CookieName is the session cookie set on login.
	CookieName = "gastos.sid"
	// DefaultTTL is how long a session stays valid after login.
	DefaultTTL = 24 * time.Hour
)

// Options configures a Manager.
type Options struct {
	Secret string
	TTL    time.Duration
	// Secure marks the cookie for HTTPS only.
	Secure bool
	Logger *slog.Logger
}

// Manager issues, loads and destroys cookie-bound server-side sessions.
// The cookie carries only the session id and its HMAC.
type Manager struct {
	store  Store
	secret []byte
	ttl    time.Duration
	secure bool
	logger *slog.Logger
}

// NewManager creates a Manager backed by store.
func NewManager(store Store, opts Options) *Manager {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:  store,
		secret: []byte(opts.Secret),
		ttl:    ttl,
		secure: opts.Secure,
		logger: logger,
	}
}

// Issue stores user under a fresh session id and sets the session cookie.
func (m *Manager) Issue(ctx context.Context, w http.ResponseWriter, user ledger.SessionUser) error {
	id := uuid.NewString()
	if err := m.store.Save(ctx, id, user, m.ttl); err != nil {
		return ledger.WrapError(ledger.ErrCodeInternal, "save session", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    m.sign(id),
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(m.ttl.Seconds()),
		Expires:  time.Now().Add(m.ttl),
	})
	return nil
}

// Load returns the user bound to the request's session cookie. Missing,
// tampered and expired sessions all report false.
func (m *Manager) Load(r *http.Request) (ledger.SessionUser, bool) {
	id, ok := m.sessionID(r)
	if !ok {
		return ledger.SessionUser{}, false
	}
	user, err := m.store.Get(r.Context(), id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.logger.Warn("session lookup failed", "err", err)
		}
		return ledger.SessionUser{}, false
	}
	return user, true
}

// Destroy deletes the request's session and clears the cookie. The cookie is
// cleared even when the store fails.
func (m *Manager) Destroy(w http.ResponseWriter, r *http.Request) error {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})

	id, ok := m.sessionID(r)
	if !ok {
		return nil
	}
	if err := m.store.Delete(r.Context(), id); err != nil {
		return ledger.WrapError(ledger.ErrCodeSessionTeardown, "No se pudo cerrar la sesión", err)
	}
	return nil
}

func (m *Manager) sessionID(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return m.verify(cookie.Value)
}

func (m *Manager) sign(id string) string {
	return id + "." + m.mac(id)
}

func (m *Manager) verify(value string) (string, bool) {
	idx := strings.LastIndexByte(value, '.')
	if idx <= 0 {
		return "", false
	}
	id, sig := value[:idx], value[idx+1:]
	if !hmac.Equal([]byte(sig), []byte(m.mac(id))) {
		return "", false
	}
	return id, true
}

func (m *Manager) mac(id string) string {
	h := hmac.New(sha256.New, m.secret)
	h.Write([]byte(id))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
