package api

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gastos/internal/session"
	"gastos/pkg/ledger"
)

func setupRouterWithOrigins(t *testing.T, origins ...string) http.Handler {
	t.Helper()
	core, err := ledger.Open(ledger.Options{DBPath: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { core.Close() })
	sessions := session.NewManager(session.NewMemoryStore(), session.Options{Secret: "test-secret"})
	return NewRouter(core, sessions, Options{Environment: "test", AllowedOrigins: origins})
}

func preflight(router http.Handler, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodOptions, "/gastos/api/transactions", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func assertSecurityHeaders(t *testing.T, rr *httptest.ResponseRecorder) {
	t.Helper()
	want := map[string]string{
		"X-Content-Type-Options":       "nosniff",
		"X-Frame-Options":              "DENY",
		"Referrer-Policy":              "strict-origin-when-cross-origin",
		"Cross-Origin-Opener-Policy":   "same-origin",
		"Cross-Origin-Resource-Policy": "same-origin",
	}
	for name, value := range want {
		if got := rr.Header().Get(name); got != value {
			t.Fatalf("expected %s %q, got %q", name, value, got)
		}
	}
	csp := rr.Header().Get("Content-Security-Policy")
	for _, directive := range []string{"default-src 'self'", "frame-ancestors 'none'", "connect-src 'self'"} {
		if !strings.Contains(csp, directive) {
			t.Fatalf("expected CSP to contain %q, got %q", directive, csp)
		}
	}
}

func TestSecurityHeadersOnAPIResponses(t *testing.T) {
	router, _, cleanup := setupTestRouter(t)
	defer cleanup()

	for _, path := range []string{"/gastos/api/health", "/gastos/api/transactions", "/gastos/api/no-existe", "/gastos"} {
		rr := doRequest(router, http.MethodGet, path, nil)
		assertSecurityHeaders(t, rr)
		if rr.Header().Get("Strict-Transport-Security") != "" {
			t.Fatalf("%s: HSTS must not be sent over plain HTTP", path)
		}
	}
}

func TestSecurityHeadersHSTSOverTLS(t *testing.T) {
	router, _, cleanup := setupTestRouter(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/gastos/api/health", nil)
	req.TLS = &tls.ConnectionState{}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if got := rr.Header().Get("Strict-Transport-Security"); !strings.HasPrefix(got, "max-age=") {
		t.Fatalf("expected HSTS over TLS, got %q", got)
	}
}

func TestSecurityHeadersOnStaticFiles(t *testing.T) {
	webDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(webDir, "dashboard.html"), []byte("DASHBOARD"), 0o644); err != nil {
		t.Fatalf("write dashboard: %v", err)
	}
	h := WithStatic(http.NotFoundHandler(), webDir)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/gastos/dashboard.html", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	assertSecurityHeaders(t, rr)
}

func TestCORSSameOriginByDefault(t *testing.T) {
	router, _, cleanup := setupTestRouter(t)
	defer cleanup()

	rr := preflight(router, "http://otro-sitio.test")
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no CORS grant without configured origins, got %q", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Credentials"); got != "" {
		t.Fatalf("expected no credential grant, got %q", got)
	}
}

func TestCORSConfiguredOrigins(t *testing.T) {
	router := setupRouterWithOrigins(t, "http://localhost:5173")

	rr := preflight(router, "http://localhost:5173")
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("expected allowed origin echoed, got %q", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Fatalf("expected credentials allowed, got %q", got)
	}

	rr = preflight(router, "http://otro-sitio.test")
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected unknown origin rejected, got %q", got)
	}
}

func TestCORSWildcardNeverAllowsCredentials(t *testing.T) {
	opts := corsOptions([]string{"*"})
	if opts.AllowCredentials {
		t.Fatalf("expected credentials disabled for wildcard origin")
	}
	if !corsOptions([]string{"https://app.symbiot.com.mx"}).AllowCredentials {
		t.Fatalf("expected credentials enabled for explicit origins")
	}
}
