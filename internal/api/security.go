package api

import (
	"fmt"
	"net/http"
	"strings"
)

// headersConfig holds the security headers set on every response.
type headersConfig struct {
	CSP                 string
	HSTSMaxAge          int
	FrameOptions        string
	ContentTypeOptions  string
	ReferrerPolicy      string
	PermissionsPolicy   string
	CrossOriginOpener   string
	CrossOriginResource string
}

// dashboardCSP allows the CDNs the dashboard pages load fonts, styles and
// charts from.
var dashboardCSP = strings.Join([]string{
	"default-src 'self'",
	"style-src 'self' 'unsafe-inline' https://fonts.googleapis.com https://cdnjs.cloudflare.com https://cdn.jsdelivr.net",
	"script-src 'self' 'unsafe-inline' 'unsafe-hashes' https://cdnjs.cloudflare.com https://cdn.jsdelivr.net",
	"script-src-attr 'unsafe-inline'",
	"font-src 'self' https://fonts.gstatic.com https://cdnjs.cloudflare.com",
	"img-src 'self' data: https:",
	"connect-src 'self'",
	"object-src 'none'",
	"frame-ancestors 'none'",
	"base-uri 'self'",
	"form-action 'self'",
}, "; ")

func defaultHeadersConfig() headersConfig {
	return headersConfig{
		CSP:                 dashboardCSP,
		HSTSMaxAge:          15552000, // 180 days
		FrameOptions:        "DENY",
		ContentTypeOptions:  "nosniff",
		ReferrerPolicy:      "strict-origin-when-cross-origin",
		PermissionsPolicy:   "geolocation=(), microphone=(), camera=(), payment=()",
		CrossOriginOpener:   "same-origin",
		CrossOriginResource: "same-origin",
	}
}

// securityHeaders sets the headers of cfg before the next handler runs.
// HSTS is only sent over TLS.
func securityHeaders(cfg headersConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", cfg.ContentTypeOptions)
			h.Set("X-Frame-Options", cfg.FrameOptions)
			h.Set("Referrer-Policy", cfg.ReferrerPolicy)
			h.Set("Permissions-Policy", cfg.PermissionsPolicy)
			h.Set("Cross-Origin-Opener-Policy", cfg.CrossOriginOpener)
			h.Set("Cross-Origin-Resource-Policy", cfg.CrossOriginResource)
			if cfg.CSP != "" {
				h.Set("Content-Security-Policy", cfg.CSP)
			}
			if r.TLS != nil && cfg.HSTSMaxAge > 0 {
				h.Set("Strict-Transport-Security", fmt.Sprintf("max-age=%d; includeSubDomains", cfg.HSTSMaxAge))
			}
			next.ServeHTTP(w, r)
		})
	}
}
