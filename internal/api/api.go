package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"gastos/internal/session"
	"gastos/pkg/ledger"
)

const (
	basePath  = "/gastos"
	apiPrefix = basePath + "/api"

	loginPage     = basePath + "/login.html"
	dashboardPage = basePath + "/dashboard.html"
)

// Options tunes the router. The zero value is usable.
type Options struct {
	// Environment is reported by the health endpoint.
	Environment string
	// AllowedOrigins lists cross-origin callers. Empty serves same-origin
	// clients only. Credentials are never allowed for "*".
	AllowedOrigins []string
	// Logger overrides the core logger for request logs.
	Logger *slog.Logger
}

// NewRouter builds the HTTP API router.
func NewRouter(core *ledger.Core, sessions *session.Manager, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil && core != nil {
		logger = core.Logger()
	}
	if opts.Environment == "" {
		opts.Environment = "development"
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLoggingMiddleware(logger))
	r.Use(recoveryLoggingMiddleware(logger))
	r.Use(securityHeaders(defaultHeadersConfig()))
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(corsOptions(opts.AllowedOrigins)))
	}

	h := &handler{core: core, sessions: sessions, env: opts.Environment}

	r.NotFound(h.notFound)
	r.MethodNotAllowed(h.notFound)

	r.Get(basePath, h.landing)
	r.Get(basePath+"/", h.landing)

	r.Route(apiPrefix, func(r chi.Router) {
		r.Get("/health", h.health)

		// Auth
		r.Post("/login", h.login)
		r.Post("/logout", h.logout)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)

			r.Get("/user", h.currentUser)

			// Transactions
			r.Get("/transactions", h.listTransactions)
			r.Post("/transactions", h.createTransaction(""))
			r.Get("/transactions/resumen", h.summary)
			r.Get("/transactions/export", h.exportTransactions)
			r.Put("/transactions/{id}", h.updateTransaction)
			r.Delete("/transactions/{id}", h.deleteTransaction)

			// Pinned type shortcuts
			r.Get("/gastos", h.listByType(ledger.TypeExpense))
			r.Post("/gastos", h.createTransaction(ledger.TypeExpense))
			r.Get("/ingresos", h.listByType(ledger.TypeIncome))
			r.Post("/ingresos", h.createTransaction(ledger.TypeIncome))

			r.Get("/empresas", h.listCompanies)
			r.Get("/audit-logs", h.listAuditLogs)
		})
	})

	return r
}

func corsOptions(origins []string) cors.Options {
	allowCredentials := true
	for _, origin := range origins {
		if origin == "*" {
			allowCredentials = false
		}
	}
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: allowCredentials,
	}
}

type handler struct {
	core     *ledger.Core
	sessions *session.Manager
	env      string
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
