package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	mw "github.com/kiranshivaraju/boothboard/internal/api/middleware"
	"github.com/kiranshivaraju/boothboard/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler  http.HandlerFunc
	MetricsHandler http.Handler

	ListClientsHandler       http.HandlerFunc
	GetClientHandler         http.HandlerFunc
	ListOrgUnitsHandler      http.HandlerFunc
	GetOrgUnitHandler        http.HandlerFunc
	ListBoothsHandler        http.HandlerFunc
	BusyBoothsHandler        http.HandlerFunc
	GetBoothHandler          http.HandlerFunc
	ListUsageSessionsHandler http.HandlerFunc
	GetUsageSessionHandler   http.HandlerFunc

	TreeHandler    http.HandlerFunc
	UsageHandler   http.HandlerFunc
	SummaryHandler http.HandlerFunc
	ExportHandler  http.HandlerFunc

	CreateKeyHandler http.HandlerFunc
	ListKeysHandler  http.HandlerFunc
	RevokeKeyHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics)

	// Public
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Get("/api/v1/tree", orNotImplemented(deps.TreeHandler))

		r.Get("/api/v1/clients", orNotImplemented(deps.ListClientsHandler))
		r.Get("/api/v1/clients/{clientID}", orNotImplemented(deps.GetClientHandler))
		r.Get("/api/v1/org-units", orNotImplemented(deps.ListOrgUnitsHandler))
		r.Get("/api/v1/org-units/{orgUnitID}", orNotImplemented(deps.GetOrgUnitHandler))
		r.Get("/api/v1/booths", orNotImplemented(deps.ListBoothsHandler))
		r.Get("/api/v1/booths/busy", orNotImplemented(deps.BusyBoothsHandler))
		r.Get("/api/v1/booths/{boothID}", orNotImplemented(deps.GetBoothHandler))
		r.Get("/api/v1/usage-sessions", orNotImplemented(deps.ListUsageSessionsHandler))
		r.Get("/api/v1/usage-sessions/{sessionID}", orNotImplemented(deps.GetUsageSessionHandler))

		r.Get("/api/v1/reports/usage", orNotImplemented(deps.UsageHandler))
		r.Get("/api/v1/reports/usage.xlsx", orNotImplemented(deps.ExportHandler))
		r.Get("/api/v1/reports/summary", orNotImplemented(deps.SummaryHandler))

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope("admin"))

			r.Post("/api/v1/admin/keys", orNotImplemented(deps.CreateKeyHandler))
			r.Get("/api/v1/admin/keys", orNotImplemented(deps.ListKeysHandler))
			r.Delete("/api/v1/admin/keys/{keyID}", orNotImplemented(deps.RevokeKeyHandler))
		})
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
