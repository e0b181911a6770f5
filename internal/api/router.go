package api

import (
	"database/sql"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/erazemk/pisarna/internal/accounts"
	"github.com/erazemk/pisarna/internal/auth"
	"github.com/erazemk/pisarna/internal/catalog"
	"github.com/erazemk/pisarna/internal/metrics"
	"github.com/erazemk/pisarna/internal/model"
	"github.com/erazemk/pisarna/internal/workflow"
)

// Deps holds everything the router needs.
type Deps struct {
	DB       *sql.DB
	Tokens   *auth.Tokens
	Accounts *accounts.Service
	Catalog  *catalog.Service
	Workflow *workflow.Service
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
}

// NewRouter creates the HTTP handler with all endpoints registered.
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: d.DB, Accounts: d.Accounts, Tokens: d.Tokens}
	usersHandler := &UsersHandler{Accounts: d.Accounts}
	itemsHandler := &ItemsHandler{Catalog: d.Catalog}
	requestsHandler := &RequestsHandler{Workflow: d.Workflow}
	reportsHandler := &ReportsHandler{DB: d.DB}

	authMW := AuthMiddleware(d.Tokens, d.DB)
	requireAdmin := RequireRole(model.RoleAdmin)

	authed := func(h http.HandlerFunc) http.Handler { return authMW(h) }
	admin := func(h http.HandlerFunc) http.Handler { return authMW(requireAdmin(h)) }

	// Public.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("GET /healthz", healthz(d.DB))
	if d.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	// Own account.
	mux.Handle("POST /api/auth/logout", authed(authHandler.Logout))
	mux.Handle("GET /api/auth/me", authed(authHandler.Me))
	mux.Handle("PUT /api/auth/password", authed(authHandler.ChangePassword))

	// Users (admin only).
	mux.Handle("GET /api/users", admin(usersHandler.List))
	mux.Handle("POST /api/users", admin(usersHandler.Create))
	mux.Handle("GET /api/users/{id}", admin(usersHandler.Get))
	mux.Handle("PUT /api/users/{id}", admin(usersHandler.Update))
	mux.Handle("DELETE /api/users/{id}", admin(usersHandler.Delete))

	// Items: read (all roles), write (admin).
	mux.Handle("GET /api/items", authed(itemsHandler.List))
	mux.Handle("POST /api/items", admin(itemsHandler.Create))
	mux.Handle("GET /api/items/{id}", authed(itemsHandler.Get))
	mux.Handle("PUT /api/items/{id}", admin(itemsHandler.Update))
	mux.Handle("DELETE /api/items/{id}", admin(itemsHandler.Delete))
	mux.Handle("PUT /api/items/{id}/image", admin(itemsHandler.UploadImage))
	mux.Handle("GET /api/items/{id}/image", authed(itemsHandler.GetImage))

	// Requests: staff file and see their own, admins process.
	mux.Handle("GET /api/requests", authed(requestsHandler.List))
	mux.Handle("POST /api/requests", authed(requestsHandler.Create))
	mux.Handle("GET /api/requests/{id}", authed(requestsHandler.Get))
	mux.Handle("POST /api/requests/{id}/approve", admin(requestsHandler.Approve))
	mux.Handle("POST /api/requests/{id}/reject", admin(requestsHandler.Reject))

	// Reports (admin only).
	mux.Handle("GET /api/mutations", admin(reportsHandler.Mutations))
	mux.Handle("GET /api/activity", admin(reportsHandler.Activity))
	mux.Handle("GET /api/stats", admin(itemsHandler.Stats))

	return LoggingMiddleware(d.Metrics)(mux)
}

func healthz(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			writeError(w, r, err)
			return
		}
		jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
