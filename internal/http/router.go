// Package httpapi assembles the HTTP surface: the shared middleware chain,
// every feature handler, and the envelope-shaped fallbacks for unmatched
// routes.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	authhandler "till/internal/auth/handler"
	cataloghandler "till/internal/catalog/handler"
	"till/internal/platform/metrics"
	"till/internal/platform/middleware"
	saleshandler "till/internal/sales/handler"
	"till/internal/settings"
	"till/internal/vision"
	"till/pkg/platform/httputil"
)

// Deps carries everything the router wires together. Settings and Vision
// are optional; the rest are required by Router's callers in practice.
type Deps struct {
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Tokens   middleware.TokenValidator
	Sessions middleware.SessionChecker

	Auth     *authhandler.Handler
	Catalog  *cataloghandler.Handler
	Sales    *saleshandler.Handler
	Settings *settings.Handler
	Vision   *vision.Handler
}

// New builds the full router. Authentication runs on every request so any
// route can read the caller's claims; authorization stays with each route's
// permission gate.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Tracing)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(chimiddleware.Timeout(30 * time.Second))
	r.Use(middleware.ContentTypeJSON)
	r.Use(middleware.Latency(deps.Metrics))
	r.Use(middleware.Authenticate(deps.Tokens, deps.Sessions, deps.Logger))

	r.Get("/health", handleHealth)

	if deps.Auth != nil {
		deps.Auth.Register(r)
	}
	if deps.Catalog != nil {
		deps.Catalog.Register(r)
	}
	if deps.Sales != nil {
		deps.Sales.Register(r)
	}
	if deps.Settings != nil {
		deps.Settings.Register(r)
	}
	if deps.Vision != nil {
		deps.Vision.Register(r)
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteFailure(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteFailure(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteData(w, http.StatusOK, map[string]string{"status": "ok"})
}
