// Package rest wires the HTTP surface: router, middleware, and handlers.
package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"citypulse/application/session"
	"citypulse/infrastructure/config"
	"citypulse/interfaces/http/rest/handlers"
	"citypulse/interfaces/http/rest/middleware"
	"citypulse/pkg/auth"
	"citypulse/pkg/common"
	"citypulse/pkg/observability"
)

// RouterDeps carries everything the router needs.
type RouterDeps struct {
	Config     *config.Config
	Logger     *zap.Logger
	Collector  *observability.Collector
	Sessions   *session.Store
	Tokens     *auth.TokenManager
	Auth       *handlers.AuthHandler
	Events     *handlers.EventHandler
	Venues     *handlers.VenueHandler
	Favourites *handlers.FavouritesHandler
}

// NewRouter builds the chi router with the full route tree.
func NewRouter(deps RouterDeps) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Logging(deps.Logger))
	if deps.Config.EnableMetrics {
		r.Use(middleware.Metrics(deps.Collector))
	}
	if deps.Config.EnableCORS {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		common.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/ready", func(w http.ResponseWriter, _ *http.Request) {
		if deps.Sessions.IsLoading() {
			common.RespondError(w, http.StatusServiceUnavailable, "SESSION_LOADING", "session rehydration in progress")
			return
		}
		common.RespondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	if deps.Config.EnableMetrics {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Collector.Registry(), promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Login area: reachable only without an active session.
		r.Group(func(r chi.Router) {
			r.Use(middleware.GuestOnly(deps.Sessions))
			r.Post("/auth/login", deps.Auth.Login)
			r.Post("/auth/signup", deps.Auth.Signup)
			r.Post("/auth/biometric/login", deps.Auth.BiometricLogin)
		})

		// App area: guarded by the session middleware.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Guard(deps.Sessions, deps.Tokens))

			r.Post("/auth/logout", deps.Auth.Logout)
			r.Get("/auth/me", deps.Auth.Me)
			r.Post("/auth/biometric/enable", deps.Auth.EnableBiometric)
			r.Post("/auth/biometric/disable", deps.Auth.DisableBiometric)

			r.Get("/events", deps.Events.Search)
			r.Get("/events/nearby", deps.Events.Nearby)
			r.Get("/events/category/{classification}", deps.Events.ByCategory)
			r.Post("/events/refresh", deps.Events.Refresh)
			r.Get("/events/{eventID}", deps.Events.Detail)

			r.Get("/venues", deps.Venues.Search)
			r.Get("/venues/nearby", deps.Venues.Nearby)
			r.Post("/venues/refresh", deps.Venues.Refresh)
			r.Get("/venues/{venueID}", deps.Venues.Detail)

			r.Get("/favourites", deps.Favourites.List)
			r.Get("/favourites/{eventID}", deps.Favourites.Get)
			r.Put("/favourites/{eventID}", deps.Favourites.Put)
			r.Delete("/favourites/{eventID}", deps.Favourites.Delete)
		})
	})

	return r
}
