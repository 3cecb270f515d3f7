package router

import (
	"net/http"

	"grocerygenius-api/internal/handler"
	"grocerygenius-api/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler       *handler.Handler
	SyncHandler   *handler.SyncHandler
	DealHandler   *handler.DealHandler
	StoreHandler  *handler.StoreHandler
	IntentHandler *handler.IntentHandler
	AdminHandler  *handler.AdminHandler
	DocsHandler   *handler.DocsHandler

	// SecretMiddleware guards sync, debug and admin routes.
	SecretMiddleware func(http.Handler) http.Handler
	// IntentLimiter throttles intent parsing per client.
	IntentLimiter func(http.Handler) http.Handler

	AllowedOrigins []string
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}
	if cfg.DocsHandler != nil {
		r.Get("/docs", cfg.DocsHandler.Reference)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Handler != nil {
			r.Get("/health", cfg.Handler.Health)
			r.Get("/ready", cfg.Handler.Ready)
		}

		if cfg.DealHandler != nil {
			r.Get("/deals", cfg.DealHandler.List)
			r.Post("/watchlist/matches", cfg.DealHandler.MatchWatchList)
		}

		if cfg.StoreHandler != nil {
			r.Route("/stores", func(r chi.Router) {
				r.Get("/", cfg.StoreHandler.List)
				r.Get("/{slug}", cfg.StoreHandler.Get)
			})
		}

		if cfg.IntentHandler != nil {
			r.Group(func(r chi.Router) {
				if cfg.IntentLimiter != nil {
					r.Use(cfg.IntentLimiter)
				}
				r.Post("/search/intent", cfg.IntentHandler.Parse)
			})
		}

		// Shared-secret routes
		r.Group(func(r chi.Router) {
			if cfg.SecretMiddleware != nil {
				r.Use(cfg.SecretMiddleware)
			}

			if cfg.SyncHandler != nil {
				r.Get("/sync", cfg.SyncHandler.Trigger)
				r.Post("/sync", cfg.SyncHandler.Trigger)
				r.Get("/sync/debug", cfg.SyncHandler.Debug)
			}

			if cfg.AdminHandler != nil {
				r.Get("/admin/stats", cfg.AdminHandler.GetStats)
				r.Get("/admin/sync-runs", cfg.AdminHandler.GetSyncRuns)
			}
		})
	})

	return r
}
