package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/dashboard"
	httpmiddleware "github.com/Nanyonga-Rahmah/crm-landing-pages/internal/http/middleware"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/http/respond"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/leads"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/listing"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/realtime"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/records"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/session"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Sessions           *session.Manager
	AuthHandler        *session.Handler
	ListingHandler     *listing.Handler
	LeadsHandler       *leads.Handler
	DashboardHandler   *dashboard.Handler
	RecordsHandler     *records.Handler
	RealtimeHandler    *realtime.Handler
	MetricsHandler     http.Handler
	RateLimiter        *httpmiddleware.RateLimiter
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", health)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	r.Route("/api", func(api chi.Router) {
		if cfg.RateLimiter != nil {
			api.Use(cfg.RateLimiter.Middleware)
		}
		api.Use(cfg.Sessions.Middleware)

		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/login", cfg.AuthHandler.Login)
			auth.Post("/logout", cfg.AuthHandler.Logout)
			auth.Group(func(signedIn chi.Router) {
				signedIn.Use(session.RequireSession)
				signedIn.Get("/session", cfg.AuthHandler.Current)
				signedIn.Post("/organization", cfg.AuthHandler.SelectOrganization)
			})
		})

		// List pages load before an organization is chosen
		if cfg.ListingHandler != nil {
			api.With(allowPendingOrganization).Get("/lists/{kind}", cfg.ListingHandler.List)
		}

		// Organization-scoped routes
		api.Group(func(tenant chi.Router) {
			tenant.Use(requireOrganization)

			if cfg.LeadsHandler != nil {
				tenant.Route("/leads", cfg.LeadsHandler.Routes)
			}
			if cfg.DashboardHandler != nil {
				cfg.DashboardHandler.Routes(tenant)
			}
			if cfg.RecordsHandler != nil {
				cfg.RecordsHandler.Routes(tenant)
			}
			if cfg.RealtimeHandler != nil {
				tenant.Get("/events/ws", cfg.RealtimeHandler.ServeWS)
			}
		})
	})

	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
