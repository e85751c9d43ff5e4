// Package router wires the HTTP surface: middleware stack, public
// endpoints, and the authenticated booking API.
package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/HELLO-50/Sahatak-sub003/internal/http/handlers"
	httpmiddleware "github.com/HELLO-50/Sahatak-sub003/internal/http/middleware"
	"github.com/HELLO-50/Sahatak-sub003/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger       *logging.Logger
	Appointments *handlers.AppointmentsHandler
	Stats        *handlers.StatsHandler

	MetricsHandler     http.Handler
	AuthSecret         string
	CORSAllowedOrigins []string

	// RateLimitPerSecond caps requests per client IP. Zero disables.
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	if cfg.RateLimitPerSecond > 0 {
		r.Use(httpmiddleware.RateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst))
	}

	// Public endpoints.
	r.Get("/health", healthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Authenticated booking API.
	r.Route("/api/v1", func(api chi.Router) {
		api.Use(httpmiddleware.Auth(cfg.AuthSecret))

		if cfg.Appointments != nil {
			h := cfg.Appointments
			api.Post("/appointments", h.Create)
			api.Get("/appointments", h.ListMine)
			api.Route("/appointments/{id}", func(appt chi.Router) {
				appt.Get("/", h.Get)
				appt.Post("/reschedule", h.Reschedule)
				appt.Post("/cancel", h.Cancel)
				appt.Post("/begin", h.Begin)
				appt.Post("/end", h.End)
			})
			api.Route("/providers/{id}", func(provider chi.Router) {
				provider.Get("/schedule", h.ProviderSchedule)
				provider.Post("/blocks", h.BlockSlot)
				provider.Delete("/blocks/{blockID}", h.UnblockSlot)
			})
		}
		if cfg.Stats != nil {
			api.Get("/stats/bookings", cfg.Stats.Bookings)
		}
	})

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
