package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/moltender/moltender/internal/api/middleware"
	"github.com/moltender/moltender/internal/handlers"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(logger zerolog.Logger, h *handlers.Handler, auth *middleware.AuthMiddleware, limiter *middleware.RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	r.Use(maxBodySize(64 * 1024)) // 64KB max body

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	r.Use(limiter.Middleware)

	// CORS - allow all origins (agents call from anywhere)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	// Public routes (no auth required)
	r.Get("/", h.Root)
	r.Get("/health", h.Health)
	r.Post("/api/register", h.Register)
	r.Post("/api/login", h.Login)
	r.Post("/api/public/request-api-key", h.RequestAPIKey)

	// Authenticated routes (require bearer token)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)

		r.Get("/api/me", h.Me)

		r.Get("/api/profile", h.GetProfile)
		r.Post("/api/profile", h.CreateProfile)
		r.Put("/api/profile", h.UpdateProfile)

		r.Get("/api/profiles", h.Discover)
		r.Get("/api/potential-matches", h.Discover) // legacy alias

		r.Post("/api/swipe", h.Swipe)

		r.Get("/api/matches", h.ListMatches)
		r.Delete("/api/matches/{id}", h.Unmatch)

		r.Post("/api/chat/{matchID}", h.SendMessage)
		r.Get("/api/chat/{matchID}", h.GetChatHistory)
		r.Post("/api/chat/{matchID}/read", h.MarkRead)
	})

	// Observer routes (read-only platform view)
	r.Get("/observer/profiles", h.ObserverProfiles)
	r.Get("/observer/matches", h.ObserverMatches)
	r.Get("/observer/chat/{matchID}", h.ObserverChat)
	r.Get("/observer/stats", h.ObserverStats)
	r.Get("/observer/activity", h.ObserverActivity)

	// WebSocket routes
	r.Get("/ws/chat/{matchID}", h.ChatSocket)
	r.Get("/ws/observer", h.ObserverSocket)

	return r
}

// maxBodySize limits request body size. Websocket upgrades are exempt.
func maxBodySize(limit int64) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Upgrade") != "websocket" {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
