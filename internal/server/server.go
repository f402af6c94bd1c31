// internal/server/server.go

package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"connectr/internal/config"
	"connectr/internal/domain/identity"
	"connectr/internal/server/handlers"
)

// Dependencies are the services the HTTP layer talks to
type Dependencies struct {
	Identity  handlers.IdentityService
	Mood      handlers.MoodService
	Locations handlers.LocationService
	Tokens    identity.TokenManager

	// Events enables /ws/events when set
	Events       handlers.Subscriber
	StreamTopics []string
}

// Server represents the HTTP server
type Server struct {
	server *http.Server
	router *chi.Mux
	log    zerolog.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg config.ServerConfig, deps Dependencies, log zerolog.Logger) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    log.With().Str("component", "http").Logger(),
	}

	s.setupMiddleware(cfg)
	s.setupRoutes(cfg, deps)

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

func (s *Server) setupMiddleware(cfg config.ServerConfig) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Recoverer)

	// CORS configuration
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CorsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes(cfg config.ServerConfig, deps Dependencies) {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	authHandler := handlers.NewAuthHandler(deps.Identity, cfg.MaxBodyBytes)
	userHandler := handlers.NewUserHandler(deps.Identity, deps.Locations, cfg.MaxBodyBytes)
	moodHandler := handlers.NewMoodHandler(deps.Mood, cfg.MaxBodyBytes)
	geoHandler := handlers.NewGeoHandler(deps.Locations)

	s.router.Route("/api", func(r chi.Router) {
		// Health check
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})

		// API version
		r.Route("/v1", func(r chi.Router) {
			r.Use(middleware.Timeout(timeout))
			r.Use(middleware.Compress(5, "application/json"))

			r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"status":"ok"}`))
			})

			// Public auth API
			r.Route("/auth", func(r chi.Router) {
				r.Post("/register", authHandler.Register)
				r.Post("/login", authHandler.Login)
				r.Post("/logout", authHandler.Logout)
				r.Post("/reset-password", authHandler.RequestPasswordReset)
				r.Post("/reset-password/confirm", authHandler.ConfirmPasswordReset)
			})

			// Authenticated API
			r.Group(func(r chi.Router) {
				r.Use(handlers.RequireAuth(deps.Tokens))

				r.Route("/users/{id}", func(r chi.Router) {
					r.Get("/", userHandler.GetUser)
					r.Put("/", userHandler.UpdateUser)
					r.Delete("/", userHandler.DeleteUser)
					r.Put("/location", userHandler.UpdateLocation)
					r.Put("/sharing", userHandler.UpdateSharing)
				})

				r.Route("/moods", func(r chi.Router) {
					r.Post("/", moodHandler.RecordMood)
					r.Get("/", moodHandler.History)
					r.Get("/statistics", moodHandler.Statistics)
					r.Get("/insights", moodHandler.Insights)
				})

				r.Get("/connections/nearby", geoHandler.GetNearbyConnections)
				r.Get("/geo/distance", geoHandler.GetDistance)
			})
		})
	})

	// WebSocket endpoint for real-time events
	if deps.Events != nil {
		stream := handlers.NewEventStreamHandler(deps.Tokens, deps.Events, deps.StreamTopics, cfg.CorsOrigins, s.log)
		s.router.Get("/ws/events", stream.ServeHTTP)
	}
}

// loggingMiddleware writes one access log line per request and attaches the logger to the request context
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqLog := s.log.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(reqLog.WithContext(r.Context())))

		reqLog.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Msg("HTTP request")
	})
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP server listening")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
