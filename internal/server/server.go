// Package server wires the HTTP surface: middleware, module routes,
// system monitoring and the websocket event stream.
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

	"github.com/mveron/foliotrack/internal/config"
	"github.com/mveron/foliotrack/internal/database"
	"github.com/mveron/foliotrack/internal/events"
	"github.com/mveron/foliotrack/internal/modules/alerts"
	"github.com/mveron/foliotrack/internal/modules/analytics"
	"github.com/mveron/foliotrack/internal/modules/goals"
	"github.com/mveron/foliotrack/internal/modules/history"
	"github.com/mveron/foliotrack/internal/modules/portfolio"
	"github.com/mveron/foliotrack/internal/scheduler"
)

// Deps holds everything the server mounts
type Deps struct {
	Config    *config.Config
	Log       zerolog.Logger
	DB        *database.DB
	Hub       *events.Hub
	Scheduler *scheduler.Scheduler

	Portfolio *portfolio.Handler
	Analytics *analytics.Handler
	Alerts    *alerts.Handler
	Goals     *goals.Handler
	History   *history.Handler
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
	deps   Deps
	system *SystemHandlers
}

// New creates a new HTTP server
func New(deps Deps) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    deps.Log.With().Str("component", "server").Logger(),
		deps:   deps,
		system: NewSystemHandlers(deps.Log, deps.Config, deps.DB, deps.Scheduler),
	}

	s.setupMiddleware(deps.Config.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", deps.Config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-User-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.system.HandleSystemStatus)
			r.Get("/databases", s.system.HandleDatabaseStats)
		})

		r.Route("/portfolio", s.deps.Portfolio.Routes)
		r.Route("/analytics", s.deps.Analytics.Routes)
		r.Route("/alerts", s.deps.Alerts.Routes)
		r.Route("/goals", s.deps.Goals.Routes)
		r.Route("/prices", s.deps.History.Routes)

		r.Route("/events", func(r chi.Router) {
			r.Handle("/ws", s.deps.Hub)
		})
	})
}

// handleHealth answers liveness probes
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.deps.Config.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
