// Package api is the HTTP surface: games, draws, analytics, generation,
// admin imports, the live feed upgrade and metrics.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"lottery-insight-server/auth"
	"lottery-insight-server/config"
	"lottery-insight-server/importer"
	"lottery-insight-server/insight"
	"lottery-insight-server/metrics"
)

// Deps are the collaborators the handlers call into.
type Deps struct {
	Config   *config.Config
	Service  *insight.Service
	Importer *importer.Importer
	Admin    *auth.Admin
	Metrics  *metrics.Metrics
	// LiveFeed upgrades /v1/ws requests. Nil disables the route.
	LiveFeed http.HandlerFunc
}

// Server owns the router and the underlying http.Server.
type Server struct {
	router *chi.Mux
	server *http.Server
	deps   Deps
}

// New builds the router and server for deps.
func New(deps Deps) *Server {
	s := &Server{router: chi.NewRouter(), deps: deps}
	s.setupMiddleware()
	s.setupRoutes()
	s.server = &http.Server{
		Addr:        fmt.Sprintf(":%d", deps.Config.Port),
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
	return s
}

// Handler returns the root handler, e.g. for httptest.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(loggingMiddleware)
	if s.deps.Metrics != nil {
		s.router.Use(s.deps.Metrics.Instrument)
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.deps.Config.AllowedOrigins(),
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", auth.HeaderAdminKey},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	limiter := NewRateLimiter(s.deps.Config.RateLimit.RPS, s.deps.Config.RateLimit.Burst)

	s.router.Get("/health", s.handleHealth)
	if s.deps.Metrics != nil {
		s.router.Handle("/metrics", s.deps.Metrics.Handler())
	}

	s.router.Route("/v1", func(r chi.Router) {
		r.Get("/games", s.handleGames)
		r.Get("/draws", s.handleDraws)
		r.Get("/analytics", s.handleAnalytics)
		r.With(limiter.Handler).Post("/generate", s.handleGenerate)
		r.With(limiter.Handler).Post("/import", s.handleImport)
		if s.deps.LiveFeed != nil {
			r.Get("/ws", s.deps.LiveFeed)
		}
	})
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	slog.Info("starting HTTP server", "tag", "api", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("shutting down HTTP server", "tag", "api")
	return s.server.Shutdown(ctx)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		slog.Debug("HTTP request",
			"tag", "api",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
