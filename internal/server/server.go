// Package server exposes the trade tracker over HTTP: JWT-authenticated
// CRUD for strategies and trades plus the netting and price-refresh
// operations.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"tradetracker/internal/app"
	"tradetracker/internal/auth"
	"tradetracker/internal/ports"
)

// Server represents the HTTP server.
type Server struct {
	router  *chi.Mux
	server  *http.Server
	logger  ports.Logger
	service *app.TradeService
	authMgr *auth.Manager
}

// Config holds server configuration.
type Config struct {
	Port    int
	Logger  ports.Logger
	Service *app.TradeService
	Auth    *auth.Manager
}

// New creates a new HTTP server.
func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil || cfg.Service == nil || cfg.Auth == nil {
		return nil, fmt.Errorf("missing required dependencies for HTTP server")
	}

	s := &Server{
		router:  chi.NewRouter(),
		logger:  cfg.Logger,
		service: cfg.Service,
		authMgr: cfg.Auth,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// setupMiddleware configures middleware.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

// setupRoutes configures all routes.
func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleRoot)
	s.router.Get("/health", s.handleHealth)

	s.router.Post("/auth/register", s.handleRegister)
	s.router.Post("/auth/login", s.handleLogin)

	s.router.Route("/strategies", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/", s.handleListStrategies)
		r.Post("/", s.handleCreateStrategy)
		r.Delete("/{strategyID}", s.handleDeleteStrategy)
	})

	s.router.Route("/trades", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/", s.handleListTrades)
		r.Post("/", s.handleCreateTrade)
		r.Post("/compare", s.handleCompareTrades)
		r.Put("/update_prices", s.handleUpdatePrices)
		r.Get("/summary", s.handleSummary)
		r.Get("/export", s.handleExport)
		r.Get("/{tradeID}", s.handleGetTrade)
		r.Put("/{tradeID}", s.handleUpdateTrade)
		r.Delete("/{tradeID}", s.handleDeleteTrade)
	})
}

// Handler returns the root HTTP handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info(context.Background(), "Starting HTTP server", map[string]interface{}{"addr": s.server.Addr})
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info(r.Context(), "HTTP request", map[string]interface{}{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"duration":   time.Since(start).String(),
			"request_id": middleware.GetReqID(r.Context()),
		})
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to the Trade Tracker API"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
