// Package server exposes checks, catalogs and run history over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/sync/errgroup"

	"github.com/faucetdb/driftguard/internal/config"
	"github.com/faucetdb/driftguard/internal/connector"
	"github.com/faucetdb/driftguard/internal/handler"
	"github.com/faucetdb/driftguard/internal/server/middleware"
	"github.com/faucetdb/driftguard/internal/service"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	CORSMethods     []string
	MaxBodySize     int64 // bytes
	RateLimit       int   // requests per minute per caller; 0 disables
	Version         string
}

// DefaultConfig listens on loopback only.
func DefaultConfig() Config {
	return Config{
		Host:            "127.0.0.1",
		Port:            8484,
		ShutdownTimeout: 15 * time.Second,
		CORSOrigins:     []string{"*"},
		CORSMethods:     []string{"GET", "POST"},
		MaxBodySize:     1 << 20,
		RateLimit:       120,
		Version:         "dev",
	}
}

// Addr is the host:port the server listens on.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Server routes API requests to the check and system handlers.
type Server struct {
	cfg      Config
	router   chi.Router
	checks   *service.CheckService
	registry *connector.Registry
	store    *config.Store
	authSvc  *service.AuthService
	logger   *slog.Logger
}

func New(cfg Config, checks *service.CheckService, registry *connector.Registry, store *config.Store, authSvc *service.AuthService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:      cfg,
		checks:   checks,
		registry: registry,
		store:    store,
		authSvc:  authSvc,
		logger:   logger,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: append([]string{http.MethodOptions}, s.cfg.CORSMethods...),
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))
	r.Use(chimw.Compress(5))
	if s.cfg.MaxBodySize > 0 {
		r.Use(chimw.RequestSize(s.cfg.MaxBodySize))
	}

	// Probes and the API description are public.
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Get("/openapi.json", handler.NewOpenAPIHandler(s.cfg.Version).ServeSpec)

	checks := handler.NewCheckHandler(s.checks)
	system := handler.NewSystemHandler(s.store, s.registry)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(s.authSvc))
		r.Use(middleware.RateLimit(s.cfg.RateLimit))

		r.With(middleware.RequireScope(s.authSvc, service.ScopeCheck)).Group(func(r chi.Router) {
			r.Post("/check", checks.Check)
			r.Post("/suggest", checks.Suggest)
		})
		r.With(middleware.RequireScope(s.authSvc, service.ScopeRead)).Group(func(r chi.Router) {
			r.Get("/catalog", checks.Catalog)
			r.Get("/rules", checks.Rules)
			r.Get("/runs", checks.Runs)
			r.Get("/services", system.ListServices)
			r.Get("/services/{serviceName}", system.GetService)
		})
	})
	return r
}

type probe struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func writeProbe(w http.ResponseWriter, status int, p probe) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(p) //nolint:errcheck
}

// handleHealthz answers while the process is up.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeProbe(w, http.StatusOK, probe{Status: "ok"})
}

// handleReadyz fails with 503 when the state store does not answer.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeProbe(w, http.StatusServiceUnavailable, probe{Status: "degraded", Checks: map[string]string{"store": "error: " + err.Error()}})
		return
	}
	writeProbe(w, http.StatusOK, probe{Status: "ok", Checks: map[string]string{"store": "ok"}})
}

// Run serves until ctx is cancelled, then drains in-flight requests for at
// most ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("server starting", "addr", srv.Addr, "auth", s.authSvc.Enabled())
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("draining connections")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		s.logger.Info("server stopped")
		return nil
	})
	return g.Wait()
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
