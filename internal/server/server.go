// Package server sets up the HTTP server, router, and all route
// definitions. This is the composition root: every dependency is
// constructed and wired here, so the rest of the codebase only declares
// what it needs.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sakif/checklist/internal/config"
	"github.com/sakif/checklist/internal/handler"
	"github.com/sakif/checklist/internal/identity"
	"github.com/sakif/checklist/internal/metrics"
	"github.com/sakif/checklist/internal/middleware"
	sqliteRepo "github.com/sakif/checklist/internal/repository/sqlite"
	"github.com/sakif/checklist/internal/service"
)

// Server owns the router and the resources with a lifecycle: the database
// connection and the rate limiter's cleanup goroutine. Start runs until
// shutdown and releases both.
type Server struct {
	router  *chi.Mux
	cfg     *config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	limiter *middleware.RateLimiter
}

// New creates a Server with the full dependency chain assembled:
//
//	sqlite.DB → repositories → UserService/TaskService → handlers → routes
//
// Each layer only receives what it needs; handlers never touch the
// database, services never touch HTTP.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures middleware and all route handlers.
//
// ROUTE STRUCTURE:
//
//	GET    /healthz                → liveness probe
//	GET    /metrics                → Prometheus metrics
//	GET    /auth/login             → redirect to identity provider
//	GET    /auth/callback          → complete login, set token cookie
//	POST   /auth/logout            → clear token cookie
//	GET    /api/me                 → current user info (anonymous ok)
//	POST   /api/users/me           → provision from own identity
//	GET    /api/tasks              → list own tasks
//	POST   /api/tasks              → create task
//	POST   /api/tasks/{id}/toggle  → flip completion flag
//	PUT    /api/tasks/{id}         → rename task
//	DELETE /api/tasks/{id}         → delete task
//	POST   /internal/users         → trusted upsert (internal key)
func (s *Server) setupRoutes() error {
	tokens, err := identity.NewTokenService(s.cfg.TokenSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	userService := service.NewUserService(s.db, s.logger)
	taskService := service.NewTaskService(s.db, userService, s.logger)

	userHandler := handler.NewUserHandler(userService, s.logger)
	taskHandler := handler.NewTaskHandler(taskService, s.logger)

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// Global middleware, in order: request ID and real IP first so the
	// logger sees them, recoverer before anything that can panic, then
	// logging and metrics around everything that follows.
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(collector.Middleware)

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	s.router.Method(http.MethodGet, "/metrics", metrics.Handler(registry))

	// Login flow — only registered when the provider is configured.
	// API clients holding tokens issued elsewhere are unaffected either way.
	if s.cfg.OAuthConfigured() {
		provider := identity.NewProvider(identity.ProviderConfig{
			ClientID:     s.cfg.OAuthClientID,
			ClientSecret: s.cfg.OAuthClientSecret,
			AuthURL:      s.cfg.OAuthAuthURL,
			TokenURL:     s.cfg.OAuthTokenURL,
			UserInfoURL:  s.cfg.OAuthUserInfoURL,
			CallbackURL:  s.cfg.OAuthCallbackURL,
		})
		authHandler := handler.NewAuthHandler(provider, tokens, userService, s.logger)

		s.router.Get("/auth/login", authHandler.HandleLogin)
		s.router.Get("/auth/callback", authHandler.HandleCallback)
		s.router.Post("/auth/logout", authHandler.HandleLogout)
	} else {
		s.logger.Warn("identity provider not configured — /auth routes disabled")
	}

	// The limiter sits after the identity middleware in each chain below,
	// so authenticated callers are bucketed by subject rather than by IP.
	var limit func(http.Handler) http.Handler = passthrough
	if s.cfg.RateLimitEnabled {
		s.limiter = middleware.NewRateLimiter(middleware.RateLimiterConfig{
			RPM:             s.cfg.RateLimitRPM,
			Burst:           s.cfg.RateLimitBurst,
			CleanupInterval: middleware.DefaultRateLimiterConfig().CleanupInterval,
		})
		limit = s.limiter.Middleware
	}

	s.router.Route("/api", func(r chi.Router) {
		// /api/me is readable anonymously: it answers "who am I", and
		// "nobody" is a valid answer, not a 401.
		r.With(identity.OptionalIdentity(tokens), limit).Get("/me", userHandler.HandleMe)

		r.Group(func(r chi.Router) {
			r.Use(identity.RequireIdentity(tokens))
			r.Use(limit)

			r.Post("/users/me", userHandler.HandleCreateCurrentUser)

			r.Get("/tasks", taskHandler.HandleList)
			r.Post("/tasks", taskHandler.HandleCreate)
			r.Post("/tasks/{id}/toggle", taskHandler.HandleToggle)
			r.Put("/tasks/{id}", taskHandler.HandleRename)
			r.Delete("/tasks/{id}", taskHandler.HandleDelete)
		})
	})

	// Trusted backend-to-backend provisioning: no identity token, just the
	// shared internal key. This is the path a login webhook calls with
	// fresh claims on every sign-in event.
	s.router.Route("/internal", func(r chi.Router) {
		r.Use(middleware.RequireInternalKey(s.cfg.InternalAPIKey))
		r.Post("/users", userHandler.HandleCreateUser)
	})

	return nil
}

// passthrough is the no-op middleware used when rate limiting is disabled.
func passthrough(next http.Handler) http.Handler {
	return next
}

// Start runs the HTTP server and handles graceful shutdown:
// stop accepting connections, drain in-flight requests, stop the rate
// limiter's cleanup goroutine, close the database.
func (s *Server) Start() error {
	defer s.db.Close()
	if s.limiter != nil {
		defer s.limiter.Stop()
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.cfg.Port),
			slog.String("database", s.cfg.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
