// Package server wires the application together: database, services,
// handlers, routes, the view-ledger janitor, and graceful shutdown.
//
// This is the composition root — every dependency is constructed and
// connected here, so the rest of the codebase stays free of wiring.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/codesnap/internal/auth"
	"github.com/sakif/codesnap/internal/handler"
	"github.com/sakif/codesnap/internal/middleware"
	sqliteRepo "github.com/sakif/codesnap/internal/repository/sqlite"
	"github.com/sakif/codesnap/internal/service"
)

// janitorInterval is how often stale view rows get purged.
const janitorInterval = time.Hour

// Config holds everything the server needs from the environment.
type Config struct {
	Port      int
	DBPath    string
	JWTSecret string

	// Bootstrap admin credentials. Optional — when unset, no admin is
	// provisioned and the admin endpoints only ever return 401.
	AdminUsername    string
	AdminPassword    string
	AdminDisplayName string
}

// Server owns the router, the database connection, and the engagement
// service the janitor drives. The DB is closed during shutdown.
type Server struct {
	router     *chi.Mux
	config     Config
	logger     *slog.Logger
	db         *sqliteRepo.DB
	engagement *service.EngagementService
}

// New builds the full dependency graph:
//
//	sqlite.DB → {Snippet,Engagement,Admin}Service → handlers → routes
//
// and provisions the bootstrap admin if credentials are configured.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	adminService := service.NewAdminService(db, tokens, auth.NewPasswordService(), logger)
	snippetService := service.NewSnippetService(db, logger)
	engagementService := service.NewEngagementService(db, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := adminService.Bootstrap(ctx, cfg.AdminUsername, cfg.AdminPassword, cfg.AdminDisplayName); err != nil {
		db.Close()
		return nil, fmt.Errorf("provisioning bootstrap admin: %w", err)
	}

	s := &Server{
		router:     chi.NewRouter(),
		config:     cfg,
		logger:     logger,
		db:         db,
		engagement: engagementService,
	}
	s.setupRoutes(snippetService, engagementService, adminService)
	return s, nil
}

// setupRoutes registers middleware and the API surface.
//
// Middleware order matters: RequestID first so everything downstream can
// correlate, RealIP before anything that reads the client address (the
// engagement dedup depends on it), Recoverer before our logger so a panic
// still produces a request line.
func (s *Server) setupRoutes(
	snippets *service.SnippetService,
	engagement *service.EngagementService,
	admins *service.AdminService,
) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.VisitorID)

	snippetHandler := handler.NewSnippetHandler(snippets, admins, s.logger)
	engagementHandler := handler.NewEngagementHandler(engagement, s.logger)
	adminHandler := handler.NewAdminHandler(admins, s.logger)

	// Unrouted methods on these paths get chi's default 405.
	s.router.Route("/snippets", func(r chi.Router) {
		r.Get("/", snippetHandler.HandleList)
		r.Post("/", snippetHandler.HandleCreate)
		r.Get("/raw/{id}", snippetHandler.HandleRaw)
		r.Get("/{id}", snippetHandler.HandleGet)
		r.Delete("/{id}", snippetHandler.HandleDelete)
	})

	s.router.Post("/likes/{id}", engagementHandler.HandleAddLike)
	s.router.Delete("/likes/{id}", engagementHandler.HandleRemoveLike)
	s.router.Post("/views/{id}", engagementHandler.HandleRecordView)

	s.router.Post("/admin/login", adminHandler.HandleLogin)
	s.router.Post("/admin/verify", adminHandler.HandleVerify)
}

// Handler exposes the configured router, mainly for tests that want to run
// requests through the full middleware chain without a network listener.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, drain in-flight requests (30s),
// stop the janitor, close the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// The janitor keeps the view ledger from growing without bound; its
	// context is cancelled as part of shutdown.
	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	go s.runJanitor(janitorCtx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
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

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

// runJanitor purges stale view rows once immediately and then hourly until
// the context is cancelled. Failures are logged and retried next tick — a
// missed purge costs disk, not correctness.
func (s *Server) runJanitor(ctx context.Context) {
	purge := func() {
		purgeCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		if _, err := s.engagement.PurgeStaleViews(purgeCtx); err != nil {
			s.logger.Warn("view janitor run failed", slog.String("error", err.Error()))
		}
	}

	purge()

	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purge()
		}
	}
}
