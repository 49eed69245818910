// Copyright (c) 2026 Whisperwall Contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/whisperwall/whisperwall/internal/cache"
	"github.com/whisperwall/whisperwall/internal/config"
	"github.com/whisperwall/whisperwall/internal/handler"
	"github.com/whisperwall/whisperwall/internal/logging"
	"github.com/whisperwall/whisperwall/internal/middleware"
	"github.com/whisperwall/whisperwall/internal/render"
	"github.com/whisperwall/whisperwall/internal/scheduler"
	"github.com/whisperwall/whisperwall/internal/session"
	"github.com/whisperwall/whisperwall/internal/store"
	"github.com/whisperwall/whisperwall/internal/version"
	"github.com/whisperwall/whisperwall/web"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Whisperwall - anonymous confession board\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  WW_SESSION_SECRET       Session encryption key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  WW_DB_PATH              SQLite database path (default: ./data/whisperwall.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  WW_SERVER_PORT          Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  WW_ENV                  Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  WW_ADMIN_CLIENT_TOKEN   Optional User-Agent token gating the admin login\n")
		_, _ = fmt.Fprintf(os.Stderr, "  WW_REDIS_URL            Redis URL for the feed cache (optional)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if *showVersion {
		_, _ = fmt.Printf("whisperwall %s (commit: %s, built: %s)\n", appVersion, appGitCommit, appBuildTime)
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	versionInfo := &version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}

	// Setup logger
	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
	slog.Info("starting whisperwall", "version", versionInfo.Version, "env", cfg.Env)

	// Ensure data directory exists
	dbDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	// Initialize database
	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	// Run migrations
	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// Upgrade logger to also write WARN and ERROR logs to the event log
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	eventLogHandler := logging.NewEventLogHandler(textHandler, db)
	logger = slog.New(eventLogHandler)
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", "warn")

	// Initialize session manager
	sessionManager := session.New(db, cfg.IsDevelopment())
	slog.Info("session manager initialized")

	// Initialize feed cache (Redis with in-memory fallback)
	feedCacher := cache.New(cache.Config{
		RedisURL:   cfg.RedisURL,
		DefaultTTL: time.Duration(cfg.CacheTTL) * time.Second,
	})
	defer func() {
		if err := feedCacher.Close(); err != nil {
			slog.Error("error closing cache", "error", err)
		}
	}()
	feedCache := cache.NewFeedCache(feedCacher, store.New(db))
	if cfg.UseRedisCache() {
		slog.Info("feed cache initialized", "backend", "redis")
	} else {
		slog.Info("feed cache initialized", "backend", "memory")
	}

	// Initialize template renderer
	templatesFS, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		return fmt.Errorf("getting templates fs: %w", err)
	}

	renderer, err := render.New(render.Config{
		TemplatesFS:    templatesFS,
		SessionManager: sessionManager,
		IsDev:          cfg.IsDevelopment(),
	})
	if err != nil {
		return fmt.Errorf("initializing renderer: %w", err)
	}
	slog.Info("template renderer initialized")

	// Initialize and start scheduler for the nightly event purge
	sched := scheduler.New(db, logger, cfg.EventRetentionDays)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

	// CSRF protection middleware
	csrfConfig := middleware.DefaultCSRFConfig([]byte(cfg.SessionSecret), cfg.IsDevelopment())
	csrfMiddleware := middleware.CSRF(csrfConfig)
	slog.Info("CSRF protection initialized", "secure", !cfg.IsDevelopment())

	// Login protection: per-account lockout plus POST rate limiting
	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())
	slog.Info("login protection initialized")

	// Public rate limiter for the whole site
	publicRateLimiter := middleware.NewGlobalRateLimiter(10.0, 20)
	slog.Info("public rate limiter initialized", "rate", "10 req/s", "burst", 20)

	// Initialize handlers
	frontendHandler := handler.NewFrontendHandler(db, renderer, feedCache)
	setupHandler := handler.NewSetupHandler(db, renderer)
	authHandler := handler.NewAuthHandler(db, renderer, sessionManager, loginProtection)
	adminHandler := handler.NewAdminHandler(db, renderer, sessionManager, feedCache)

	// Create router
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.GetHead)
	r.Use(chimw.Timeout(30 * time.Second))

	securityConfig := middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())
	r.Use(middleware.SecurityHeaders(securityConfig))

	r.Use(sessionManager.LoadAndSave)

	// Static assets
	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		return fmt.Errorf("getting static fs: %w", err)
	}
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	// Public routes: the gated feed and the submission form
	r.Group(func(r chi.Router) {
		r.Use(publicRateLimiter.Middleware())
		r.Use(csrfMiddleware)

		r.Get(handler.RouteRoot, frontendHandler.Home)
		r.Post(handler.RouteRoot, frontendHandler.Feed)
		r.Get(handler.RouteSubmit, frontendHandler.SubmitForm)
		r.Post(handler.RouteSubmit, frontendHandler.Submit)

		// One-time setup, answers 404 once an admin exists
		r.Get(handler.RouteSetup, setupHandler.SetupForm)
		r.Post(handler.RouteSetup, setupHandler.Setup)
	})

	// Login routes, optionally gated behind the client token
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireClientToken(cfg.AdminClientToken))
		r.Use(publicRateLimiter.Middleware())
		r.Use(csrfMiddleware)

		r.Get(handler.RouteAdminLogin, authHandler.LoginForm)
		r.With(loginProtection.Middleware()).Post(handler.RouteAdminLogin, authHandler.Login)
	})
	if cfg.LoginGateEnabled() {
		slog.Info("admin client token gate enabled")
	}

	// Admin routes (session required)
	r.Route(handler.RouteAdmin, func(r chi.Router) {
		r.Use(csrfMiddleware)
		r.Use(middleware.Auth(sessionManager))
		r.Use(middleware.LoadAdmin(sessionManager, db))

		r.Get("/", adminHandler.Dashboard)
		r.Post("/approve"+handler.RouteParamID, adminHandler.ApproveConfession)
		r.Post("/edit"+handler.RouteParamID, adminHandler.EditConfession)
		r.Post("/delete"+handler.RouteParamID, adminHandler.DeleteConfession)
		r.Post("/generate-code", adminHandler.GenerateCode)
		r.Post("/toggle-code"+handler.RouteParamID, adminHandler.ToggleCode)
		r.Post("/delete-code"+handler.RouteParamID, adminHandler.DeleteCode)
		r.Post("/logout", authHandler.Logout)
	})

	// Start server
	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	// Graceful shutdown on SIGINT/SIGTERM
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-stop:
		slog.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
