// CTF admin console server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tamuctf/CTFd/internal/api"
	"github.com/tamuctf/CTFd/internal/catalog"
	"github.com/tamuctf/CTFd/internal/config"
	"github.com/tamuctf/CTFd/internal/ctfd"
	"github.com/tamuctf/CTFd/internal/editor"
	"github.com/tamuctf/CTFd/internal/identity"
	"github.com/tamuctf/CTFd/internal/middleware"
	"github.com/tamuctf/CTFd/internal/notify"
	"github.com/tamuctf/CTFd/internal/store"
	"github.com/tamuctf/CTFd/internal/worker"
	"github.com/tamuctf/CTFd/web"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting console", "port", cfg.Port, "server", cfg.Server.BaseURL(), "dev", cfg.IsDevelopment())

	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	client, err := ctfd.New(cfg.Server, ctfd.WithMetrics(ctfd.NewMetrics(registry)))
	if err != nil {
		slog.Error("Failed to initialize CTF server client", "error", err)
		os.Exit(1)
	}

	pages, err := web.NewRenderer()
	if err != nil {
		slog.Error("Failed to parse templates", "error", err)
		os.Exit(1)
	}

	cat := catalog.NewService(client, repo, cfg.CacheTTL)
	sessions := editor.NewRegistry()
	hub := notify.NewHub(cfg.NotifyBacklog)

	baseHandler := api.NewHandler(client, cat, sessions, hub, pages)
	healthHandler := api.NewHealthHandler(repo, cfg.CacheTTL)
	wsHandler := notify.NewWebSocketHandler(hub, cfg.AllowedOrigins, cfg.IsDevelopment())

	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Public routes.
	healthHandler.RegisterHealth(r)
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	r.Handle("/static/*", http.StripPrefix("/static/", web.StaticHandler()))

	// Console routes: every admin gets a cookie identity and a form nonce.
	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(repo, cfg.IsDevelopment()))
		r.Get("/ws/notifications", wsHandler.ServeHTTP)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireNonce)
			baseHandler.RegisterRoutes(r)
		})
	})

	// WebSocket connections are long lived, so no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	worker.StartTTLWorker(ctx, worker.Config{
		Repo:       repo,
		Sessions:   sessions,
		Catalog:    cat,
		SessionTTL: cfg.SessionTTL,
		OnCleanup:  hub.Forget,
	})
	slog.Info("TTL worker started", "session_ttl", cfg.SessionTTL, "cache_ttl", cfg.CacheTTL)

	go func() {
		slog.Info("Console listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Console stopped successfully")
}
